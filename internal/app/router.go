package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/courtledger/courtledger/internal/coa"
	"github.com/courtledger/courtledger/internal/events"
	"github.com/courtledger/courtledger/internal/inventory"
	"github.com/courtledger/courtledger/internal/ledger"
	"github.com/courtledger/courtledger/internal/observability"
	"github.com/courtledger/courtledger/internal/platform/httpx"
	"github.com/courtledger/courtledger/internal/pricing"
	"github.com/courtledger/courtledger/internal/reports"
	"github.com/courtledger/courtledger/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Metrics          *observability.Metrics
	AccountHandler   *coa.Handler
	LedgerHandler    *ledger.Handler
	InventoryHandler *inventory.Handler
	EventHandler     *events.Handler
	PricingHandler   *pricing.Handler
	ReportHandler    *reports.Handler
}

// NewRouter assembles the HTTP routing tree.
func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: p.Logger, Config: p.Config}) {
		r.Use(mw)
	}
	r.Use(p.Metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", p.Metrics.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(shared.RequirePrincipal)
		api.Route("/accounts", p.AccountHandler.MountRoutes)
		api.Route("/journal", p.LedgerHandler.MountRoutes)
		api.Route("/inventory", p.InventoryHandler.MountRoutes)
		api.Route("/assets", p.InventoryHandler.MountAssetRoutes)
		api.Route("/sessions", p.EventHandler.MountRoutes)
		api.Route("/pricing", p.PricingHandler.MountRoutes)
		api.Route("/reports", p.ReportHandler.MountRoutes)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "route not found")
	})

	return r
}
