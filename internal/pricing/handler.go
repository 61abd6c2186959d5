package pricing

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/courtledger/courtledger/internal/platform/httpx"
	"github.com/courtledger/courtledger/internal/shared"
)

// CategoryResolver maps a user to a pricing category. Satisfied by the
// membership resolver.
type CategoryResolver interface {
	Category(ctx context.Context, userID string) UserCategory
}

type Handler struct {
	resolver CategoryResolver
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, resolver CategoryResolver) *Handler {
	return &Handler{logger: logger, resolver: resolver, validate: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/categories", h.Categories)
	r.Post("/quote", h.Quote)
	r.Post("/tiers", h.Tiers)
}

type costsRequest struct {
	CourtCost       int64 `json:"court_cost" validate:"gte=0"`
	ShuttlecockCost int64 `json:"shuttlecock_cost" validate:"gte=0"`
	ToolCost        int64 `json:"tool_cost" validate:"gte=0"`
	CoachFee        int64 `json:"coach_fee" validate:"gte=0"`
	Capacity        int64 `json:"capacity" validate:"gte=0"`
}

func (req costsRequest) toCosts() SessionCosts {
	return SessionCosts{
		CourtCost:       req.CourtCost,
		ShuttlecockCost: req.ShuttlecockCost,
		ToolCost:        req.ToolCost,
		CoachFee:        req.CoachFee,
		Capacity:        req.Capacity,
	}
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": Categories()})
}

// Quote prices one participant. The category comes from the query string when
// present, otherwise from the authenticated user's membership standing.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req costsRequest
	if !h.decode(w, r, &req) {
		return
	}
	category := UserCategory(r.URL.Query().Get("category"))
	if category == "" {
		category = h.resolveCategory(r)
	}
	quote := CalculateDrillingPrice(req.toCosts(), category)
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Tiers(w http.ResponseWriter, r *http.Request) {
	var req costsRequest
	if !h.decode(w, r, &req) {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tiers": GeneratePriceTiers(req.toCosts())})
}

func (h *Handler) resolveCategory(r *http.Request) UserCategory {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok || h.resolver == nil {
		return h.anonymousCategory()
	}
	return h.resolver.Category(r.Context(), principal.UserID)
}

func (h *Handler) anonymousCategory() UserCategory {
	if h.resolver == nil {
		return CategoryNormal
	}
	return h.resolver.Category(context.Background(), "")
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}
