package reports

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/courtledger/courtledger/internal/platform/httpx"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/pnl", h.ProfitAndLoss)
	r.Get("/pnl.csv", h.ProfitAndLossCSV)
}

func (h *Handler) ProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	pl, err := h.service.ProfitAndLoss(r.Context())
	if err != nil {
		h.logger.Error("compute pnl", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) ProfitAndLossCSV(w http.ResponseWriter, r *http.Request) {
	pl, err := h.service.ProfitAndLoss(r.Context())
	if err != nil {
		h.logger.Error("compute pnl", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="profit-and-loss.csv"`)
	if err := WriteCSV(w, pl); err != nil {
		h.logger.Error("stream pnl csv", slog.Any("error", err))
	}
}
