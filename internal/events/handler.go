package events

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/courtledger/courtledger/internal/inventory"
	"github.com/courtledger/courtledger/internal/platform/httpx"
	"github.com/courtledger/courtledger/internal/shared"
)

type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{eventID}", h.Get)
	r.Get("/{eventID}/tiers", h.PriceTiers)
	r.Post("/{eventID}/close", h.Close)
}

type closeRequest struct {
	ShuttleQty    *float64 `json:"shuttle_qty" validate:"omitempty,gte=0"`
	CourtFee      *int64   `json:"court_fee" validate:"omitempty,gte=0"`
	CoachFee      *int64   `json:"coach_fee" validate:"omitempty,gte=0"`
	ShuttleItemID string   `json:"shuttle_item_id"`
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.service.Get(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, event)
}

func (h *Handler) PriceTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.service.PriceTiers(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tiers": tiers})
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	// The body is optional; stored financials apply when absent.
	if err := httpx.DecodeJSON(r, &req); err == nil {
		if err := h.validate.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}
	result, err := h.service.Close(r.Context(), chi.URLParam(r, "eventID"), CloseOverride{
		ShuttleQty:    req.ShuttleQty,
		CourtFee:      req.CourtFee,
		CoachFee:      req.CoachFee,
		ShuttleItemID: req.ShuttleItemID,
	}, actorID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"event_id":      chi.URLParam(r, "eventID"),
		"shuttle_cost":  result.ShuttleCost,
		"journal_entry": result.Entry,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEventNotFound), errors.Is(err, inventory.ErrItemNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyClosed), errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrMissingFinancials):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Missing Financials", err.Error())
	case errors.Is(err, inventory.ErrInsufficientStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func actorID(r *http.Request) string {
	if principal, ok := shared.PrincipalFromContext(r.Context()); ok {
		return principal.UserID
	}
	return ""
}
