package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/courtledger/courtledger/internal/platform/db"
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
	r.Get("/", h.ListItems)
	r.Post("/", h.AddItem)
	r.Get("/{id}", h.GetItem)
	r.Get("/{id}/movements", h.ListMovements)
	r.Post("/{id}/restock", h.Restock)
	r.Post("/{id}/usage", h.RecordUsage)
	r.Post("/{id}/opname", h.PerformOpname)
}

// MountAssetRoutes registers the fixed-asset endpoints.
func (h *Handler) MountAssetRoutes(r chi.Router) {
	r.Post("/", h.RegisterAsset)
}

type addItemRequest struct {
	Name         string  `json:"name" validate:"required"`
	Category     string  `json:"category" validate:"required"`
	Unit         string  `json:"unit" validate:"required"`
	InitialQty   float64 `json:"initial_qty" validate:"gte=0"`
	InitialCost  float64 `json:"initial_cost" validate:"gte=0"`
	AssetAccount string  `json:"asset_account"`
	ReorderLevel float64 `json:"reorder_level" validate:"gte=0"`
}

type restockRequest struct {
	Qty            float64 `json:"qty" validate:"required,gt=0"`
	UnitPrice      int64   `json:"unit_price" validate:"required,gt=0"`
	ShippingCost   int64   `json:"shipping_cost" validate:"gte=0"`
	Note           string  `json:"note"`
	IdempotencyKey string  `json:"idempotency_key"`
}

type usageRequest struct {
	Qty            float64 `json:"qty" validate:"required,gt=0"`
	Purpose        string  `json:"purpose" validate:"required"`
	Notes          string  `json:"notes"`
	IdempotencyKey string  `json:"idempotency_key"`
}

type opnameRequest struct {
	ActualQty      float64 `json:"actual_qty" validate:"gte=0"`
	Reason         string  `json:"reason" validate:"required"`
	IdempotencyKey string  `json:"idempotency_key"`
}

type registerAssetRequest struct {
	Name             string    `json:"name" validate:"required"`
	Category         string    `json:"category" validate:"required"`
	PurchaseDate     time.Time `json:"purchase_date" validate:"required"`
	Price            int64     `json:"price" validate:"required,gt=0"`
	UsefulLifeMonths int       `json:"useful_life_months" validate:"required,gt=0"`
	ResidualValue    int64     `json:"residual_value" validate:"gte=0"`
	Location         string    `json:"location"`
	Condition        string    `json:"condition"`
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		h.logger.Error("list inventory items", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.service.ListMovements(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements})
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	item, err := h.service.AddItem(r.Context(), AddItemInput{
		Name:         req.Name,
		Category:     req.Category,
		Unit:         req.Unit,
		InitialQty:   req.InitialQty,
		InitialCost:  req.InitialCost,
		AssetAccount: req.AssetAccount,
		ReorderLevel: req.ReorderLevel,
		ActorID:      actorID(r),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) Restock(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if !h.decode(w, r, &req) {
		return
	}
	item, err := h.service.Restock(r.Context(), RestockInput{
		ItemID:         chi.URLParam(r, "id"),
		Qty:            req.Qty,
		UnitPrice:      req.UnitPrice,
		ShippingCost:   req.ShippingCost,
		Note:           req.Note,
		ActorID:        actorID(r),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	var req usageRequest
	if !h.decode(w, r, &req) {
		return
	}
	item, err := h.service.RecordUsage(r.Context(), UsageInput{
		ItemID:         chi.URLParam(r, "id"),
		Qty:            req.Qty,
		Purpose:        req.Purpose,
		Notes:          req.Notes,
		ActorID:        actorID(r),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) PerformOpname(w http.ResponseWriter, r *http.Request) {
	var req opnameRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.PerformOpname(r.Context(), OpnameInput{
		ItemID:         chi.URLParam(r, "id"),
		ActualQty:      req.ActualQty,
		Reason:         req.Reason,
		ActorID:        actorID(r),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"item":           result.Item,
		"variance":       result.Variance,
		"variance_value": result.VarianceValue,
		"journal_entry":  result.Entry,
	})
}

func (h *Handler) RegisterAsset(w http.ResponseWriter, r *http.Request) {
	var req registerAssetRequest
	if !h.decode(w, r, &req) {
		return
	}
	asset, err := h.service.RegisterAsset(r.Context(), RegisterAssetInput{
		Name:             req.Name,
		Category:         req.Category,
		PurchaseDate:     req.PurchaseDate,
		Price:            req.Price,
		UsefulLifeMonths: req.UsefulLifeMonths,
		ResidualValue:    req.ResidualValue,
		Location:         req.Location,
		Condition:        req.Condition,
		ActorID:          actorID(r),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, asset)
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

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidUnitPrice):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case db.IsSerializationFailure(err):
		httpx.Problem(w, http.StatusConflict, "Conflict", "concurrent stock mutation, please retry")
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
