package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/courtledger/courtledger/internal/coa"
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
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.PostManual)
	r.Post("/income", h.PostIncome)
	r.Post("/expense", h.PostExpense)
	r.Post("/transfer", h.PostTransfer)
	r.Post("/{id}/reverse", h.Reverse)
}

type lineRequest struct {
	AccountCode string `json:"account_code" validate:"required"`
	Side        string `json:"side" validate:"required,oneof=DEBIT CREDIT"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Memo        string `json:"memo"`
}

type manualJournalRequest struct {
	RefID       string         `json:"ref_id"`
	Date        time.Time      `json:"date" validate:"required"`
	Description string         `json:"description" validate:"required"`
	Category    string         `json:"category" validate:"required,oneof=EXPENSE REVENUE ASSET LIABILITY"`
	Metadata    map[string]any `json:"metadata"`
	Lines       []lineRequest  `json:"lines" validate:"required,min=2,dive"`
}

type incomeRequest struct {
	RefID          string         `json:"ref_id"`
	Date           time.Time      `json:"date" validate:"required"`
	Description    string         `json:"description" validate:"required"`
	TargetAccount  string         `json:"target_account" validate:"required"`
	RevenueAccount string         `json:"revenue_account" validate:"required"`
	Amount         int64          `json:"amount" validate:"required,gt=0"`
	Metadata       map[string]any `json:"metadata"`
}

type expenseSplitRequest struct {
	AccountCode string `json:"account_code" validate:"required"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Memo        string `json:"memo"`
}

type expenseRequest struct {
	RefID         string                `json:"ref_id"`
	Date          time.Time             `json:"date" validate:"required"`
	Description   string                `json:"description" validate:"required"`
	SourceAccount string                `json:"source_account" validate:"required"`
	Total         int64                 `json:"total" validate:"required,gt=0"`
	Splits        []expenseSplitRequest `json:"splits" validate:"required,min=1,dive"`
	Metadata      map[string]any        `json:"metadata"`
}

type transferRequest struct {
	RefID         string         `json:"ref_id"`
	Date          time.Time      `json:"date" validate:"required"`
	Description   string         `json:"description" validate:"required"`
	SourceAccount string         `json:"source_account" validate:"required"`
	TargetAccount string         `json:"target_account" validate:"required"`
	Amount        int64          `json:"amount" validate:"required,gt=0"`
	Fee           int64          `json:"fee" validate:"gte=0"`
	FeeAccount    string         `json:"fee_account"`
	Metadata      map[string]any `json:"metadata"`
}

type reverseRequest struct {
	Memo string `json:"memo"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list journal entries", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) PostManual(w http.ResponseWriter, r *http.Request) {
	var req manualJournalRequest
	if !h.decode(w, r, &req) {
		return
	}
	lines := make([]LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, LineInput{AccountCode: l.AccountCode, Side: coa.Side(l.Side), Amount: l.Amount, Memo: l.Memo})
	}
	h.post(w, r, PostingInput{
		RefID:       refOrDefault(req.RefID, "JRN"),
		Date:        req.Date,
		Description: req.Description,
		Category:    EntryCategory(req.Category),
		Metadata:    req.Metadata,
		PostedBy:    actorID(r),
		Lines:       lines,
	})
}

func (h *Handler) PostIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if !h.decode(w, r, &req) {
		return
	}
	input, err := BuildIncome(IncomeInput{
		RefID:          refOrDefault(req.RefID, "INC"),
		Date:           req.Date,
		Description:    req.Description,
		TargetAccount:  req.TargetAccount,
		RevenueAccount: req.RevenueAccount,
		Amount:         req.Amount,
		PostedBy:       actorID(r),
		Metadata:       req.Metadata,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.post(w, r, input)
}

func (h *Handler) PostExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !h.decode(w, r, &req) {
		return
	}
	splits := make([]ExpenseSplit, 0, len(req.Splits))
	for _, s := range req.Splits {
		splits = append(splits, ExpenseSplit{AccountCode: s.AccountCode, Amount: s.Amount, Memo: s.Memo})
	}
	input, err := BuildExpense(ExpenseInput{
		RefID:         refOrDefault(req.RefID, "EXP"),
		Date:          req.Date,
		Description:   req.Description,
		SourceAccount: req.SourceAccount,
		Total:         req.Total,
		Splits:        splits,
		PostedBy:      actorID(r),
		Metadata:      req.Metadata,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.post(w, r, input)
}

func (h *Handler) PostTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !h.decode(w, r, &req) {
		return
	}
	input, err := BuildTransfer(TransferInput{
		RefID:         refOrDefault(req.RefID, "TRF"),
		Date:          req.Date,
		Description:   req.Description,
		SourceAccount: req.SourceAccount,
		TargetAccount: req.TargetAccount,
		Amount:        req.Amount,
		Fee:           req.Fee,
		FeeAccount:    req.FeeAccount,
		PostedBy:      actorID(r),
		Metadata:      req.Metadata,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.post(w, r, input)
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	var req reverseRequest
	_ = httpx.DecodeJSON(r, &req)
	reversal, err := h.service.Reverse(r.Context(), ReverseInput{EntryID: id, ActorID: actorID(r), Memo: req.Memo})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, reversal)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request, input PostingInput) {
	entry, err := h.service.Post(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
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
	case errors.Is(err, ErrUnbalanced), errors.Is(err, ErrSplitMismatch):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Imbalanced Journal", err.Error())
	case errors.Is(err, ErrTooFewLines):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrEntryNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateRef), errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case db.IsSerializationFailure(err):
		httpx.Problem(w, http.StatusConflict, "Conflict", "concurrent posting, please retry")
	default:
		h.logger.Error("journal operation failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func refOrDefault(refID, prefix string) string {
	if refID != "" {
		return refID
	}
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixMilli())
}

func actorID(r *http.Request) string {
	if p, ok := shared.PrincipalFromContext(r.Context()); ok {
		return p.UserID
	}
	return ""
}
