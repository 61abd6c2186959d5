package events

import (
	"errors"
	"time"
)

// Status values for an event lifecycle.
const (
	StatusScheduled = "SCHEDULED"
	StatusClosed    = "CLOSED"
	StatusCancelled = "CANCELLED"
)

// Financials is the per-event cost block. Values set here act as defaults for
// the closing flow; the close request may override any of them.
type Financials struct {
	CourtFee      int64   `json:"court_fee"`
	CoachFee      int64   `json:"coach_fee"`
	ToolCost      int64   `json:"tool_cost"`
	ShuttleQty    float64 `json:"shuttle_qty"`
	ShuttleItemID string  `json:"shuttle_item_id"`
	Capacity      int64   `json:"capacity"`
}

// Event is a playing session. PriceTiers is a derived cache of per-category
// prices, recomputed whenever the cost block changes.
type Event struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	StartsAt   time.Time        `json:"starts_at"`
	Status     string           `json:"status"`
	Financials *Financials      `json:"financials,omitempty"`
	PriceTiers map[string]int64 `json:"price_tiers,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

var (
	// ErrEventNotFound indicates a missing event.
	ErrEventNotFound = errors.New("events: event not found")
	// ErrAlreadyClosed indicates the event was settled before.
	ErrAlreadyClosed = errors.New("events: event already closed")
	// ErrMissingFinancials indicates no costs are known for the event.
	ErrMissingFinancials = errors.New("events: no financials recorded for event")
)
