package inventory

import (
	"errors"
	"time"
)

// MovementType enumerates stock movements recorded on the item card.
type MovementType string

const (
	MovementRestock MovementType = "RESTOCK"
	MovementUsage   MovementType = "USAGE"
	MovementOpname  MovementType = "OPNAME"
	MovementClosing MovementType = "SESSION_CLOSE"
)

// Item tracks on-hand quantity and the moving weighted-average unit cost.
// Both fields mutate only through the transactional read-modify-write path.
type Item struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Unit         string    `json:"unit"`
	QtyOnHand    float64   `json:"qty_on_hand"`
	AvgUnitCost  float64   `json:"avg_unit_cost"`
	AssetAccount string    `json:"asset_account"`
	ReorderLevel float64   `json:"reorder_level"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Movement is one append-only stock card row.
type Movement struct {
	ID         int64        `json:"id"`
	ItemID     string       `json:"item_id"`
	Type       MovementType `json:"type"`
	QtyChange  float64      `json:"qty_change"`
	UnitCost   float64      `json:"unit_cost"`
	BalanceQty float64      `json:"balance_qty"`
	AvgCost    float64      `json:"avg_cost"`
	RefID      string       `json:"ref_id"`
	Note       string       `json:"note,omitempty"`
	PostedAt   time.Time    `json:"posted_at"`
}

// Asset is a fixed asset, distinct from consumable inventory. Depreciation
// scheduling happens in external reporting.
type Asset struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Category         string    `json:"category"`
	PurchaseDate     time.Time `json:"purchase_date"`
	Price            int64     `json:"price"`
	UsefulLifeMonths int       `json:"useful_life_months"`
	ResidualValue    int64     `json:"residual_value"`
	Location         string    `json:"location,omitempty"`
	Condition        string    `json:"condition,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// AddItemInput registers a new inventory item.
type AddItemInput struct {
	Name         string
	Category     string
	Unit         string
	InitialQty   float64
	InitialCost  float64
	AssetAccount string
	ReorderLevel float64
	ActorID      string
}

// RestockInput adds stock and recomputes the weighted-average cost. Shipping
// is treated as landed cost and folded into the new average.
type RestockInput struct {
	ItemID         string
	Qty            float64
	UnitPrice      int64
	ShippingCost   int64
	Note           string
	ActorID        string
	IdempotencyKey string
}

// UsageInput consumes stock without touching the average cost.
type UsageInput struct {
	ItemID         string
	Qty            float64
	Purpose        string
	Notes          string
	ActorID        string
	IdempotencyKey string
}

// OpnameInput reconciles book quantity against a physical count.
type OpnameInput struct {
	ItemID         string
	ActualQty      float64
	Reason         string
	ActorID        string
	IdempotencyKey string
}

// RegisterAssetInput creates a fixed-asset record.
type RegisterAssetInput struct {
	Name             string
	Category         string
	PurchaseDate     time.Time
	Price            int64
	UsefulLifeMonths int
	ResidualValue    int64
	Location         string
	Condition        string
	ActorID          string
}

// CloseSessionInput settles a session's finances: shuttlecock consumption plus
// court and coach fees in a single atomic unit.
type CloseSessionInput struct {
	EventID        string
	ShuttleQty     float64
	CourtFee       int64
	CoachFee       int64
	ShuttleItemID  string
	CashAccount    string
	ActorID        string
	IdempotencyKey string
}

var (
	// ErrInsufficientStock triggered when a deduction would drive quantity negative.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrInvalidQuantity indicates invalid qty.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrInvalidUnitPrice indicates invalid price value.
	ErrInvalidUnitPrice = errors.New("inventory: unit price must be positive")
	// ErrItemNotFound indicates a missing inventory item.
	ErrItemNotFound = errors.New("inventory: item not found")
)
