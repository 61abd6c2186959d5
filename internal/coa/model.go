package coa

import "time"

// Category enumerates chart of accounts categories.
type Category string

const (
	CategoryAsset     Category = "ASSET"
	CategoryLiability Category = "LIABILITY"
	CategoryRevenue   Category = "REVENUE"
	CategoryCOGS      Category = "COGS"
	CategoryOpex      Category = "OPEX"
)

// Side identifies the normal balance side of an account.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// Account models a chart of accounts node. Reference data, created at
// deployment and never mutated by ledger operations.
type Account struct {
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Category   Category  `json:"category"`
	NormalSide Side      `json:"normal_side"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
