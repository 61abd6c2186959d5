package ledger

import (
	"time"

	"github.com/courtledger/courtledger/internal/coa"
)

// Status enumerates journal lifecycle values. Posted entries are immutable;
// corrections are new reversing entries.
type Status string

const (
	StatusPosted   Status = "POSTED"
	StatusReversed Status = "REVERSED"
)

// EntryCategory tags the whole transaction, distinct from per-line account
// categories.
type EntryCategory string

const (
	EntryCategoryExpense   EntryCategory = "EXPENSE"
	EntryCategoryRevenue   EntryCategory = "REVENUE"
	EntryCategoryAsset     EntryCategory = "ASSET"
	EntryCategoryLiability EntryCategory = "LIABILITY"
)

// Entry captures one posted journal entry.
type Entry struct {
	ID          int64          `json:"id"`
	RefID       string         `json:"ref_id"`
	Date        time.Time      `json:"date"`
	IdxDate     int64          `json:"idx_date"`
	Description string         `json:"description"`
	Category    EntryCategory  `json:"category"`
	Status      Status         `json:"status"`
	PostedBy    string         `json:"posted_by"`
	PostedAt    time.Time      `json:"posted_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Lines       []Line         `json:"lines"`
}

// Line carries an amount on exactly one side of an account. The side is part
// of the type, so a line holding both a debit and a credit cannot be built.
type Line struct {
	ID          int64    `json:"id"`
	EntryID     int64    `json:"entry_id"`
	AccountCode string   `json:"account_code"`
	Side        coa.Side `json:"side"`
	Amount      int64    `json:"amount"`
	Memo        string   `json:"memo,omitempty"`
}

// Debit returns the line amount when the line sits on the debit side.
func (l Line) Debit() int64 {
	if l.Side == coa.SideDebit {
		return l.Amount
	}
	return 0
}

// Credit returns the line amount when the line sits on the credit side.
func (l Line) Credit() int64 {
	if l.Side == coa.SideCredit {
		return l.Amount
	}
	return 0
}
