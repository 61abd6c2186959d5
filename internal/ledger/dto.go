package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/courtledger/courtledger/internal/coa"
)

// balanceTolerance absorbs single-unit rounding artifacts. Rupiah has no
// subunit, so one unit is the smallest representable difference.
const balanceTolerance = 1

// LineInput describes a journal line for a posting request.
type LineInput struct {
	AccountCode string
	Side        coa.Side
	Amount      int64
	Memo        string
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	RefID       string
	Date        time.Time
	Description string
	Category    EntryCategory
	Metadata    map[string]any
	PostedBy    string
	Lines       []LineInput
}

// Validate ensures posting input meets minimum criteria, including the
// balance invariant.
func (in PostingInput) Validate() error {
	if in.RefID == "" {
		return errors.New("ledger: ref id required")
	}
	if in.Date.IsZero() {
		return errors.New("ledger: date required")
	}
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	var debit, credit int64
	for idx, line := range in.Lines {
		if line.AccountCode == "" {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if _, err := coa.CategoryForCode(line.AccountCode); err != nil {
			return fmt.Errorf("ledger: line %d: %w", idx, err)
		}
		if line.Amount <= 0 {
			return fmt.Errorf("ledger: line %d amount must be positive", idx)
		}
		switch line.Side {
		case coa.SideDebit:
			debit += line.Amount
		case coa.SideCredit:
			credit += line.Amount
		default:
			return fmt.Errorf("ledger: line %d has invalid side %q", idx, line.Side)
		}
	}
	if diff := debit - credit; diff > balanceTolerance || diff < -balanceTolerance {
		return fmt.Errorf("%w: debit %d credit %d", ErrUnbalanced, debit, credit)
	}
	return nil
}

// ReverseInput wraps parameters for posting a reversing entry.
type ReverseInput struct {
	EntryID int64
	ActorID string
	Memo    string
}
