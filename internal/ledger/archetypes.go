package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/courtledger/courtledger/internal/coa"
)

// The archetype builders translate the common transaction shapes into
// balanced posting inputs. They are pure; nothing is persisted until the
// result goes through Service.Post.

// IncomeInput describes money received into a cash or bank account.
type IncomeInput struct {
	RefID          string
	Date           time.Time
	Description    string
	TargetAccount  string
	RevenueAccount string
	Amount         int64
	PostedBy       string
	Metadata       map[string]any
}

// BuildIncome debits the target account and credits revenue for the same
// amount.
func BuildIncome(in IncomeInput) (PostingInput, error) {
	if in.Amount <= 0 {
		return PostingInput{}, errors.New("ledger: income amount must be positive")
	}
	if in.TargetAccount == "" || in.RevenueAccount == "" {
		return PostingInput{}, errors.New("ledger: income requires target and revenue accounts")
	}
	return PostingInput{
		RefID:       in.RefID,
		Date:        in.Date,
		Description: in.Description,
		Category:    EntryCategoryRevenue,
		Metadata:    in.Metadata,
		PostedBy:    in.PostedBy,
		Lines: []LineInput{
			{AccountCode: in.TargetAccount, Side: coa.SideDebit, Amount: in.Amount},
			{AccountCode: in.RevenueAccount, Side: coa.SideCredit, Amount: in.Amount},
		},
	}, nil
}

// ExpenseSplit is one debit leg of an expense.
type ExpenseSplit struct {
	AccountCode string
	Amount      int64
	Memo        string
}

// ExpenseInput describes money paid out of a source account, split across one
// or more expense accounts.
type ExpenseInput struct {
	RefID         string
	Date          time.Time
	Description   string
	SourceAccount string
	Total         int64
	Splits        []ExpenseSplit
	PostedBy      string
	Metadata      map[string]any
}

// BuildExpense credits the source for the declared total and debits each
// split. Splits must sum exactly to the total; a mismatch is rejected before
// anything reaches the posting path.
func BuildExpense(in ExpenseInput) (PostingInput, error) {
	if in.Total <= 0 {
		return PostingInput{}, errors.New("ledger: expense total must be positive")
	}
	if in.SourceAccount == "" {
		return PostingInput{}, errors.New("ledger: expense requires a source account")
	}
	if len(in.Splits) == 0 {
		return PostingInput{}, errors.New("ledger: expense requires at least one split")
	}
	var sum int64
	lines := make([]LineInput, 0, len(in.Splits)+1)
	for idx, split := range in.Splits {
		if split.Amount <= 0 {
			return PostingInput{}, fmt.Errorf("ledger: split %d amount must be positive", idx)
		}
		sum += split.Amount
		lines = append(lines, LineInput{AccountCode: split.AccountCode, Side: coa.SideDebit, Amount: split.Amount, Memo: split.Memo})
	}
	if sum != in.Total {
		return PostingInput{}, fmt.Errorf("%w: declared %d split %d", ErrSplitMismatch, in.Total, sum)
	}
	lines = append(lines, LineInput{AccountCode: in.SourceAccount, Side: coa.SideCredit, Amount: in.Total})
	return PostingInput{
		RefID:       in.RefID,
		Date:        in.Date,
		Description: in.Description,
		Category:    EntryCategoryExpense,
		Metadata:    in.Metadata,
		PostedBy:    in.PostedBy,
		Lines:       lines,
	}, nil
}

// TransferInput moves money between two cash or bank accounts, optionally
// paying an admin fee in transit.
type TransferInput struct {
	RefID         string
	Date          time.Time
	Description   string
	SourceAccount string
	TargetAccount string
	Amount        int64
	Fee           int64
	FeeAccount    string
	PostedBy      string
	Metadata      map[string]any
}

// BuildTransfer debits the target, debits the fee expense when present, and
// credits the source for amount plus fee so the entry stays balanced.
func BuildTransfer(in TransferInput) (PostingInput, error) {
	if in.Amount <= 0 {
		return PostingInput{}, errors.New("ledger: transfer amount must be positive")
	}
	if in.Fee < 0 {
		return PostingInput{}, errors.New("ledger: transfer fee cannot be negative")
	}
	if in.SourceAccount == "" || in.TargetAccount == "" {
		return PostingInput{}, errors.New("ledger: transfer requires source and target accounts")
	}
	if in.SourceAccount == in.TargetAccount {
		return PostingInput{}, errors.New("ledger: transfer accounts must differ")
	}
	lines := []LineInput{
		{AccountCode: in.TargetAccount, Side: coa.SideDebit, Amount: in.Amount},
	}
	if in.Fee > 0 {
		feeAccount := in.FeeAccount
		if feeAccount == "" {
			feeAccount = coa.AccountAdminFee
		}
		lines = append(lines, LineInput{AccountCode: feeAccount, Side: coa.SideDebit, Amount: in.Fee, Memo: "transfer fee"})
	}
	lines = append(lines, LineInput{AccountCode: in.SourceAccount, Side: coa.SideCredit, Amount: in.Amount + in.Fee})
	return PostingInput{
		RefID:       in.RefID,
		Date:        in.Date,
		Description: in.Description,
		Category:    EntryCategoryAsset,
		Metadata:    in.Metadata,
		PostedBy:    in.PostedBy,
		Lines:       lines,
	}, nil
}
