package ledger

import "errors"

var (
	// ErrUnbalanced indicates debit and credit totals differ beyond tolerance.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrEntryNotFound indicates missing entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrDuplicateRef indicates the reference id was already posted.
	ErrDuplicateRef = errors.New("ledger: reference already posted")
	// ErrInvalidStatus indicates action can't proceed.
	ErrInvalidStatus = errors.New("ledger: invalid status transition")
	// ErrSplitMismatch indicates expense splits do not sum to the declared total.
	ErrSplitMismatch = errors.New("ledger: expense splits must sum to the declared total")
)
