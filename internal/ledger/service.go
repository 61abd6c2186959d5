package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/courtledger/courtledger/internal/coa"
	"github.com/courtledger/courtledger/internal/shared"
)

// AuditPort abstracts audit logging. Audit failures never roll back a posting.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts posting outcomes. A nil port is a no-op.
type MetricsPort interface {
	JournalPosted()
	JournalRejected()
}

// Repository persists journal entries.
type Repository interface {
	List(ctx context.Context, limit int) ([]Entry, error)
	Get(ctx context.Context, entryID int64) (Entry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes operations available within a posting transaction.
type TxRepository interface {
	InsertEntry(ctx context.Context, in PostingInput, idxDate int64, status Status) (Entry, error)
	InsertLines(ctx context.Context, entryID int64, lines []LineInput) error
	GetEntryWithLines(ctx context.Context, entryID int64) (Entry, error)
	UpdateStatus(ctx context.Context, entryID int64, status Status) error
}

const defaultListLimit = 500

// Service validates and posts journal entries.
type Service struct {
	repo    Repository
	audit   AuditPort
	metrics MetricsPort
	now     func() time.Time
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) WithMetrics(m MetricsPort) {
	s.metrics = m
}

// List returns posted entries in descending ledger-date order.
func (s *Service) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = defaultListLimit
	}
	return s.repo.List(ctx, limit)
}

func (s *Service) Get(ctx context.Context, entryID int64) (Entry, error) {
	if entryID == 0 {
		return Entry{}, errors.New("ledger: entry id required")
	}
	return s.repo.Get(ctx, entryID)
}

// Post validates the input, then persists the entry and its lines in one
// transaction.
func (s *Service) Post(ctx context.Context, input PostingInput) (Entry, error) {
	if err := input.Validate(); err != nil {
		if s.metrics != nil {
			s.metrics.JournalRejected()
		}
		return Entry{}, err
	}
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.InsertEntry(ctx, input, IdxDateFor(input.Date), StatusPosted)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, input.Lines); err != nil {
			return err
		}
		inserted.Lines = toLines(inserted.ID, input.Lines)
		entry = inserted
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	if s.metrics != nil {
		s.metrics.JournalPosted()
	}
	s.recordAudit(ctx, input.PostedBy, "journal.post", entry.ID, map[string]any{
		"ref_id":   entry.RefID,
		"category": string(entry.Category),
	})
	return entry, nil
}

// Reverse posts a mirror-image entry for a posted one and marks the original
// REVERSED. Original lines stay untouched.
func (s *Service) Reverse(ctx context.Context, input ReverseInput) (Entry, error) {
	if input.EntryID == 0 {
		return Entry{}, errors.New("ledger: entry id required")
	}
	var reversal Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntryWithLines(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if original.Status != StatusPosted {
			return ErrInvalidStatus
		}
		posting := PostingInput{
			RefID:       original.RefID + "-REV",
			Date:        s.now(),
			Description: defaultReversalMemo(input.Memo, original.RefID),
			Category:    original.Category,
			PostedBy:    input.ActorID,
			Metadata:    map[string]any{"reverses": original.RefID},
			Lines:       reverseLines(original.Lines),
		}
		inserted, err := tx.InsertEntry(ctx, posting, IdxDateFor(posting.Date), StatusPosted)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, posting.Lines); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, original.ID, StatusReversed); err != nil {
			return err
		}
		inserted.Lines = toLines(inserted.ID, posting.Lines)
		reversal = inserted
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.recordAudit(ctx, input.ActorID, "journal.reverse", input.EntryID, map[string]any{
		"reversal_ref": reversal.RefID,
	})
	return reversal, nil
}

func (s *Service) recordAudit(ctx context.Context, actor, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entryID),
		Meta:     meta,
		At:       s.now(),
	})
}

// IdxDateFor derives the sortable ledger-date index from the entry date. A
// numeric index keeps descending queries stable regardless of date-string
// format drift in the raw field.
func IdxDateFor(date time.Time) int64 {
	return date.UTC().UnixMilli()
}

func reverseLines(lines []Line) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		side := coa.SideDebit
		if line.Side == coa.SideDebit {
			side = coa.SideCredit
		}
		out = append(out, LineInput{
			AccountCode: line.AccountCode,
			Side:        side,
			Amount:      line.Amount,
			Memo:        line.Memo,
		})
	}
	return out
}

func toLines(entryID int64, lines []LineInput) []Line {
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, Line{
			EntryID:     entryID,
			AccountCode: line.AccountCode,
			Side:        line.Side,
			Amount:      line.Amount,
			Memo:        line.Memo,
		})
	}
	return out
}

func defaultReversalMemo(memo, refID string) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of %s", refID)
}
