package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/courtledger/courtledger/internal/coa"
)

type memoryRepo struct {
	entries map[int64]Entry
	refs    map[string]bool
	nextID  int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{entries: make(map[int64]Entry), refs: make(map[string]bool)}
}

func (r *memoryRepo) List(ctx context.Context, limit int) ([]Entry, error) {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, entryID int64) (Entry, error) {
	e, ok := r.entries[entryID]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return e, nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (tx *memoryTx) InsertEntry(ctx context.Context, in PostingInput, idxDate int64, status Status) (Entry, error) {
	if tx.repo.refs[in.RefID] {
		return Entry{}, ErrDuplicateRef
	}
	tx.repo.refs[in.RefID] = true
	tx.repo.nextID++
	entry := Entry{
		ID:          tx.repo.nextID,
		RefID:       in.RefID,
		Date:        in.Date,
		IdxDate:     idxDate,
		Description: in.Description,
		Category:    in.Category,
		Status:      status,
		PostedBy:    in.PostedBy,
		Metadata:    in.Metadata,
		PostedAt:    time.Now(),
	}
	tx.repo.entries[entry.ID] = entry
	return entry, nil
}

func (tx *memoryTx) InsertLines(ctx context.Context, entryID int64, lines []LineInput) error {
	entry := tx.repo.entries[entryID]
	entry.Lines = toLines(entryID, lines)
	tx.repo.entries[entryID] = entry
	return nil
}

func (tx *memoryTx) GetEntryWithLines(ctx context.Context, entryID int64) (Entry, error) {
	entry, ok := tx.repo.entries[entryID]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return entry, nil
}

func (tx *memoryTx) UpdateStatus(ctx context.Context, entryID int64, status Status) error {
	entry, ok := tx.repo.entries[entryID]
	if !ok {
		return ErrEntryNotFound
	}
	entry.Status = status
	tx.repo.entries[entryID] = entry
	return nil
}

func lineSums(lines []Line) (debit, credit int64) {
	for _, l := range lines {
		debit += l.Debit()
		credit += l.Credit()
	}
	return debit, credit
}

func TestPostBalancedEntry(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	entry, err := svc.Post(ctx, PostingInput{
		RefID:       "INC-1",
		Date:        time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		Description: "Membership dues",
		Category:    EntryCategoryRevenue,
		Lines: []LineInput{
			{AccountCode: coa.AccountCash, Side: coa.SideDebit, Amount: 500000},
			{AccountCode: coa.AccountMemberRevenue, Side: coa.SideCredit, Amount: 500000},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPosted, entry.Status)
	require.NotZero(t, entry.IdxDate)

	debit, credit := lineSums(entry.Lines)
	require.Equal(t, debit, credit)
}

func TestPostRejectsImbalance(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	_, err := svc.Post(context.Background(), PostingInput{
		RefID:       "BAD-1",
		Date:        time.Now(),
		Description: "off by more than tolerance",
		Category:    EntryCategoryExpense,
		Lines: []LineInput{
			{AccountCode: coa.AccountCourtFee, Side: coa.SideDebit, Amount: 300000},
			{AccountCode: coa.AccountCash, Side: coa.SideCredit, Amount: 300002},
		},
	})
	require.ErrorIs(t, err, ErrUnbalanced)
	require.Empty(t, repo.entries, "nothing may be persisted on imbalance")
}

func TestPostToleratesOneUnitRounding(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Post(context.Background(), PostingInput{
		RefID:       "RND-1",
		Date:        time.Now(),
		Description: "rounding artifact",
		Category:    EntryCategoryExpense,
		Lines: []LineInput{
			{AccountCode: coa.AccountCourtFee, Side: coa.SideDebit, Amount: 166667},
			{AccountCode: coa.AccountCoachFee, Side: coa.SideDebit, Amount: 166667},
			{AccountCode: coa.AccountShuttlecockCOGS, Side: coa.SideDebit, Amount: 166667},
			{AccountCode: coa.AccountCash, Side: coa.SideCredit, Amount: 500000},
		},
	})
	require.NoError(t, err)
}

func TestPostRejectsTooFewLines(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Post(context.Background(), PostingInput{
		RefID:       "ONE-1",
		Date:        time.Now(),
		Description: "single leg",
		Category:    EntryCategoryExpense,
		Lines: []LineInput{
			{AccountCode: coa.AccountCash, Side: coa.SideDebit, Amount: 1000},
		},
	})
	require.ErrorIs(t, err, ErrTooFewLines)
}

func TestPostRejectsUnknownAccountPrefix(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Post(context.Background(), PostingInput{
		RefID:       "PFX-1",
		Date:        time.Now(),
		Description: "prefix digit 3 maps to nothing",
		Category:    EntryCategoryExpense,
		Lines: []LineInput{
			{AccountCode: "3-001", Side: coa.SideDebit, Amount: 1000},
			{AccountCode: coa.AccountCash, Side: coa.SideCredit, Amount: 1000},
		},
	})
	require.ErrorIs(t, err, coa.ErrUnknownCategory)
}

func TestPostDuplicateRef(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	input := PostingInput{
		RefID:       "DUP-1",
		Date:        time.Now(),
		Description: "first",
		Category:    EntryCategoryRevenue,
		Lines: []LineInput{
			{AccountCode: coa.AccountCash, Side: coa.SideDebit, Amount: 1000},
			{AccountCode: coa.AccountMemberRevenue, Side: coa.SideCredit, Amount: 1000},
		},
	}
	_, err := svc.Post(ctx, input)
	require.NoError(t, err)
	_, err = svc.Post(ctx, input)
	require.ErrorIs(t, err, ErrDuplicateRef)
}

func TestReversePostsMirrorEntry(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	original, err := svc.Post(ctx, PostingInput{
		RefID:       "EXP-10",
		Date:        time.Now(),
		Description: "court rental",
		Category:    EntryCategoryExpense,
		Lines: []LineInput{
			{AccountCode: coa.AccountCourtFee, Side: coa.SideDebit, Amount: 175000},
			{AccountCode: coa.AccountCash, Side: coa.SideCredit, Amount: 175000},
		},
	})
	require.NoError(t, err)

	reversal, err := svc.Reverse(ctx, ReverseInput{EntryID: original.ID, ActorID: "admin-1"})
	require.NoError(t, err)
	require.Equal(t, "EXP-10-REV", reversal.RefID)
	require.Equal(t, StatusPosted, reversal.Status)

	// Mirror image: debit and credit swap, amounts unchanged.
	require.Equal(t, coa.SideCredit, reversal.Lines[0].Side)
	require.Equal(t, coa.AccountCourtFee, reversal.Lines[0].AccountCode)
	require.Equal(t, int64(175000), reversal.Lines[0].Amount)
	require.Equal(t, coa.SideDebit, reversal.Lines[1].Side)

	stored, err := repo.Get(ctx, original.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReversed, stored.Status)

	// A reversed entry cannot be reversed again.
	_, err = svc.Reverse(ctx, ReverseInput{EntryID: original.ID, ActorID: "admin-1"})
	require.ErrorIs(t, err, ErrInvalidStatus)
}
