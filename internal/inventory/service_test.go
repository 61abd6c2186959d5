package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/courtledger/courtledger/internal/coa"
	"github.com/courtledger/courtledger/internal/ledger"
	"github.com/courtledger/courtledger/internal/shared"
)

type memoryRepo struct {
	items       map[string]Item
	movements   []Movement
	journals    []ledger.PostingInput
	failJournal error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[string]Item{}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := map[string]Item{}
	for k, v := range r.items {
		snapshot[k] = v
	}
	movements := len(r.movements)
	journals := len(r.journals)
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.items = snapshot
		r.movements = r.movements[:movements]
		r.journals = r.journals[:journals]
		return err
	}
	return nil
}

func (r *memoryRepo) ListItems(ctx context.Context) ([]Item, error) {
	items := []Item{}
	for _, it := range r.items {
		items = append(items, it)
	}
	return items, nil
}

func (r *memoryRepo) GetItem(ctx context.Context, itemID string) (Item, error) {
	it, ok := r.items[itemID]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

func (r *memoryRepo) ListMovements(ctx context.Context, itemID string, limit int) ([]Movement, error) {
	out := []Movement{}
	for i := len(r.movements) - 1; i >= 0 && len(out) < limit; i-- {
		if r.movements[i].ItemID == itemID {
			out = append(out, r.movements[i])
		}
	}
	return out, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) InsertItem(ctx context.Context, item Item) error {
	t.repo.items[item.ID] = item
	return nil
}

func (t *memoryTx) GetItemForUpdate(ctx context.Context, itemID string) (Item, error) {
	return t.repo.GetItem(ctx, itemID)
}

func (t *memoryTx) UpdateItemState(ctx context.Context, itemID string, qty, avgCost float64) error {
	it, ok := t.repo.items[itemID]
	if !ok {
		return ErrItemNotFound
	}
	it.QtyOnHand = qty
	it.AvgUnitCost = avgCost
	t.repo.items[itemID] = it
	return nil
}

func (t *memoryTx) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	m.ID = int64(len(t.repo.movements) + 1)
	t.repo.movements = append(t.repo.movements, m)
	return m.ID, nil
}

func (t *memoryTx) InsertAsset(ctx context.Context, a Asset) error {
	return nil
}

func (t *memoryTx) PostJournal(ctx context.Context, in ledger.PostingInput) (ledger.Entry, error) {
	if t.repo.failJournal != nil {
		return ledger.Entry{}, t.repo.failJournal
	}
	if err := in.Validate(); err != nil {
		return ledger.Entry{}, err
	}
	t.repo.journals = append(t.repo.journals, in)
	return ledger.Entry{ID: int64(len(t.repo.journals)), RefID: in.RefID, Status: ledger.StatusPosted}, nil
}

type memoryIdempotency struct {
	keys map[string]bool
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: map[string]bool{}}
}

func (s *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if s.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	s.keys[key] = true
	return nil
}

func (s *memoryIdempotency) Delete(ctx context.Context, key string) error {
	delete(s.keys, key)
	return nil
}

func newTestService(repo *memoryRepo) *Service {
	svc := NewService(repo, nil, newMemoryIdempotency())
	svc.WithNow(func() time.Time { return time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC) })
	return svc
}

func seedItem(repo *memoryRepo, qty, avgCost float64) Item {
	item := Item{
		ID:           "item-1",
		Name:         "Shuttlecock AS-30",
		Category:     "consumable",
		Unit:         "pcs",
		QtyOnHand:    qty,
		AvgUnitCost:  avgCost,
		AssetAccount: coa.AccountInventoryShuttles,
	}
	repo.items[item.ID] = item
	return item
}

func TestRestockFromZeroSetsLandedAverage(t *testing.T) {
	repo := newMemoryRepo()
	seedItem(repo, 0, 0)
	svc := newTestService(repo)

	item, err := svc.Restock(context.Background(), RestockInput{
		ItemID:       "item-1",
		Qty:          100,
		UnitPrice:    1500,
		ShippingCost: 16000,
	})
	require.NoError(t, err)
	require.InDelta(t, 100, item.QtyOnHand, 1e-9)
	require.InDelta(t, 1660, item.AvgUnitCost, 1e-9)
	require.Len(t, repo.movements, 1)
	require.Equal(t, MovementRestock, repo.movements[0].Type)
	require.InDelta(t, 100, repo.movements[0].QtyChange, 1e-9)
}

func TestRestockRecomputesWeightedAverage(t *testing.T) {
	repo := newMemoryRepo()
	seedItem(repo, 40, 1660)
	svc := newTestService(repo)

	item, err := svc.Restock(context.Background(), RestockInput{
		ItemID:    "item-1",
		Qty:       60,
		UnitPrice: 1800,
	})
	require.NoError(t, err)
	// (40*1660 + 60*1800) / 100 = 1744
	require.InDelta(t, 100, item.QtyOnHand, 1e-9)
	require.InDelta(t, 1744, item.AvgUnitCost, 1e-9)
}

func TestUsageDeductsWithoutTouchingAverage(t *testing.T) {
	repo := newMemoryRepo()
	seedItem(repo, 100, 1660)
	svc := newTestService(repo)

	item, err := svc.RecordUsage(context.Background(), UsageInput{
		ItemID:  "item-1",
		Qty:     60,
		Purpose: "weekly drilling",
	})
	require.NoError(t, err)
	require.InDelta(t, 40, item.QtyOnHand, 1e-9)
	require.InDelta(t, 1660, item.AvgUnitCost, 1e-9)
	require.Len(t, repo.movements, 1)
	require.InDelta(t, -60, repo.movements[0].QtyChange, 1e-9)
}

func TestUsageRejectsNegativeBalance(t *testing.T) {
	repo := newMemoryRepo()
	seedItem(repo, 5, 1660)
	svc := newTestService(repo)

	_, err := svc.RecordUsage(context.Background(), UsageInput{
		ItemID:  "item-1",
		Qty:     6,
		Purpose: "weekly drilling",
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.InDelta(t, 5, repo.items["item-1"].QtyOnHand, 1e-9)
	require.Empty(t, repo.movements)
}

func TestOpnameShortagePostsStockLoss(t *testing.T) {
	repo := newMemoryRepo()
	seedItem(repo, 50, 1660)
	svc := newTestService(repo)

	result, err := svc.PerformOpname(context.Background(), OpnameInput{
		ItemID:    "item-1",
		ActualQty: 47,
		Reason:    "monthly count",
	})
	require.NoError(t, err)
	require.InDelta(t, -3, result.Variance, 1e-9)
	// shortage keeps its sign on the result; the journal lines carry the
	// absolute value
	require.Equal(t, int64(-4980), result.VarianceValue)
	require.NotNil(t, result.Entry)
	require.Len(t, repo.journals, 1)

	lines := repo.journals[0].Lines
	require.Len(t, lines, 2)
	require.Equal(t, coa.AccountStockLoss, lines[0].AccountCode)
	require.Equal(t, coa.SideDebit, lines[0].Side)
	require.Equal(t, int64(4980), lines[0].Amount)
	require.Equal(t, coa.AccountInventoryShuttles, lines[1].AccountCode)
	require.Equal(t, coa.SideCredit, lines[1].Side)
}

func TestOpnameSurplusPostsStockGain(t *testing.T) {
	repo := newMemoryRepo()
	seedItem(repo, 50, 1660)
	svc := newTestService(repo)

	result, err := svc.PerformOpname(context.Background(), OpnameInput{
		ItemID:    "item-1",
		ActualQty: 52,
		Reason:    "monthly count",
	})
	require.NoError(t, err)
	require.Equal(t, int64(3320), result.VarianceValue)
	lines := repo.journals[0].Lines
	require.Equal(t, coa.AccountInventoryShuttles, lines[0].AccountCode)
	require.Equal(t, coa.SideDebit, lines[0].Side)
	require.Equal(t, coa.AccountStockGain, lines[1].AccountCode)
}

func TestOpnameZeroVariancePostsNothing(t *testing.T) {
	repo := newMemoryRepo()
	seedItem(repo, 50, 1660)
	svc := newTestService(repo)

	result, err := svc.PerformOpname(context.Background(), OpnameInput{
		ItemID:    "item-1",
		ActualQty: 50,
		Reason:    "monthly count",
	})
	require.NoError(t, err)
	require.Nil(t, result.Entry)
	require.Empty(t, repo.journals)
	require.Len(t, repo.movements, 1)
}

func TestCloseSessionDeductsAndPostsBalancedEntry(t *testing.T) {
	repo := newMemoryRepo()
	seedItem(repo, 100, 1660)
	svc := newTestService(repo)

	result, err := svc.CloseSessionFinance(context.Background(), CloseSessionInput{
		EventID:       "evt-42",
		ShuttleQty:    8,
		CourtFee:      160000,
		CoachFee:      250000,
		ShuttleItemID: "item-1",
	})
	require.NoError(t, err)
	require.Equal(t, int64(13280), result.ShuttleCost)
	require.InDelta(t, 92, result.Item.QtyOnHand, 1e-9)
	require.Len(t, repo.journals, 1)

	entry := repo.journals[0]
	require.Equal(t, "CLS-evt-42", entry.RefID)
	var debit, credit int64
	for _, l := range entry.Lines {
		if l.Side == coa.SideDebit {
			debit += l.Amount
		} else {
			credit += l.Amount
		}
	}
	require.Equal(t, debit, credit)
	require.Equal(t, int64(13280+160000+250000), debit)
}

func TestCloseSessionRollsBackStockWhenJournalFails(t *testing.T) {
	repo := newMemoryRepo()
	seedItem(repo, 100, 1660)
	repo.failJournal = errors.New("journal insert failed")
	svc := newTestService(repo)

	_, err := svc.CloseSessionFinance(context.Background(), CloseSessionInput{
		EventID:       "evt-42",
		ShuttleQty:    8,
		CourtFee:      160000,
		CoachFee:      250000,
		ShuttleItemID: "item-1",
	})
	require.Error(t, err)
	require.InDelta(t, 100, repo.items["item-1"].QtyOnHand, 1e-9)
	require.Empty(t, repo.movements)
	require.Empty(t, repo.journals)
}

func TestCloseSessionSecondCallConflicts(t *testing.T) {
	repo := newMemoryRepo()
	seedItem(repo, 100, 1660)
	svc := newTestService(repo)

	input := CloseSessionInput{
		EventID:       "evt-42",
		ShuttleQty:    8,
		CourtFee:      160000,
		CoachFee:      250000,
		ShuttleItemID: "item-1",
	}
	_, err := svc.CloseSessionFinance(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.CloseSessionFinance(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.InDelta(t, 92, repo.items["item-1"].QtyOnHand, 1e-9)
	require.Len(t, repo.journals, 1)
}

func TestRestockValidation(t *testing.T) {
	repo := newMemoryRepo()
	seedItem(repo, 10, 1000)
	svc := newTestService(repo)

	_, err := svc.Restock(context.Background(), RestockInput{ItemID: "item-1", Qty: 0, UnitPrice: 1500})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Restock(context.Background(), RestockInput{ItemID: "item-1", Qty: 10, UnitPrice: 0})
	require.ErrorIs(t, err, ErrInvalidUnitPrice)
}

func TestAddItemDefaultsAssetAccount(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	item, err := svc.AddItem(context.Background(), AddItemInput{
		Name:       "Grip tape",
		Category:   "consumable",
		Unit:       "roll",
		InitialQty: 12,
	})
	require.NoError(t, err)
	require.Equal(t, coa.AccountInventoryShuttles, item.AssetAccount)
	require.NotEmpty(t, item.ID)

	stored, err := svc.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.InDelta(t, 12, stored.QtyOnHand, 1e-9)
}
