package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/courtledger/courtledger/internal/coa"
	"github.com/courtledger/courtledger/internal/ledger"
	"github.com/courtledger/courtledger/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListItems(ctx context.Context) ([]Item, error)
	GetItem(ctx context.Context, itemID string) (Item, error)
	ListMovements(ctx context.Context, itemID string, limit int) ([]Movement, error)
}

// TxRepository exposes transactional operations used by the service. The
// journal insert shares the transaction, so stock state and financial records
// commit together or not at all.
type TxRepository interface {
	InsertItem(ctx context.Context, item Item) error
	GetItemForUpdate(ctx context.Context, itemID string) (Item, error)
	UpdateItemState(ctx context.Context, itemID string, qty, avgCost float64) error
	InsertMovement(ctx context.Context, movement Movement) (int64, error)
	InsertAsset(ctx context.Context, asset Asset) error
	PostJournal(ctx context.Context, input ledger.PostingInput) (ledger.Entry, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards side-effecting operations against double submission.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// MetricsPort counts stock movements. A nil port is a no-op.
type MetricsPort interface {
	MovementRecorded(kind string)
}

// Service coordinates inventory operations.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	metrics     MetricsPort
	now         func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) WithMetrics(m MetricsPort) {
	s.metrics = m
}

func (s *Service) countMovement(kind MovementType) {
	if s.metrics != nil {
		s.metrics.MovementRecorded(string(kind))
	}
}

// ListItems returns all registered items.
func (s *Service) ListItems(ctx context.Context) ([]Item, error) {
	return s.repo.ListItems(ctx)
}

// GetItem fetches one item.
func (s *Service) GetItem(ctx context.Context, itemID string) (Item, error) {
	if itemID == "" {
		return Item{}, errors.New("inventory: item id required")
	}
	return s.repo.GetItem(ctx, itemID)
}

// ListMovements returns the item's stock card, newest first.
func (s *Service) ListMovements(ctx context.Context, itemID string, limit int) ([]Movement, error) {
	if itemID == "" {
		return nil, errors.New("inventory: item id required")
	}
	if limit <= 0 {
		limit = 200
	}
	return s.repo.ListMovements(ctx, itemID, limit)
}

// AddItem registers an item with its opening balance.
func (s *Service) AddItem(ctx context.Context, input AddItemInput) (Item, error) {
	if input.Name == "" || input.Category == "" || input.Unit == "" {
		return Item{}, errors.New("inventory: name, category and unit required")
	}
	if input.InitialQty < 0 || input.InitialCost < 0 {
		return Item{}, errors.New("inventory: opening balance cannot be negative")
	}
	assetAccount := input.AssetAccount
	if assetAccount == "" {
		assetAccount = coa.AccountInventoryShuttles
	}
	now := s.now().UTC()
	item := Item{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Category:     input.Category,
		Unit:         input.Unit,
		QtyOnHand:    input.InitialQty,
		AvgUnitCost:  input.InitialCost,
		AssetAccount: assetAccount,
		ReorderLevel: input.ReorderLevel,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertItem(ctx, item)
	})
	if err != nil {
		return Item{}, err
	}
	s.recordAudit(ctx, input.ActorID, "inventory.add", item.ID, map[string]any{
		"name": item.Name, "qty": item.QtyOnHand,
	})
	return item, nil
}

// Restock increases stock and recomputes the weighted-average unit cost with
// shipping folded in as landed cost.
func (s *Service) Restock(ctx context.Context, input RestockInput) (Item, error) {
	if input.ItemID == "" {
		return Item{}, errors.New("inventory: item id required")
	}
	if input.Qty <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	if input.UnitPrice <= 0 {
		return Item{}, ErrInvalidUnitPrice
	}
	if input.ShippingCost < 0 {
		return Item{}, errors.New("inventory: shipping cost cannot be negative")
	}
	var updated Item
	err := s.withIdempotency(ctx, input.IdempotencyKey, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			item, err := tx.GetItemForUpdate(ctx, input.ItemID)
			if err != nil {
				return err
			}
			newQty := item.QtyOnHand + input.Qty
			landed := item.QtyOnHand*item.AvgUnitCost + input.Qty*float64(input.UnitPrice) + float64(input.ShippingCost)
			newAvg := landed / newQty
			if err := tx.UpdateItemState(ctx, item.ID, newQty, newAvg); err != nil {
				return err
			}
			if _, err := tx.InsertMovement(ctx, Movement{
				ItemID:     item.ID,
				Type:       MovementRestock,
				QtyChange:  input.Qty,
				UnitCost:   float64(input.UnitPrice),
				BalanceQty: newQty,
				AvgCost:    newAvg,
				RefID:      uuid.NewString(),
				Note:       input.Note,
				PostedAt:   s.now().UTC(),
			}); err != nil {
				return err
			}
			updated = item
			updated.QtyOnHand = newQty
			updated.AvgUnitCost = newAvg
			return nil
		})
	})
	if err != nil {
		return Item{}, err
	}
	s.countMovement(MovementRestock)
	s.recordAudit(ctx, input.ActorID, "inventory.restock", input.ItemID, map[string]any{
		"qty": input.Qty, "unit_price": input.UnitPrice, "shipping": input.ShippingCost,
	})
	return updated, nil
}

// RecordUsage consumes stock. The average cost is untouched; a deduction that
// would drive the balance negative fails before any write.
func (s *Service) RecordUsage(ctx context.Context, input UsageInput) (Item, error) {
	if input.ItemID == "" {
		return Item{}, errors.New("inventory: item id required")
	}
	if input.Qty <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	var updated Item
	err := s.withIdempotency(ctx, input.IdempotencyKey, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			item, err := tx.GetItemForUpdate(ctx, input.ItemID)
			if err != nil {
				return err
			}
			newQty := item.QtyOnHand - input.Qty
			if newQty < 0 {
				return fmt.Errorf("%w: have %.2f, need %.2f", ErrInsufficientStock, item.QtyOnHand, input.Qty)
			}
			if err := tx.UpdateItemState(ctx, item.ID, newQty, item.AvgUnitCost); err != nil {
				return err
			}
			note := input.Purpose
			if input.Notes != "" {
				note = fmt.Sprintf("%s: %s", input.Purpose, input.Notes)
			}
			if _, err := tx.InsertMovement(ctx, Movement{
				ItemID:     item.ID,
				Type:       MovementUsage,
				QtyChange:  -input.Qty,
				UnitCost:   item.AvgUnitCost,
				BalanceQty: newQty,
				AvgCost:    item.AvgUnitCost,
				RefID:      uuid.NewString(),
				Note:       note,
				PostedAt:   s.now().UTC(),
			}); err != nil {
				return err
			}
			updated = item
			updated.QtyOnHand = newQty
			return nil
		})
	})
	if err != nil {
		return Item{}, err
	}
	s.countMovement(MovementUsage)
	s.recordAudit(ctx, input.ActorID, "inventory.usage", input.ItemID, map[string]any{
		"qty": input.Qty, "purpose": input.Purpose,
	})
	return updated, nil
}

// OpnameResult reports the reconciliation outcome.
type OpnameResult struct {
	Item          Item
	Variance      float64
	VarianceValue int64
	Entry         *ledger.Entry
}

// PerformOpname sets the book quantity to the physical count and posts the
// variance value as a stock gain or loss.
func (s *Service) PerformOpname(ctx context.Context, input OpnameInput) (OpnameResult, error) {
	if input.ItemID == "" {
		return OpnameResult{}, errors.New("inventory: item id required")
	}
	if input.ActualQty < 0 {
		return OpnameResult{}, errors.New("inventory: actual quantity cannot be negative")
	}
	if input.Reason == "" {
		return OpnameResult{}, errors.New("inventory: opname reason required")
	}
	var result OpnameResult
	err := s.withIdempotency(ctx, input.IdempotencyKey, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			item, err := tx.GetItemForUpdate(ctx, input.ItemID)
			if err != nil {
				return err
			}
			variance := input.ActualQty - item.QtyOnHand
			varianceValue := roundToUnit(variance * item.AvgUnitCost)
			if err := tx.UpdateItemState(ctx, item.ID, input.ActualQty, item.AvgUnitCost); err != nil {
				return err
			}
			refID := fmt.Sprintf("OPN-%d", s.now().UnixMilli())
			if _, err := tx.InsertMovement(ctx, Movement{
				ItemID:     item.ID,
				Type:       MovementOpname,
				QtyChange:  variance,
				UnitCost:   item.AvgUnitCost,
				BalanceQty: input.ActualQty,
				AvgCost:    item.AvgUnitCost,
				RefID:      refID,
				Note:       input.Reason,
				PostedAt:   s.now().UTC(),
			}); err != nil {
				return err
			}
			result = OpnameResult{Item: item, Variance: variance, VarianceValue: varianceValue}
			result.Item.QtyOnHand = input.ActualQty
			if varianceValue == 0 {
				return nil
			}
			entry, err := tx.PostJournal(ctx, opnameJournal(item, refID, variance, varianceValue, input, s.now()))
			if err != nil {
				return err
			}
			result.Entry = &entry
			return nil
		})
	})
	if err != nil {
		return OpnameResult{}, err
	}
	s.countMovement(MovementOpname)
	s.recordAudit(ctx, input.ActorID, "inventory.opname", input.ItemID, map[string]any{
		"actual_qty": input.ActualQty, "variance": result.Variance, "reason": input.Reason,
	})
	return result, nil
}

// RegisterAsset creates a fixed-asset record.
func (s *Service) RegisterAsset(ctx context.Context, input RegisterAssetInput) (Asset, error) {
	if input.Name == "" || input.Category == "" {
		return Asset{}, errors.New("inventory: asset name and category required")
	}
	if input.Price <= 0 {
		return Asset{}, errors.New("inventory: asset price must be positive")
	}
	if input.UsefulLifeMonths <= 0 {
		return Asset{}, errors.New("inventory: useful life must be positive")
	}
	if input.ResidualValue < 0 || input.ResidualValue > input.Price {
		return Asset{}, errors.New("inventory: residual value out of range")
	}
	asset := Asset{
		ID:               uuid.NewString(),
		Name:             input.Name,
		Category:         input.Category,
		PurchaseDate:     input.PurchaseDate,
		Price:            input.Price,
		UsefulLifeMonths: input.UsefulLifeMonths,
		ResidualValue:    input.ResidualValue,
		Location:         input.Location,
		Condition:        input.Condition,
		CreatedAt:        s.now().UTC(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertAsset(ctx, asset)
	})
	if err != nil {
		return Asset{}, err
	}
	s.recordAudit(ctx, input.ActorID, "inventory.asset", asset.ID, map[string]any{
		"name": asset.Name, "price": asset.Price,
	})
	return asset, nil
}

// CloseResult reports the session settlement.
type CloseResult struct {
	Item        Item
	ShuttleCost int64
	Entry       ledger.Entry
}

// CloseSessionFinance deducts consumed shuttlecocks and posts the combined
// session journal entry in one transaction. Either both the stock deduction
// and the journal land, or neither does.
func (s *Service) CloseSessionFinance(ctx context.Context, input CloseSessionInput) (CloseResult, error) {
	if input.EventID == "" {
		return CloseResult{}, errors.New("inventory: event id required")
	}
	if input.ShuttleItemID == "" {
		return CloseResult{}, errors.New("inventory: shuttlecock item id required")
	}
	if input.ShuttleQty < 0 {
		return CloseResult{}, ErrInvalidQuantity
	}
	if input.CourtFee < 0 || input.CoachFee < 0 {
		return CloseResult{}, errors.New("inventory: fees cannot be negative")
	}
	key := input.IdempotencyKey
	if key == "" {
		key = fmt.Sprintf("session-close:%s", input.EventID)
	}
	cashAccount := input.CashAccount
	if cashAccount == "" {
		cashAccount = coa.AccountCash
	}
	var result CloseResult
	err := s.withIdempotency(ctx, key, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			item, err := tx.GetItemForUpdate(ctx, input.ShuttleItemID)
			if err != nil {
				return err
			}
			newQty := item.QtyOnHand - input.ShuttleQty
			if newQty < 0 {
				return fmt.Errorf("%w: have %.2f, need %.2f", ErrInsufficientStock, item.QtyOnHand, input.ShuttleQty)
			}
			shuttleCost := roundToUnit(input.ShuttleQty * item.AvgUnitCost)
			if err := tx.UpdateItemState(ctx, item.ID, newQty, item.AvgUnitCost); err != nil {
				return err
			}
			refID := fmt.Sprintf("CLS-%s", input.EventID)
			if input.ShuttleQty > 0 {
				if _, err := tx.InsertMovement(ctx, Movement{
					ItemID:     item.ID,
					Type:       MovementClosing,
					QtyChange:  -input.ShuttleQty,
					UnitCost:   item.AvgUnitCost,
					BalanceQty: newQty,
					AvgCost:    item.AvgUnitCost,
					RefID:      refID,
					Note:       fmt.Sprintf("session %s closing", input.EventID),
					PostedAt:   s.now().UTC(),
				}); err != nil {
					return err
				}
			}
			entry, err := tx.PostJournal(ctx, closingJournal(item, cashAccount, refID, shuttleCost, input, s.now()))
			if err != nil {
				return err
			}
			result = CloseResult{Item: item, ShuttleCost: shuttleCost, Entry: entry}
			result.Item.QtyOnHand = newQty
			return nil
		})
	})
	if err != nil {
		return CloseResult{}, err
	}
	if input.ShuttleQty > 0 {
		s.countMovement(MovementClosing)
	}
	s.recordAudit(ctx, input.ActorID, "session.close", input.EventID, map[string]any{
		"shuttle_qty": input.ShuttleQty, "court_fee": input.CourtFee, "coach_fee": input.CoachFee,
		"shuttle_cost": result.ShuttleCost,
	})
	return result, nil
}

func opnameJournal(item Item, refID string, variance float64, varianceValue int64, input OpnameInput, now time.Time) ledger.PostingInput {
	description := fmt.Sprintf("Stock opname %s: %s", item.Name, input.Reason)
	amount := varianceValue
	lines := []ledger.LineInput{}
	if variance > 0 {
		lines = append(lines,
			ledger.LineInput{AccountCode: item.AssetAccount, Side: coa.SideDebit, Amount: amount, Memo: "opname gain"},
			ledger.LineInput{AccountCode: coa.AccountStockGain, Side: coa.SideCredit, Amount: amount, Memo: input.Reason},
		)
	} else {
		amount = -amount
		lines = append(lines,
			ledger.LineInput{AccountCode: coa.AccountStockLoss, Side: coa.SideDebit, Amount: amount, Memo: input.Reason},
			ledger.LineInput{AccountCode: item.AssetAccount, Side: coa.SideCredit, Amount: amount, Memo: "opname loss"},
		)
	}
	return ledger.PostingInput{
		RefID:       refID,
		Date:        now,
		Description: description,
		Category:    ledger.EntryCategoryAsset,
		PostedBy:    input.ActorID,
		Metadata:    map[string]any{"item_id": item.ID, "variance": variance},
		Lines:       lines,
	}
}

func closingJournal(item Item, cashAccount, refID string, shuttleCost int64, input CloseSessionInput, now time.Time) ledger.PostingInput {
	lines := []ledger.LineInput{}
	if shuttleCost > 0 {
		lines = append(lines,
			ledger.LineInput{AccountCode: coa.AccountShuttlecockCOGS, Side: coa.SideDebit, Amount: shuttleCost, Memo: fmt.Sprintf("%.0f %s consumed", input.ShuttleQty, item.Unit)},
			ledger.LineInput{AccountCode: item.AssetAccount, Side: coa.SideCredit, Amount: shuttleCost, Memo: "stock consumed"},
		)
	}
	if input.CourtFee > 0 {
		lines = append(lines, ledger.LineInput{AccountCode: coa.AccountCourtFee, Side: coa.SideDebit, Amount: input.CourtFee, Memo: "court rental"})
	}
	if input.CoachFee > 0 {
		lines = append(lines, ledger.LineInput{AccountCode: coa.AccountCoachFee, Side: coa.SideDebit, Amount: input.CoachFee, Memo: "coach fee"})
	}
	if cashOut := input.CourtFee + input.CoachFee; cashOut > 0 {
		lines = append(lines, ledger.LineInput{AccountCode: cashAccount, Side: coa.SideCredit, Amount: cashOut, Memo: "session payout"})
	}
	return ledger.PostingInput{
		RefID:       refID,
		Date:        now,
		Description: fmt.Sprintf("Session %s cost closing", input.EventID),
		Category:    ledger.EntryCategoryExpense,
		PostedBy:    input.ActorID,
		Metadata: map[string]any{
			"event_id": input.EventID, "shuttle_item_id": item.ID, "shuttle_qty": input.ShuttleQty,
		},
		Lines: lines,
	}
}

func (s *Service) withIdempotency(ctx context.Context, key string, fn func(context.Context) error) error {
	if s.idempotency == nil || key == "" {
		return fn(ctx)
	}
	if err := s.idempotency.CheckAndInsert(ctx, key, "inventory"); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		_ = s.idempotency.Delete(ctx, key)
		return err
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actor, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "inventory",
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	})
}

func roundToUnit(v float64) int64 {
	return int64(math.Round(v))
}
