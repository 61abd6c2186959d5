package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courtledger/courtledger/internal/ledger"
	"github.com/courtledger/courtledger/internal/platform/db"
)

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) RepositoryPort {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *repository) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, category, unit, qty_on_hand, avg_unit_cost, asset_account, reorder_level, created_at, updated_at
		FROM inventory_items ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("inventory: list items: %w", err)
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Category, &it.Unit, &it.QtyOnHand, &it.AvgUnitCost,
			&it.AssetAccount, &it.ReorderLevel, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("inventory: scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) GetItem(ctx context.Context, itemID string) (Item, error) {
	return scanItem(r.pool.QueryRow(ctx, `
		SELECT id, name, category, unit, qty_on_hand, avg_unit_cost, asset_account, reorder_level, created_at, updated_at
		FROM inventory_items WHERE id = $1`, itemID))
}

func (r *repository) ListMovements(ctx context.Context, itemID string, limit int) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, item_id, movement_type, qty_change, unit_cost, balance_qty, avg_cost, ref_id, note, posted_at
		FROM inventory_movements WHERE item_id = $1 ORDER BY id DESC LIMIT $2`, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("inventory: list movements: %w", err)
	}
	defer rows.Close()
	movements := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Type, &m.QtyChange, &m.UnitCost, &m.BalanceQty,
			&m.AvgCost, &m.RefID, &m.Note, &m.PostedAt); err != nil {
			return nil, fmt.Errorf("inventory: scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertItem(ctx context.Context, item Item) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO inventory_items (id, name, category, unit, qty_on_hand, avg_unit_cost, asset_account, reorder_level, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		item.ID, item.Name, item.Category, item.Unit, item.QtyOnHand, item.AvgUnitCost,
		item.AssetAccount, item.ReorderLevel, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inventory: insert item: %w", err)
	}
	return nil
}

func (r *txRepository) GetItemForUpdate(ctx context.Context, itemID string) (Item, error) {
	return scanItem(r.tx.QueryRow(ctx, `
		SELECT id, name, category, unit, qty_on_hand, avg_unit_cost, asset_account, reorder_level, created_at, updated_at
		FROM inventory_items WHERE id = $1 FOR UPDATE`, itemID))
}

func (r *txRepository) UpdateItemState(ctx context.Context, itemID string, qty, avgCost float64) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE inventory_items SET qty_on_hand = $2, avg_unit_cost = $3, updated_at = now()
		WHERE id = $1`, itemID, qty, avgCost)
	if err != nil {
		return fmt.Errorf("inventory: update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *txRepository) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO inventory_movements (item_id, movement_type, qty_change, unit_cost, balance_qty, avg_cost, ref_id, note, posted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		m.ItemID, m.Type, m.QtyChange, m.UnitCost, m.BalanceQty, m.AvgCost, m.RefID, m.Note, m.PostedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inventory: insert movement: %w", err)
	}
	return id, nil
}

func (r *txRepository) InsertAsset(ctx context.Context, a Asset) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO fixed_assets (id, name, category, purchase_date, price, useful_life_months, residual_value, location, condition, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.Name, a.Category, a.PurchaseDate, a.Price, a.UsefulLifeMonths, a.ResidualValue,
		a.Location, a.Condition, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("inventory: insert asset: %w", err)
	}
	return nil
}

func (r *txRepository) PostJournal(ctx context.Context, in ledger.PostingInput) (ledger.Entry, error) {
	return ledger.InsertEntryTx(ctx, r.tx, in)
}

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Name, &it.Category, &it.Unit, &it.QtyOnHand, &it.AvgUnitCost,
		&it.AssetAccount, &it.ReorderLevel, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("inventory: get item: %w", err)
	}
	return it, nil
}
