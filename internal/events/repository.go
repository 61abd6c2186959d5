package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists events.
type Repository interface {
	Get(ctx context.Context, eventID string) (Event, error)
	ListUpcoming(ctx context.Context, within time.Duration, limit int) ([]Event, error)
	UpdateStatus(ctx context.Context, eventID, status string) error
	UpdatePriceTiers(ctx context.Context, eventID string, tiers map[string]int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, eventID string) (Event, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, title, starts_at, status, financials, price_tiers, created_at, updated_at
		FROM events WHERE id = $1`, eventID)
	return scanEvent(row)
}

func (r *repository) ListUpcoming(ctx context.Context, within time.Duration, limit int) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, starts_at, status, financials, price_tiers, created_at, updated_at
		FROM events
		WHERE status = $1 AND starts_at BETWEEN now() AND now() + make_interval(mins => $2)
		ORDER BY starts_at LIMIT $3`, StatusScheduled, int(within.Minutes()), limit)
	if err != nil {
		return nil, fmt.Errorf("events: list upcoming: %w", err)
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, eventID, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE events SET status = $2, updated_at = now() WHERE id = $1`, eventID, status)
	if err != nil {
		return fmt.Errorf("events: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *repository) UpdatePriceTiers(ctx context.Context, eventID string, tiers map[string]int64) error {
	payload, err := json.Marshal(tiers)
	if err != nil {
		return fmt.Errorf("events: marshal tiers: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE events SET price_tiers = $2, updated_at = now() WHERE id = $1`, eventID, payload)
	if err != nil {
		return fmt.Errorf("events: update tiers: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (Event, error) {
	var (
		ev         Event
		financials []byte
		tiers      []byte
	)
	err := row.Scan(&ev.ID, &ev.Title, &ev.StartsAt, &ev.Status, &financials, &tiers, &ev.CreatedAt, &ev.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, ErrEventNotFound
	}
	if err != nil {
		return Event{}, fmt.Errorf("events: scan event: %w", err)
	}
	if len(financials) > 0 {
		var fin Financials
		if err := json.Unmarshal(financials, &fin); err != nil {
			return Event{}, fmt.Errorf("events: decode financials: %w", err)
		}
		ev.Financials = &fin
	}
	if len(tiers) > 0 {
		if err := json.Unmarshal(tiers, &ev.PriceTiers); err != nil {
			return Event{}, fmt.Errorf("events: decode tiers: %w", err)
		}
	}
	return ev, nil
}
