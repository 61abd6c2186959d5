package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/courtledger/courtledger/internal/events"
	"github.com/courtledger/courtledger/internal/inventory"
	"github.com/courtledger/courtledger/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskIdempotencyCleanup sweeps expired idempotency keys.
	TaskIdempotencyCleanup = "ledger:idempotency_cleanup"
	// TaskLowStockScan flags items at or under their reorder level.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskTierWarmup precomputes price tiers for upcoming sessions.
	TaskTierWarmup = "pricing:tier_warmup"
)

// IdempotencyCleanupPayload configures the retention sweep.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: int(retention.Hours())})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// NewLowStockScanTask constructs the low-stock scan task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, nil)
}

// NewTierWarmupTask constructs the price-tier warmup task.
func NewTierWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskTierWarmup, nil)
}

// HandleIdempotencyCleanup builds the handler for TaskIdempotencyCleanup.
func HandleIdempotencyCleanup(logger *slog.Logger, store *shared.IdempotencyStore) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload IdempotencyCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		retention := time.Duration(payload.RetentionHours) * time.Hour
		if retention <= 0 {
			retention = 7 * 24 * time.Hour
		}
		if err := store.Cleanup(ctx, retention); err != nil {
			logger.Error("idempotency cleanup", slog.Any("error", err))
			return err
		}
		logger.Info("idempotency cleanup done", slog.Duration("retention", retention))
		return nil
	}
}

// HandleLowStockScan builds the handler for TaskLowStockScan. Items at or
// under their reorder level are logged and audited so an admin can restock.
func HandleLowStockScan(logger *slog.Logger, inv inventory.RepositoryPort, audit *shared.AuditLogger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		items, err := inv.ListItems(ctx)
		if err != nil {
			logger.Error("low stock scan", slog.Any("error", err))
			return err
		}
		flagged := 0
		for _, item := range items {
			if item.ReorderLevel <= 0 || item.QtyOnHand > item.ReorderLevel {
				continue
			}
			flagged++
			logger.Warn("item under reorder level",
				slog.String("item_id", item.ID),
				slog.String("name", item.Name),
				slog.Float64("qty", item.QtyOnHand),
				slog.Float64("reorder_level", item.ReorderLevel))
			if audit != nil {
				_ = audit.Record(ctx, shared.AuditLog{
					Action:   "inventory.low_stock",
					Entity:   "inventory",
					EntityID: item.ID,
					Meta:     map[string]any{"qty": item.QtyOnHand, "reorder_level": item.ReorderLevel},
				})
			}
		}
		logger.Info("low stock scan done", slog.Int("flagged", flagged))
		return nil
	}
}

// HandleTierWarmup builds the handler for TaskTierWarmup. Events starting in
// the next 48 hours get their price tiers computed into the cache.
func HandleTierWarmup(logger *slog.Logger, repo events.Repository, svc *events.Service) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		upcoming, err := repo.ListUpcoming(ctx, 48*time.Hour, 100)
		if err != nil {
			logger.Error("tier warmup list events", slog.Any("error", err))
			return err
		}
		warmed := svc.WarmTiers(ctx, upcoming)
		logger.Info("tier warmup done", slog.Int("events", len(upcoming)), slog.Int("warmed", warmed))
		return nil
	}
}
