package events

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/courtledger/courtledger/internal/inventory"
	"github.com/courtledger/courtledger/internal/platform/cache"
	"github.com/courtledger/courtledger/internal/pricing"
)

// InventoryPort is the slice of the inventory service the closing flow needs.
type InventoryPort interface {
	CloseSessionFinance(ctx context.Context, input inventory.CloseSessionInput) (inventory.CloseResult, error)
	GetItem(ctx context.Context, itemID string) (inventory.Item, error)
}

// CloseOverride lets the operator adjust the stored cost block at close time.
// Nil fields keep the event's recorded value.
type CloseOverride struct {
	ShuttleQty    *float64
	CourtFee      *int64
	CoachFee      *int64
	ShuttleItemID string
}

// Service orchestrates session settlement and price-tier caching.
type Service struct {
	repo      Repository
	inventory InventoryPort
	tiers     *cache.JSONCache
	logger    *slog.Logger
}

func NewService(logger *slog.Logger, repo Repository, inv InventoryPort, tiers *cache.JSONCache) *Service {
	return &Service{logger: logger, repo: repo, inventory: inv, tiers: tiers}
}

// Get returns one event.
func (s *Service) Get(ctx context.Context, eventID string) (Event, error) {
	return s.repo.Get(ctx, eventID)
}

// Close settles the event's finances: shuttlecock consumption plus court and
// coach fees, posted once. A second close attempt surfaces a conflict from the
// idempotency guard.
func (s *Service) Close(ctx context.Context, eventID string, override CloseOverride, actorID string) (inventory.CloseResult, error) {
	event, err := s.repo.Get(ctx, eventID)
	if err != nil {
		return inventory.CloseResult{}, err
	}
	if event.Status == StatusClosed {
		return inventory.CloseResult{}, ErrAlreadyClosed
	}
	input, err := closeInput(event, override, actorID)
	if err != nil {
		return inventory.CloseResult{}, err
	}
	result, err := s.inventory.CloseSessionFinance(ctx, input)
	if err != nil {
		return inventory.CloseResult{}, err
	}
	if err := s.repo.UpdateStatus(ctx, eventID, StatusClosed); err != nil {
		// The journal is posted; only the status flag failed. Surface it so
		// the operator retries the flag, not the money.
		s.logger.Error("mark event closed", slog.String("event_id", eventID), slog.Any("error", err))
	}
	return result, nil
}

func closeInput(event Event, override CloseOverride, actorID string) (inventory.CloseSessionInput, error) {
	fin := event.Financials
	if fin == nil {
		fin = &Financials{}
	}
	input := inventory.CloseSessionInput{
		EventID:       event.ID,
		ShuttleQty:    fin.ShuttleQty,
		CourtFee:      fin.CourtFee,
		CoachFee:      fin.CoachFee,
		ShuttleItemID: fin.ShuttleItemID,
		ActorID:       actorID,
	}
	if override.ShuttleQty != nil {
		input.ShuttleQty = *override.ShuttleQty
	}
	if override.CourtFee != nil {
		input.CourtFee = *override.CourtFee
	}
	if override.CoachFee != nil {
		input.CoachFee = *override.CoachFee
	}
	if override.ShuttleItemID != "" {
		input.ShuttleItemID = override.ShuttleItemID
	}
	if input.ShuttleItemID == "" && input.ShuttleQty > 0 {
		return inventory.CloseSessionInput{}, ErrMissingFinancials
	}
	if event.Financials == nil && override.ShuttleQty == nil && override.CourtFee == nil && override.CoachFee == nil {
		return inventory.CloseSessionInput{}, ErrMissingFinancials
	}
	return input, nil
}

// PriceTiers returns the per-category price map for an event, computed from
// its cost block and the shuttlecock item's current average cost. Results are
// cached in redis and mirrored onto the event row.
func (s *Service) PriceTiers(ctx context.Context, eventID string) (map[pricing.UserCategory]int64, error) {
	key := tierCacheKey(eventID)
	if s.tiers != nil {
		var cached map[pricing.UserCategory]int64
		if found, err := s.tiers.Get(ctx, key, &cached); err == nil && found {
			return cached, nil
		}
	}
	event, err := s.repo.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Financials == nil {
		return nil, ErrMissingFinancials
	}
	costs, err := s.sessionCosts(ctx, *event.Financials)
	if err != nil {
		return nil, err
	}
	tiers := pricing.GeneratePriceTiers(costs)
	if s.tiers != nil {
		if err := s.tiers.Set(ctx, key, tiers); err != nil {
			s.logger.Warn("cache price tiers", slog.String("event_id", eventID), slog.Any("error", err))
		}
	}
	persisted := make(map[string]int64, len(tiers))
	for category, price := range tiers {
		persisted[string(category)] = price
	}
	if err := s.repo.UpdatePriceTiers(ctx, eventID, persisted); err != nil {
		s.logger.Warn("persist price tiers", slog.String("event_id", eventID), slog.Any("error", err))
	}
	return tiers, nil
}

// WarmTiers recomputes and caches tiers for events starting soon. Used by the
// background warmup job.
func (s *Service) WarmTiers(ctx context.Context, upcoming []Event) int {
	warmed := 0
	for _, event := range upcoming {
		if event.Financials == nil {
			continue
		}
		if _, err := s.PriceTiers(ctx, event.ID); err != nil {
			s.logger.Warn("warm price tiers", slog.String("event_id", event.ID), slog.Any("error", err))
			continue
		}
		warmed++
	}
	return warmed
}

func (s *Service) sessionCosts(ctx context.Context, fin Financials) (pricing.SessionCosts, error) {
	costs := pricing.SessionCosts{
		CourtCost: fin.CourtFee,
		ToolCost:  fin.ToolCost,
		CoachFee:  fin.CoachFee,
		Capacity:  fin.Capacity,
	}
	if fin.ShuttleItemID != "" && fin.ShuttleQty > 0 {
		item, err := s.inventory.GetItem(ctx, fin.ShuttleItemID)
		if err != nil {
			return pricing.SessionCosts{}, err
		}
		// round to the nearest rupiah, matching the closing journal
		costs.ShuttlecockCost = int64(math.Round(fin.ShuttleQty * item.AvgUnitCost))
	}
	return costs, nil
}

func tierCacheKey(eventID string) string {
	return fmt.Sprintf("pricing:tiers:%s", eventID)
}
