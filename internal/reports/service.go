package reports

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/courtledger/courtledger/internal/ledger"
	"github.com/courtledger/courtledger/internal/platform/cache"
)

const (
	plScanLimit = 500
	plCacheKey  = "reports:pnl"
)

// LedgerPort is the slice of the ledger the report needs.
type LedgerPort interface {
	List(ctx context.Context, limit int) ([]ledger.Entry, error)
}

// Service computes and caches the P&L snapshot. Concurrent requests for a
// cold cache collapse into a single recompute.
type Service struct {
	ledger LedgerPort
	cache  *cache.JSONCache
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

func NewService(logger *slog.Logger, ledgerPort LedgerPort, c *cache.JSONCache) *Service {
	return &Service{logger: logger, ledger: ledgerPort, cache: c, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ProfitAndLoss returns the cached snapshot, recomputing on miss.
func (s *Service) ProfitAndLoss(ctx context.Context) (ProfitAndLoss, error) {
	if s.cache != nil {
		var cached ProfitAndLoss
		if found, err := s.cache.Get(ctx, plCacheKey, &cached); err == nil && found {
			return cached, nil
		}
	}
	result, err, _ := s.group.Do(plCacheKey, func() (any, error) {
		return s.recompute(ctx)
	})
	if err != nil {
		return ProfitAndLoss{}, err
	}
	return result.(ProfitAndLoss), nil
}

// Invalidate drops the cached snapshot. Called after journal mutations when
// freshness matters more than the TTL.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, plCacheKey); err != nil {
		s.logger.Warn("invalidate pnl cache", slog.Any("error", err))
	}
}

func (s *Service) recompute(ctx context.Context) (ProfitAndLoss, error) {
	entries, err := s.ledger.List(ctx, plScanLimit)
	if err != nil {
		return ProfitAndLoss{}, err
	}
	pl := BuildProfitAndLoss(entries, s.now().UTC())
	if s.cache != nil {
		if err := s.cache.Set(ctx, plCacheKey, pl); err != nil {
			s.logger.Warn("cache pnl snapshot", slog.Any("error", err))
		}
	}
	return pl, nil
}
