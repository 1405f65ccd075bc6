package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
)

// MarketService serves market definitions from the cache, backed by the store.
type MarketService struct {
	markets domain.MarketStore
	cache   domain.MarketCache
	logger  *slog.Logger
	now     func() time.Time
}

// NewMarketService creates a MarketService. cache may be nil.
func NewMarketService(
	markets domain.MarketStore,
	cache domain.MarketCache,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets: markets,
		cache:   cache,
		logger:  logger.With(slog.String("component", "market_service")),
		now:     time.Now,
	}
}

// GetMarket checks the cache first and back-fills it on a miss.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	if s.cache != nil {
		m, err := s.cache.Get(ctx, id)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "market cache get failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get %q: %w", id, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, m); err != nil {
			s.logger.WarnContext(ctx, "market cache set failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return m, nil
}

// List returns markets of any status, most recently updated first.
func (s *MarketService) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list: %w", err)
	}
	return markets, nil
}

// ListActive returns active markets straight from the store.
func (s *MarketService) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.ListActive(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list active: %w", err)
	}
	return markets, nil
}

// Count returns the number of stored markets.
func (s *MarketService) Count(ctx context.Context) (int64, error) {
	count, err := s.markets.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("market_service: count: %w", err)
	}
	return count, nil
}

// Seed validates and upserts markets, then drops their cache entries. Missing
// status defaults to active. Nothing is written if any market is invalid.
func (s *MarketService) Seed(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	now := s.now().UTC()
	prepared := make([]domain.Market, 0, len(markets))
	var errs []error
	for _, m := range markets {
		if m.Status == "" {
			m.Status = domain.MarketStatusActive
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		m.UpdatedAt = now
		if err := m.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		prepared = append(prepared, m)
	}
	if len(errs) > 0 {
		return fmt.Errorf("market_service: seed: %w", errors.Join(errs...))
	}

	if err := s.markets.UpsertBatch(ctx, prepared); err != nil {
		return fmt.Errorf("market_service: seed: %w", err)
	}

	if s.cache != nil {
		for _, m := range prepared {
			if err := s.cache.Invalidate(ctx, m.ID); err != nil {
				s.logger.WarnContext(ctx, "market cache invalidate failed",
					slog.String("market_id", m.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	s.logger.InfoContext(ctx, "seeded markets", slog.Int("count", len(prepared)))
	return nil
}
