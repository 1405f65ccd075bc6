package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
)

const importPageSize = 100

// MarketSeeder persists a batch of markets.
type MarketSeeder interface {
	Seed(ctx context.Context, markets []domain.Market) error
}

// MarketFetcher retrieves a page of markets from an external source. raw is
// the number of upstream records on the page, which may exceed len(markets)
// when some records are not importable.
type MarketFetcher interface {
	GetMarkets(ctx context.Context, limit, offset int) (markets []domain.Market, raw int, err error)
}

// MarketImporter pages through an external market source and seeds each batch
// into the store.
type MarketImporter struct {
	seeder     MarketSeeder
	fetcher    MarketFetcher
	maxMarkets int
	logger     *slog.Logger
}

// NewMarketImporter creates a MarketImporter that stops after maxMarkets
// imported markets. Zero or negative means no cap.
func NewMarketImporter(seeder MarketSeeder, fetcher MarketFetcher, maxMarkets int, logger *slog.Logger) *MarketImporter {
	return &MarketImporter{
		seeder:     seeder,
		fetcher:    fetcher,
		maxMarkets: maxMarkets,
		logger:     logger.With(slog.String("component", "market_importer")),
	}
}

// Run executes a single import pass and returns the number of markets seeded.
func (s *MarketImporter) Run(ctx context.Context) (int, error) {
	offset := 0
	total := 0

	for {
		if err := ctx.Err(); err != nil {
			return total, fmt.Errorf("market importer: %w", err)
		}

		markets, raw, err := s.fetcher.GetMarkets(ctx, importPageSize, offset)
		if err != nil {
			return total, fmt.Errorf("market importer: fetch at offset %d: %w", offset, err)
		}

		if s.maxMarkets > 0 && total+len(markets) > s.maxMarkets {
			markets = markets[:s.maxMarkets-total]
		}
		if len(markets) > 0 {
			if err := s.seeder.Seed(ctx, markets); err != nil {
				return total, fmt.Errorf("market importer: seed %d markets at offset %d: %w", len(markets), offset, err)
			}
			total += len(markets)
			s.logger.InfoContext(ctx, "imported market batch",
				slog.Int("batch_size", len(markets)),
				slog.Int("total", total),
				slog.Int("offset", offset),
			)
		}

		if raw < importPageSize || (s.maxMarkets > 0 && total >= s.maxMarkets) {
			break
		}
		offset += raw
	}

	s.logger.InfoContext(ctx, "market import complete", slog.Int("total", total))
	return total, nil
}

// RunLoop imports immediately and then on every interval until ctx is
// cancelled.
func (s *MarketImporter) RunLoop(ctx context.Context, interval time.Duration) error {
	return runEvery(ctx, interval, s.logger, "market import", func(ctx context.Context) error {
		_, err := s.Run(ctx)
		return err
	})
}
