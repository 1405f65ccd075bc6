package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
)

// ActiveMarkets lists the markets whose history is exported.
type ActiveMarkets interface {
	ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error)
}

// PredictionHistory lists a market's predictions, newest first.
type PredictionHistory interface {
	History(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.CouncilPrediction, error)
}

// MarketExporter writes one market's history to cold storage.
type MarketExporter interface {
	ExportMarket(ctx context.Context, marketID string, predictions []domain.CouncilPrediction) (string, error)
}

// HistoryExporter exports the prediction history of every active market.
type HistoryExporter struct {
	markets  ActiveMarkets
	history  PredictionHistory
	exporter MarketExporter
	logger   *slog.Logger
}

// NewHistoryExporter creates a HistoryExporter.
func NewHistoryExporter(markets ActiveMarkets, history PredictionHistory, exporter MarketExporter, logger *slog.Logger) *HistoryExporter {
	return &HistoryExporter{
		markets:  markets,
		history:  history,
		exporter: exporter,
		logger:   logger.With(slog.String("component", "history_exporter")),
	}
}

// Run exports each active market. Per-market failures are joined into the
// returned error after every market has been attempted.
func (e *HistoryExporter) Run(ctx context.Context) error {
	markets, err := e.markets.ListActive(ctx, domain.ListOpts{})
	if err != nil {
		return fmt.Errorf("pipeline: export: %w", err)
	}

	var errs []error
	exported := 0
	for _, m := range markets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ps, err := e.history.History(ctx, m.ID, domain.ListOpts{})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		path, err := e.exporter.ExportMarket(ctx, m.ID, ps)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if path != "" {
			exported++
			e.logger.DebugContext(ctx, "market history exported",
				slog.String("market_id", m.ID),
				slog.String("path", path),
				slog.Int("predictions", len(ps)),
			)
		}
	}

	e.logger.InfoContext(ctx, "history export done",
		slog.Int("markets", len(markets)),
		slog.Int("exported", exported),
		slog.Int("failed", len(errs)),
	)
	if len(errs) > 0 {
		return fmt.Errorf("pipeline: export: %w", errors.Join(errs...))
	}
	return nil
}

func (e *HistoryExporter) RunLoop(ctx context.Context, interval time.Duration) error {
	return runEvery(ctx, interval, e.logger, "history export", e.Run)
}
