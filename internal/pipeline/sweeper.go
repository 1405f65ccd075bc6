package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
	"github.com/alanyoungcy/oracles/internal/service"
)

// CouncilSweeps runs a council over every active market.
type CouncilSweeps interface {
	RunAllActive(ctx context.Context) (service.SweepSummary, error)
}

// Sweeper periodically runs the council across all active markets.
type Sweeper struct {
	council CouncilSweeps
	logger  *slog.Logger
}

// NewSweeper creates a Sweeper that runs the council over active markets.
func NewSweeper(council CouncilSweeps, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		council: council,
		logger:  logger.With(slog.String("component", "sweeper")),
	}
}

// Run performs one sweep.
func (s *Sweeper) Run(ctx context.Context) error {
	start := time.Now()
	summary, err := s.council.RunAllActive(domain.WithTrigger(ctx, domain.TriggerScheduler))
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "sweep done",
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// RunLoop sweeps immediately, then on every interval tick until ctx ends.
func (s *Sweeper) RunLoop(ctx context.Context, interval time.Duration) error {
	return runEvery(ctx, interval, s.logger, "sweep", s.Run)
}

// runEvery calls fn once, then once per tick. fn errors are logged, not
// returned.
func runEvery(ctx context.Context, interval time.Duration, logger *slog.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil && ctx.Err() == nil {
		logger.ErrorContext(ctx, name+" failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(name + " loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				logger.ErrorContext(ctx, name+" failed", slog.String("error", err.Error()))
			}
		}
	}
}
