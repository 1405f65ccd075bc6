// Package pipeline schedules the recurring work: market imports, council
// sweeps over active markets and exports of prediction history to object
// storage.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator runs the sweep loop and, when configured, the import and
// export loops.
type Orchestrator struct {
	sweeper        *Sweeper
	exporter       *HistoryExporter
	importer       *MarketImporter
	sweepInterval  time.Duration
	exportInterval time.Duration
	importInterval time.Duration
	logger         *slog.Logger
}

// NewOrchestrator creates an Orchestrator. exporter may be nil to disable
// history exports.
func NewOrchestrator(
	sweeper *Sweeper,
	exporter *HistoryExporter,
	sweepInterval time.Duration,
	exportInterval time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		sweeper:        sweeper,
		exporter:       exporter,
		sweepInterval:  sweepInterval,
		exportInterval: exportInterval,
		logger:         logger,
	}
}

// WithImporter adds a market import loop running every interval.
func (o *Orchestrator) WithImporter(importer *MarketImporter, interval time.Duration) *Orchestrator {
	o.importer = importer
	o.importInterval = interval
	return o
}

// Run blocks until ctx is cancelled or a loop fails.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Duration("sweep_interval", o.sweepInterval),
		slog.Bool("export_enabled", o.exporter != nil),
		slog.Duration("export_interval", o.exportInterval),
		slog.Bool("import_enabled", o.importer != nil),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.sweeper.RunLoop(ctx, o.sweepInterval)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("sweeper: %w", err)
	})

	if o.importer != nil {
		g.Go(func() error {
			err := o.importer.RunLoop(ctx, o.importInterval)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("market importer: %w", err)
		})
	}

	if o.exporter != nil {
		g.Go(func() error {
			err := o.exporter.RunLoop(ctx, o.exportInterval)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("history exporter: %w", err)
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}
	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}
