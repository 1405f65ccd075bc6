package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/oracles/internal/domain"
	"github.com/alanyoungcy/oracles/internal/pipeline"
	"github.com/alanyoungcy/oracles/internal/server"
	"github.com/alanyoungcy/oracles/internal/server/handler"
	"github.com/alanyoungcy/oracles/internal/server/ws"
	"github.com/alanyoungcy/oracles/internal/service"
)

const (
	shutdownTimeout = 5 * time.Second
	apiRateWindow   = time.Minute
)

// CouncilMode runs the council once, either for a single market or for every
// active market, reports the results and returns. A single-market failure is
// returned; in a sweep failures are logged and the sweep continues.
func (a *App) CouncilMode(ctx context.Context, deps *Dependencies) error {
	if a.opts.MarketID == "" && !a.opts.All {
		return ErrNoTarget
	}
	ctx = domain.WithTrigger(ctx, domain.TriggerCLI)

	if !a.opts.All {
		prediction, err := deps.Council.RunForMarket(ctx, a.opts.MarketID)
		if err != nil {
			return fmt.Errorf("app: council %s: %w", a.opts.MarketID, err)
		}
		a.report(ctx, deps, prediction.MarketID, prediction)
		return nil
	}

	summary, err := deps.Council.RunAllActive(ctx)
	if len(summary.Results) == 0 && err == nil {
		a.logger.InfoContext(ctx, "no active markets found")
		return nil
	}
	for _, res := range summary.Results {
		if res.Err != nil {
			a.logger.ErrorContext(ctx, "council run failed",
				slog.String("market_id", res.MarketID),
				slog.String("error", res.Err.Error()),
			)
			continue
		}
		a.report(ctx, deps, res.MarketID, res.Prediction)
	}
	a.logger.InfoContext(ctx, "council sweep finished",
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
	)
	return err
}

func (a *App) report(ctx context.Context, deps *Dependencies, marketID string, prediction domain.CouncilPrediction) {
	if a.opts.Report == nil {
		return
	}
	market, err := deps.Markets.GetMarket(ctx, marketID)
	if err != nil {
		a.logger.WarnContext(ctx, "report: market lookup failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		return
	}
	a.opts.Report(market, prediction)
}

// ServerMode serves the HTTP API and WebSocket feed until ctx is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	g, gctx := errgroup.WithContext(ctx)
	a.startHTTPServer(gctx, g, deps)
	return g.Wait()
}

// SchedulerMode runs periodic council sweeps and, when enabled, history
// exports until ctx is cancelled.
func (a *App) SchedulerMode(ctx context.Context, deps *Dependencies) error {
	return a.newOrchestrator(deps).Run(ctx)
}

// FullMode runs the API server and the scheduler together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(gctx, g, deps)
	}
	if a.cfg.Scheduler.Enabled {
		orch := a.newOrchestrator(deps)
		g.Go(func() error {
			return orch.Run(gctx)
		})
	}

	return g.Wait()
}

// SeedMode loads markets from the seed file into the store or, without a
// file, imports them from Polymarket when the importer is enabled.
func (a *App) SeedMode(ctx context.Context, deps *Dependencies) error {
	if a.opts.SeedPath == "" {
		if deps.Importer == nil {
			return fmt.Errorf("app: seed mode needs a markets file or importer.enabled")
		}
		n, err := deps.Importer.Run(ctx)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		a.logger.InfoContext(ctx, "markets imported", slog.Int("count", n))
		return nil
	}
	markets, err := service.LoadSeedFile(a.opts.SeedPath)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := deps.Markets.Seed(ctx, markets); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	a.logger.InfoContext(ctx, "markets seeded",
		slog.String("path", a.opts.SeedPath),
		slog.Int("count", len(markets)),
	)
	return nil
}

func (a *App) newOrchestrator(deps *Dependencies) *pipeline.Orchestrator {
	logger := a.logger.With(slog.String("component", "pipeline"))

	var exporter *pipeline.HistoryExporter
	if a.cfg.Scheduler.ExportEnabled && deps.Exporter != nil {
		exporter = pipeline.NewHistoryExporter(deps.Markets, deps.Council, deps.Exporter, logger)
	}

	orch := pipeline.NewOrchestrator(
		pipeline.NewSweeper(deps.Council, logger),
		exporter,
		a.cfg.Scheduler.Interval.Duration,
		a.cfg.Scheduler.ExportInterval.Duration,
		logger,
	)
	if deps.Importer != nil {
		orch.WithImporter(deps.Importer, a.cfg.Importer.Interval.Duration)
	}
	return orch
}

// startHTTPServer registers the hub, the HTTP server and its shutdown on g.
// Council runs triggered over HTTP are cancelled with ctx and awaited before
// the server goroutine returns.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	logger := a.logger.With(slog.String("component", "server"))

	hub := ws.NewHub(deps.SignalBus, logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	councilH := handler.NewCouncilHandler(ctx, deps.Council, deps.Markets, logger)

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimit:   a.cfg.Server.RateLimit,
			RateWindow:  apiRateWindow,
		},
		server.Handlers{
			Health:      handler.NewHealthHandler(deps.Checks, logger),
			Markets:     handler.NewMarketHandler(deps.Markets, logger),
			Predictions: handler.NewPredictionHandler(deps.Council, logger),
			Council:     councilH,
			Audit:       handler.NewAuditHandler(deps.AuditStore, logger),
		},
		server.Options{
			Hub:      hub,
			Limiter:  deps.RateLimiter,
			Metrics:  deps.Metrics.Handler(),
			Observer: deps.Metrics,
		},
		logger,
	)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutCtx)
		councilH.Wait()
		return err
	})
}
