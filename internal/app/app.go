// Package app provides the top-level application lifecycle for the council
// forecasting engine. It wires stores, caches, blob storage, the council and
// its services, and starts the goroutines the configured mode needs.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/oracles/internal/config"
	"github.com/alanyoungcy/oracles/internal/domain"
)

// ErrNoTarget is returned in council mode when neither a market id nor the
// all-markets flag was given.
var ErrNoTarget = errors.New("app: council mode needs a market id or --all")

// ReportFunc receives every completed council prediction in council mode.
type ReportFunc func(market domain.Market, prediction domain.CouncilPrediction)

// Options carries the command-line choices that are not part of the config
// file.
type Options struct {
	// MarketID selects the market for a one-shot council run.
	MarketID string
	// All runs the council over every active market.
	All bool
	// SeedPath is the markets JSON file loaded in seed mode.
	SeedPath string
	// Report is called with each completed prediction. May be nil.
	Report ReportFunc
}

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	opts    Options
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, opts Options, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		opts:   opts,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, selects the operating mode and blocks until the
// mode finishes or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "council":
		return a.CouncilMode(ctx, deps)
	case "server":
		return a.ServerMode(ctx, deps)
	case "scheduler":
		return a.SchedulerMode(ctx, deps)
	case "full":
		return a.FullMode(ctx, deps)
	case "seed":
		return a.SeedMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
