// Command oracles is the entry point for the council forecasting engine. It
// loads and validates configuration, sets up logging and signal handling, and
// starts the application in the configured mode.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alanyoungcy/oracles/internal/app"
	"github.com/alanyoungcy/oracles/internal/config"
	"github.com/alanyoungcy/oracles/internal/domain"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	mode := flag.String("mode", "", "override the configured mode (council, server, scheduler, full, seed)")
	marketID := flag.String("market", "", "market id for a one-shot council run")
	all := flag.Bool("all", false, "run the council for every active market")
	logs := flag.Bool("logs", false, "also write output to council-<timestamp>.log")
	seedPath := flag.String("seed", "", "markets JSON file to load in seed mode")
	flag.Parse()

	if *marketID == "" && flag.NArg() > 0 {
		*marketID = flag.Arg(0)
	}

	var out io.Writer = os.Stdout
	if *logs {
		name := logFileName(time.Now())
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: open log file: %v\n", err)
			return 1
		}
		defer f.Close()
		out = io.MultiWriter(os.Stdout, f)
		fmt.Fprintf(out, "Logging to %s\n\n", name)
	}

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		return 1
	}

	switch {
	case *mode != "":
		cfg.Mode = *mode
	case *seedPath != "":
		cfg.Mode = "seed"
	case *marketID != "" || *all:
		cfg.Mode = "council"
	}

	logger = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("oracles starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
		slog.Any("settings", config.RedactedConfig(cfg)),
	)

	application := app.New(cfg, app.Options{
		MarketID: *marketID,
		All:      *all,
		SeedPath: *seedPath,
		Report: func(m domain.Market, p domain.CouncilPrediction) {
			writeReport(out, m, p)
		},
	}, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("application shut down gracefully")
			return 0
		}
		logger.Error("application exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}

	logger.Info("oracles stopped")
	return 0
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// logFileName returns council-<UTC timestamp>.log with separators made
// filename-safe, e.g. council-2026-03-01T12-30-45.log.
func logFileName(now time.Time) string {
	return "council-" + now.UTC().Format("2006-01-02T15-04-05") + ".log"
}
