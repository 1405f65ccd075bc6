package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/alanyoungcy/oracles/internal/config"
)

func newTestApp(mode string, opts Options) *App {
	cfg := config.Defaults()
	cfg.Mode = mode
	return New(&cfg, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCouncilModeNeedsTarget(t *testing.T) {
	a := newTestApp("council", Options{})
	err := a.CouncilMode(context.Background(), &Dependencies{})
	if !errors.Is(err, ErrNoTarget) {
		t.Fatalf("expected ErrNoTarget, got %v", err)
	}
}

func TestSeedModeNeedsPath(t *testing.T) {
	a := newTestApp("seed", Options{})
	if err := a.SeedMode(context.Background(), &Dependencies{}); err == nil {
		t.Fatal("expected error without a seed path")
	}
}

func TestNeedsCouncil(t *testing.T) {
	for mode, want := range map[string]bool{
		"council":   true,
		"server":    true,
		"scheduler": true,
		"full":      true,
		"seed":      false,
	} {
		if got := needsCouncil(mode); got != want {
			t.Errorf("needsCouncil(%q) = %v, want %v", mode, got, want)
		}
	}
}

func TestPingFunc(t *testing.T) {
	boom := errors.New("boom")
	p := pingFunc(func(context.Context) error { return boom })
	if err := p.Ping(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestCloseRunsClosersInReverse(t *testing.T) {
	a := newTestApp("council", Options{})
	var order []int
	a.closers = append(a.closers, func() { order = append(order, 1) }, func() { order = append(order, 2) })
	a.Close()
	a.Close()
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("unexpected close order %v", order)
	}
}
