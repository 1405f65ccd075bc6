package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
	"github.com/alanyoungcy/oracles/internal/service"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type countingSweeps struct {
	calls atomic.Int32
}

func (c *countingSweeps) RunAllActive(context.Context) (service.SweepSummary, error) {
	c.calls.Add(1)
	return service.SweepSummary{Succeeded: 1}, nil
}

type staticMarkets []domain.Market

func (s staticMarkets) ListActive(context.Context, domain.ListOpts) ([]domain.Market, error) {
	return s, nil
}

type mapHistory map[string][]domain.CouncilPrediction

func (h mapHistory) History(_ context.Context, id string, _ domain.ListOpts) ([]domain.CouncilPrediction, error) {
	if id == "broken" {
		return nil, errors.New("db down")
	}
	return h[id], nil
}

type recordingExporter struct {
	exported []string
}

func (r *recordingExporter) ExportMarket(_ context.Context, id string, ps []domain.CouncilPrediction) (string, error) {
	if len(ps) == 0 {
		return "", nil
	}
	r.exported = append(r.exported, id)
	return "exports/" + id + "/x.jsonl", nil
}

func TestSweeperRunsImmediatelyAndOnTick(t *testing.T) {
	sweeps := &countingSweeps{}
	s := NewSweeper(sweeps, discard)

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	err := s.RunLoop(ctx, 20*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	if n := sweeps.calls.Load(); n < 2 {
		t.Errorf("sweeps = %d, want at least 2", n)
	}
}

func TestHistoryExporterContinuesPastFailures(t *testing.T) {
	p := domain.CouncilPrediction{ID: "p1", MarketID: "a"}
	exp := &recordingExporter{}
	e := NewHistoryExporter(
		staticMarkets{{ID: "a"}, {ID: "broken"}, {ID: "empty"}},
		mapHistory{"a": {p}},
		exp,
		discard,
	)

	err := e.Run(context.Background())
	if err == nil {
		t.Fatal("expected joined error for the broken market")
	}
	if len(exp.exported) != 1 || exp.exported[0] != "a" {
		t.Errorf("exported = %v", exp.exported)
	}
}

func TestOrchestratorStopsCleanly(t *testing.T) {
	sweeps := &countingSweeps{}
	exp := &recordingExporter{}
	o := NewOrchestrator(
		NewSweeper(sweeps, discard),
		NewHistoryExporter(staticMarkets{}, mapHistory{}, exp, discard),
		time.Hour,
		time.Hour,
		discard,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	deadline := time.After(time.Second)
	for sweeps.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("sweep never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v, want nil on cancel", err)
		}
	case <-time.After(time.Second):
		t.Fatal("orchestrator did not stop")
	}
}
