package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/alanyoungcy/oracles/internal/domain"
)

type councilFixture struct {
	svc     *CouncilService
	council *stubCouncil
	preds   *memPredictions
	cache   *memPredictionCache
	archive *fakeArchive
	locks   *fakeLocks
	bus     *fakeBus
	audit   *fakeAudit
}

func newCouncilFixture(markets ...domain.Market) *councilFixture {
	f := &councilFixture{
		council: &stubCouncil{errs: map[string]error{}},
		preds:   &memPredictions{},
		cache:   newMemPredictionCache(),
		archive: &fakeArchive{},
		locks:   newFakeLocks(),
		bus:     newFakeBus(),
		audit:   &fakeAudit{},
	}
	f.svc = NewCouncilService(CouncilDeps{
		Markets:     NewMarketService(newMemMarkets(markets...), nil, discard),
		Council:     f.council,
		Predictions: f.preds,
		Cache:       f.cache,
		Archive:     f.archive,
		Locks:       f.locks,
		Bus:         f.bus,
		Audit:       f.audit,
	}, discard)
	return f
}

func TestRunForMarketFansOut(t *testing.T) {
	f := newCouncilFixture(market("m1", domain.MarketStatusActive))

	p, err := f.svc.RunForMarket(context.Background(), "m1")
	if err != nil {
		t.Fatalf("RunForMarket: %v", err)
	}
	if len(f.preds.saved) != 1 || f.preds.saved[0].ID != p.ID {
		t.Errorf("saved = %+v", f.preds.saved)
	}
	if len(f.archive.stored) != 1 {
		t.Errorf("archived = %v", f.archive.stored)
	}
	if _, ok := f.cache.latest["m1"]; !ok {
		t.Error("latest not cached")
	}
	if len(f.locks.acquired) != 1 || f.locks.acquired[0] != "council:m1" {
		t.Errorf("locks = %v", f.locks.acquired)
	}
	if len(f.locks.held) != 0 {
		t.Error("lock not released")
	}

	msgs := f.bus.published[domain.ChannelPredictions]
	if len(msgs) != 1 || len(f.bus.streamed[domain.StreamPredictions]) != 1 {
		t.Fatalf("bus = %v / %v", f.bus.published, f.bus.streamed)
	}
	var got domain.CouncilPrediction
	if err := json.Unmarshal(msgs[0], &got); err != nil || got.ID != p.ID {
		t.Errorf("published payload = %s (%v)", msgs[0], err)
	}
	if len(f.audit.events) != 1 || f.audit.events[0] != "council.completed" {
		t.Errorf("audit = %v", f.audit.events)
	}
	if _, ok := f.audit.details[0]["trigger"]; ok {
		t.Errorf("untriggered run recorded trigger %v", f.audit.details[0]["trigger"])
	}
}

func TestRunForMarketAuditsTrigger(t *testing.T) {
	f := newCouncilFixture(market("m1", domain.MarketStatusActive))

	ctx := domain.WithTrigger(context.Background(), domain.TriggerScheduler)
	if _, err := f.svc.RunForMarket(ctx, "m1"); err != nil {
		t.Fatalf("RunForMarket: %v", err)
	}
	if len(f.audit.details) != 1 || f.audit.details[0]["trigger"] != domain.TriggerScheduler {
		t.Errorf("audit details = %v", f.audit.details)
	}
}

func TestRunForMarketRefusesInactive(t *testing.T) {
	f := newCouncilFixture(market("m1", domain.MarketStatusResolved))
	_, err := f.svc.RunForMarket(context.Background(), "m1")
	if !errors.Is(err, domain.ErrMarketClosed) {
		t.Fatalf("err = %v, want ErrMarketClosed", err)
	}
	if len(f.council.runs) != 0 {
		t.Error("council ran for a closed market")
	}
}

func TestRunForMarketUnknown(t *testing.T) {
	f := newCouncilFixture()
	_, err := f.svc.RunForMarket(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRunForMarketLockHeld(t *testing.T) {
	f := newCouncilFixture(market("m1", domain.MarketStatusActive))
	f.locks.held["council:m1"] = true

	_, err := f.svc.RunForMarket(context.Background(), "m1")
	if !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld", err)
	}
	if len(f.council.runs) != 0 {
		t.Error("council ran without the lock")
	}
}

func TestRunForMarketCouncilFailure(t *testing.T) {
	f := newCouncilFixture(market("m1", domain.MarketStatusActive))
	f.council.errs["m1"] = fmt.Errorf("%w: boom", domain.ErrCouncilFailed)

	_, err := f.svc.RunForMarket(context.Background(), "m1")
	if !errors.Is(err, domain.ErrCouncilFailed) {
		t.Fatalf("err = %v, want ErrCouncilFailed", err)
	}
	if len(f.preds.saved) != 0 {
		t.Error("failed run was persisted")
	}
	if len(f.audit.events) != 1 || f.audit.events[0] != "council.failed" {
		t.Errorf("audit = %v", f.audit.events)
	}
}

func TestRunForMarketArchiveFailureIsBestEffort(t *testing.T) {
	f := newCouncilFixture(market("m1", domain.MarketStatusActive))
	f.archive.err = errors.New("s3 down")

	if _, err := f.svc.RunForMarket(context.Background(), "m1"); err != nil {
		t.Fatalf("RunForMarket: %v", err)
	}
	if len(f.preds.saved) != 1 {
		t.Error("prediction not saved")
	}
}

func TestRunForMarketSaveFailure(t *testing.T) {
	f := newCouncilFixture(market("m1", domain.MarketStatusActive))
	f.preds.err = errors.New("db down")

	if _, err := f.svc.RunForMarket(context.Background(), "m1"); err == nil {
		t.Fatal("expected save error")
	}
	if len(f.bus.published) != 0 {
		t.Error("unsaved prediction was published")
	}
}

func TestRunAllActiveContinuesPastFailures(t *testing.T) {
	f := newCouncilFixture(
		market("a", domain.MarketStatusActive),
		market("b", domain.MarketStatusActive),
		market("c", domain.MarketStatusActive),
		market("z", domain.MarketStatusPaused),
	)
	f.council.errs["b"] = fmt.Errorf("%w", domain.ErrCouncilFailed)

	summary, err := f.svc.RunAllActive(context.Background())
	if err != nil {
		t.Fatalf("RunAllActive: %v", err)
	}
	if summary.Succeeded != 2 || summary.Failed != 1 || len(summary.Results) != 3 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Results[1].MarketID != "b" || summary.Results[1].Err == nil {
		t.Errorf("results[1] = %+v", summary.Results[1])
	}
}

func TestRunAllActiveStopsOnCancel(t *testing.T) {
	f := newCouncilFixture(market("a", domain.MarketStatusActive))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.svc.RunAllActive(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(f.council.runs) != 0 {
		t.Error("council ran after cancellation")
	}
}

func TestLatestReadsThroughCache(t *testing.T) {
	f := newCouncilFixture(market("m1", domain.MarketStatusActive))
	ctx := context.Background()

	if _, err := f.svc.Latest(ctx, "m1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	p, _ := f.council.Run(ctx, market("m1", domain.MarketStatusActive))
	_ = f.preds.Save(ctx, p)

	got, err := f.svc.Latest(ctx, "m1")
	if err != nil || got.ID != p.ID {
		t.Fatalf("Latest = %+v, %v", got, err)
	}
	if _, ok := f.cache.latest["m1"]; !ok {
		t.Error("cache not back-filled")
	}

	history, err := f.svc.History(ctx, "m1", domain.ListOpts{})
	if err != nil || len(history) != 1 {
		t.Fatalf("History = %v, %v", history, err)
	}
}

func TestLatestAndHistoryFallBackToArchive(t *testing.T) {
	f := newCouncilFixture(market("m1", domain.MarketStatusActive))
	ctx := context.Background()
	f.archive.cold = []domain.CouncilPrediction{
		{ID: "a2", MarketID: "m1"},
		{ID: "a1", MarketID: "m1"},
	}

	got, err := f.svc.Latest(ctx, "m1")
	if err != nil || got.ID != "a2" {
		t.Fatalf("Latest = %+v, %v", got, err)
	}

	history, err := f.svc.History(ctx, "m1", domain.ListOpts{Limit: 1})
	if err != nil || len(history) != 1 || history[0].ID != "a2" {
		t.Fatalf("History = %+v, %v", history, err)
	}

	history, err = f.svc.History(ctx, "m1", domain.ListOpts{Offset: 10})
	if err != nil || len(history) != 0 {
		t.Fatalf("paged History should not read the archive, got %+v, %v", history, err)
	}
}
