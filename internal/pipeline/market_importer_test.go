package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
)

// pagedFetcher serves total markets in pages; skip drops every n-th record
// to simulate unimportable upstream entries.
type pagedFetcher struct {
	total int
	skip  int
	calls []int
	err   error
}

func (f *pagedFetcher) GetMarkets(_ context.Context, limit, offset int) ([]domain.Market, int, error) {
	f.calls = append(f.calls, offset)
	if f.err != nil {
		return nil, 0, f.err
	}
	var out []domain.Market
	raw := 0
	for i := offset; i < f.total && raw < limit; i++ {
		raw++
		if f.skip > 0 && i%f.skip == 0 {
			continue
		}
		out = append(out, domain.Market{ID: fmt.Sprintf("m%d", i)})
	}
	return out, raw, nil
}

type recordingSeeder struct {
	mu      sync.Mutex
	batches [][]domain.Market
	err     error
}

func (r *recordingSeeder) Seed(_ context.Context, markets []domain.Market) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, markets)
	return nil
}

func (r *recordingSeeder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func TestMarketImporterPaginates(t *testing.T) {
	f := &pagedFetcher{total: 250, skip: 10}
	seeder := &recordingSeeder{}
	imp := NewMarketImporter(seeder, f, 0, discard)

	n, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 225 || seeder.count() != 225 {
		t.Fatalf("imported %d (seeded %d), want 225", n, seeder.count())
	}
	want := []int{0, 100, 200}
	if len(f.calls) != len(want) {
		t.Fatalf("offsets = %v, want %v", f.calls, want)
	}
	for i := range want {
		if f.calls[i] != want[i] {
			t.Fatalf("offsets = %v, want %v", f.calls, want)
		}
	}
}

func TestMarketImporterRespectsCap(t *testing.T) {
	f := &pagedFetcher{total: 500}
	seeder := &recordingSeeder{}
	imp := NewMarketImporter(seeder, f, 150, discard)

	n, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 150 || seeder.count() != 150 {
		t.Fatalf("imported %d, want 150", n)
	}
	if len(f.calls) != 2 {
		t.Fatalf("expected 2 page fetches, got %v", f.calls)
	}
}

func TestMarketImporterErrors(t *testing.T) {
	boom := errors.New("upstream down")
	imp := NewMarketImporter(&recordingSeeder{}, &pagedFetcher{err: boom}, 0, discard)
	if _, err := imp.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}

	imp = NewMarketImporter(&recordingSeeder{err: domain.ErrInvalidMarket}, &pagedFetcher{total: 3}, 0, discard)
	if _, err := imp.Run(context.Background()); !errors.Is(err, domain.ErrInvalidMarket) {
		t.Fatalf("expected seed error, got %v", err)
	}
}

func TestOrchestratorRunsImporter(t *testing.T) {
	seeder := &recordingSeeder{}
	o := NewOrchestrator(NewSweeper(&countingSweeps{}, discard), nil, time.Hour, time.Hour, discard).
		WithImporter(NewMarketImporter(seeder, &pagedFetcher{total: 5}, 0, discard), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	deadline := time.After(time.Second)
	for seeder.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("import never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run = %v, want nil on cancel", err)
	}
}
