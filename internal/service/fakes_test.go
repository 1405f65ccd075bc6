package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type memMarkets struct {
	mu      sync.Mutex
	markets map[string]domain.Market
	gets    int
}

func newMemMarkets(ms ...domain.Market) *memMarkets {
	s := &memMarkets{markets: map[string]domain.Market{}}
	for _, m := range ms {
		s.markets[m.ID] = m
	}
	return s
}

func (s *memMarkets) Upsert(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[m.ID] = m
	return nil
}

func (s *memMarkets) UpsertBatch(ctx context.Context, ms []domain.Market) error {
	for _, m := range ms {
		_ = s.Upsert(ctx, m)
	}
	return nil
}

func (s *memMarkets) GetByID(_ context.Context, id string) (domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *memMarkets) sorted(active bool) []domain.Market {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Market
	for _, m := range s.markets {
		if active && m.Status != domain.MarketStatusActive {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memMarkets) List(context.Context, domain.ListOpts) ([]domain.Market, error) {
	return s.sorted(false), nil
}

func (s *memMarkets) ListActive(context.Context, domain.ListOpts) ([]domain.Market, error) {
	return s.sorted(true), nil
}

func (s *memMarkets) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.markets)), nil
}

type memMarketCache struct {
	markets     map[string]domain.Market
	invalidated []string
}

func newMemMarketCache() *memMarketCache {
	return &memMarketCache{markets: map[string]domain.Market{}}
}

func (c *memMarketCache) Set(_ context.Context, m domain.Market) error {
	c.markets[m.ID] = m
	return nil
}

func (c *memMarketCache) Get(_ context.Context, id string) (domain.Market, error) {
	m, ok := c.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (c *memMarketCache) Invalidate(_ context.Context, id string) error {
	delete(c.markets, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type memPredictions struct {
	mu    sync.Mutex
	saved []domain.CouncilPrediction
	err   error
}

func (s *memPredictions) Save(_ context.Context, p domain.CouncilPrediction) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, p)
	return nil
}

func (s *memPredictions) Latest(_ context.Context, marketID string) (domain.CouncilPrediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.saved) - 1; i >= 0; i-- {
		if s.saved[i].MarketID == marketID {
			return s.saved[i], nil
		}
	}
	return domain.CouncilPrediction{}, domain.ErrNotFound
}

func (s *memPredictions) ListByMarket(_ context.Context, marketID string, _ domain.ListOpts) ([]domain.CouncilPrediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CouncilPrediction
	for i := len(s.saved) - 1; i >= 0; i-- {
		if s.saved[i].MarketID == marketID {
			out = append(out, s.saved[i])
		}
	}
	return out, nil
}

type memPredictionCache struct {
	latest map[string]domain.CouncilPrediction
	gets   int
}

func newMemPredictionCache() *memPredictionCache {
	return &memPredictionCache{latest: map[string]domain.CouncilPrediction{}}
}

func (c *memPredictionCache) SetLatest(_ context.Context, p domain.CouncilPrediction) error {
	c.latest[p.MarketID] = p
	return nil
}

func (c *memPredictionCache) GetLatest(_ context.Context, marketID string) (domain.CouncilPrediction, error) {
	c.gets++
	p, ok := c.latest[marketID]
	if !ok {
		return domain.CouncilPrediction{}, domain.ErrNotFound
	}
	return p, nil
}

type fakeArchive struct {
	stored []string
	err    error
	// cold is served by Latest and History, newest first.
	cold []domain.CouncilPrediction
}

func (a *fakeArchive) Store(_ context.Context, p domain.CouncilPrediction) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.stored = append(a.stored, p.ID)
	return "predictions/" + p.MarketID + "/x.json", nil
}

func (a *fakeArchive) Latest(context.Context, string) (domain.CouncilPrediction, error) {
	if len(a.cold) == 0 {
		return domain.CouncilPrediction{}, domain.ErrNotFound
	}
	return a.cold[0], nil
}

func (a *fakeArchive) History(context.Context, string) ([]domain.CouncilPrediction, error) {
	return a.cold, nil
}

type fakeLocks struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired []string
}

func newFakeLocks() *fakeLocks { return &fakeLocks{held: map[string]bool{}} }

func (l *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = true
	l.acquired = append(l.acquired, key)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

type fakeBus struct {
	published map[string][][]byte
	streamed  map[string][][]byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: map[string][][]byte{}, streamed: map[string][][]byte{}}
}

func (b *fakeBus) Publish(_ context.Context, ch string, payload []byte) error {
	b.published[ch] = append(b.published[ch], payload)
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, fmt.Errorf("not supported")
}

func (b *fakeBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.streamed[stream] = append(b.streamed[stream], payload)
	return nil
}

type fakeAudit struct {
	events  []string
	details []map[string]any
}

func (a *fakeAudit) Log(_ context.Context, event string, detail map[string]any) error {
	a.events = append(a.events, event)
	a.details = append(a.details, detail)
	return nil
}

func (a *fakeAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

// stubCouncil returns a fixed prediction per market, or errs[marketID].
type stubCouncil struct {
	mu   sync.Mutex
	errs map[string]error
	runs []string
}

func (c *stubCouncil) Run(_ context.Context, m domain.Market) (domain.CouncilPrediction, error) {
	c.mu.Lock()
	c.runs = append(c.runs, m.ID)
	err := c.errs[m.ID]
	c.mu.Unlock()
	if err != nil {
		return domain.CouncilPrediction{}, err
	}
	return domain.CouncilPrediction{
		ID:                    "pred-" + m.ID,
		MarketID:              m.ID,
		Timestamp:             time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		AggregatedPredictions: map[string]float64{"yes": 0.6, "no": 0.4},
		Metadata: domain.CouncilMetadata{
			CouncilSize:       3,
			SuccessfulMembers: 3,
			FailedMembers:     []string{},
			AggregationMethod: domain.AggregationMethodMean,
		},
	}, nil
}

func market(id string, status domain.MarketStatus) domain.Market {
	return domain.Market{
		ID:     id,
		Title:  "Will " + id + " happen?",
		Status: status,
		Options: []domain.MarketOption{
			{ID: "yes", Name: "Yes"},
			{ID: "no", Name: "No"},
		},
	}
}
