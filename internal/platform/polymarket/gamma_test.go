package polymarket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alanyoungcy/oracles/internal/domain"
)

const eventsJSON = `[
  {
    "id": "101",
    "title": "Who will win the 2026 World Cup?",
    "slug": "world-cup-2026",
    "category": "Sports",
    "active": "true",
    "closed": false,
    "endDate": "2026-07-19T22:00:00Z",
    "markets": [
      {"id": "1", "question": "Will Argentina win?", "groupItemTitle": "Argentina"},
      {"id": "2", "question": "Will France win?", "groupItemTitle": "France"},
      {"id": "3", "question": "Will Italy win?", "groupItemTitle": "Italy", "closed": true},
      {"id": "4", "question": "Will Côte d'Ivoire win?", "groupItemTitle": "Côte d'Ivoire"}
    ]
  },
  {
    "id": "102",
    "title": "Fed cut in June?",
    "slug": "fed-cut-june",
    "active": true,
    "markets": [{"id": "5", "question": "Fed cut in June?", "outcomes": "[\"Yes\",\"No\"]"}]
  },
  {
    "id": "103",
    "title": "Empty event",
    "active": true,
    "markets": []
  },
  {
    "id": "104",
    "title": "Broken outcomes",
    "active": true,
    "markets": [{"id": "6", "outcomes": "not json"}]
  }
]`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("closed") != "false" || q.Get("active") != "true" {
			t.Errorf("expected open events filter, got %s", r.URL.RawQuery)
		}
		if q.Get("limit") != "10" || q.Get("offset") != "20" {
			t.Errorf("unexpected paging %s", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, eventsJSON)
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL, srv.Client(), discardLogger())
	markets, raw, err := g.GetMarkets(context.Background(), 10, 20)
	if err != nil {
		t.Fatalf("GetMarkets: %v", err)
	}
	if raw != 4 {
		t.Fatalf("expected raw page size 4, got %d", raw)
	}
	if len(markets) != 2 {
		t.Fatalf("expected 2 importable markets, got %d", len(markets))
	}

	wc := markets[0]
	if wc.ID != "polymarket-world-cup-2026" || wc.Source != Source || wc.Status != domain.MarketStatusActive {
		t.Fatalf("unexpected market %+v", wc)
	}
	wantIDs := []string{"argentina", "france", "côte-d-ivoire"}
	if len(wc.Options) != len(wantIDs) {
		t.Fatalf("expected %d options, got %+v", len(wantIDs), wc.Options)
	}
	for i, id := range wantIDs {
		if wc.Options[i].ID != id {
			t.Errorf("option %d: got %q, want %q", i, wc.Options[i].ID, id)
		}
	}
	if wc.ResolutionDate == nil || wc.ResolutionDate.Year() != 2026 {
		t.Errorf("expected resolution date, got %v", wc.ResolutionDate)
	}

	fed := markets[1]
	if len(fed.Options) != 2 || fed.Options[0].ID != "yes" || fed.Options[1].Name != "No" {
		t.Fatalf("unexpected binary options %+v", fed.Options)
	}
	if err := fed.Validate(); err != nil {
		t.Fatalf("imported market should validate: %v", err)
	}
}

func TestGetEventNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL, srv.Client(), discardLogger())
	_, err := g.GetEvent(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
	}
	for _, tc := range cases {
		if err := checkHTTPStatus(tc.code, nil); !errors.Is(err, tc.want) {
			t.Errorf("status %d: got %v, want %v", tc.code, err, tc.want)
		}
	}
	if err := checkHTTPStatus(http.StatusOK, nil); err != nil {
		t.Errorf("200 should pass, got %v", err)
	}
}

func TestEventStatusAndDuplicates(t *testing.T) {
	e := APIEvent{
		ID:     "9",
		Title:  "Dupes",
		Closed: true,
		Markets: []APIMarket{
			{GroupItemTitle: "Yes!"},
			{GroupItemTitle: "yes"},
		},
	}
	m, err := e.ToDomainMarket()
	if err != nil {
		t.Fatal(err)
	}
	if m.ID != "polymarket-9" || m.Status != domain.MarketStatusResolved {
		t.Fatalf("unexpected market %+v", m)
	}
	if len(m.Options) != 2 || m.Options[0].ID != "yes" || m.Options[1].ID != "yes-2" {
		t.Fatalf("unexpected options %+v", m.Options)
	}
}

func TestOptionID(t *testing.T) {
	for in, want := range map[string]string{
		"Cut 25bp":      "cut-25bp",
		"  Hold  ":      "hold",
		"50+ bps":       "50-bps",
		"---":           "",
		"Côte d'Ivoire": "côte-d-ivoire",
	} {
		if got := optionID(in); got != want {
			t.Errorf("optionID(%q) = %q, want %q", in, got, want)
		}
	}
}
