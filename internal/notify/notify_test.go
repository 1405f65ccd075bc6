package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSender struct {
	name string
	err  error
	sent []Alert
}

func (f *fakeSender) Send(_ context.Context, a Alert) error {
	f.sent = append(f.sent, a)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func fedMarket() domain.Market {
	return domain.Market{
		ID:    "fed",
		Title: "Fed <decision>",
		Options: []domain.MarketOption{
			{ID: "hold", Name: "Hold"},
			{ID: "cut", Name: "Cut 25bp"},
		},
	}
}

func partialPrediction() domain.CouncilPrediction {
	return domain.CouncilPrediction{
		Timestamp:             time.Date(2026, 3, 18, 18, 0, 0, 0, time.UTC),
		AggregatedPredictions: map[string]float64{"cut": 0.25, "hold": 0.75},
		Metadata: domain.CouncilMetadata{
			CouncilSize:       3,
			SuccessfulMembers: 2,
			FailedMembers:     []string{"Grok 3"},
		},
	}
}

func TestNotifierFiltersEvents(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, []string{EventCouncilFailed, " "}, discard)

	if err := n.Notify(context.Background(), Alert{Event: EventCouncilCompleted, MarketID: "ok"}); err != nil {
		t.Fatal(err)
	}
	if err := n.Notify(context.Background(), Alert{Event: EventCouncilFailed, MarketID: "bad"}); err != nil {
		t.Fatal(err)
	}
	if len(s.sent) != 1 || s.sent[0].MarketID != "bad" {
		t.Fatalf("sent = %v, want only the failure", s.sent)
	}
}

func TestNotifierCollectsSenderErrors(t *testing.T) {
	boom := errors.New("boom")
	ok := &fakeSender{name: "ok"}
	bad := &fakeSender{name: "bad", err: boom}
	n := NewNotifier([]Sender{bad, ok}, nil, discard)

	err := n.Notify(context.Background(), Alert{Event: EventCouncilPartial})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapping boom", err)
	}
	if len(ok.sent) != 1 {
		t.Error("healthy sender skipped after a failure")
	}
}

func TestNilNotifierIsDisabled(t *testing.T) {
	var n *Notifier
	if n.Enabled() {
		t.Fatal("nil notifier reports enabled")
	}
	if err := n.Notify(context.Background(), Alert{Event: EventCouncilFailed}); err != nil {
		t.Fatal(err)
	}
}

func TestCouncilAlert(t *testing.T) {
	a := CouncilAlert(fedMarket(), partialPrediction())

	if a.Event != EventCouncilPartial {
		t.Errorf("event = %s", a.Event)
	}
	if !strings.Contains(a.Headline(), "partial") {
		t.Errorf("headline = %q", a.Headline())
	}
	want := []OptionShare{{Name: "Hold", Probability: 0.75}, {Name: "Cut 25bp", Probability: 0.25}}
	if len(a.Options) != 2 || a.Options[0] != want[0] || a.Options[1] != want[1] {
		t.Errorf("options = %v, want %v", a.Options, want)
	}
	if got := a.MembersLine(); got != "Members: 2/3 succeeded (failed: Grok 3)" {
		t.Errorf("members line = %q", got)
	}

	failed := FailureAlert(fedMarket(), errors.New("all members failed"))
	if failed.Event != EventCouncilFailed || failed.Reason != "all members failed" || len(failed.Options) != 0 {
		t.Errorf("failure alert = %+v", failed)
	}
}

func TestTelegramSenderEscapesHTML(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	s := NewTelegramSender("TOKEN", "42")
	s.apiBase = srv.URL
	if err := s.Send(context.Background(), CouncilAlert(fedMarket(), partialPrediction())); err != nil {
		t.Fatal(err)
	}
	want := "<b>Council prediction (partial): Fed &lt;decision&gt;</b>\n" +
		"Hold: <b>75.0%</b>\nCut 25bp: <b>25.0%</b>\n" +
		"<i>Members: 2/3 succeeded (failed: Grok 3)</i>"
	if got["chat_id"] != "42" || got["parse_mode"] != "HTML" || got["text"] != want {
		t.Errorf("payload = %v", got)
	}
}

func TestDiscordSenderPostsEmbed(t *testing.T) {
	var got discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewDiscordSender(srv.URL).Send(context.Background(), CouncilAlert(fedMarket(), partialPrediction())); err != nil {
		t.Fatal(err)
	}
	if len(got.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(got.Embeds))
	}
	e := got.Embeds[0]
	if e.Color != discordColorPartial || e.Timestamp != "2026-03-18T18:00:00Z" {
		t.Errorf("color = %#x timestamp = %q", e.Color, e.Timestamp)
	}
	if len(e.Fields) != 3 {
		t.Fatalf("fields = %+v, want two options and failed members", e.Fields)
	}
	if e.Fields[0].Name != "Hold" || !strings.HasSuffix(e.Fields[0].Value, "75.0%") {
		t.Errorf("first field = %+v", e.Fields[0])
	}
	if e.Fields[2].Name != "Failed members" || e.Fields[2].Value != "Grok 3" {
		t.Errorf("failed field = %+v", e.Fields[2])
	}
	if e.Footer == nil || !strings.HasPrefix(e.Footer.Text, "2/3 members succeeded") {
		t.Errorf("footer = %+v", e.Footer)
	}
}

func TestDiscordFailureEmbed(t *testing.T) {
	e := discordEmbedFor(FailureAlert(fedMarket(), errors.New(strings.Repeat("x", 5000))))
	if e.Color != discordColorFailed || len(e.Fields) != 0 {
		t.Errorf("embed = %+v", e)
	}
	if n := len([]rune(e.Description)); n != discordDescriptionLimit {
		t.Errorf("description length = %d, want %d", n, discordDescriptionLimit)
	}
}

func TestBar(t *testing.T) {
	if got := bar(0.5); got != strings.Repeat("█", 10)+strings.Repeat("░", 10) {
		t.Errorf("bar(0.5) = %q", got)
	}
	if got := bar(1.2); got != strings.Repeat("█", barWidth) {
		t.Errorf("bar(1.2) = %q", got)
	}
}

func TestDiscordSenderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), Alert{Event: EventCouncilCompleted})
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("err = %v, want status 400", err)
	}
}
