package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
	"github.com/gorilla/websocket"
)

type chanBus struct {
	ch chan []byte
}

func (b *chanBus) Publish(_ context.Context, _ string, payload []byte) error {
	b.ch <- payload
	return nil
}

func (b *chanBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return b.ch, nil
}

func (b *chanBus) StreamAppend(context.Context, string, []byte) error { return nil }

func startHub(t *testing.T) (*Hub, *chanBus, *websocket.Conn) {
	t.Helper()
	bus := &chanBus{ch: make(chan []byte, 8)}
	hub := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if env := readEnvelope(t, conn); env.Type != "status" {
		t.Fatalf("first frame type = %q, want status", env.Type)
	}
	return hub, bus, conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return env
}

func publish(t *testing.T, bus *chanBus, marketID string) {
	t.Helper()
	payload, _ := json.Marshal(domain.CouncilPrediction{ID: "p-" + marketID, MarketID: marketID})
	_ = bus.Publish(context.Background(), domain.ChannelPredictions, payload)
}

func TestHubRelaysPredictions(t *testing.T) {
	_, bus, conn := startHub(t)

	publish(t, bus, "m1")
	env := readEnvelope(t, conn)
	if env.Type != "prediction" {
		t.Fatalf("type = %q", env.Type)
	}
	var p domain.CouncilPrediction
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.MarketID != "m1" {
		t.Fatalf("payload = %s (%v)", env.Payload, err)
	}
}

func TestHubFiltersByMarket(t *testing.T) {
	hub, bus, conn := startHub(t)

	if err := conn.WriteJSON(subscribeMsg{Action: "subscribe", Markets: []string{"m2"}}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.RLock()
		filtered := false
		for c := range hub.clients {
			filtered = !c.wants("m1")
		}
		hub.mu.RUnlock()
		if filtered {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscription never applied")
		}
		time.Sleep(5 * time.Millisecond)
	}

	publish(t, bus, "m1")
	publish(t, bus, "m2")
	env := readEnvelope(t, conn)
	var p domain.CouncilPrediction
	_ = json.Unmarshal(env.Payload, &p)
	if p.MarketID != "m2" {
		t.Fatalf("received market %q, want m2", p.MarketID)
	}
}
