package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
	"github.com/redis/go-redis/v9"
)

func offlineClient() *Client {
	return Wrap(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "")
}

func TestKeys(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{marketKey("m1"), "market:m1"},
		{latestPredictionKey("m1"), "prediction:latest:m1"},
		{lockKey("council:m1"), "lock:council:m1"},
		{rateLimitKey("search:tavily"), "ratelimit:search:tavily"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("key = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestKeyPrefixNamespacesCaches(t *testing.T) {
	c := Wrap(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), " staging: ")
	if got := c.Key(marketKey("m1")); got != "staging:market:m1" {
		t.Errorf("Key = %q", got)
	}
	if got := NewLockManager(c).key(lockKey("council:m1")); got != "staging:lock:council:m1" {
		t.Errorf("lock key = %q", got)
	}
	if got := NewSignalBus(c).key(domain.ChannelPredictions); got != "staging:"+domain.ChannelPredictions {
		t.Errorf("channel = %q", got)
	}
	if got := offlineClient().Key("market:m1"); got != "market:m1" {
		t.Errorf("empty prefix changed key to %q", got)
	}
}

func TestSearchKeyIsStableAndOpaque(t *testing.T) {
	a := searchKey("who wins the election?")
	b := searchKey("who wins the election?")
	if a != b {
		t.Fatalf("searchKey not stable: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "search:") || strings.Contains(a, " ") {
		t.Errorf("searchKey = %q", a)
	}
	if a == searchKey("something else") {
		t.Error("distinct queries share a key")
	}
}

func TestHasPattern(t *testing.T) {
	if !hasPattern("ch:*") {
		t.Error("ch:* should be a pattern")
	}
	if hasPattern(domain.ChannelPredictions) {
		t.Errorf("%s should not be a pattern", domain.ChannelPredictions)
	}
}

func TestAllowUnlimitedSkipsRedis(t *testing.T) {
	rl := NewRateLimiter(offlineClient())
	ok, err := rl.Allow(context.Background(), "k", 0, time.Minute)
	if err != nil || !ok {
		t.Fatalf("Allow = %v, %v; want true, nil", ok, err)
	}
	if err := rl.Wait(context.Background(), "k", 10, 0); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestWaitHonoursCancelledContext(t *testing.T) {
	rl := NewRateLimiter(offlineClient())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.Wait(ctx, "k", 1, time.Second); err == nil {
		t.Fatal("Wait on cancelled context returned nil")
	}
}

func TestSearchCacheSetWithoutTTLIsNoop(t *testing.T) {
	sc := NewSearchCache(offlineClient())
	if err := sc.Set(context.Background(), "q", domain.SearchResponse{}, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
}

func TestCacheDefaults(t *testing.T) {
	if got := NewMarketCache(offlineClient(), 0).ttl; got != DefaultMarketTTL {
		t.Errorf("market ttl = %v", got)
	}
	if got := NewPredictionCache(offlineClient(), time.Hour).ttl; got != time.Hour {
		t.Errorf("prediction ttl = %v", got)
	}
}
