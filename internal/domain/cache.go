package domain

import (
	"context"
	"time"
)

// MarketCache provides fast market lookups.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, id string) (Market, error)
	Invalidate(ctx context.Context, id string) error
}

// PredictionCache holds the latest council prediction per market.
type PredictionCache interface {
	SetLatest(ctx context.Context, p CouncilPrediction) error
	GetLatest(ctx context.Context, marketID string) (CouncilPrediction, error)
}

// SearchCache memoizes web-search responses by query.
type SearchCache interface {
	Get(ctx context.Context, query string) (SearchResponse, error)
	Set(ctx context.Context, query string, resp SearchResponse, ttl time.Duration) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub and an append-only durable stream.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}
