package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultPredictionTTL keeps the latest prediction warm between sweeps.
const DefaultPredictionTTL = 24 * time.Hour

// PredictionCache implements domain.PredictionCache.
type PredictionCache struct {
	rdb *redis.Client
	key func(string) string
	ttl time.Duration
}

// NewPredictionCache creates a PredictionCache whose entries expire after
// ttl.
func NewPredictionCache(c *Client, ttl time.Duration) *PredictionCache {
	if ttl <= 0 {
		ttl = DefaultPredictionTTL
	}
	return &PredictionCache{rdb: c.Underlying(), key: c.Key, ttl: ttl}
}

func latestPredictionKey(marketID string) string {
	return "prediction:latest:" + marketID
}

// SetLatest replaces the cached latest prediction for p.MarketID.
func (pc *PredictionCache) SetLatest(ctx context.Context, p domain.CouncilPrediction) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis: marshal prediction %s: %w", p.ID, err)
	}
	if err := pc.rdb.Set(ctx, pc.key(latestPredictionKey(p.MarketID)), data, pc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set latest prediction %s: %w", p.MarketID, err)
	}
	return nil
}

// GetLatest returns the cached latest prediction or domain.ErrNotFound.
func (pc *PredictionCache) GetLatest(ctx context.Context, marketID string) (domain.CouncilPrediction, error) {
	data, err := pc.rdb.Get(ctx, pc.key(latestPredictionKey(marketID))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.CouncilPrediction{}, domain.ErrNotFound
		}
		return domain.CouncilPrediction{}, fmt.Errorf("redis: get latest prediction %s: %w", marketID, err)
	}

	var p domain.CouncilPrediction
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.CouncilPrediction{}, fmt.Errorf("redis: unmarshal prediction %s: %w", marketID, err)
	}
	return p, nil
}

var _ domain.PredictionCache = (*PredictionCache)(nil)
