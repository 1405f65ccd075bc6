package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SearchCache implements domain.SearchCache. Queries are hashed so arbitrary
// user text never lands in a key name.
type SearchCache struct {
	rdb *redis.Client
	key func(string) string
}

// NewSearchCache creates a SearchCache backed by the given Redis client.
func NewSearchCache(c *Client) *SearchCache {
	return &SearchCache{rdb: c.Underlying(), key: c.Key}
}

func searchKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return "search:" + hex.EncodeToString(sum[:16])
}

// Get returns the cached response for query or domain.ErrNotFound.
func (sc *SearchCache) Get(ctx context.Context, query string) (domain.SearchResponse, error) {
	data, err := sc.rdb.Get(ctx, sc.key(searchKey(query))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.SearchResponse{}, domain.ErrNotFound
		}
		return domain.SearchResponse{}, fmt.Errorf("redis: get search: %w", err)
	}

	var resp domain.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return domain.SearchResponse{}, fmt.Errorf("redis: unmarshal search: %w", err)
	}
	return resp, nil
}

// Set stores resp for ttl. A non-positive ttl is a no-op.
func (sc *SearchCache) Set(ctx context.Context, query string, resp domain.SearchResponse, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("redis: marshal search: %w", err)
	}
	if err := sc.rdb.Set(ctx, sc.key(searchKey(query)), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set search: %w", err)
	}
	return nil
}

var _ domain.SearchCache = (*SearchCache)(nil)
