package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
)

// Observer is notified after every search. cached is true when the response
// came from the cache.
type Observer interface {
	SearchCompleted(provider string, cached bool, err error)
}

// CacheOptions configures a Cached searcher. Zero Limit disables rate
// limiting; zero TTL disables caching.
type CacheOptions struct {
	Provider string
	TTL      time.Duration
	Limit    int
	Window   time.Duration
	Observer Observer
}

// Cached wraps a Searcher with a shared response cache and a distributed
// rate limit. Cache or limiter nil disables that layer.
type Cached struct {
	next    Searcher
	cache   domain.SearchCache
	limiter domain.RateLimiter
	opts    CacheOptions
	logger  *slog.Logger
}

// NewCached wraps next.
func NewCached(next Searcher, cache domain.SearchCache, limiter domain.RateLimiter, opts CacheOptions, logger *slog.Logger) *Cached {
	if opts.Provider == "" {
		opts.Provider = "search"
	}
	return &Cached{next: next, cache: cache, limiter: limiter, opts: opts, logger: logger}
}

// Search serves query from the cache when possible. Otherwise it waits for
// the rate limiter, queries the wrapped Searcher and caches the response.
func (c *Cached) Search(ctx context.Context, query string) (domain.SearchResponse, error) {
	key := strings.ToLower(strings.TrimSpace(query))

	if c.cache != nil && c.opts.TTL > 0 {
		resp, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			c.observe(true, nil)
			return resp, nil
		case !errors.Is(err, domain.ErrNotFound):
			c.logger.WarnContext(ctx, "search cache read failed", slog.String("error", err.Error()))
		}
	}

	if c.limiter != nil && c.opts.Limit > 0 {
		if err := c.limiter.Wait(ctx, "search:"+c.opts.Provider, c.opts.Limit, c.opts.Window); err != nil {
			c.observe(false, err)
			return domain.SearchResponse{}, err
		}
	}

	resp, err := c.next.Search(ctx, query)
	c.observe(false, err)
	if err != nil {
		return domain.SearchResponse{}, err
	}

	if c.cache != nil && c.opts.TTL > 0 {
		if err := c.cache.Set(ctx, key, resp, c.opts.TTL); err != nil {
			c.logger.WarnContext(ctx, "search cache write failed", slog.String("error", err.Error()))
		}
	}
	return resp, nil
}

func (c *Cached) observe(cached bool, err error) {
	if c.opts.Observer != nil {
		c.opts.Observer.SearchCompleted(c.opts.Provider, cached, err)
	}
}
