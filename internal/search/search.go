// Package search implements the web-search capability council members call
// during research.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
)

// Searcher runs one web query.
type Searcher interface {
	Search(ctx context.Context, query string) (domain.SearchResponse, error)
}

// Provider names a search backend.
type Provider string

const (
	ProviderTavily Provider = "tavily"
	ProviderBrave  Provider = "brave"
	ProviderSerper Provider = "serper"
)

// DefaultMaxResults caps the number of hits returned per query.
const DefaultMaxResults = 5

var (
	ErrUnsupportedProvider = errors.New("search: unsupported provider")
	ErrMissingAPIKey       = errors.New("search: api key required")
)

// New builds a Searcher for the named provider.
func New(p Provider, apiKey string, maxResults int, httpClient *http.Client) (Searcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w for provider %q", ErrMissingAPIKey, p)
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	switch p {
	case ProviderTavily, "":
		return &Tavily{apiKey: apiKey, baseURL: tavilyURL, maxResults: maxResults, httpClient: httpClient}, nil
	case ProviderBrave:
		return &Brave{apiKey: apiKey, baseURL: braveURL, maxResults: maxResults, httpClient: httpClient}, nil
	case ProviderSerper:
		return &Serper{apiKey: apiKey, baseURL: serperURL, maxResults: maxResults, httpClient: httpClient}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, p)
	}
}
