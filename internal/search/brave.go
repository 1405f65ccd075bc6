package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/alanyoungcy/oracles/internal/domain"
)

const braveURL = "https://api.search.brave.com/res/v1/web/search"

// Brave queries the Brave web search API. It returns no direct answer.
type Brave struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
}

// Search queries the Brave web search API and returns at most maxResults
// results.
func (b *Brave) Search(ctx context.Context, query string) (domain.SearchResponse, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(b.maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search/brave: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search/brave: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search/brave: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.SearchResponse{}, fmt.Errorf("search/brave: search failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var raw struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search/brave: decode response: %w", err)
	}

	out := domain.SearchResponse{Results: make([]domain.SearchResult, 0, len(raw.Web.Results))}
	for i, r := range raw.Web.Results {
		if i >= b.maxResults {
			break
		}
		out.Results = append(out.Results, domain.SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return out, nil
}
