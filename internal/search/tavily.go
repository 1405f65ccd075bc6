package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/alanyoungcy/oracles/internal/domain"
)

const tavilyURL = "https://api.tavily.com/search"

// Tavily queries the Tavily search API, which also returns a synthesized
// direct answer.
type Tavily struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
}

type tavilyResponse struct {
	Answer  *string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search posts query to Tavily and returns at most maxResults results. An
// empty answer is reported as nil.
func (t *Tavily) Search(ctx context.Context, query string) (domain.SearchResponse, error) {
	body, err := json.Marshal(map[string]any{
		"api_key":        t.apiKey,
		"query":          query,
		"search_depth":   "basic",
		"include_answer": true,
		"max_results":    t.maxResults,
	})
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search/tavily: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, bytes.NewReader(body))
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search/tavily: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search/tavily: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search/tavily: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.SearchResponse{}, fmt.Errorf("search/tavily: search failed (HTTP %d): %s", resp.StatusCode, string(raw))
	}

	var tr tavilyResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search/tavily: decode response: %w", err)
	}

	out := domain.SearchResponse{Results: make([]domain.SearchResult, 0, min(len(tr.Results), t.maxResults))}
	if tr.Answer != nil && *tr.Answer != "" {
		out.Answer = tr.Answer
	}
	for i, r := range tr.Results {
		if i >= t.maxResults {
			break
		}
		out.Results = append(out.Results, domain.SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return out, nil
}
