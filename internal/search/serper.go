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

const serperURL = "https://google.serper.dev/search"

// Serper queries Google results through serper.dev. The answer box, when
// present, becomes the direct answer.
type Serper struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
}

// Search queries Serper's Google endpoint and returns at most maxResults
// organic results. The answer box, when present, becomes the answer.
func (s *Serper) Search(ctx context.Context, query string) (domain.SearchResponse, error) {
	payload, err := json.Marshal(map[string]any{"q": query, "num": s.maxResults})
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search/serper: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search/serper: create request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search/serper: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search/serper: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.SearchResponse{}, fmt.Errorf("search/serper: search failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var raw struct {
		AnswerBox *struct {
			Answer  string `json:"answer"`
			Snippet string `json:"snippet"`
		} `json:"answerBox"`
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search/serper: decode response: %w", err)
	}

	var out domain.SearchResponse
	if raw.AnswerBox != nil {
		answer := raw.AnswerBox.Answer
		if answer == "" {
			answer = raw.AnswerBox.Snippet
		}
		if answer != "" {
			out.Answer = &answer
		}
	}
	out.Results = make([]domain.SearchResult, 0, len(raw.Organic))
	for i, r := range raw.Organic {
		if i >= s.maxResults {
			break
		}
		out.Results = append(out.Results, domain.SearchResult{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	return out, nil
}
