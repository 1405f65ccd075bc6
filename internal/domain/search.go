package domain

// SearchResult is a single ranked web-search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchResponse is what a web-search call returns: an optional direct answer
// plus ranked results.
type SearchResponse struct {
	Answer  *string        `json:"answer"`
	Results []SearchResult `json:"results"`
}
