package models

// NewsArticle is one news search hit
type NewsArticle struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
	Date    string `json:"date,omitempty"` // YYYY-MM-DD when known
	Source  string `json:"source"`
}

// NewsRequest is the body of a news fetch
type NewsRequest struct {
	Symbol    string `json:"symbol"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// NewsResult is the response body of a news fetch
type NewsResult struct {
	Symbol string        `json:"symbol"`
	Query  string        `json:"query"`
	Count  int           `json:"count"`
	Data   []NewsArticle `json:"data"`
}

// NewsSummary is an LLM digest of a news result
type NewsSummary struct {
	Symbol  string   `json:"symbol"`
	Summary string   `json:"summary"`
	Sources []string `json:"sources"`
}
