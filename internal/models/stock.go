// Package models defines data structures for StockReplay
package models

// DefaultIndustry is the classification used when the dataset has none.
const DefaultIndustry = "未分類"

// StockRecord is one entry of the Taiwan stock reference dataset
type StockRecord struct {
	Code     string `json:"code"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Industry string `json:"industry"`
}

// DisplayName renders the record the way the search box shows it ("2330.TW - 台積電")
func (r StockRecord) DisplayName() string {
	return r.Symbol + " - " + r.Name
}

// StockInfo is the response body of a single stock lookup
type StockInfo struct {
	Code     string `json:"code"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Industry string `json:"industry,omitempty"`
	Source   string `json:"source"` // "dataset" or "yahoo_tw"
}

// SearchResult is one row of a stock search response
type SearchResult struct {
	Code        string `json:"code"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Industry    string `json:"industry"`
	DisplayName string `json:"display_name"`
}

// NewSearchResult builds a search row from a reference record
func NewSearchResult(r StockRecord) SearchResult {
	return SearchResult{
		Code:        r.Code,
		Symbol:      r.Symbol,
		Name:        r.Name,
		Industry:    r.Industry,
		DisplayName: r.DisplayName(),
	}
}
