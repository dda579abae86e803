package models

// Candle is one daily OHLCV bar
type Candle struct {
	Timestamp string  `json:"timestamp"` // YYYY-MM-DD in exchange local time
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// PriceRange is the low/high envelope of a candle series
type PriceRange struct {
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
}

// StockHistory is the response body of the candle history endpoint
type StockHistory struct {
	Symbol     string     `json:"symbol"`
	Data       []Candle   `json:"data"`
	TotalCount int        `json:"total_count"`
	PriceRange PriceRange `json:"price_range"`
	AllDates   []string   `json:"all_dates"`
}

// HistoryQuery selects a candle window: either a named period or an explicit date range
type HistoryQuery struct {
	Period    string
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD, inclusive
}
