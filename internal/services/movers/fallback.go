package movers

import "github.com/bobmcallan/stockreplay/internal/models"

// Static snapshots served when the live path fails. Values are plausible, not current.
var (
	dayTradingFallback = []models.MarketMover{
		{Code: "2454", Symbol: "2454.TW", Name: "聯發科", ChangePercent: -3.20, Price: 1050.00, Industry: "半導體業"},
		{Code: "2317", Symbol: "2317.TW", Name: "鴻海", ChangePercent: -2.80, Price: 185.50, Industry: "電腦及週邊設備業"},
		{Code: "2303", Symbol: "2303.TW", Name: "聯電", ChangePercent: -2.50, Price: 48.20, Industry: "半導體業"},
		{Code: "2330", Symbol: "2330.TW", Name: "台積電", ChangePercent: -2.30, Price: 980.00, Industry: "半導體業"},
		{Code: "2882", Symbol: "2882.TW", Name: "國泰金", ChangePercent: -2.10, Price: 68.50, Industry: "金融保險業"},
		{Code: "2412", Symbol: "2412.TW", Name: "中華電", ChangePercent: -1.80, Price: 125.00, Industry: "通信網路業"},
	}

	usETFFallback = []models.MarketMover{
		{Code: "GLD", Symbol: "GLD", Name: "Gold", ChangePercent: -1.5},
		{Code: "TLT", Symbol: "TLT", Name: "Treasury", ChangePercent: -0.8},
		{Code: "XLE", Symbol: "XLE", Name: "Energy", ChangePercent: -0.5},
	}

	morningStarFallback = []models.MarketMover{
		{Code: "TSLA", Symbol: "TSLA", Name: "Tesla Inc", ChangePercent: -3.10, Price: 242.80},
		{Code: "NVDA", Symbol: "NVDA", Name: "NVIDIA Corp", ChangePercent: -2.40, Price: 118.60},
		{Code: "AMZN", Symbol: "AMZN", Name: "Amazon.com Inc", ChangePercent: -1.70, Price: 186.40},
		{Code: "AAPL", Symbol: "AAPL", Name: "Apple Inc", ChangePercent: -1.20, Price: 224.50},
		{Code: "MSFT", Symbol: "MSFT", Name: "Microsoft Corp", ChangePercent: -0.90, Price: 415.30},
	}
)

// FallbackSet returns a fresh copy of the static movers for kind, sorted and capped
func FallbackSet(kind models.SnapshotKind) []models.MarketMover {
	rule, ok := kindRules[kind]
	if !ok {
		return []models.MarketMover{}
	}
	out := make([]models.MarketMover, len(rule.fallback))
	copy(out, rule.fallback)
	sortMovers(out)
	if len(out) > rule.cap {
		out = out[:rule.cap]
	}
	return out
}
