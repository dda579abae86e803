package history

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/models"
)

type fakeProvider struct {
	candles   []models.Candle
	err       error
	gotSymbol string
	gotRange  string
	gotStart  string
	gotEnd    string
}

func (f *fakeProvider) GetHistory(_ context.Context, symbol, rangeName string) ([]models.Candle, error) {
	f.gotSymbol, f.gotRange = symbol, rangeName
	return f.candles, f.err
}

func (f *fakeProvider) GetHistoryBetween(_ context.Context, symbol, start, end string) ([]models.Candle, error) {
	f.gotSymbol, f.gotStart, f.gotEnd = symbol, start, end
	return f.candles, f.err
}

func sampleCandles(n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		base := 580.0 + float64(i)
		out[i] = models.Candle{
			Timestamp: fmt.Sprintf("2024-03-%02d", i+1),
			Open:      base + 0.123,
			High:      base + 5.456,
			Low:       base - 3.789,
			Close:     base + 1.005,
			Volume:    int64(1000 * (i + 1)),
		}
	}
	return out
}

func TestGetHistory_DefaultPeriod(t *testing.T) {
	p := &fakeProvider{candles: sampleCandles(3)}
	svc := NewService(p, common.NewSilentLogger())

	h, err := svc.GetHistory(context.Background(), "2330.tw", models.HistoryQuery{})
	require.NoError(t, err)

	assert.Equal(t, "2330.TW", p.gotSymbol)
	assert.Equal(t, "1mo", p.gotRange)
	assert.Equal(t, "2330.TW", h.Symbol)
	assert.Equal(t, 3, h.TotalCount)
	assert.Equal(t, []string{"2024-03-01", "2024-03-02", "2024-03-03"}, h.AllDates)

	assert.Equal(t, 580.12, h.Data[0].Open)
	assert.Equal(t, 585.46, h.Data[0].High)
	assert.Equal(t, 576.21, h.Data[0].Low)
	assert.Equal(t, int64(1000), h.Data[0].Volume)

	assert.Equal(t, 576.21, h.PriceRange.MinPrice)
	assert.Equal(t, 587.46, h.PriceRange.MaxPrice)
}

func TestGetHistory_BareCodeGetsSuffix(t *testing.T) {
	p := &fakeProvider{candles: sampleCandles(1)}
	svc := NewService(p, nil)

	h, err := svc.GetHistory(context.Background(), " 2330 ", models.HistoryQuery{Period: "5D"})
	require.NoError(t, err)
	assert.Equal(t, "2330.TW", h.Symbol)
	assert.Equal(t, "5d", p.gotRange)
}

func TestGetHistory_DateRangeIsInclusive(t *testing.T) {
	p := &fakeProvider{candles: sampleCandles(2)}
	svc := NewService(p, nil)

	_, err := svc.GetHistory(context.Background(), "2317.TW", models.HistoryQuery{
		Period:    "1y",
		StartDate: "2024-03-01",
		EndDate:   "2024-03-31",
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", p.gotStart)
	assert.Equal(t, "2024-04-01", p.gotEnd)
	assert.Empty(t, p.gotRange, "date range wins over period")
}

func TestGetHistory_InvalidInput(t *testing.T) {
	svc := NewService(&fakeProvider{candles: sampleCandles(1)}, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		query models.HistoryQuery
		want  error
	}{
		{"unknown period", models.HistoryQuery{Period: "2w"}, ErrInvalidPeriod},
		{"start only", models.HistoryQuery{StartDate: "2024-01-01"}, ErrInvalidDate},
		{"end only", models.HistoryQuery{EndDate: "2024-01-01"}, ErrInvalidDate},
		{"bad start", models.HistoryQuery{StartDate: "2024/01/01", EndDate: "2024-01-31"}, ErrInvalidDate},
		{"inverted", models.HistoryQuery{StartDate: "2024-02-01", EndDate: "2024-01-31"}, ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetHistory(ctx, "2330.TW", tt.query)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGetHistory_NoData(t *testing.T) {
	svc := NewService(&fakeProvider{}, nil)

	_, err := svc.GetHistory(context.Background(), "9999.TW", models.HistoryQuery{})
	assert.ErrorIs(t, err, ErrNoData)
	assert.Contains(t, err.Error(), "9999.TW")
}

func TestGetHistory_ProviderErrorPassesThrough(t *testing.T) {
	srcErr := common.NewStatusError("yahoo", "chart", 500)
	svc := NewService(&fakeProvider{err: srcErr}, nil)

	_, err := svc.GetHistory(context.Background(), "2330.TW", models.HistoryQuery{})
	assert.True(t, errors.Is(err, common.ErrSourceUnavailable))
}

func TestRenderChart_PNG(t *testing.T) {
	svc := NewService(&fakeProvider{candles: sampleCandles(25)}, nil)

	png, err := svc.RenderChart(context.Background(), "2330.TW", models.HistoryQuery{Period: "3mo"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "expected PNG signature")
}

func TestRenderChart_TooFewCandles(t *testing.T) {
	svc := NewService(&fakeProvider{candles: sampleCandles(1)}, nil)

	_, err := svc.RenderChart(context.Background(), "2330.TW", models.HistoryQuery{})
	assert.ErrorIs(t, err, ErrNoData)
}
