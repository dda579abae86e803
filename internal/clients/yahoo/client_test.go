package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stockreplay/internal/common"
)

// two sessions of 2330.TW plus a holiday row with null values
const chartBody = `{"chart":{"result":[{
  "meta":{"symbol":"2330.TW","gmtoffset":28800},
  "timestamp":[1704848400,1704934800,1705021200],
  "indicators":{"quote":[{
    "open":[590.0,null,585.0],
    "high":[593.0,null,588.5],
    "low":[586.0,null,580.0],
    "close":[590.0,null,582.123],
    "volume":[25000000,null,31000000]
  }]}
}],"error":null}}`

func TestGetHistory_ParsesChart(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	candles, err := client.GetHistory(context.Background(), "2330.tw", "5d")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/2330.TW", gotPath)
	assert.Equal(t, "interval=1d&range=5d", gotQuery)
	require.Len(t, candles, 2)

	assert.Equal(t, "2024-01-10", candles[0].Timestamp)
	assert.Equal(t, 590.0, candles[0].Open)
	assert.Equal(t, int64(25000000), candles[0].Volume)
	assert.Equal(t, "2024-01-12", candles[1].Timestamp)
	assert.Equal(t, 582.123, candles[1].Close)
	assert.Equal(t, 580.0, candles[1].Low)
}

func TestGetHistoryBetween_SendsPeriods(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.GetHistoryBetween(context.Background(), "GLD", "2024-01-01", "2024-01-11")
	require.NoError(t, err)
	assert.Equal(t, "interval=1d&period1=1704067200&period2=1704931200", gotQuery)

	_, err = client.GetHistoryBetween(context.Background(), "GLD", "2024/01/01", "2024-01-11")
	assert.Error(t, err)
}

func TestGetHistory_NotFoundIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	candles, err := client.GetHistory(context.Background(), "NOPE", "1mo")
	require.NoError(t, err)
	assert.Empty(t, candles)
}

func TestGetHistory_ChartError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Bad Request","description":"Invalid input"}}}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.GetHistory(context.Background(), "SPY", "bogus")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrSourceUnavailable))
	assert.Contains(t, err.Error(), "Invalid input")
}

func TestGetHistory_BadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>rate limited</html>`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.GetHistory(context.Background(), "SPY", "5d")
	assert.True(t, errors.Is(err, common.ErrSourceUnavailable))
}
