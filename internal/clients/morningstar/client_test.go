package morningstar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/interfaces"
)

func item(ticker, name string, price, pct float64) string {
	return fmt.Sprintf(`{"Security":{"RegionAndTicker":%q,"Name":%q},"Quote":{"Price":%g,"PercentChange":%g}}`, ticker, name, price, pct)
}

func moversBody(items ...string) string {
	return `{"Top10":{"Losers":{"Securities":[` + strings.Join(items, ",") + `]},"Gainers":{"Securities":[]}}}`
}

func TestFetchCandidates_ParsesLosers(t *testing.T) {
	var gotKey, gotHost, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-RapidAPI-Key")
		gotHost = r.Header.Get("X-RapidAPI-Host")
		gotPath = r.URL.Path
		w.Write([]byte(moversBody(
			item("USA:TSLA", "Tesla Inc", 180.5, -8.456),
			`{"Security":"broken"}`,
			`{"Security":{"RegionAndTicker":"NOTICKER","Name":"x"},"Quote":{}}`,
			`{"Security":{"RegionAndTicker":"USA:NVDA","Name":"NVIDIA Corp"},"Quote":{"PercentChange":-4.1}}`,
		)))
	}))
	defer srv.Close()

	client := NewClient("secret", WithBaseURL(srv.URL))
	batch, err := client.FetchCandidates(context.Background(), interfaces.FetchParams{})
	require.NoError(t, err)

	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, DefaultHost, gotHost)
	assert.Equal(t, "/market/v3/get-movers", gotPath)

	assert.Equal(t, 2, batch.Skipped)
	require.Len(t, batch.Candidates, 2)
	assert.Equal(t, "TSLA", batch.Candidates[0].Code)
	assert.Equal(t, "Tesla Inc", batch.Candidates[0].DisplayName)
	assert.Equal(t, "180.5", batch.Candidates[0].RawPrice)
	assert.Equal(t, "-8.456", batch.Candidates[0].RawChangePercent)
	assert.Equal(t, "NVDA", batch.Candidates[1].Code)
	assert.Empty(t, batch.Candidates[1].RawPrice)
}

func TestFetchCandidates_TakesFirstTen(t *testing.T) {
	var items []string
	for i := 0; i < 14; i++ {
		items = append(items, item(fmt.Sprintf("USA:T%02d", i), "n", 10, -float64(i)))
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(moversBody(items...)))
	}))
	defer srv.Close()

	client := NewClient("secret", WithBaseURL(srv.URL))
	batch, err := client.FetchCandidates(context.Background(), interfaces.FetchParams{})
	require.NoError(t, err)
	require.Len(t, batch.Candidates, 10)
	assert.Equal(t, "T00", batch.Candidates[0].Code)
	assert.Equal(t, "T09", batch.Candidates[9].Code)
}

func TestFetchCandidates_MissingKeySkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client := NewClient("  ", WithBaseURL(srv.URL))
	_, err := client.FetchCandidates(context.Background(), interfaces.FetchParams{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotConfigured))
	assert.False(t, errors.Is(err, common.ErrSourceUnavailable))
	assert.Equal(t, int32(0), hits.Load())
}

func TestFetchCandidates_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient("bad", WithBaseURL(srv.URL))
	_, err := client.FetchCandidates(context.Background(), interfaces.FetchParams{})
	assert.True(t, errors.Is(err, common.ErrSourceUnavailable))
}

func TestFetchCandidates_UnparseablePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Top10":{"Losers":{"Securities":{}}}}`))
	}))
	defer srv.Close()

	client := NewClient("secret", WithBaseURL(srv.URL))
	_, err := client.FetchCandidates(context.Background(), interfaces.FetchParams{})
	assert.True(t, errors.Is(err, common.ErrSourceUnavailable))
}
