package histock

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/interfaces"
	"github.com/bobmcallan/stockreplay/internal/models"
)

const rankPage = `<html><body>
<table class="other"><tr><td>1</td><td>2</td><td>3</td><td>4</td><td>5</td></tr></table>
<table class="gvTB">
  <tr><th>代號</th><th>名稱</th><th>價格</th><th>漲跌</th><th>漲跌幅</th></tr>
  <tr><td>9999</td><td><a href="/stock/9999">不存在</a></td><td>12.30</td><td>▼0.60</td><td>-4.65%</td></tr>
  <tr><td>2330</td><td><a href="/stock/2330">台積電</a></td><td>980.00</td><td>▼23.00</td><td>-2.30%</td></tr>
  <tr><td colspan="5">廣告</td></tr>
  <tr><td>2317</td><td><a href="/stock/2317">鴻海</a></td><td>1,185.50</td><td>▼5.30</td><td>-2.80%</td></tr>
  <tr><td>2303</td><td>聯電</td><td>48.20</td><td>▼1.20</td><td>-2.50%</td></tr>
</table>
</body></html>`

func newRankServer(t *testing.T, status int, body string) (*httptest.Server, *string) {
	t.Helper()
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Path + "?" + r.URL.RawQuery
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("expected browser User-Agent, got %q", ua)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &query
}

func TestFetchDayTradingLosers_ParsesTable(t *testing.T) {
	srv, query := newRankServer(t, http.StatusOK, rankPage)

	client := NewClient(WithBaseURL(srv.URL))
	batch, err := client.FetchDayTradingLosers(context.Background(), interfaces.FetchParams{})
	require.NoError(t, err)

	assert.Equal(t, "/stock/rank.aspx?d=0&m=4&t=dt", *query)
	assert.Equal(t, SourceName, batch.Source)
	assert.Equal(t, 1, batch.Skipped)
	require.Len(t, batch.Candidates, 4)

	c := batch.Candidates[1]
	assert.Equal(t, "2330", c.Code)
	assert.Equal(t, "台積電", c.DisplayName)
	assert.Equal(t, "980.00", c.RawPrice)
	assert.Equal(t, "-2.30%", c.RawChangePercent)
	assert.Equal(t, "1,185.50", batch.Candidates[2].RawPrice)
}

func TestFetchDayTradingLosers_AcceptAndQuota(t *testing.T) {
	srv, _ := newRankServer(t, http.StatusOK, rankPage)

	known := map[string]bool{"2330": true, "2317": true, "2303": true}
	client := NewClient(WithBaseURL(srv.URL))
	batch, err := client.FetchDayTradingLosers(context.Background(), interfaces.FetchParams{
		Quota:  2,
		Accept: func(code string) bool { return known[code] },
	})
	require.NoError(t, err)

	require.Len(t, batch.Candidates, 2)
	assert.Equal(t, "2330", batch.Candidates[0].Code)
	assert.Equal(t, "2317", batch.Candidates[1].Code)
	// rejected codes are not malformed rows
	assert.Equal(t, 1, batch.Skipped)
}

func TestFetchDayTradingLosers_UnusableRowsDoNotFillQuota(t *testing.T) {
	page := `<html><body><table class="gvTB">
  <tr><td>2330</td><td>台積電</td><td>980.00</td><td>▼23.00</td><td>-2.30%</td></tr>
  <tr><td>2317</td><td>鴻海</td><td>185.50</td><td>--</td><td>--</td></tr>
  <tr><td>2303</td><td>聯電</td><td>48.20</td><td>▼1.20</td><td>-2.50%</td></tr>
  <tr><td>2454</td><td>聯發科</td><td>1,050.00</td><td>▼10.00</td><td>-0.94%</td></tr>
</table></body></html>`
	srv, _ := newRankServer(t, http.StatusOK, page)

	client := NewClient(WithBaseURL(srv.URL))
	batch, err := client.FetchDayTradingLosers(context.Background(), interfaces.FetchParams{
		Quota:  2,
		Usable: func(c models.MoverCandidate) bool { return c.RawChangePercent != "--" },
	})
	require.NoError(t, err)

	require.Len(t, batch.Candidates, 3)
	assert.Equal(t, "2317", batch.Candidates[1].Code)
	assert.Equal(t, "2303", batch.Candidates[2].Code)
}

func TestFetchDayTradingLosers_MissingTable(t *testing.T) {
	srv, _ := newRankServer(t, http.StatusOK, `<html><body><p>maintenance</p></body></html>`)

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.FetchDayTradingLosers(context.Background(), interfaces.FetchParams{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrSourceUnavailable))
	assert.Contains(t, err.Error(), "ranking table not found")
}

func TestFetchDayTradingLosers_NonOK(t *testing.T) {
	srv, _ := newRankServer(t, http.StatusServiceUnavailable, "busy")

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.FetchDayTradingLosers(context.Background(), interfaces.FetchParams{})

	var srcErr *common.SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, http.StatusServiceUnavailable, srcErr.StatusCode)
	assert.Equal(t, SourceName, srcErr.Source)
}

func TestFetchDayTradingLosers_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := client.FetchDayTradingLosers(context.Background(), interfaces.FetchParams{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrSourceUnavailable))
	assert.Equal(t, 50*time.Millisecond, client.Timeout())
}
