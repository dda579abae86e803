package tavily

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stockreplay/internal/common"
)

func TestSearch_SendsRequestAndParses(t *testing.T) {
	var got searchRequest
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"query":"2330 台積電 news","results":[
		  {"title":"台積電 法說會","url":"https://www.ctee.com.tw/news/20240118/700123.html","content":"營收 ","score":0.9},
		  {"title":"外資動向","url":"https://money.udn.com/money/story/5607/1","content":"x","published_date":"Thu, 18 Jan 2024 08:00:00 GMT"},
		  {"title":"no url","url":"","content":""}
		]}`))
	}))
	defer srv.Close()

	client := NewClient("tvly-key", WithBaseURL(srv.URL))
	articles, err := client.Search(context.Background(), "2330 台積電 news")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/search", gotPath)
	assert.Equal(t, "tvly-key", got.APIKey)
	assert.Equal(t, "2330 台積電 news", got.Query)
	assert.Equal(t, "basic", got.SearchDepth)
	assert.Equal(t, "news", got.Topic)
	assert.Equal(t, 20, got.MaxResults)
	assert.Equal(t, DefaultDomains, got.IncludeDomains)

	require.Len(t, articles, 3)
	assert.Equal(t, "2024-01-18", articles[0].Date)
	assert.Equal(t, "www.ctee.com.tw", articles[0].Source)
	assert.Equal(t, "營收", articles[0].Summary)
	assert.Equal(t, "2024-01-18", articles[1].Date)
	assert.Equal(t, "money.udn.com", articles[1].Source)
	assert.Equal(t, "Unknown", articles[2].Source)
	assert.Empty(t, articles[2].Date)
}

func TestSearch_MissingKey(t *testing.T) {
	client := NewClient("")
	_, err := client.Search(context.Background(), "q")
	assert.True(t, errors.Is(err, common.ErrNotConfigured))
}

func TestSearch_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	_, err := client.Search(context.Background(), "q")
	assert.True(t, errors.Is(err, common.ErrSourceUnavailable))
}

func TestArticleDate(t *testing.T) {
	cases := []struct {
		published, url, want string
	}{
		{"2024-01-05", "", "2024-01-05"},
		{"2024-01-05T10:00:00Z", "", "2024-01-05"},
		{"", "https://www.ctee.com.tw/news/20231101/123.html", "2023-11-01"},
		{"", "https://www.ctee.com.tw/news/20231399/123.html", ""},
		{"", "https://money.udn.com/story/20231101/1", ""},
		{"garbage", "https://www.bnext.com.tw/article/1", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ArticleDate(tc.published, tc.url), "%q %q", tc.published, tc.url)
	}
}
