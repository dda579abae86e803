package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/services/movers"
	"github.com/bobmcallan/stockreplay/internal/services/news"
	"github.com/bobmcallan/stockreplay/internal/storage/refdata"
)

func TestPathParam(t *testing.T) {
	tests := []struct {
		path, prefix, suffix, want string
	}{
		{"/api/stock/2330.TW/chart.png", "/api/stock/", "/chart.png", "2330.TW"},
		{"/api/stocks/info/2330", "/api/stocks/info/", "", "2330"},
		{"/api/stocks/info/2330/extra", "/api/stocks/info/", "", "2330"},
		{"/api/other", "/api/stock/", "", ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		assert.Equal(t, tt.want, PathParam(req, tt.prefix, tt.suffix), tt.path)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"config", fmt.Errorf("wrapped: %w", &common.ConfigError{Setting: "gemini_api_key"}), http.StatusServiceUnavailable, CodeNotConfigured},
		{"source", common.NewSourceError("tavily", "search", errors.New("timeout")), http.StatusBadGateway, CodeSourceUnavailable},
		{"dataset", &refdata.DatasetError{Path: "x.json", Err: errors.New("bad")}, http.StatusInternalServerError, CodeDatasetError},
		{"unknown kind", movers.ErrUnknownKind, http.StatusNotFound, CodeNotFound},
		{"invalid news", fmt.Errorf("%w: symbol", news.ErrInvalidRequest), http.StatusBadRequest, CodeBadRequest},
		{"other", errors.New("x"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := errorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestIsCodeQuery(t *testing.T) {
	assert.True(t, isCodeQuery("2330"))
	assert.True(t, isCodeQuery("2330.TW"))
	assert.True(t, isCodeQuery("00878"))
	assert.True(t, isCodeQuery("5483.TWO"))
	assert.False(t, isCodeQuery("台積電"))
	assert.False(t, isCodeQuery("TSMC"))
	assert.False(t, isCodeQuery(".TW"))
}

func TestRequireMethod(t *testing.T) {
	rr := httptest.NewRecorder()
	ok := RequireMethod(rr, httptest.NewRequest(http.MethodDelete, "/", nil), http.MethodGet)
	assert.False(t, ok)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET", rr.Header().Get("Allow"))
}
