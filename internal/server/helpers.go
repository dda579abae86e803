package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/services/history"
	"github.com/bobmcallan/stockreplay/internal/services/movers"
	"github.com/bobmcallan/stockreplay/internal/services/news"
	"github.com/bobmcallan/stockreplay/internal/storage/refdata"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Error codes returned alongside error messages
const (
	CodeNotConfigured     = "not_configured"
	CodeSourceUnavailable = "source_unavailable"
	CodeNotFound          = "not_found"
	CodeBadRequest        = "bad_request"
	CodeDatasetError      = "dataset_error"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.Body == http.NoBody {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// PathParam extracts a path parameter from the URL path.
// For a pattern like /api/stock/{symbol}/chart.png, calling
// PathParam(r, "/api/stock/", "/chart.png") extracts the {symbol} part.
func PathParam(r *http.Request, prefix, suffix string) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if suffix != "" {
		idx := strings.Index(rest, suffix)
		if idx < 0 {
			return rest
		}
		return rest[:idx]
	}
	// No suffix: return up to the next /
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// errorStatus maps a service error to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	var datasetErr *refdata.DatasetError
	switch {
	case errors.Is(err, common.ErrNotConfigured):
		return http.StatusServiceUnavailable, CodeNotConfigured
	case errors.As(err, &datasetErr):
		return http.StatusInternalServerError, CodeDatasetError
	case errors.Is(err, history.ErrNoData),
		errors.Is(err, news.ErrNoArticles),
		errors.Is(err, movers.ErrUnknownKind):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, history.ErrInvalidPeriod),
		errors.Is(err, history.ErrInvalidDate),
		errors.Is(err, news.ErrInvalidRequest):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, common.ErrSourceUnavailable):
		return http.StatusBadGateway, CodeSourceUnavailable
	default:
		return http.StatusInternalServerError, ""
	}
}

// writeServiceError writes err with the status its kind maps to.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status >= 500 {
		s.logger.Warn().
			Err(err).
			Str("path", r.URL.Path).
			Str("correlation_id", common.CorrelationID(r.Context())).
			Msg("Request failed")
	}
	WriteErrorWithCode(w, status, err.Error(), code)
}
