package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/bobmcallan/stockreplay/internal/models"
	"github.com/bobmcallan/stockreplay/internal/services/movers"
	"github.com/bobmcallan/stockreplay/internal/storage/refdata"
)

// --- Reference data handlers ---

// isCodeQuery reports whether q looks like a stock code ("2330", "2330.TW", "5483.two")
func isCodeQuery(q string) bool {
	code := refdata.NormalizeCode(q)
	if code == "" {
		return false
	}
	return strings.IndexFunc(code, func(r rune) bool { return !unicode.IsDigit(r) }) < 0
}

func (s *Server) handleStockSearch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := refdata.DefaultSearchLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= limit {
			limit = v
		}
	}

	results := []models.SearchResult{}
	if q != "" {
		if isCodeQuery(q) {
			rec, ok, err := s.app.Store.GetByCode(q)
			if err != nil {
				s.writeServiceError(w, r, err)
				return
			}
			if ok {
				results = append(results, models.NewSearchResult(rec))
			}
		} else {
			records, err := s.app.Store.SearchByName(q, limit)
			if err != nil {
				s.writeServiceError(w, r, err)
				return
			}
			for _, rec := range records {
				results = append(results, models.NewSearchResult(rec))
			}
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

func (s *Server) handleStockInfo(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := strings.TrimSpace(PathParam(r, "/api/stocks/info/", ""))
	code := refdata.NormalizeCode(symbol)
	if code == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, "symbol is required in path", CodeBadRequest)
		return
	}

	rec, ok, err := s.app.Store.GetByCode(code)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if ok {
		WriteJSON(w, http.StatusOK, models.StockInfo{
			Code:     rec.Code,
			Symbol:   rec.Symbol,
			Name:     rec.Name,
			Industry: rec.Industry,
			Source:   "dataset",
		})
		return
	}

	if s.app.NameResolver != nil {
		sym := strings.ToUpper(symbol)
		if !strings.HasSuffix(sym, ".TW") && !strings.HasSuffix(sym, ".TWO") {
			sym = code + ".TW"
		}
		name, found, err := s.app.NameResolver.LookupName(r.Context(), sym)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if found {
			WriteJSON(w, http.StatusOK, models.StockInfo{
				Code:   code,
				Symbol: sym,
				Name:   name,
				Source: "yahoo_tw",
			})
			return
		}
	}

	WriteErrorWithCode(w, http.StatusNotFound, fmt.Sprintf("Stock %s not found", symbol), CodeNotFound)
}

// --- Market mover handlers ---

// routeStocks dispatches /api/stocks/{kind}/losers to the snapshot handler.
func (s *Server) routeStocks(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/stocks/"), "/")
	kindName, action, _ := strings.Cut(rest, "/")
	if action != "losers" {
		WriteErrorWithCode(w, http.StatusNotFound, "Not found", CodeNotFound)
		return
	}

	kind, err := movers.ParseKind(kindName)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.handleSnapshot(w, r, kind)
}

// handleSnapshot always answers 200; an unavailable market yields the fallback list.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request, kind models.SnapshotKind) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snapshot := s.app.SnapshotService.GetSnapshot(r.Context(), kind)
	WriteJSON(w, http.StatusOK, snapshot)
}

// --- Candle history handlers ---

// routeStock dispatches /api/stock/{symbol} and /api/stock/{symbol}/chart.png.
func (s *Server) routeStock(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/stock/"), "/")
	symbol, sub, _ := strings.Cut(rest, "/")
	if symbol == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, "symbol is required in path", CodeBadRequest)
		return
	}

	switch sub {
	case "":
		s.handleStockHistory(w, r, symbol)
	case "chart.png":
		s.handleStockChart(w, r, symbol)
	default:
		WriteErrorWithCode(w, http.StatusNotFound, "Not found", CodeNotFound)
	}
}

func historyQuery(r *http.Request) models.HistoryQuery {
	q := r.URL.Query()
	return models.HistoryQuery{
		Period:    q.Get("period"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
}

func (s *Server) handleStockHistory(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	result, err := s.app.HistoryService.GetHistory(r.Context(), symbol, historyQuery(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleStockChart(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	png, err := s.app.HistoryService.RenderChart(r.Context(), symbol, historyQuery(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// --- News handlers ---

func (s *Server) handleNewsFetch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.NewsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := s.app.NewsService.FetchNews(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleNewsSummary(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := PathParam(r, "/api/news/summary/", "")
	if strings.TrimSpace(symbol) == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, "symbol is required in path", CodeBadRequest)
		return
	}

	summary, err := s.app.NewsService.Summarize(r.Context(), symbol)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}
