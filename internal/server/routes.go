package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/bobmcallan/stockreplay/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("/debug/memstats", s.handleMemstats)

	// Reference data and market movers
	mux.HandleFunc("/api/stocks/search", s.handleStockSearch)
	mux.HandleFunc("/api/stocks/info/", s.handleStockInfo)
	mux.HandleFunc("/api/stocks/", s.routeStocks) // handles {kind}/losers

	// Candle history
	mux.HandleFunc("/api/stock/", s.routeStock) // handles {symbol}, {symbol}/chart.png

	// News
	mux.HandleFunc("/api/news/fetch", s.handleNewsFetch)
	mux.HandleFunc("/api/news/summary/", s.handleNewsSummary)

	mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteErrorWithCode(w, http.StatusNotFound, "Not found", CodeNotFound)
		return
	}
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"message": "StockReplay API",
		"version": common.CurrentBuild().Version,
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.CurrentBuild())
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	uptime := time.Since(s.app.StartupTime).Round(time.Second)
	bi := common.CurrentBuild()

	resp := map[string]interface{}{
		"version":        bi.Version,
		"build":          bi.Build,
		"commit":         bi.Commit,
		"environment":    s.app.Config.Environment,
		"uptime":         uptime.String(),
		"started_at":     s.app.StartupTime,
		"correlation_id": common.CorrelationID(r.Context()),
		"integrations": map[string]bool{
			"morning_star": s.app.MorningStarConfigured,
			"tavily":       s.app.TavilyConfigured,
			"gemini":       s.app.GeminiConfigured,
		},
	}

	if s.app.Store != nil {
		resp["dataset_records"] = s.app.Store.Len()
	}
	if s.app.SnapshotService != nil {
		resp["snapshots"] = s.app.SnapshotService.Stats()
	}

	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMemstats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"heap_alloc_bytes": m.HeapAlloc,
		"heap_inuse_bytes": m.HeapInuse,
		"sys_bytes":        m.Sys,
		"num_gc":           m.NumGC,
		"goroutines":       runtime.NumGoroutine(),
		"heap_alloc_mb":    float64(m.HeapAlloc) / 1024 / 1024,
	})
}
