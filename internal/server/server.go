package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bobmcallan/stockreplay/internal/app"
	"github.com/bobmcallan/stockreplay/internal/common"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	idleTimeout       = 60 * time.Second

	// minWriteTimeout covers news summaries, which wait on the search API and Gemini
	minWriteTimeout = 60 * time.Second
)

// Server serves the stock API
type Server struct {
	app    *app.App
	http   *http.Server
	logger *common.Logger
}

// NewServer builds the route table and middleware chain for a.
func NewServer(a *app.App) *Server {
	s := &Server{
		app:    a,
		logger: a.Logger,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.http = &http.Server{
		Addr:              net.JoinHostPort(a.Config.Server.Host, strconv.Itoa(a.Config.Server.Port)),
		Handler:           applyMiddleware(mux, a.Logger, a.Config),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout(a.Config),
		IdleTimeout:       idleTimeout,
	}

	return s
}

// writeTimeout is twice the combined market source timeouts plus the snapshot
// grace, and never below minWriteTimeout.
func writeTimeout(cfg *common.Config) time.Duration {
	c := cfg.Clients
	snapshot := c.HiStock.GetTimeout() + c.Yahoo.GetTimeout() + c.MorningStar.GetTimeout() + cfg.Snapshot.GetGrace()
	d := 2 * snapshot
	if d < minWriteTimeout {
		d = minWriteTimeout
	}
	return d
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.http.Addr
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln. It returns nil once Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Dur("write_timeout", s.http.WriteTimeout).
		Msg("Stock API listening")

	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
