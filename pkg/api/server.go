// Package api serves signal records over HTTP and websocket.
package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/tunogya/footprint/pkg/analysis"
	"github.com/tunogya/footprint/pkg/data"
	"github.com/tunogya/footprint/pkg/metrics"
	"github.com/tunogya/footprint/pkg/model"
)

// Server exposes the latest-signals and history endpoints
type Server struct {
	provider data.BarProvider
	engine   *analysis.Engine
	scanner  *analysis.Scanner
	hub      *Hub
	log      zerolog.Logger
}

// Option customizes a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithConcurrency sets how many symbols are scanned in parallel
func WithConcurrency(n int) Option {
	return func(s *Server) { s.scanner = analysis.NewScanner(s.engine, n) }
}

// NewServer creates a server reading bars from provider
func NewServer(provider data.BarProvider, opts ...Option) *Server {
	engine := analysis.NewEngine()
	s := &Server{
		provider: provider,
		engine:   engine,
		scanner:  analysis.NewScanner(engine, 4),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.log)
	return s
}

// Hub returns the websocket broadcaster
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the routed handler wrapped with CORS and request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/signals", s.handleSignals)
	mux.HandleFunc("GET /api/historical/{symbol}", s.handleHistorical)
	mux.HandleFunc("GET /ws/signals", s.hub.ServeWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", metrics.Handler())

	return cors.AllowAll().Handler(s.logRequests(mux))
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	groups, err := data.LoadGroups(r.Context(), s.provider, model.LatestTailBars)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	records, err := s.scanner.ScanLatest(r.Context(), groups)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if records == nil {
		records = []model.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request) {
	symbol := data.NormalizeSymbol(r.PathValue("symbol"))

	bars, err := s.provider.FetchBars(r.Context(), symbol)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(bars) == 0 {
		writeError(w, http.StatusNotFound, "Symbol not found")
		return
	}

	records, err := s.engine.History(bars)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if records == nil {
		records = []model.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusUnprocessableEntity
	}
	s.log.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusRecorder captures the response code for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is needed for the websocket upgrade
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}
