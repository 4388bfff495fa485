// Package http exposes the query API plus health, readiness, and metrics
// endpoints.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/hazard-analytics-service/internal/analytics"
	"github.com/couchcryptid/hazard-analytics-service/internal/quality"
	"github.com/couchcryptid/hazard-analytics-service/internal/store"
)

const (
	defaultRecordLimit  = 100
	maxRecordLimit      = 1000
	defaultHistoryLimit = 20
)

// ResponseCache caches serialized query responses.
type ResponseCache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte)
}

// Metrics is the subset of service metrics the API reports into.
type Metrics interface {
	ObserveRequest(endpoint string, status int)
	ObserveCacheLookup(hit bool)
}

// Deps carries the server's collaborators.
type Deps struct {
	Dataset         *store.Store
	Monitor         *quality.Monitor
	Ready           sharedobs.ReadinessChecker
	Cache           ResponseCache
	Metrics         Metrics
	TrendWindowDays int
	Logger          *slog.Logger
}

// Server exposes the query API over the in-memory working set.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the query API routes plus /healthz,
// /readyz, and /metrics.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: deps.Logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/summary", s.handleSummary)
	mux.HandleFunc("GET /v1/records", s.handleRecords)
	mux.HandleFunc("POST /v1/pivot", s.handlePivot)
	mux.HandleFunc("GET /v1/trends", s.handleTrends)
	mux.HandleFunc("GET /v1/risk", s.handleRisk)
	mux.HandleFunc("GET /v1/quality/history", s.handleQualityHistory)
	mux.HandleFunc("GET /v1/quality/compare", s.handleQualityCompare)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, "summary", err)
		return
	}
	s.serveCached(w, "summary", s.cacheKey(r, nil), func() (any, error) {
		return analytics.Summarize(filter.Apply(s.enriched())), nil
	})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, "records", err)
		return
	}
	limit := parseIntParam(r, "limit", defaultRecordLimit)
	if limit > maxRecordLimit {
		limit = maxRecordLimit
	}
	s.serveCached(w, "records", s.cacheKey(r, nil), func() (any, error) {
		records := filter.Apply(s.enriched())
		if len(records) > limit {
			records = records[:limit]
		}
		return map[string]any{
			"count":   len(records),
			"records": records,
		}, nil
	})
}

// pivotRequest is the POST /v1/pivot body: a filter plus pivot options.
type pivotRequest struct {
	Start      *time.Time `json:"start,omitempty"`
	End        *time.Time `json:"end,omitempty"`
	Regions    []string   `json:"regions,omitempty"`
	Types      []string   `json:"types,omitempty"`
	Severities []string   `json:"severities,omitempty"`

	analytics.PivotOptions
}

func (s *Server) handlePivot(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		s.writeError(w, "pivot", fmt.Errorf("read body: %w", err))
		return
	}

	var req pivotRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeError(w, "pivot", fmt.Errorf("decode body: %w", err))
			return
		}
	}

	filter := analytics.Filter{
		Start:      req.Start,
		End:        req.End,
		Regions:    req.Regions,
		Types:      req.Types,
		Severities: req.Severities,
	}

	s.serveCached(w, "pivot", s.cacheKey(r, body), func() (any, error) {
		table := analytics.Pivot(filter.Apply(s.enriched()), req.PivotOptions)
		return map[string]any{
			"table": table,
			"cells": table.ToMap(),
		}, nil
	})
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, "trends", err)
		return
	}
	window := parseIntParam(r, "window", s.deps.TrendWindowDays)
	s.serveCached(w, "trends", s.cacheKey(r, nil), func() (any, error) {
		return analytics.Trends(filter.Apply(s.enriched()), window), nil
	})
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, "risk", err)
		return
	}
	window := parseIntParam(r, "window", s.deps.TrendWindowDays)
	s.serveCached(w, "risk", s.cacheKey(r, nil), func() (any, error) {
		return analytics.RiskScores(filter.Apply(s.enriched()), window), nil
	})
}

func (s *Server) handleQualityHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", defaultHistoryLimit)
	// Quality history is small and changes independently of the dataset
	// generation, so it bypasses the response cache.
	s.writeJSON(w, "quality_history", http.StatusOK, s.deps.Monitor.History(limit))
}

func (s *Server) handleQualityCompare(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, "quality_compare", http.StatusOK, quality.CompareSources(s.deps.Monitor.History(0)))
}

func (s *Server) enriched() []analytics.Record {
	return analytics.Enrich(s.deps.Dataset.Snapshot())
}

// cacheKey ties a response to the dataset generation so new data invalidates
// cached answers without explicit purging.
func (s *Server) cacheKey(r *http.Request, body []byte) string {
	return fmt.Sprintf("%s?%s#g%d|%s", r.URL.Path, r.URL.RawQuery, s.deps.Dataset.Generation(), body)
}

func (s *Server) serveCached(w http.ResponseWriter, endpoint, key string, build func() (any, error)) {
	if data, ok := s.deps.Cache.Get(key); ok {
		s.deps.Metrics.ObserveCacheLookup(true)
		s.writeRaw(w, endpoint, http.StatusOK, data)
		return
	}
	s.deps.Metrics.ObserveCacheLookup(false)

	v, err := build()
	if err != nil {
		s.writeError(w, endpoint, err)
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode response failed", "endpoint", endpoint, "error", err)
		s.writeJSON(w, endpoint, http.StatusInternalServerError, map[string]string{"error": "encoding failure"})
		return
	}
	s.deps.Cache.Put(key, data)
	s.writeRaw(w, endpoint, http.StatusOK, data)
}

func (s *Server) writeError(w http.ResponseWriter, endpoint string, err error) {
	s.writeJSON(w, endpoint, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, endpoint string, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode response failed", "endpoint", endpoint, "error", err)
		data = []byte(`{"error":"encoding failure"}`)
		status = http.StatusInternalServerError
	}
	s.writeRaw(w, endpoint, status, data)
}

func (s *Server) writeRaw(w http.ResponseWriter, endpoint string, status int, data []byte) {
	s.deps.Metrics.ObserveRequest(endpoint, status)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck // best-effort response
}

// parseFilter builds an analytics filter from query parameters. Time bounds
// are RFC 3339; region, type, and severity may repeat.
func parseFilter(r *http.Request) (analytics.Filter, error) {
	q := r.URL.Query()
	filter := analytics.Filter{
		Regions:    q["region"],
		Types:      q["type"],
		Severities: q["severity"],
	}

	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("invalid start: %w", err)
		}
		filter.Start = &t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("invalid end: %w", err)
		}
		filter.End = &t
	}

	return filter, nil
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
