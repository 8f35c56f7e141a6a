// Package healthsrv exposes the process's liveness and running stats
// over HTTP: `/healthz` for the raw-data freshness report and `/stats`
// for the executor's daily counters, spec.md §6.4's composition root
// surface. Routing follows sawpanic-cryptorun's handlers package
// (github.com/gorilla/mux's NewRouter + path-keyed handlers), already a
// direct dependency of this module; the teacher's own internal/api
// instead used a bare http.ServeMux, but mux is the pack's named choice
// for this concern and SPEC_FULL.md's dependency table assigns it here.
package healthsrv

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/GoPolymarket/polymarket-trader/internal/executor"
	"github.com/GoPolymarket/polymarket-trader/internal/rawdata"
)

// HealthSource reports raw-data collector freshness.
type HealthSource interface {
	Health(nowMs int64) rawdata.Report
}

// StatsSource reports the executor's running counters.
type StatsSource interface {
	Snapshot(now time.Time) executor.Snapshot
}

// Server is a minimal HTTP surface for operational visibility; it never
// drives trading decisions, only reports on them.
type Server struct {
	http   *http.Server
	health HealthSource
	stats  StatsSource
}

// NewServer builds a server bound to addr, reporting health and stats
// from the two given sources.
func NewServer(addr string, health HealthSource, stats StatsSource) *Server {
	s := &Server{health: health, stats: stats}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	report := s.health.Health(time.Now().UnixMilli())
	status := http.StatusOK
	if report.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot(time.Now()))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe blocks serving until ctx is canceled, then shuts down
// gracefully — the shape internal/lifecycle.Group expects of every
// component it joins.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.http.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
