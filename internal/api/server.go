// Package api provides a read-only HTTP API for observing a running simulation.
// Policy decisions never enter through it.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/famine-sim/internal/engine"
	"github.com/talgya/famine-sim/internal/persistence"
	"github.com/talgya/famine-sim/internal/world"
)

// Server serves the simulation state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	DB       *persistence.DB // Optional; enables /api/v1/runs
	Gatherer prometheus.Gatherer
	Limiter  *RateLimiter
	Port     int
	Logger   *slog.Logger
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/regions", s.handleRegions)
	mux.HandleFunc("GET /api/v1/region/{code}", s.handleRegionDetail)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/stats/{name}", s.handleStatistic)
	mux.HandleFunc("GET /api/v1/report", s.handleReport)
	mux.HandleFunc("GET /api/v1/warnings", s.handleWarnings)
	mux.HandleFunc("GET /api/v1/digest", s.handleDigest)
	if s.DB != nil {
		mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	}
	if s.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	var h http.Handler = mux
	if s.Limiter != nil {
		h = RateLimitMiddleware(s.Limiter, h)
	}
	return h
}

// ListenAndServe serves until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	logger := s.logger()
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("HTTP API starting", "addr", srv.Addr, "runs", s.DB != nil, "metrics", s.Gatherer != nil)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("HTTP API stopped")
	return nil
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":             "famine-sim",
		"state":            s.Sim.Status().String(),
		"year":             s.Sim.Year(),
		"start_year":       s.Sim.StartYear(),
		"seed_fingerprint": s.Sim.Fingerprint(),
		"variant":          s.Sim.Variant(),
		"famine_reached":   s.Sim.FamineReached(),
		"warnings":         len(s.Sim.Warnings()),
	}
	writeJSON(w, status)
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	type regionSummary struct {
		Code           string  `json:"code"`
		Name           string  `json:"name"`
		Player         bool    `json:"player"`
		Year           int     `json:"year"`
		Population     float64 `json:"population"`
		Undernourished float64 `json:"undernourished"`
		HDI            float64 `json:"hdi"`
		CropLand       float64 `json:"crop_land"`
		LandArable     float64 `json:"land_arable"`
		Revenue        float64 `json:"revenue"`
	}

	year := s.Sim.Year()
	slices, _, err := s.Sim.YearSlices(year)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]regionSummary, 0, world.NumRegions)
	for _, code := range world.AllRegions() {
		sl := &slices[code]
		out = append(out, regionSummary{
			Code:           code.String(),
			Name:           code.Name(),
			Player:         code.Player(),
			Year:           sl.Year,
			Population:     sl.Population,
			Undernourished: sl.Undernourished,
			HDI:            sl.HDI,
			CropLand:       sl.TotalCropLand(),
			LandArable:     sl.LandArable,
			Revenue:        sl.Revenue,
		})
	}
	writeJSON(w, out)
}

// handleRegionDetail returns a region's full history, or one year with ?year=.
func (s *Server) handleRegionDetail(w http.ResponseWriter, r *http.Request) {
	code, ok := world.RegionFromString(r.PathValue("code"))
	if !ok {
		http.Error(w, "unknown region", http.StatusNotFound)
		return
	}
	view, err := s.Sim.RegionSnapshot(code)
	if err != nil {
		writeError(w, err)
		return
	}

	if q := r.URL.Query().Get("year"); q != "" {
		year, err := strconv.Atoi(q)
		if err != nil {
			http.Error(w, "invalid year", http.StatusBadRequest)
			return
		}
		slice, ok := view.Year(year)
		if !ok {
			http.Error(w, "year not simulated", http.StatusNotFound)
			return
		}
		writeJSON(w, slice)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]float64)
	names := append([]string(nil), engine.StatisticNames...)
	for _, crop := range world.AllCrops() {
		names = append(names, "price:"+crop.String(), "supply:"+crop.String(), "surplus:"+crop.String())
	}
	for _, name := range names {
		v, err := s.Sim.GlobalStatistic(name)
		if err != nil {
			writeError(w, err)
			return
		}
		stats[name] = v
	}
	writeJSON(w, stats)
}

func (s *Server) handleStatistic(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	v, err := s.Sim.GlobalStatistic(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"name": name, "value": v})
}

// handleReport writes the text report of ?year= (default: latest year).
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	year := s.Sim.Year()
	if q := r.URL.Query().Get("year"); q != "" {
		var err error
		if year, err = strconv.Atoi(q); err != nil {
			http.Error(w, "invalid year", http.StatusBadRequest)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.Sim.WriteReport(w, year); err != nil {
		writeError(w, err)
	}
}

func (s *Server) handleWarnings(w http.ResponseWriter, r *http.Request) {
	warnings := s.Sim.Warnings()
	if warnings == nil {
		warnings = []engine.Warning{}
	}
	writeJSON(w, warnings)
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	digest, err := s.Sim.Digest()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"year": s.Sim.Year(), "digest": digest})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.DB.Runs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, runs)
}

// writeError maps simulation errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrNotReady):
		status = http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrUnknownStatistic), errors.Is(err, engine.ErrUnknownRegion), errors.Is(err, world.ErrNoSlice):
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
