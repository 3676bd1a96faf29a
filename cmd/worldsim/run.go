package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/famine-sim/internal/api"
	"github.com/talgya/famine-sim/internal/config"
	"github.com/talgya/famine-sim/internal/engine"
	"github.com/talgya/famine-sim/internal/metrics"
	"github.com/talgya/famine-sim/internal/persistence"
	"github.com/talgya/famine-sim/internal/policy"
	"github.com/talgya/famine-sim/internal/provider"
)

// setup is what every simulation command builds before advancing years.
type setup struct {
	cfg    *config.Config
	logger *slog.Logger
	sim    *engine.Simulation
	plan   *policy.Plan
}

// load reads the configuration, applies flag overrides and initializes the
// simulation at the configured start year.
func load(ctx context.Context, configPath string, flags simFlags) (*setup, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if flags.seed != 0 {
		cfg.Simulation.Seed = flags.seed
	}
	if flags.startYear != 0 {
		cfg.Simulation.StartYear = flags.startYear
	}
	if flags.years != 0 {
		cfg.Simulation.Years = flags.years
	}
	if flags.dataset != "" {
		cfg.Data.Dataset = flags.dataset
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	logger := config.NewLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	var p provider.Provider = provider.NewSynthetic()
	if cfg.Data.Dataset != "" {
		ds, err := provider.LoadDataset(cfg.Data.Dataset)
		if err != nil {
			return nil, err
		}
		p = ds
		logger.Info("dataset loaded", "path", cfg.Data.Dataset, "reference_year", ds.ReferenceYear())
	}

	var plan *policy.Plan
	if flags.plan != "" {
		if plan, err = policy.LoadPlan(flags.plan); err != nil {
			return nil, err
		}
		logger.Info("policy plan loaded", "path", flags.plan, "years", len(plan.Years))
	}

	sim := engine.NewSimulation(p, engine.OptionsFromConfig(cfg, logger))
	if err := sim.Initialize(ctx, cfg.Simulation.StartYear); err != nil {
		return nil, err
	}
	return &setup{cfg: cfg, logger: logger, sim: sim, plan: plan}, nil
}

// runner builds a flat-out runner over the configured year budget.
func (s *setup) runner() *engine.Runner {
	r := engine.NewRunner(s.sim, s.logger)
	r.Interval = 0
	r.Years = s.cfg.Simulation.Years
	r.StopOnFamine = true
	r.Effects = s.plan.For
	return r
}

// record attaches the history store and year archive when they are configured.
// The returned function closes them.
func (s *setup) record(ctx context.Context, r *engine.Runner, runID string) (*persistence.DB, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var db *persistence.DB
	if path := s.cfg.Storage.DBPath; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, closeAll, fmt.Errorf("db dir: %w", err)
		}
		var err error
		if db, err = persistence.Open(path); err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { db.Close() })

		rec, err := persistence.NewRecorder(ctx, db, runID, s.sim)
		if err != nil {
			return nil, closeAll, err
		}
		runID = rec.Run().ID
		r.Observe(rec)
		s.logger.Info("recording run", "run", runID, "db", path)
	}

	if dir := s.cfg.Storage.ArchiveDir; dir != "" {
		name := runID
		if name == "" {
			name = s.sim.Fingerprint()
		}
		archive, err := persistence.OpenArchive(dir, name)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() {
			if err := archive.Close(); err != nil {
				s.logger.Error("archive close failed", "path", archive.Path(), "error", err)
			}
		})
		r.Observe(archive)
		s.logger.Info("archiving years", "path", archive.Path())
	}
	return db, closeAll, nil
}

func runHeadless(ctx context.Context, configPath string, flags simFlags, runID string, out io.Writer) error {
	s, err := load(ctx, configPath, flags)
	if err != nil {
		return err
	}
	if s.cfg.Simulation.Years == 0 {
		return fmt.Errorf("run needs a year budget: set --years or simulation.years")
	}

	r := s.runner()
	_, closeAll, err := s.record(ctx, r, runID)
	defer closeAll()
	if err != nil {
		return err
	}
	if err := r.Run(ctx); err != nil {
		return err
	}
	return printSummary(out, s.sim)
}

func runReport(ctx context.Context, configPath string, flags simFlags, year int, out io.Writer) error {
	s, err := load(ctx, configPath, flags)
	if err != nil {
		return err
	}
	if err := s.runner().Run(ctx); err != nil {
		return err
	}
	if year == 0 {
		year = s.sim.Year()
	}
	return s.sim.WriteReport(out, year)
}

func runDigest(ctx context.Context, configPath string, flags simFlags, out io.Writer) error {
	s, err := load(ctx, configPath, flags)
	if err != nil {
		return err
	}
	if err := s.runner().Run(ctx); err != nil {
		return err
	}
	digest, err := s.sim.Digest()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s  seed=%s year=%d\n", digest, s.sim.Fingerprint(), s.sim.Year())
	return nil
}

// runServe advances one year per configured interval while serving the API,
// until interrupted or the year budget is spent.
func runServe(ctx context.Context, configPath string, flags simFlags, port int) error {
	s, err := load(ctx, configPath, flags)
	if err != nil {
		return err
	}
	if port != 0 {
		s.cfg.API.Port = port
	}

	r := s.runner()
	r.Interval = s.cfg.Simulation.YearInterval

	db, closeAll, err := s.record(ctx, r, "")
	defer closeAll()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return err
	}
	r.Observe(collector)

	srv := &api.Server{
		Sim:      s.sim,
		DB:       db,
		Gatherer: reg,
		Limiter:  api.NewRateLimiter(s.cfg.API.RateLimit, s.cfg.API.Burst),
		Port:     s.cfg.API.Port,
		Logger:   s.logger.With("component", "api"),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		if err := r.Run(gctx); err != nil {
			return err
		}
		// Keep serving the final state until interrupted.
		<-gctx.Done()
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	s.sim.Terminate()
	s.logger.Info("simulation stopped", "year", s.sim.Year())
	return nil
}

func printSummary(out io.Writer, sim *engine.Simulation) error {
	stats := make(map[string]float64, len(engine.StatisticNames))
	for _, name := range engine.StatisticNames {
		v, err := sim.GlobalStatistic(name)
		if err != nil {
			return err
		}
		stats[name] = v
	}
	fmt.Fprintf(out, "year %d  population %.4g  undernourished %.2f%%  hdi %.3f  sea level %+.3f m\n",
		int(stats["year"]), stats["population"], 100*stats["undernourished_fraction"], stats["hdi"], stats["sea_level"])
	fmt.Fprintf(out, "seed %d (%s), variant %d\n", sim.Seed(), sim.Fingerprint(), sim.Variant())
	if sim.FamineReached() {
		fmt.Fprintln(out, "famine threshold reached")
	}
	for _, w := range sim.Warnings() {
		fmt.Fprintln(out, "warning:", w)
	}
	return nil
}

func exportDataset(out io.Writer) error {
	return provider.WriteDataset(out, provider.NewSynthetic())
}

func validateDataset(path string, out io.Writer) error {
	ds, err := provider.LoadDataset(path)
	if err != nil {
		return err
	}
	if err := provider.ValidateProjections(ds); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: valid (reference year %d, %d variants)\n", path, ds.ReferenceYear(), ds.Variants())
	return nil
}
