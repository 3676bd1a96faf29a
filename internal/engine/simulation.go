// Package engine advances the world one year at a time. Each year runs a fixed
// pipeline of phases over a draft copy of the previous year and commits the draft
// only when every phase succeeded.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/talgya/famine-sim/internal/climate"
	"github.com/talgya/famine-sim/internal/config"
	"github.com/talgya/famine-sim/internal/entropy"
	"github.com/talgya/famine-sim/internal/policy"
	"github.com/talgya/famine-sim/internal/provider"
	"github.com/talgya/famine-sim/internal/world"
)

var (
	// ErrNotReady is returned when an operation needs a state the simulation is not in.
	ErrNotReady = errors.New("simulation not ready")

	// ErrTerminated is returned by every operation after Terminate or a fatal error.
	ErrTerminated = errors.New("simulation terminated")

	// ErrFatal wraps errors that terminated the simulation during a year.
	ErrFatal = errors.New("fatal simulation error")

	// ErrUnknownRegion is returned for region codes outside the enumeration.
	ErrUnknownRegion = errors.New("unknown region")
)

// State is the lifecycle state of a simulation.
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateRunning // A year is being computed
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Options configures a simulation.
type Options struct {
	Seed            int64   // 0 draws a random seed
	ScaleFactor     float64 // Applied to population and land of the reference data
	Workers         int
	FamineThreshold float64
	Tuning          config.Tuning
	Grid            world.GridConfig
	Logger          *slog.Logger
}

// OptionsFromConfig builds options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		Seed:            cfg.Simulation.Seed,
		ScaleFactor:     cfg.Simulation.ScaleFactor,
		Workers:         cfg.Simulation.Workers,
		FamineThreshold: cfg.Simulation.FamineThreshold,
		Tuning:          cfg.Tuning,
		Grid:            world.DefaultGridConfig(),
		Logger:          logger,
	}
}

// Simulation holds the world state and runs the yearly pipeline.
type Simulation struct {
	provider provider.Provider
	opts     Options
	applier  *policy.Applier

	state atomic.Int32

	// mu guards the committed history against readers while a year is committed.
	// Phases read committed slices without it: only AdvanceYear writes them.
	mu           sync.RWMutex
	world        *world.State
	lastWarnings []Warning

	sc       *SimContext
	static   [world.NumRegions]regionStatic
	field    *climate.Field
	seaLevel []climate.SeaLevelPoint
	variant  int
}

// regionStatic is what Initialize derives once per region and the phases reuse.
type regionStatic struct {
	projection        provider.Projection
	startPopulation   float64
	startMedianAge    float64
	startMethodFactor float64
	baseClimate       world.CellClimate // Mean of the start year's cells
	cells             []*world.Cell
}

// draft is the year being computed. Phases read prev and write next.
type draft struct {
	year    int
	elapsed int // Years since the start year

	prev [world.NumRegions]*world.YearSlice // nil while computing the start year
	next [world.NumRegions]*world.YearSlice

	prevGlobal *world.GlobalSlice
	global     *world.GlobalSlice

	overrides *policy.Overrides
}

// NewSimulation creates an uninitialized simulation over a data provider.
func NewSimulation(p provider.Provider, opts Options) *Simulation {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ScaleFactor <= 0 {
		opts.ScaleFactor = 1
	}
	if opts.Grid.Radius == 0 {
		opts.Grid = world.DefaultGridConfig()
	}
	config.SetTuningDefaults(&opts.Tuning)

	return &Simulation{
		provider: p,
		opts:     opts,
		applier:  policy.NewApplier(),
	}
}

// Status returns the lifecycle state. It never blocks.
func (s *Simulation) Status() State {
	return State(s.state.Load())
}

// Initialize builds the start year from the provider: scaled population and land,
// region grids, the projection variant and the start year's market, HDI and
// revenue. On error the simulation stays uninitialized.
func (s *Simulation) Initialize(ctx context.Context, startYear int) error {
	switch s.Status() {
	case StateUninitialized:
	case StateTerminated:
		return ErrTerminated
	default:
		return fmt.Errorf("initialize: %w", ErrNotReady)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	records, err := s.provider.Snapshot()
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := provider.Validate(records); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := provider.ValidateProjections(s.provider); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	src := entropy.NewSource(s.opts.Seed)
	variant := src.Variant(s.provider.Variants())
	curve, err := s.provider.SeaLevelCurve(variant)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	s.sc = newSimContext(s.opts.Logger, src, s.opts.Tuning, s.opts.Workers)
	s.sc.beginYear(startYear)
	s.variant = variant
	s.seaLevel = curve
	s.field = climate.NewField(src.Seed(), variant)

	st := world.NewState(startYear)
	s.mu.Lock()
	s.world = st
	s.mu.Unlock()
	defer func() {
		if s.Status() != StateReady {
			s.mu.Lock()
			s.world = nil
			s.mu.Unlock()
		}
	}()

	grid := s.opts.Grid
	grid.Seed = src.Seed()
	scale := s.opts.ScaleFactor

	d := &draft{
		year:      startYear,
		global:    &world.GlobalSlice{Year: startYear, SeaLevel: climate.SeaLevelAt(curve, startYear)},
		overrides: policy.NewOverrides(),
	}

	for _, r := range records {
		proj, err := s.provider.Projection(r.Code, variant)
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}

		region := st.Region(r.Code)
		region.NeedPerCapita = r.NeedPerCapita
		region.BaseYield = r.CropYield
		region.BaseTradePenalty = r.TradePenalty
		for c := range r.CropLand {
			region.BaseLand[c] = r.CropLand[c] * scale
		}
		region.Grid = world.GenerateGrid(grid, r.Code, r.Climate)
		s.sc.Logger.Debug("region grid generated", "region", r.Code, "grid", region.Grid, "coastal", region.Grid.CoastalFraction())

		s.static[r.Code] = regionStatic{
			projection:        proj,
			startPopulation:   r.Population * scale,
			startMedianAge:    r.MedianAge,
			startMethodFactor: weightedMethodFactor(r.MethodShare),
			cells:             region.Grid.Arable(),
		}

		next := &world.YearSlice{
			Year:            startYear,
			Population:      r.Population * scale,
			MedianAge:       r.MedianAge,
			Births:          r.Births * scale,
			Mortality:       r.Mortality * scale,
			Migration:       r.Migration * scale,
			Undernourished:  r.Undernourished,
			LandTotal:       r.LandTotal * scale,
			LandArable:      r.LandArable * scale,
			CropYield:       r.CropYield,
			CropLand:        region.BaseLand,
			MethodShare:     r.MethodShare,
			TradePenalty:    r.TradePenalty,
			TaxRate:         r.TaxRate,
			InfantMortality: r.InfantMortality,
			LifeExpectancy:  r.LifeExpectancy,
		}
		for c := range next.CropProduction {
			next.CropProduction[c] = next.CropYield[c] * next.CropLand[c]
			next.CropEventFactor[c] = 1
		}
		next.CellClimate = s.cellClimate(r.Code, 0)
		next.Climate = climate.Mean(next.CellClimate)
		s.static[r.Code].baseClimate = next.Climate
		d.next[r.Code] = next
	}

	for _, phase := range []func(*draft) error{s.updateNeed, s.clearMarkets, s.updateHDI, s.updateRevenue} {
		if err := phase(d); err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
	}
	s.aggregate(d)
	if err := s.commit(d); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	s.state.Store(int32(StateReady))
	s.sc.Logger.Info("simulation initialized",
		"start_year", startYear,
		"reference_year", s.provider.ReferenceYear(),
		"variant", variant,
		"seed_fingerprint", src.Fingerprint(),
		"population", d.global.Population,
		"undernourished", d.global.Undernourished,
	)
	return nil
}

// AdvanceYear applies the year's policy effects and computes the next year. It
// returns the new current year. The context is only checked before the year
// starts; a year in progress always finishes. A fatal error terminates the
// simulation and discards the draft year.
func (s *Simulation) AdvanceYear(ctx context.Context, effects []policy.Effect) (int, error) {
	if !s.state.CompareAndSwap(int32(StateReady), int32(StateRunning)) {
		if s.Status() == StateTerminated {
			return 0, ErrTerminated
		}
		return 0, fmt.Errorf("advance year: %w (state %s)", ErrNotReady, s.Status())
	}
	if err := ctx.Err(); err != nil {
		s.state.CompareAndSwap(int32(StateRunning), int32(StateReady))
		return 0, err
	}

	year := s.world.Year + 1
	d, err := s.runYear(year, effects)
	if err == nil {
		err = s.verify(d)
	}
	if err == nil {
		err = s.commit(d)
	}
	if errors.Is(err, ErrTerminated) {
		return 0, err
	}
	if err != nil {
		s.state.Store(int32(StateTerminated))
		s.sc.Logger.Error("simulation terminated", "year", year, "error", err)
		return 0, fmt.Errorf("%w: year %d: %w", ErrFatal, year, err)
	}

	s.state.CompareAndSwap(int32(StateRunning), int32(StateReady))

	s.sc.Logger.Info("year advanced",
		"year", year,
		"population", d.global.Population,
		"undernourished", d.global.Undernourished,
		"hdi", d.global.HDI,
		"sea_level", d.global.SeaLevel,
		"warnings", len(s.sc.warnings),
	)
	return year, nil
}

// runYear computes a draft of the given year from the latest committed year.
func (s *Simulation) runYear(year int, effects []policy.Effect) (*draft, error) {
	s.sc.beginYear(year)

	overrides, warnings := s.applier.Apply(effects)
	for _, w := range warnings {
		s.sc.warn(PhasePolicy, "%s", w)
	}

	d := &draft{
		year:       year,
		elapsed:    year - s.world.StartYear,
		prevGlobal: s.world.LatestGlobal(),
		global:     &world.GlobalSlice{Year: year, SeaLevel: climate.SeaLevelAt(s.seaLevel, year)},
		overrides:  overrides,
	}
	for _, code := range world.AllRegions() {
		prev := s.world.Region(code).Latest()
		next := prev.Clone()
		next.Year = year
		next.Events = nil
		d.prev[code] = prev
		d.next[code] = next
	}

	phases := []func(*draft) error{
		s.updateLandUse,
		s.updateDemographics,
		s.generateEvents,
		s.updateYield,
		s.updateNeed,
		s.clearMarkets,
		s.updateHDI,
		s.updateRevenue,
	}
	for _, phase := range phases {
		if err := phase(d); err != nil {
			return nil, err
		}
	}
	s.aggregate(d)
	return d, nil
}

// verify checks the land and production identities of the draft before commit.
func (s *Simulation) verify(d *draft) error {
	for code, next := range d.next {
		if land := next.TotalCropLand(); land > next.LandArable {
			return fmt.Errorf("region %s: crop land %g exceeds arable %g", world.RegionCode(code), land, next.LandArable)
		}
		for c := range next.CropLand {
			if next.CropProduction[c] != next.CropYield[c]*next.CropLand[c] || next.CropProduction[c] < 0 {
				return fmt.Errorf("region %s: production of %s is not yield × land", world.RegionCode(code), world.Crop(c))
			}
		}
		sum := 0.0
		for _, m := range next.MethodShare {
			sum += m
		}
		if math.Abs(sum-1) > 1e-9 {
			return fmt.Errorf("region %s: method shares sum to %g", world.RegionCode(code), sum)
		}
	}
	return nil
}

// commit appends the draft to the history. Slices are immutable afterwards.
func (s *Simulation) commit(d *draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Terminate may arrive while a year is computed; its draft is dropped.
	if s.Status() == StateTerminated {
		return ErrTerminated
	}
	if err := s.world.CommitYear(d.next, d.global); err != nil {
		return err
	}
	s.lastWarnings = s.sc.Warnings()
	return nil
}

// Terminate stops the simulation. Every later operation returns ErrTerminated.
func (s *Simulation) Terminate() {
	if State(s.state.Swap(int32(StateTerminated))) != StateTerminated && s.sc != nil {
		s.sc.Logger.Info("simulation terminated by caller", "year", s.Year())
	}
}

// loadedLocked reports ErrNotReady until the start year is committed. A
// simulation terminated before Initialize never gets there. Callers hold mu.
func (s *Simulation) loadedLocked() error {
	if s.world == nil || s.world.LatestGlobal() == nil {
		return ErrNotReady
	}
	return nil
}

// Year returns the current (latest committed) year, or 0 before Initialize.
func (s *Simulation) Year() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loadedLocked() != nil {
		return 0
	}
	return s.world.Year
}

// StartYear returns the first simulated year, or 0 before Initialize.
func (s *Simulation) StartYear() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loadedLocked() != nil {
		return 0
	}
	return s.world.StartYear
}

// Seed returns the effective game seed.
func (s *Simulation) Seed() int64 {
	if s.sc == nil {
		return s.opts.Seed
	}
	return s.sc.Entropy.Seed()
}

// Fingerprint identifies the game seed for history stores.
func (s *Simulation) Fingerprint() string {
	if s.sc == nil {
		return ""
	}
	return s.sc.Entropy.Fingerprint()
}

// Variant returns the projection variant drawn at Initialize.
func (s *Simulation) Variant() int {
	return s.variant
}

// Warnings returns the warnings of the latest committed year.
func (s *Simulation) Warnings() []Warning {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Warning(nil), s.lastWarnings...)
}

// RegionSnapshot returns a read-only copy of a region and its history.
func (s *Simulation) RegionSnapshot(code world.RegionCode) (world.RegionView, error) {
	if !code.Valid() {
		return world.RegionView{}, fmt.Errorf("%w: %d", ErrUnknownRegion, int(code))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.loadedLocked(); err != nil {
		return world.RegionView{}, err
	}
	return s.world.Region(code).View(), nil
}

// YearSlices returns copies of every region's slice and the global slice of one
// committed year.
func (s *Simulation) YearSlices(year int) ([world.NumRegions]world.YearSlice, world.GlobalSlice, error) {
	var out [world.NumRegions]world.YearSlice
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.loadedLocked(); err != nil {
		return out, world.GlobalSlice{}, err
	}

	for _, code := range world.AllRegions() {
		slice, err := s.world.Region(code).Slice(year)
		if err != nil {
			return out, world.GlobalSlice{}, err
		}
		out[code] = *slice.Clone()
	}
	g, err := s.world.Global(year)
	if err != nil {
		return out, world.GlobalSlice{}, err
	}
	return out, *g, nil
}

// FamineReached reports whether the world undernourished fraction of the latest
// year is at or above the famine threshold. Ending the game is left to the caller.
func (s *Simulation) FamineReached() bool {
	if s.opts.FamineThreshold <= 0 {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loadedLocked() != nil {
		return false
	}
	return s.world.LatestGlobal().Undernourished >= s.opts.FamineThreshold
}
