package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/famine-sim/internal/config"
	"github.com/talgya/famine-sim/internal/entropy"
	"github.com/talgya/famine-sim/internal/world"
)

// Warning is a recoverable anomaly recorded while computing a year.
type Warning struct {
	Year    int    `json:"year"`
	Phase   string `json:"phase"`
	Region  string `json:"region,omitempty"` // Empty for world-level warnings
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Region == "" {
		return fmt.Sprintf("%d %s: %s", w.Year, w.Phase, w.Message)
	}
	return fmt.Sprintf("%d %s %s: %s", w.Year, w.Phase, w.Region, w.Message)
}

// SimContext is created at Initialize and handed to every phase. It replaces
// process-wide logger and random state, so independent simulations can run side
// by side.
type SimContext struct {
	Logger  *slog.Logger
	Entropy *entropy.Source
	Tuning  config.Tuning
	Workers int

	year     int
	warnings []Warning
}

func newSimContext(logger *slog.Logger, src *entropy.Source, tuning config.Tuning, workers int) *SimContext {
	return &SimContext{
		Logger:  logger.With("component", "engine"),
		Entropy: src,
		Tuning:  tuning,
		Workers: max(workers, 1),
	}
}

// beginYear resets the warning list for a new year.
func (sc *SimContext) beginYear(year int) {
	sc.year = year
	sc.warnings = nil
}

// Warnings returns the warnings of the year being computed or last computed.
func (sc *SimContext) Warnings() []Warning {
	return append([]Warning(nil), sc.warnings...)
}

// warn records a world-level warning. Only called between barriers.
func (sc *SimContext) warn(phase, format string, args ...any) {
	sc.record(Warning{Year: sc.year, Phase: phase, Message: fmt.Sprintf(format, args...)})
}

func (sc *SimContext) record(w Warning) {
	sc.warnings = append(sc.warnings, w)
	sc.Logger.Warn("simulation warning", "year", w.Year, "phase", w.Phase, "region", w.Region, "message", w.Message)
}

// regionLog collects one region worker's warnings during a phase.
type regionLog struct {
	msgs []string
}

func (l *regionLog) warnf(format string, args ...any) {
	l.msgs = append(l.msgs, fmt.Sprintf(format, args...))
}

// nonNegative clamps a computed quantity to zero, recording a warning when it was negative.
func (l *regionLog) nonNegative(name string, v float64) float64 {
	if v < 0 {
		l.warnf("%s %g clamped to 0", name, v)
		return 0
	}
	return v
}

// merge appends the workers' warnings in region order.
func (sc *SimContext) merge(phase string, logs *[world.NumRegions]regionLog) {
	for code := range logs {
		for _, msg := range logs[code].msgs {
			sc.record(Warning{Year: sc.year, Phase: phase, Region: world.RegionCode(code).String(), Message: msg})
		}
	}
}
