package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/famine-sim/internal/policy"
)

// Observer is notified after a year has been committed. Observers run on the
// runner's goroutine between years, never while a year is computed.
type Observer interface {
	YearCommitted(ctx context.Context, sim *Simulation, year int) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, sim *Simulation, year int) error

func (f ObserverFunc) YearCommitted(ctx context.Context, sim *Simulation, year int) error {
	return f(ctx, sim, year)
}

// EffectSource supplies the enacted policy effects for a year.
type EffectSource func(year int) []policy.Effect

// Runner advances a simulation automatically.
type Runner struct {
	Sim      *Simulation
	Interval time.Duration // Pause between years; 0 runs flat out
	Years    int           // Years to advance; 0 runs until stopped

	// StopOnFamine ends the run once the famine threshold is reached.
	StopOnFamine bool

	Effects EffectSource // nil means no policies

	observers []Observer
	logger    *slog.Logger
}

// NewRunner creates a runner with default settings.
func NewRunner(sim *Simulation, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		Sim:      sim,
		Interval: time.Second,
		logger:   logger.With("component", "runner"),
	}
}

// Observe registers an observer. Observers are called in registration order.
func (r *Runner) Observe(o Observer) {
	r.observers = append(r.observers, o)
}

// Run publishes the current year to the observers and then advances one year per
// interval. It blocks until the context is cancelled, the year budget is spent,
// the famine threshold stops the run, or a year fails.
func (r *Runner) Run(ctx context.Context) error {
	start := r.Sim.Year()
	r.logger.Info("runner started", "year", start, "interval", r.Interval, "years", r.Years)

	if err := r.notify(ctx, start); err != nil {
		return err
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for advanced := 0; r.Years == 0 || advanced < r.Years; advanced++ {
		select {
		case <-ctx.Done():
			r.logger.Info("runner stopped", "year", r.Sim.Year())
			return nil
		case <-timer.C:
		}
		begin := time.Now()

		var effects []policy.Effect
		if r.Effects != nil {
			effects = r.Effects(r.Sim.Year() + 1)
		}
		year, err := r.Sim.AdvanceYear(ctx, effects)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			r.logger.Info("runner stopped", "year", r.Sim.Year())
			return nil
		}
		if err != nil {
			return err
		}
		if err := r.notify(ctx, year); err != nil {
			return err
		}

		if r.StopOnFamine && r.Sim.FamineReached() {
			r.logger.Warn("famine threshold reached", "year", year)
			return nil
		}

		// Sleep for the remainder of the interval.
		timer.Reset(max(r.Interval-time.Since(begin), 0))
	}

	r.logger.Info("runner finished", "year", r.Sim.Year())
	return nil
}

func (r *Runner) notify(ctx context.Context, year int) error {
	for _, o := range r.observers {
		if err := o.YearCommitted(ctx, r.Sim, year); err != nil {
			return fmt.Errorf("observer at year %d: %w", year, err)
		}
	}
	return nil
}
