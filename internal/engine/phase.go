package engine

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/famine-sim/internal/world"
)

// Phase names, in pipeline order.
const (
	PhasePolicy       = "policy"
	PhaseLandUse      = "land_use"
	PhaseDemographics = "demographics"
	PhaseEvents       = "events"
	PhaseYield        = "yield"
	PhaseNeed         = "need"
	PhaseMarket       = "market"
	PhaseHDI          = "hdi"
	PhaseRevenue      = "revenue"
)

// regionFunc computes one region's part of a phase. It may read the previous
// year and write only its own region's draft slice.
type regionFunc func(code world.RegionCode, log *regionLog) error

// forEachRegion runs fn for every region on at most Workers goroutines and waits
// for all of them: each phase is a barrier. Warnings are merged in region order
// after the barrier so parallelism never changes their order.
func (sc *SimContext) forEachRegion(phase string, fn regionFunc) error {
	var logs [world.NumRegions]regionLog

	var g errgroup.Group
	g.SetLimit(sc.Workers)
	for _, code := range world.AllRegions() {
		g.Go(func() error {
			if err := fn(code, &logs[code]); err != nil {
				return fmt.Errorf("%s %s: %w", phase, code, err)
			}
			return nil
		})
	}
	err := g.Wait()

	sc.merge(phase, &logs)
	return err
}
