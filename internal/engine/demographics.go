package engine

import (
	"math"

	"github.com/talgya/famine-sim/internal/climate"
	"github.com/talgya/famine-sim/internal/world"
)

// updateDemographics advances population from the projection variant drawn at
// Initialize, and cell climate from the baseline, the variant's trend and the
// seeded anomaly field. No policy reaches these fields.
func (s *Simulation) updateDemographics(d *draft) error {
	return s.sc.forEachRegion(PhaseDemographics, func(code world.RegionCode, log *regionLog) error {
		st := &s.static[code]
		next := d.next[code]
		proj := st.projection
		years := float64(d.elapsed)

		pop := st.startPopulation * math.Pow(1+proj.GrowthRate, years)
		next.Population = log.nonNegative("population", pop)
		next.Births = log.nonNegative("births", next.Population*proj.BirthRate)
		next.Mortality = log.nonNegative("mortality", next.Population*proj.MortalityRate)
		next.Migration = next.Population * proj.MigrationRate
		next.MedianAge = max(st.startMedianAge+proj.MedianAgeDrift*years, 0)

		next.CellClimate = s.cellClimate(code, d.elapsed)
		next.Climate = climate.Mean(next.CellClimate)
		return nil
	})
}

// cellClimate computes every arable cell's climate for a year.
func (s *Simulation) cellClimate(code world.RegionCode, elapsed int) []world.CellClimate {
	st := &s.static[code]
	cells := make([]world.CellClimate, len(st.cells))
	for i, cell := range st.cells {
		cells[i] = s.field.CellForYear(code, cell.Coord, cell.Base, st.projection.Trend(), elapsed)
	}
	return cells
}
