package engine

import (
	"github.com/talgya/famine-sim/internal/climate"
	"github.com/talgya/famine-sim/internal/world"
)

// updateYield computes yield per crop from land, method mix, cell climate and
// this year's events, then production = yield × land.
func (s *Simulation) updateYield(d *draft) error {
	tuning := s.sc.Tuning.Yield
	return s.sc.forEachRegion(PhaseYield, func(code world.RegionCode, log *regionLog) error {
		st := &s.static[code]
		region := s.world.Region(code)
		next := d.next[code]

		methodFactor := 1.0
		if st.startMethodFactor > 0 {
			methodFactor = weightedMethodFactor(next.MethodShare) / st.startMethodFactor
		}
		events := eventFactors(next.Events, s.sc.Tuning.Events.BumperGain)
		next.CropEventFactor = events

		for _, crop := range world.AllCrops() {
			climateFactor := s.climateFactor(code, crop, next.CellClimate, d.global.SeaLevel, tuning.SeaLevelLossPerMeter)
			landFactor := diminishingReturns(next.CropLand[crop], region.BaseLand[crop], tuning.DiminishingReturns)

			y := region.BaseYield[crop] * methodFactor * climateFactor * landFactor * events[crop]
			next.CropYield[crop] = log.nonNegative("yield", y)
			next.CropProduction[crop] = next.CropYield[crop] * next.CropLand[crop]
		}
		return nil
	})
}

// climateFactor is the mean over arable cells of the crop's suitability relative
// to the cell baseline, with coastal cells losing productivity to sea-level rise.
func (s *Simulation) climateFactor(code world.RegionCode, crop world.Crop, cells []world.CellClimate, seaLevel, lossPerMeter float64) float64 {
	st := &s.static[code]
	if len(st.cells) == 0 || len(cells) != len(st.cells) {
		return 1
	}
	total := 0.0
	for i, cell := range st.cells {
		total += climate.YieldFactor(crop, cell.Base, cells[i]) * climate.SeaLevelFactor(cell.Coastal, seaLevel, lossPerMeter)
	}
	return total / float64(len(st.cells))
}

// diminishingReturns lowers yield once land grows past the reference land.
func diminishingReturns(land, reference, k float64) float64 {
	if reference <= 0 || land <= reference {
		return 1
	}
	return 1 / (1 + k*(land/reference-1))
}

func weightedMethodFactor(share [world.NumMethods]float64) float64 {
	f := 0.0
	for m, s := range share {
		f += s * world.MethodYieldFactor[m]
	}
	return f
}
