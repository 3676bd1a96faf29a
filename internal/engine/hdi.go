package engine

import (
	"math"

	"github.com/talgya/famine-sim/internal/world"
)

// updateHDI derives malnutrition from the satisfied share of need, moves infant
// mortality and life expectancy toward malnutrition-implied targets, and combines
// the three into the HDI.
func (s *Simulation) updateHDI(d *draft) error {
	t := s.sc.Tuning.HDI
	return s.sc.forEachRegion(PhaseHDI, func(code world.RegionCode, log *regionLog) error {
		prev, next := d.prev[code], d.next[code]

		sat := 1.0
		if need := next.TotalNeed(); need > 0 {
			sat = min(next.TotalDelivered()/need, 1)
		}
		deficit := 1 - sat

		next.Undernourished = deficit
		next.Malnutrition = t.MalnutritionMax * deficit

		// The start year keeps the provider's indicators.
		if prev != nil {
			trend := math.Abs(next.Malnutrition-prev.Malnutrition) / t.MalnutritionMax
			rate := min(t.AdjustRate*(1+t.TrendGain*trend), 1)

			infantTarget := t.InfantMortalityMin + (t.InfantMortalityMax-t.InfantMortalityMin)*deficit
			lifeTarget := t.LifeExpectancyMax - (t.LifeExpectancyMax-t.LifeExpectancyMin)*deficit

			next.InfantMortality = log.nonNegative("infant mortality", prev.InfantMortality+rate*(infantTarget-prev.InfantMortality))
			next.LifeExpectancy = log.nonNegative("life expectancy", prev.LifeExpectancy+rate*(lifeTarget-prev.LifeExpectancy))
		}

		next.HDI = s.hdiIndex(next.Malnutrition, next.InfantMortality, next.LifeExpectancy)
		return nil
	})
}

// hdiIndex is the weighted mean of three components normalized to 0..1.
func (s *Simulation) hdiIndex(malnutrition, infant, life float64) float64 {
	t := s.sc.Tuning.HDI
	mal := clamp01(1 - malnutrition/t.MalnutritionMax)
	inf := clamp01(1 - (infant-t.InfantMortalityMin)/(t.InfantMortalityMax-t.InfantMortalityMin))
	lif := clamp01((life - t.LifeExpectancyMin) / (t.LifeExpectancyMax - t.LifeExpectancyMin))

	weights := t.WeightMalnutrition + t.WeightInfant + t.WeightLife
	if weights <= 0 {
		return 0
	}
	return clamp01((t.WeightMalnutrition*mal + t.WeightInfant*inf + t.WeightLife*lif) / weights)
}

func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}
