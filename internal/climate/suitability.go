package climate

import (
	"math"

	"github.com/talgya/famine-sim/internal/world"
)

// Suitability scores how well a climate suits a crop, in (0, 1].
func Suitability(crop world.Crop, c world.CellClimate) float64 {
	p := world.CropProfiles[crop]

	dt := (c.DayTemp - p.OptimalDayTemp) / p.TempTolerance
	dp := (c.Precipitation - p.OptimalPrecip) / p.PrecipTolerance
	s := math.Exp(-0.5*dt*dt) * math.Exp(-0.5*dp*dp)

	// Short seasons cut yield proportionally.
	if p.MinFrostFree > 0 && c.FrostFreeDays < p.MinFrostFree {
		s *= math.Max(0.05, c.FrostFreeDays/p.MinFrostFree)
	}
	return math.Max(s, 1e-6)
}

// YieldFactor is the yield multiplier of a cell's current climate relative to its
// baseline climate. It is 1 when the climate is unchanged and bounded to [0, 1.5].
func YieldFactor(crop world.Crop, base, current world.CellClimate) float64 {
	f := Suitability(crop, current) / Suitability(crop, base)
	return math.Min(math.Max(f, 0), 1.5)
}

// SeaLevelFactor is the productivity of a coastal cell at the given sea-level rise.
// Inland cells are unaffected.
func SeaLevelFactor(coastal bool, seaLevel, lossPerMeter float64) float64 {
	if !coastal || seaLevel <= 0 {
		return 1
	}
	return math.Max(0, 1-lossPerMeter*seaLevel)
}
