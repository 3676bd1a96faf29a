package climate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/famine-sim/internal/world"
)

func TestSeaLevelAt_Interpolates(t *testing.T) {
	curve := []SeaLevelPoint{{Year: 2000, Meters: 0.1}, {Year: 1980, Meters: 0}, {Year: 2020, Meters: 0.3}}

	assert.InDelta(t, 0.0, SeaLevelAt(curve, 1980), 1e-12)
	assert.InDelta(t, 0.05, SeaLevelAt(curve, 1990), 1e-12)
	assert.InDelta(t, 0.2, SeaLevelAt(curve, 2010), 1e-12)
	// Extrapolated with the last segment's slope.
	assert.InDelta(t, 0.4, SeaLevelAt(curve, 2030), 1e-12)
	assert.Equal(t, 0.0, SeaLevelAt(nil, 2050))
}

func TestCellForYear_StartYearIsBaseline(t *testing.T) {
	f := NewField(3, 1)
	base := world.CellClimate{Precipitation: 700, DayTemp: 20, NightTemp: 9}
	c := f.CellForYear(world.RegionEurope, world.HexCoord{Q: 1, R: -1}, base, Trend{WarmingPerYear: 0.03}, 0)

	assert.Equal(t, base.Precipitation, c.Precipitation)
	assert.Equal(t, base.DayTemp, c.DayTemp)
	assert.InDelta(t, world.FrostFreeDays(base.NightTemp), c.FrostFreeDays, 1e-9)
}

func TestCellForYear_Deterministic(t *testing.T) {
	base := world.CellClimate{Precipitation: 700, DayTemp: 20, NightTemp: 9}
	trend := Trend{WarmingPerYear: 0.02, PrecipDriftPerYear: -0.001}
	a := NewField(3, 1).CellForYear(world.RegionEurope, world.HexCoord{Q: 2}, base, trend, 15)
	b := NewField(3, 1).CellForYear(world.RegionEurope, world.HexCoord{Q: 2}, base, trend, 15)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, a.Precipitation, 0.0)
}

func TestYieldFactor(t *testing.T) {
	base := world.CellClimate{Precipitation: 600, DayTemp: 18, NightTemp: 8, FrostFreeDays: 200}
	assert.InDelta(t, 1.0, YieldFactor(world.CropWheat, base, base), 1e-12)

	hot := base
	hot.DayTemp = 35
	assert.Less(t, YieldFactor(world.CropWheat, base, hot), 1.0)
	assert.GreaterOrEqual(t, YieldFactor(world.CropWheat, base, hot), 0.0)
}

func TestSeaLevelFactor(t *testing.T) {
	assert.Equal(t, 1.0, SeaLevelFactor(false, 2, 0.5))
	assert.Equal(t, 0.75, SeaLevelFactor(true, 0.5, 0.5))
	assert.Equal(t, 0.0, SeaLevelFactor(true, 5, 0.5))
}
