// Package climate projects per-cell annual climate and sea level from provider
// projections, and maps climate to crop suitability.
package climate

import (
	"math"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/famine-sim/internal/world"
)

// SeaLevelPoint is one anchor of a provider sea-level curve.
type SeaLevelPoint struct {
	Year   int     `json:"year" yaml:"year"`
	Meters float64 `json:"meters" yaml:"meters"`
}

// SeaLevelAt interpolates a curve linearly. Outside the anchors the nearest
// segment's slope is extended; an empty curve means no rise.
func SeaLevelAt(curve []SeaLevelPoint, year int) float64 {
	switch len(curve) {
	case 0:
		return 0
	case 1:
		return curve[0].Meters
	}
	pts := append([]SeaLevelPoint(nil), curve...)
	sort.Slice(pts, func(i, j int) bool { return pts[i].Year < pts[j].Year })

	i := sort.Search(len(pts), func(i int) bool { return pts[i].Year >= year })
	switch {
	case i == 0:
		i = 1
	case i == len(pts):
		i = len(pts) - 1
	}
	a, b := pts[i-1], pts[i]
	if a.Year == b.Year {
		return b.Meters
	}
	t := float64(year-a.Year) / float64(b.Year-a.Year)
	return a.Meters + t*(b.Meters-a.Meters)
}

// Trend is the long-run climate drift of a region under one projection variant.
type Trend struct {
	WarmingPerYear     float64 // °C per year
	PrecipDriftPerYear float64 // Fractional change per year
}

// Field produces interannual climate anomalies. It is seeded once per game and
// safe for concurrent reads.
type Field struct {
	temp opensimplex.Noise
	rain opensimplex.Noise

	TempAmplitude   float64 // °C
	PrecipAmplitude float64 // Fraction of baseline
}

// NewField creates the anomaly field for a game seed and projection variant.
func NewField(seed int64, variant int) *Field {
	base := seed*31 + int64(variant)*7919
	return &Field{
		temp:            opensimplex.New(base + 11),
		rain:            opensimplex.New(base + 13),
		TempAmplitude:   1.2,
		PrecipAmplitude: 0.25,
	}
}

// CellForYear derives the climate of a cell for a year elapsed years after the start.
func (f *Field) CellForYear(region world.RegionCode, coord world.HexCoord, base world.CellClimate, trend Trend, elapsed int) world.CellClimate {
	x := float64(coord.Q)*0.21 + float64(region)*17.3
	y := float64(coord.R)*0.21 + float64(region)*5.1
	z := float64(elapsed) * 0.61

	tempAnom := 0.0
	rainAnom := 0.0
	if elapsed > 0 {
		tempAnom = f.temp.Eval3(x, y, z) * f.TempAmplitude
		rainAnom = f.rain.Eval3(x, y, z) * f.PrecipAmplitude
	}

	warming := trend.WarmingPerYear * float64(elapsed)
	drift := 1 + trend.PrecipDriftPerYear*float64(elapsed)

	c := world.CellClimate{
		Precipitation: math.Max(0, base.Precipitation*drift*(1+rainAnom)),
		DayTemp:       base.DayTemp + warming + tempAnom,
		NightTemp:     base.NightTemp + warming + tempAnom,
	}
	c.FrostFreeDays = world.FrostFreeDays(c.NightTemp)
	return c
}

// Mean averages cell climates; the zero value is returned for no cells.
func Mean(cells []world.CellClimate) world.CellClimate {
	var m world.CellClimate
	if len(cells) == 0 {
		return m
	}
	for _, c := range cells {
		m.Precipitation += c.Precipitation
		m.DayTemp += c.DayTemp
		m.NightTemp += c.NightTemp
		m.FrostFreeDays += c.FrostFreeDays
	}
	n := float64(len(cells))
	m.Precipitation /= n
	m.DayTemp /= n
	m.NightTemp /= n
	m.FrostFreeDays /= n
	return m
}
