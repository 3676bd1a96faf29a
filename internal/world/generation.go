// Climate grid generation using layered simplex noise.
// Generates elevation, rainfall, and temperature offsets per cell around a region's
// mean climate, then derives arable and coastal cells.
package world

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GridConfig holds grid generation parameters.
type GridConfig struct {
	Radius      int     // Hex grid radius (3 → 37 cells)
	Seed        int64   // Game seed; combined with the region ordinal
	WaterLevel  float64 // Elevation below which a cell is water (0.0–1.0)
	MountainLvl float64 // Elevation above which a cell is not arable (0.0–1.0)
}

// DefaultGridConfig returns the grid used for every region.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Radius:      3,
		WaterLevel:  0.22,
		MountainLvl: 0.80,
	}
}

// GenerateGrid creates the climate grid of one region around its mean climate.
// The result is a pure function of (cfg, region, mean).
func GenerateGrid(cfg GridConfig, region RegionCode, mean CellClimate) *Grid {
	seed := cfg.Seed*int64(NumRegions+1) + int64(region) + 1

	// Three noise generators for independent layers.
	elevNoise := opensimplex.NewNormalized(seed)
	rainNoise := opensimplex.NewNormalized(seed + 1)
	tempNoise := opensimplex.NewNormalized(seed + 2)

	g := NewGrid(cfg.Radius)

	for q := -cfg.Radius; q <= cfg.Radius; q++ {
		for r := -cfg.Radius; r <= cfg.Radius; r++ {
			coord := HexCoord{Q: q, R: r}
			if !g.InBounds(coord) {
				continue
			}

			// Hex axial → cartesian: x = q + r*0.5, y = r * sqrt(3)/2
			x := float64(q) + float64(r)*0.5
			y := float64(r) * math.Sqrt(3.0) / 2.0

			elev := octaveNoise(elevNoise, x, y, 3, 0.18, 0.5)
			rain := octaveNoise(rainNoise, x, y, 2, 0.15, 0.5)
			temp := octaveNoise(tempNoise, x, y, 2, 0.12, 0.5)

			// Edge falloff: the rim of every region borders water.
			distFromCenter := math.Sqrt(x*x+y*y) / float64(cfg.Radius+1)
			edgeFalloff := 1.0 - math.Pow(distFromCenter, 4)
			if edgeFalloff < 0 {
				edgeFalloff = 0
			}
			elev *= edgeFalloff

			cell := &Cell{
				Coord:     coord,
				Elevation: elev,
				Arable:    elev >= cfg.WaterLevel && elev < cfg.MountainLvl,
			}
			if cell.Arable {
				// Higher cells are cooler; rainfall varies ±30% around the mean.
				dayTemp := mean.DayTemp + (temp-0.5)*4 - (elev-0.5)*6
				nightTemp := mean.NightTemp + (temp-0.5)*4 - (elev-0.5)*6
				cell.Base = CellClimate{
					Precipitation: math.Max(0, mean.Precipitation*(0.7+0.6*rain)),
					DayTemp:       dayTemp,
					NightTemp:     nightTemp,
					FrostFreeDays: FrostFreeDays(nightTemp),
				}
			}
			g.Set(cell)
		}
	}

	markCoastalCells(g, cfg.WaterLevel)
	ensureArable(g, mean)
	g.Arable()
	return g
}

// FrostFreeDays estimates the annual frost-free day count from the mean night temperature.
func FrostFreeDays(nightTemp float64) float64 {
	// Logistic curve: ~180 days at 5 °C, saturating at 365.
	return 365 / (1 + math.Exp(-(nightTemp-5)/4))
}

// markCoastalCells flags arable cells adjacent to water or the grid rim.
func markCoastalCells(g *Grid, waterLevel float64) {
	for _, c := range g.Cells {
		if !c.Arable {
			continue
		}
		for _, nc := range c.Coord.Neighbors() {
			n := g.Get(nc)
			if n == nil || n.Elevation < waterLevel {
				c.Coastal = true
				break
			}
		}
	}
}

// ensureArable guarantees at least one arable cell so every region can farm.
func ensureArable(g *Grid, mean CellClimate) {
	for _, c := range g.Cells {
		if c.Arable {
			return
		}
	}
	center := g.Get(HexCoord{})
	if center == nil {
		center = &Cell{}
	}
	center.Arable = true
	center.Base = mean
	center.Base.FrostFreeDays = FrostFreeDays(mean.NightTemp)
	g.Set(center)
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
