package provider

import (
	"fmt"

	"github.com/talgya/famine-sim/internal/climate"
	"github.com/talgya/famine-sim/internal/world"
)

// Synthetic is the built-in dataset: a coarse 2014 picture of the world food
// economy with three projection variants (low, medium, high). Per-capita need is
// calibrated so world production slightly exceeds world need.
type Synthetic struct {
	records []RegionRecord
}

// SyntheticReferenceYear is the year the built-in statistics describe.
const SyntheticReferenceYear = 2014

// syntheticBaseYield is the world-average yield per crop, tonnes/km².
var syntheticBaseYield = [world.NumCrops]float64{320, 460, 560, 260, 1900, 1100, 210, 650}

// syntheticCoverage is world production over world need at the reference year.
const syntheticCoverage = 1.02

type regionSeed struct {
	pop, medianAge              float64 // millions, years
	births, deaths, migration   float64 // per 1000
	undernourished              float64
	landTotal, landArable       float64 // 1000 km²
	penalty, tax                float64
	infantMortality, lifeExpect float64
	climate                     world.CellClimate
	yieldMul                    float64
	dietIntensity               float64
	cropMix                     [world.NumCrops]float64
	diet                        [world.NumCrops]float64
	methods                     [world.NumMethods]float64
	growth                      float64 // medium variant
	warmingMul                  float64
	precipDrift                 float64 // medium variant
}

// syntheticSeeds holds crop mix and diet in crop order.
var syntheticSeeds = [world.NumRegions]regionSeed{
	world.RegionUSA: {pop: 319, medianAge: 37.6, births: 12.5, deaths: 8.2, migration: 3.2, undernourished: 0.02,
		landTotal: 9147, landArable: 1550, penalty: 0.10, tax: 0.30, infantMortality: 6.0, lifeExpect: 78.8,
		climate: world.CellClimate{Precipitation: 760, DayTemp: 20, NightTemp: 7}, yieldMul: 1.35, dietIntensity: 1.3,
		cropMix: [world.NumCrops]float64{.17, .01, .33, .30, .02, .02, .05, .10},
		diet:    [world.NumCrops]float64{.22, .03, .15, .06, .22, .13, .05, .14},
		methods: [world.NumMethods]float64{.85, .01, .14}, growth: .008, warmingMul: 1.0, precipDrift: .0005},
	world.RegionArctic: {pop: 36, medianAge: 40.5, births: 10.9, deaths: 7.5, migration: 6.5, undernourished: 0.01,
		landTotal: 11500, landArable: 460, penalty: 0.15, tax: 0.28, infantMortality: 4.9, lifeExpect: 81.5,
		climate: world.CellClimate{Precipitation: 500, DayTemp: 12, NightTemp: 0}, yieldMul: 1.1, dietIntensity: 1.25,
		cropMix: [world.NumCrops]float64{.449, .001, .06, .08, .02, .01, .25, .13},
		diet:    [world.NumCrops]float64{.25, .03, .10, .05, .25, .15, .05, .12},
		methods: [world.NumMethods]float64{.88, .02, .10}, growth: .009, warmingMul: 2.0, precipDrift: .001},
	world.RegionMiddleAmerica: {pop: 210, medianAge: 27, births: 19, deaths: 5.2, migration: -2.5, undernourished: 0.08,
		landTotal: 2500, landArable: 300, penalty: 0.35, tax: 0.18, infantMortality: 17, lifeExpect: 75.5,
		climate: world.CellClimate{Precipitation: 1100, DayTemp: 26, NightTemp: 15}, yieldMul: 0.85, dietIntensity: 1.0,
		cropMix: [world.NumCrops]float64{.10, .03, .55, .02, .08, .12, .03, .07},
		diet:    [world.NumCrops]float64{.12, .05, .35, .03, .18, .15, .04, .08},
		methods: [world.NumMethods]float64{.92, .01, .07}, growth: .013, warmingMul: 1.0, precipDrift: -.002},
	world.RegionSouthAmerica: {pop: 410, medianAge: 29, births: 16.5, deaths: 6.2, migration: -0.3, undernourished: 0.06,
		landTotal: 17800, landArable: 1250, penalty: 0.30, tax: 0.22, infantMortality: 16, lifeExpect: 74.5,
		climate: world.CellClimate{Precipitation: 1600, DayTemp: 25, NightTemp: 15}, yieldMul: 0.95, dietIntensity: 1.0,
		cropMix: [world.NumCrops]float64{.08, .05, .25, .45, .03, .05, .03, .06},
		diet:    [world.NumCrops]float64{.15, .10, .20, .05, .18, .17, .05, .10},
		methods: [world.NumMethods]float64{.80, .01, .19}, growth: .011, warmingMul: 1.0, precipDrift: -.001},
	world.RegionEurope: {pop: 740, medianAge: 41.5, births: 10.3, deaths: 10.1, migration: 1.6, undernourished: 0.02,
		landTotal: 5900, landArable: 1100, penalty: 0.12, tax: 0.35, infantMortality: 4, lifeExpect: 80.5,
		climate: world.CellClimate{Precipitation: 700, DayTemp: 15, NightTemp: 6}, yieldMul: 1.25, dietIntensity: 1.2,
		cropMix: [world.NumCrops]float64{.35, .01, .15, .05, .05, .06, .15, .18},
		diet:    [world.NumCrops]float64{.27, .03, .08, .04, .25, .15, .06, .12},
		methods: [world.NumMethods]float64{.93, .06, .01}, growth: .002, warmingMul: 1.2, precipDrift: -.0005},
	world.RegionMiddleEast: {pop: 560, medianAge: 25, births: 24, deaths: 5.5, migration: 0.5, undernourished: 0.10,
		landTotal: 11400, landArable: 700, penalty: 0.45, tax: 0.12, infantMortality: 22, lifeExpect: 72.5,
		climate: world.CellClimate{Precipitation: 250, DayTemp: 27, NightTemp: 14}, yieldMul: 0.75, dietIntensity: 0.95,
		cropMix: [world.NumCrops]float64{.50, .05, .10, .01, .12, .12, .05, .05},
		diet:    [world.NumCrops]float64{.40, .10, .08, .02, .20, .12, .05, .03},
		methods: [world.NumMethods]float64{.97, .02, .01}, growth: .018, warmingMul: 1.1, precipDrift: -.003},
	world.RegionSubSaharan: {pop: 960, medianAge: 18.5, births: 37, deaths: 9.5, migration: -0.5, undernourished: 0.23,
		landTotal: 24200, landArable: 2000, penalty: 0.70, tax: 0.10, infantMortality: 58, lifeExpect: 58.5,
		climate: world.CellClimate{Precipitation: 1000, DayTemp: 27, NightTemp: 17}, yieldMul: 0.45, dietIntensity: 0.8,
		cropMix: [world.NumCrops]float64{.05, .12, .35, .03, .12, .10, .10, .13},
		diet:    [world.NumCrops]float64{.12, .15, .30, .02, .18, .12, .06, .05},
		methods: [world.NumMethods]float64{.97, .02, .01}, growth: .026, warmingMul: 1.0, precipDrift: -.002},
	world.RegionRussia: {pop: 175, medianAge: 38.5, births: 12.5, deaths: 13.0, migration: 1.5, undernourished: 0.03,
		landTotal: 17100, landArable: 1250, penalty: 0.30, tax: 0.20, infantMortality: 8, lifeExpect: 70.5,
		climate: world.CellClimate{Precipitation: 500, DayTemp: 10, NightTemp: -2}, yieldMul: 0.75, dietIntensity: 1.05,
		cropMix: [world.NumCrops]float64{.50, .01, .07, .07, .03, .02, .18, .12},
		diet:    [world.NumCrops]float64{.35, .04, .06, .03, .22, .10, .08, .12},
		methods: [world.NumMethods]float64{.97, .02, .01}, growth: .000, warmingMul: 1.6, precipDrift: .001},
	world.RegionCentralAsia: {pop: 68, medianAge: 26, births: 22.5, deaths: 6.8, migration: -2, undernourished: 0.08,
		landTotal: 4000, landArable: 400, penalty: 0.45, tax: 0.15, infantMortality: 27, lifeExpect: 69.5,
		climate: world.CellClimate{Precipitation: 300, DayTemp: 16, NightTemp: 3}, yieldMul: 0.7, dietIntensity: 0.95,
		cropMix: [world.NumCrops]float64{.55, .03, .05, .01, .10, .08, .08, .10},
		diet:    [world.NumCrops]float64{.40, .05, .06, .02, .22, .12, .06, .07},
		methods: [world.NumMethods]float64{.98, .01, .01}, growth: .013, warmingMul: 1.3, precipDrift: -.002},
	world.RegionSouthAsia: {pop: 1750, medianAge: 25.5, births: 21.5, deaths: 7.3, migration: -0.8, undernourished: 0.17,
		landTotal: 4800, landArable: 2000, penalty: 0.55, tax: 0.12, infantMortality: 42, lifeExpect: 67.5,
		climate: world.CellClimate{Precipitation: 1100, DayTemp: 28, NightTemp: 18}, yieldMul: 0.65, dietIntensity: 0.85,
		cropMix: [world.NumCrops]float64{.35, .40, .07, .04, .06, .04, .03, .01},
		diet:    [world.NumCrops]float64{.30, .40, .04, .03, .12, .06, .04, .01},
		methods: [world.NumMethods]float64{.93, .01, .06}, growth: .014, warmingMul: 1.0, precipDrift: .001},
	world.RegionEastAsia: {pop: 2250, medianAge: 35.5, births: 12.5, deaths: 7.4, migration: -0.2, undernourished: 0.10,
		landTotal: 16000, landArable: 1800, penalty: 0.25, tax: 0.20, infantMortality: 11, lifeExpect: 75.5,
		climate: world.CellClimate{Precipitation: 1200, DayTemp: 22, NightTemp: 13}, yieldMul: 1.0, dietIntensity: 1.0,
		cropMix: [world.NumCrops]float64{.18, .35, .25, .05, .08, .05, .03, .01},
		diet:    [world.NumCrops]float64{.15, .40, .10, .08, .15, .08, .04, .02},
		methods: [world.NumMethods]float64{.90, .02, .08}, growth: .007, warmingMul: 1.0, precipDrift: .0005},
	world.RegionOceania: {pop: 38, medianAge: 33, births: 13.8, deaths: 6.8, migration: 6.0, undernourished: 0.05,
		landTotal: 8500, landArable: 480, penalty: 0.15, tax: 0.28, infantMortality: 5, lifeExpect: 82,
		climate: world.CellClimate{Precipitation: 550, DayTemp: 22, NightTemp: 11}, yieldMul: 1.0, dietIntensity: 1.25,
		cropMix: [world.NumCrops]float64{.45, .02, .03, .01, .03, .04, .12, .30},
		diet:    [world.NumCrops]float64{.25, .04, .06, .03, .24, .16, .06, .16},
		methods: [world.NumMethods]float64{.90, .03, .07}, growth: .012, warmingMul: 1.0, precipDrift: -.002},
}

// syntheticVariants scales growth, warming and drying for the low, medium and
// high projections.
var syntheticVariants = []struct {
	growthDelta float64
	warming     float64 // °C per year before the regional multiplier
	driftMul    float64
}{
	{growthDelta: -0.004, warming: 0.010, driftMul: 0.5},
	{growthDelta: 0, warming: 0.020, driftMul: 1},
	{growthDelta: 0.004, warming: 0.035, driftMul: 1.5},
}

// syntheticSeaLevel is meters above the 1981 level per variant.
var syntheticSeaLevel = [][]climate.SeaLevelPoint{
	{{Year: 1981, Meters: 0}, {Year: 2000, Meters: 0.05}, {Year: 2020, Meters: 0.12}, {Year: 2050, Meters: 0.25}, {Year: 2100, Meters: 0.45}},
	{{Year: 1981, Meters: 0}, {Year: 2000, Meters: 0.06}, {Year: 2020, Meters: 0.15}, {Year: 2050, Meters: 0.35}, {Year: 2100, Meters: 0.75}},
	{{Year: 1981, Meters: 0}, {Year: 2000, Meters: 0.08}, {Year: 2020, Meters: 0.20}, {Year: 2050, Meters: 0.50}, {Year: 2100, Meters: 1.20}},
}

// NewSynthetic builds the built-in dataset.
func NewSynthetic() *Synthetic {
	records := make([]RegionRecord, world.NumRegions)

	// Production and diet-weighted population per crop for the need calibration.
	var production, weighted [world.NumCrops]float64

	for _, code := range world.AllRegions() {
		s := syntheticSeeds[code]
		pop := s.pop * 1e6
		cultivated := s.landArable * 1e3 * 0.8

		r := RegionRecord{
			Code:            code,
			Population:      pop,
			MedianAge:       s.medianAge,
			Births:          pop * s.births / 1000,
			Mortality:       pop * s.deaths / 1000,
			Migration:       pop * s.migration / 1000,
			Undernourished:  s.undernourished,
			LandTotal:       s.landTotal * 1e3,
			LandArable:      s.landArable * 1e3,
			MethodShare:     s.methods,
			Climate:         s.climate,
			TradePenalty:    s.penalty,
			TaxRate:         s.tax,
			InfantMortality: s.infantMortality,
			LifeExpectancy:  s.lifeExpect,
		}
		r.Climate.FrostFreeDays = world.FrostFreeDays(s.climate.NightTemp)

		mix := normalize(s.cropMix)
		for _, c := range world.AllCrops() {
			r.CropLand[c] = cultivated * mix[c]
			r.CropYield[c] = syntheticBaseYield[c] * s.yieldMul
			production[c] += r.CropLand[c] * r.CropYield[c]
			weighted[c] += pop * s.diet[c] * s.dietIntensity
		}
		records[code] = r
	}

	for _, code := range world.AllRegions() {
		s := syntheticSeeds[code]
		for _, c := range world.AllCrops() {
			if weighted[c] == 0 {
				continue
			}
			k := production[c] / (weighted[c] * syntheticCoverage)
			records[code].NeedPerCapita[c] = s.diet[c] * s.dietIntensity * k
		}
	}

	return &Synthetic{records: records}
}

func (p *Synthetic) ReferenceYear() int { return SyntheticReferenceYear }
func (p *Synthetic) Variants() int      { return len(syntheticVariants) }

// Snapshot returns a copy of the reference-year records.
func (p *Synthetic) Snapshot() ([]RegionRecord, error) {
	return append([]RegionRecord(nil), p.records...), nil
}

func (p *Synthetic) Projection(code world.RegionCode, variant int) (Projection, error) {
	if !code.Valid() || variant < 0 || variant >= len(syntheticVariants) {
		return Projection{}, fmt.Errorf("%w: no projection for region %s variant %d", ErrInvalidData, code, variant)
	}
	s := syntheticSeeds[code]
	v := syntheticVariants[variant]
	return Projection{
		GrowthRate:         s.growth + v.growthDelta,
		BirthRate:          s.births / 1000,
		MortalityRate:      s.deaths / 1000,
		MigrationRate:      s.migration / 1000,
		MedianAgeDrift:     0.05 + 0.1*min(s.medianAge/40, 1),
		WarmingPerYear:     v.warming * s.warmingMul,
		PrecipDriftPerYear: s.precipDrift * v.driftMul,
	}, nil
}

func (p *Synthetic) SeaLevelCurve(variant int) ([]climate.SeaLevelPoint, error) {
	if variant < 0 || variant >= len(syntheticSeaLevel) {
		return nil, fmt.Errorf("%w: no sea-level curve for variant %d", ErrInvalidData, variant)
	}
	return append([]climate.SeaLevelPoint(nil), syntheticSeaLevel[variant]...), nil
}

func normalize(v [world.NumCrops]float64) [world.NumCrops]float64 {
	total := 0.0
	for _, x := range v {
		total += x
	}
	if total <= 0 {
		return v
	}
	for i := range v {
		v[i] /= total
	}
	return v
}
