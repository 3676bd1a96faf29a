// Package provider supplies the initial statistics, demographic and climate
// projections, and sea-level curves the simulation is built from. Everything a
// provider returns is read once, before the first simulated year.
package provider

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/talgya/famine-sim/internal/climate"
	"github.com/talgya/famine-sim/internal/world"
)

// ErrInvalidData is returned for missing or malformed provider data.
var ErrInvalidData = errors.New("invalid world data")

// Provider is the source of world data for one reference year.
type Provider interface {
	ReferenceYear() int
	// Variants is the number of projection variants; one is drawn per game.
	Variants() int
	Snapshot() ([]RegionRecord, error)
	Projection(code world.RegionCode, variant int) (Projection, error)
	SeaLevelCurve(variant int) ([]climate.SeaLevelPoint, error)
}

// RegionRecord is the reference-year statistics of one region.
type RegionRecord struct {
	Code world.RegionCode `json:"code"`

	Population     float64 `json:"population" validate:"gt=0"`
	MedianAge      float64 `json:"median_age" validate:"gt=0"`
	Births         float64 `json:"births" validate:"gte=0"`
	Mortality      float64 `json:"mortality" validate:"gte=0"`
	Migration      float64 `json:"migration"` // Net, may be negative
	Undernourished float64 `json:"undernourished" validate:"gte=0,lte=1"`

	LandTotal  float64 `json:"land_total" validate:"gt=0"`
	LandArable float64 `json:"land_arable" validate:"gt=0,ltefield=LandTotal"`

	CropYield     [world.NumCrops]float64   `json:"crop_yield" validate:"dive,gte=0"`
	CropLand      [world.NumCrops]float64   `json:"crop_land" validate:"dive,gte=0"`
	NeedPerCapita [world.NumCrops]float64   `json:"need_per_capita" validate:"dive,gte=0"`
	MethodShare   [world.NumMethods]float64 `json:"method_share" validate:"dive,gte=0,lte=1"`

	Climate world.CellClimate `json:"climate"` // Regional mean baseline

	TradePenalty    float64 `json:"trade_penalty" validate:"gte=0,lte=1"`
	TaxRate         float64 `json:"tax_rate" validate:"gte=0,lte=1"`
	InfantMortality float64 `json:"infant_mortality" validate:"gte=0,lte=1000"`
	LifeExpectancy  float64 `json:"life_expectancy" validate:"gt=0"`
}

// Projection is one variant of a region's demographic and climate outlook.
type Projection struct {
	GrowthRate         float64 `json:"growth_rate" yaml:"growth_rate"`       // Population, fraction per year
	BirthRate          float64 `json:"birth_rate" yaml:"birth_rate"`         // Births per person per year
	MortalityRate      float64 `json:"mortality_rate" yaml:"mortality_rate"` // Deaths per person per year
	MigrationRate      float64 `json:"migration_rate" yaml:"migration_rate"` // Net migrants per person per year
	MedianAgeDrift     float64 `json:"median_age_drift" yaml:"median_age_drift"`
	WarmingPerYear     float64 `json:"warming_per_year" yaml:"warming_per_year"`
	PrecipDriftPerYear float64 `json:"precip_drift_per_year" yaml:"precip_drift_per_year"`
}

// Trend returns the climate part of the projection.
func (p Projection) Trend() climate.Trend {
	return climate.Trend{WarmingPerYear: p.WarmingPerYear, PrecipDriftPerYear: p.PrecipDriftPerYear}
}

// Validate checks a snapshot: one record per region, non-negative quantities,
// crop land within arable land and method shares summing to one.
func Validate(records []RegionRecord) error {
	if len(records) != world.NumRegions {
		return fmt.Errorf("%w: %d region records, want %d", ErrInvalidData, len(records), world.NumRegions)
	}

	v := validator.New()
	var seen [world.NumRegions]bool
	for i := range records {
		r := &records[i]
		if !r.Code.Valid() {
			return fmt.Errorf("%w: record %d has invalid region code %d", ErrInvalidData, i, r.Code)
		}
		if seen[r.Code] {
			return fmt.Errorf("%w: duplicate region %s", ErrInvalidData, r.Code)
		}
		seen[r.Code] = true

		if err := v.Struct(r); err != nil {
			return fmt.Errorf("%w: region %s: %v", ErrInvalidData, r.Code, err)
		}
		if !allFinite(r) {
			return fmt.Errorf("%w: region %s has non-finite values", ErrInvalidData, r.Code)
		}

		land := 0.0
		for _, l := range r.CropLand {
			land += l
		}
		if land > r.LandArable*(1+1e-9) {
			return fmt.Errorf("%w: region %s crop land %.0f exceeds arable %.0f", ErrInvalidData, r.Code, land, r.LandArable)
		}

		share := 0.0
		for _, s := range r.MethodShare {
			share += s
		}
		if math.Abs(share-1) > 1e-6 {
			return fmt.Errorf("%w: region %s method shares sum to %g", ErrInvalidData, r.Code, share)
		}
	}
	return nil
}

// ValidateProjections checks that every region and variant has a projection and
// every variant has a sea-level curve.
func ValidateProjections(p Provider) error {
	if p.Variants() < 1 {
		return fmt.Errorf("%w: no projection variants", ErrInvalidData)
	}
	for variant := range p.Variants() {
		for _, code := range world.AllRegions() {
			if _, err := p.Projection(code, variant); err != nil {
				return err
			}
		}
		curve, err := p.SeaLevelCurve(variant)
		if err != nil {
			return err
		}
		if len(curve) == 0 {
			return fmt.Errorf("%w: empty sea-level curve for variant %d", ErrInvalidData, variant)
		}
	}
	return nil
}

func allFinite(r *RegionRecord) bool {
	vals := []float64{
		r.Population, r.MedianAge, r.Births, r.Mortality, r.Migration, r.Undernourished,
		r.LandTotal, r.LandArable, r.TradePenalty, r.TaxRate, r.InfantMortality, r.LifeExpectancy,
		r.Climate.Precipitation, r.Climate.DayTemp, r.Climate.NightTemp,
	}
	vals = append(vals, r.CropYield[:]...)
	vals = append(vals, r.CropLand[:]...)
	vals = append(vals, r.NeedPerCapita[:]...)
	vals = append(vals, r.MethodShare[:]...)
	for _, x := range vals {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
