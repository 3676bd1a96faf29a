package config

import (
	"github.com/talgya/famine-sim/internal/economy"
	"github.com/talgya/famine-sim/internal/world"
)

// Tuning holds the coefficients of the yearly phases. Every formula they feed is
// a game-balance placeholder, not a forecast.
type Tuning struct {
	LandUse LandUseTuning `mapstructure:"land_use"`
	Yield   YieldTuning   `mapstructure:"yield"`
	Events  EventTuning   `mapstructure:"events"`
	Market  MarketTuning  `mapstructure:"market"`
	HDI     HDITuning     `mapstructure:"hdi"`
	Revenue RevenueTuning `mapstructure:"revenue"`
}

// LandUseTuning drives the farmer profit heuristic.
type LandUseTuning struct {
	// Elasticity is how strongly shares follow relative profit.
	Elasticity float64 `mapstructure:"elasticity" validate:"gte=0,lte=20"`
	// AdjustRate blends last year's shares toward the target, 0..1.
	AdjustRate float64 `mapstructure:"adjust_rate" validate:"gt=0,lte=1"`
	// MinShare keeps every crop that was planted from vanishing entirely.
	MinShare float64 `mapstructure:"min_share" validate:"gte=0,lt=0.1"`
}

// YieldTuning shapes the yield function.
type YieldTuning struct {
	// DiminishingReturns is the yield loss per unit of land beyond the reference land.
	DiminishingReturns float64 `mapstructure:"diminishing_returns" validate:"gte=0"`
	// SeaLevelLossPerMeter is the productivity lost by coastal cells per meter of rise.
	SeaLevelLossPerMeter float64 `mapstructure:"sea_level_loss_per_meter" validate:"gte=0"`
}

// EventRates is the base yearly probability of each event kind.
type EventRates struct {
	Storm   float64 `mapstructure:"storm" validate:"gte=0,lte=1"`
	Drought float64 `mapstructure:"drought" validate:"gte=0,lte=1"`
	Flood   float64 `mapstructure:"flood" validate:"gte=0,lte=1"`
	Frost   float64 `mapstructure:"frost" validate:"gte=0,lte=1"`
	Disease float64 `mapstructure:"disease" validate:"gte=0,lte=1"`
	Bumper  float64 `mapstructure:"bumper" validate:"gte=0,lte=1"`
}

// Rate returns the base rate of an event kind.
func (r EventRates) Rate(kind world.EventKind) float64 {
	switch kind {
	case world.EventStorm:
		return r.Storm
	case world.EventDrought:
		return r.Drought
	case world.EventFlood:
		return r.Flood
	case world.EventFrost:
		return r.Frost
	case world.EventDisease:
		return r.Disease
	case world.EventBumper:
		return r.Bumper
	}
	return 0
}

// EventTuning modulates special-event probabilities and outcomes.
type EventTuning struct {
	Base           EventRates `mapstructure:"base"`
	MaxProbability float64    `mapstructure:"max_probability" validate:"gt=0,lte=1"`

	SeaLevelSensitivity    float64 `mapstructure:"sea_level_sensitivity" validate:"gte=0"`   // storm, flood: per meter
	DroughtSensitivity     float64 `mapstructure:"drought_sensitivity" validate:"gte=0"`     // per unit precipitation deficit
	HeatSensitivity        float64 `mapstructure:"heat_sensitivity" validate:"gte=0"`        // drought: per °C above baseline
	FrostSensitivity       float64 `mapstructure:"frost_sensitivity" validate:"gte=0"`       // per unit frost-free shortfall
	MonocultureSensitivity float64 `mapstructure:"monoculture_sensitivity" validate:"gte=0"` // disease: per unit concentration

	SeverityMin float64 `mapstructure:"severity_min" validate:"gte=0,lte=1"`
	SeverityMax float64 `mapstructure:"severity_max" validate:"gtefield=SeverityMin,lte=1"`
	BumperGain  float64 `mapstructure:"bumper_gain" validate:"gte=0"`
}

// MarketTuning bounds cleared prices.
type MarketTuning struct {
	PriceBounds economy.PriceBounds `mapstructure:"price_bounds"`
}

// HDITuning shapes the human-development update.
type HDITuning struct {
	MalnutritionMax    float64 `mapstructure:"malnutrition_max" validate:"gt=0,lte=1"`
	InfantMortalityMin float64 `mapstructure:"infant_mortality_min" validate:"gte=0"`
	InfantMortalityMax float64 `mapstructure:"infant_mortality_max" validate:"gtfield=InfantMortalityMin"`
	LifeExpectancyMin  float64 `mapstructure:"life_expectancy_min" validate:"gt=0"`
	LifeExpectancyMax  float64 `mapstructure:"life_expectancy_max" validate:"gtfield=LifeExpectancyMin"`
	// AdjustRate is the yearly fraction of the gap to target closed at a steady trend.
	AdjustRate float64 `mapstructure:"adjust_rate" validate:"gt=0,lte=1"`
	// TrendGain speeds adjustment while malnutrition is changing.
	TrendGain float64 `mapstructure:"trend_gain" validate:"gte=0"`

	WeightMalnutrition float64 `mapstructure:"weight_malnutrition" validate:"gte=0"`
	WeightInfant       float64 `mapstructure:"weight_infant" validate:"gte=0"`
	WeightLife         float64 `mapstructure:"weight_life" validate:"gte=0"`
}

// RevenueTuning scales farm economics.
type RevenueTuning struct {
	// CostScale multiplies every crop's cost per area before policy multipliers.
	CostScale float64 `mapstructure:"cost_scale" validate:"gt=0"`
}
