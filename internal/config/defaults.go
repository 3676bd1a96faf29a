package config

import "time"

// SetDefaults sets default values for all configuration fields left at zero.
func SetDefaults(cfg *Config) {
	// Simulation defaults
	if cfg.Simulation.StartYear == 0 {
		cfg.Simulation.StartYear = 1981
	}
	if cfg.Simulation.ScaleFactor == 0 {
		cfg.Simulation.ScaleFactor = 0.5
	}
	if cfg.Simulation.Workers == 0 {
		cfg.Simulation.Workers = 4
	}
	if cfg.Simulation.FamineThreshold == 0 {
		cfg.Simulation.FamineThreshold = 0.35
	}
	if cfg.Simulation.YearInterval == 0 {
		cfg.Simulation.YearInterval = 5 * time.Second
	}

	SetTuningDefaults(&cfg.Tuning)

	// API defaults
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.API.RateLimit == 0 {
		cfg.API.RateLimit = 5
	}
	if cfg.API.Burst == 0 {
		cfg.API.Burst = 10
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// SetTuningDefaults fills zero tuning coefficients.
func SetTuningDefaults(t *Tuning) {
	setDefault(&t.LandUse.Elasticity, 1.5)
	setDefault(&t.LandUse.AdjustRate, 0.3)
	setDefault(&t.LandUse.MinShare, 0.002)

	setDefault(&t.Yield.DiminishingReturns, 0.3)
	setDefault(&t.Yield.SeaLevelLossPerMeter, 0.3)

	setDefault(&t.Events.Base.Storm, 0.05)
	setDefault(&t.Events.Base.Drought, 0.06)
	setDefault(&t.Events.Base.Flood, 0.05)
	setDefault(&t.Events.Base.Frost, 0.04)
	setDefault(&t.Events.Base.Disease, 0.03)
	setDefault(&t.Events.Base.Bumper, 0.05)
	setDefault(&t.Events.MaxProbability, 0.9)
	setDefault(&t.Events.SeaLevelSensitivity, 1.0)
	setDefault(&t.Events.DroughtSensitivity, 4.0)
	setDefault(&t.Events.HeatSensitivity, 0.3)
	setDefault(&t.Events.FrostSensitivity, 2.0)
	setDefault(&t.Events.MonocultureSensitivity, 3.0)
	setDefault(&t.Events.SeverityMin, 0.2)
	setDefault(&t.Events.SeverityMax, 0.7)
	setDefault(&t.Events.BumperGain, 0.25)

	setDefault(&t.Market.PriceBounds.Floor, 0.25)
	setDefault(&t.Market.PriceBounds.Ceiling, 4)

	setDefault(&t.HDI.MalnutritionMax, 0.6)
	setDefault(&t.HDI.InfantMortalityMin, 2)
	setDefault(&t.HDI.InfantMortalityMax, 150)
	setDefault(&t.HDI.LifeExpectancyMin, 40)
	setDefault(&t.HDI.LifeExpectancyMax, 85)
	setDefault(&t.HDI.AdjustRate, 0.1)
	setDefault(&t.HDI.TrendGain, 2.0)
	setDefault(&t.HDI.WeightMalnutrition, 1.0/3)
	setDefault(&t.HDI.WeightInfant, 1.0/3)
	setDefault(&t.HDI.WeightLife, 1.0/3)

	setDefault(&t.Revenue.CostScale, 1)
}

// DefaultTuning returns the default coefficients.
func DefaultTuning() Tuning {
	var t Tuning
	SetTuningDefaults(&t)
	return t
}

func setDefault(field *float64, value float64) {
	if *field == 0 {
		*field = value
	}
}
