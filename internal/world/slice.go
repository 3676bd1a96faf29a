package world

// YearSlice is the complete state of one region for one year. A slice is written
// while its year is being computed and becomes immutable once committed to the
// region's history.
type YearSlice struct {
	Year int `json:"year"`

	// Demographics.
	Population     float64 `json:"population"`
	MedianAge      float64 `json:"median_age"`
	Births         float64 `json:"births"`
	Mortality      float64 `json:"mortality"`
	Migration      float64 `json:"migration"`
	Undernourished float64 `json:"undernourished"` // Fraction of population whose need is unmet

	// Land, km².
	LandTotal  float64 `json:"land_total"`
	LandArable float64 `json:"land_arable"`

	// Per-crop tables.
	CropYield         [NumCrops]float64 `json:"crop_yield"` // tonnes per km²
	CropLand          [NumCrops]float64 `json:"crop_land"`  // km²
	CropProduction    [NumCrops]float64 `json:"crop_production"`
	CropNeed          [NumCrops]float64 `json:"crop_need"`
	CropDelivered     [NumCrops]float64 `json:"crop_delivered"` // Pre-distribution plus market allocation
	CropSatisfied     [NumCrops]float64 `json:"crop_satisfied"` // Delivered / need, 0..1
	CropEventFactor   [NumCrops]float64 `json:"crop_event_factor"`

	// Cultivation method mix; sums to 1.
	MethodShare [NumMethods]float64 `json:"method_share"`

	// Climate of every arable grid cell, in Grid.Arable order, plus regional means.
	CellClimate []CellClimate `json:"cell_climate"`
	Climate     CellClimate   `json:"climate"`

	TradePenalty float64        `json:"trade_penalty"`
	Events       []EventOutcome `json:"events,omitempty"`

	// Human development.
	Malnutrition    float64 `json:"malnutrition"`
	InfantMortality float64 `json:"infant_mortality"` // Deaths per 1000 live births
	LifeExpectancy  float64 `json:"life_expectancy"`  // Years
	HDI             float64 `json:"hdi"`

	// Revenue (player regions only), $.
	GrossFarmIncome float64 `json:"gross_farm_income"`
	ProductionCost  float64 `json:"production_cost"`
	NetFarmIncome   float64 `json:"net_farm_income"`
	TaxRate         float64 `json:"tax_rate"`
	Grant           float64 `json:"grant"`
	Revenue         float64 `json:"revenue"`
}

// EventOutcome records a special event drawn for a region-year.
type EventOutcome struct {
	Kind     EventKind `json:"kind"`
	Crop     Crop      `json:"crop"`      // Affected crop for single-crop events
	AllCrops bool      `json:"all_crops"` // Weather events hit every crop, scaled by sensitivity
	Severity float64   `json:"severity"`  // 0..1
}

// TotalCropLand returns Σ land over all crops.
func (s *YearSlice) TotalCropLand() float64 {
	total := 0.0
	for _, l := range s.CropLand {
		total += l
	}
	return total
}

// TotalNeed returns Σ need over all crops.
func (s *YearSlice) TotalNeed() float64 {
	total := 0.0
	for _, n := range s.CropNeed {
		total += n
	}
	return total
}

// TotalDelivered returns Σ delivered food over all crops.
func (s *YearSlice) TotalDelivered() float64 {
	total := 0.0
	for _, d := range s.CropDelivered {
		total += d
	}
	return total
}

// HasEvent reports whether an event of the given kind was drawn.
func (s *YearSlice) HasEvent(kind EventKind) bool {
	for _, e := range s.Events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (s *YearSlice) Clone() *YearSlice {
	c := *s
	if s.CellClimate != nil {
		c.CellClimate = append([]CellClimate(nil), s.CellClimate...)
	}
	if s.Events != nil {
		c.Events = append([]EventOutcome(nil), s.Events...)
	}
	return &c
}
