package world

// CropProfile holds the static agronomy and market constants of a crop.
type CropProfile struct {
	OptimalDayTemp  float64 // °C
	TempTolerance   float64 // °C, width of the suitability bell
	OptimalPrecip   float64 // mm/year
	PrecipTolerance float64
	MinFrostFree    float64 // frost-free days below which the crop suffers
	BasePrice       float64 // $ per tonne at balanced supply and demand
	CostPerArea     float64 // $ per km² cultivated
}

// CropProfiles is indexed by Crop.
var CropProfiles = [NumCrops]CropProfile{
	CropWheat:      {OptimalDayTemp: 18, TempTolerance: 9, OptimalPrecip: 600, PrecipTolerance: 350, MinFrostFree: 100, BasePrice: 200, CostPerArea: 35000},
	CropRice:       {OptimalDayTemp: 27, TempTolerance: 7, OptimalPrecip: 1500, PrecipTolerance: 700, MinFrostFree: 150, BasePrice: 380, CostPerArea: 90000},
	CropCorn:       {OptimalDayTemp: 24, TempTolerance: 8, OptimalPrecip: 800, PrecipTolerance: 400, MinFrostFree: 130, BasePrice: 170, CostPerArea: 60000},
	CropSoy:        {OptimalDayTemp: 25, TempTolerance: 8, OptimalPrecip: 700, PrecipTolerance: 350, MinFrostFree: 120, BasePrice: 390, CostPerArea: 40000},
	CropVegetables: {OptimalDayTemp: 20, TempTolerance: 10, OptimalPrecip: 700, PrecipTolerance: 450, MinFrostFree: 110, BasePrice: 450, CostPerArea: 400000},
	CropFruit:      {OptimalDayTemp: 22, TempTolerance: 9, OptimalPrecip: 900, PrecipTolerance: 500, MinFrostFree: 180, BasePrice: 600, CostPerArea: 450000},
	CropOilseed:    {OptimalDayTemp: 20, TempTolerance: 9, OptimalPrecip: 550, PrecipTolerance: 300, MinFrostFree: 100, BasePrice: 420, CostPerArea: 30000},
	CropFeed:       {OptimalDayTemp: 19, TempTolerance: 11, OptimalPrecip: 650, PrecipTolerance: 450, MinFrostFree: 90, BasePrice: 120, CostPerArea: 25000},
}

// EventSensitivity scales an event's severity per crop (0 = immune, 1 = full damage).
// Disease and bumper events hit a single drawn crop and ignore this table.
var EventSensitivity = [NumEventKinds][NumCrops]float64{
	EventStorm:   {0.6, 0.7, 0.8, 0.6, 0.9, 1.0, 0.6, 0.5},
	EventDrought: {0.7, 1.0, 0.9, 0.8, 0.8, 0.6, 0.6, 0.7},
	EventFlood:   {0.8, 0.3, 0.8, 0.9, 1.0, 0.7, 0.8, 0.6},
	EventFrost:   {0.4, 0.8, 0.7, 0.7, 0.9, 1.0, 0.5, 0.3},
}
