// Package world provides the region data model: enumerations, the per-region climate
// grid, and append-only year slices.
// The climate grid uses axial hex coordinates (q, r).
package world

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Cell is one grid cell of a region. Only arable cells carry climate.
type Cell struct {
	Coord     HexCoord `json:"coord"`
	Arable    bool     `json:"arable"`
	Coastal   bool     `json:"coastal"`   // Arable cell adjacent to water
	Elevation float64  `json:"elevation"` // 0.0 (sea level) to 1.0 (peak)

	// Baseline climate at the start year; yearly climate is derived from it.
	Base CellClimate `json:"base"`
}

// CellClimate is the annual climate of one arable cell.
type CellClimate struct {
	Precipitation float64 `json:"precipitation" yaml:"precipitation"` // mm/year
	DayTemp       float64 `json:"day_temp" yaml:"day_temp"`           // °C, annual mean
	NightTemp     float64 `json:"night_temp" yaml:"night_temp"`       // °C, annual mean
	FrostFreeDays float64 `json:"frost_free_days" yaml:"frost_free_days,omitempty"`
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	return max(dq, dr, ds)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
