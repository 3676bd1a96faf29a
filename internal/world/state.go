package world

import "fmt"

// GlobalSlice holds world-level values for one year.
type GlobalSlice struct {
	Year     int     `json:"year"`
	SeaLevel float64 `json:"sea_level"` // Meters above the projection curve datum

	Supply     [NumCrops]float64 `json:"supply"`  // Σ production before distribution
	Price      [NumCrops]float64 `json:"price"`   // Cleared world price, $/tonne
	Surplus    [NumCrops]float64 `json:"surplus"` // Supply left after allocation
	Unmet      [NumCrops]float64 `json:"unmet"`   // Counted demand left unserved
	PenaltyFed [NumCrops]float64 `json:"penalty_fed"`

	Population     float64 `json:"population"`
	Undernourished float64 `json:"undernourished"` // Population-weighted fraction
	HDI            float64 `json:"hdi"`            // Population-weighted mean
	Revenue        float64 `json:"revenue"`        // Σ player revenue
}

// State is the whole simulated world: one region per enumerated code plus the
// global year series. It is owned by the orchestrator.
type State struct {
	Regions   [NumRegions]*Region
	StartYear int
	Year      int

	global []*GlobalSlice
}

// NewState creates an empty state at the start year. Regions are filled by the caller.
func NewState(startYear int) *State {
	st := &State{StartYear: startYear, Year: startYear}
	for _, code := range AllRegions() {
		st.Regions[code] = NewRegion(code, startYear)
	}
	return st
}

// Region returns the region for a code.
func (st *State) Region(code RegionCode) *Region {
	if !code.Valid() {
		return nil
	}
	return st.Regions[code]
}

// CommitGlobal appends the global slice for the next year.
func (st *State) CommitGlobal(g *GlobalSlice) error {
	if err := st.checkNextGlobal(g); err != nil {
		return err
	}
	st.global = append(st.global, g)
	return nil
}

func (st *State) checkNextGlobal(g *GlobalSlice) error {
	if g == nil {
		return fmt.Errorf("global: nil slice")
	}
	next := st.StartYear + len(st.global)
	if g.Year < next {
		return fmt.Errorf("global year %d: %w", g.Year, ErrSliceExists)
	}
	if g.Year != next {
		return fmt.Errorf("global: commit year %d, expected %d", g.Year, next)
	}
	return nil
}

// CommitYear appends one year for every region and the world at once. Every
// slice is checked before any is appended, so a rejected year leaves the history
// untouched.
func (st *State) CommitYear(slices [NumRegions]*YearSlice, g *GlobalSlice) error {
	if err := st.checkNextGlobal(g); err != nil {
		return err
	}
	for code, s := range slices {
		if err := st.Regions[code].checkNext(s); err != nil {
			return err
		}
		if s.Year != g.Year {
			return fmt.Errorf("region %s: slice year %d in world year %d", RegionCode(code), s.Year, g.Year)
		}
	}
	for code, s := range slices {
		st.Regions[code].history = append(st.Regions[code].history, s)
	}
	st.global = append(st.global, g)
	st.Year = g.Year
	return nil
}

// Global returns the committed global slice for a year.
func (st *State) Global(year int) (*GlobalSlice, error) {
	i := year - st.StartYear
	if i < 0 || i >= len(st.global) {
		return nil, fmt.Errorf("global year %d: %w", year, ErrNoSlice)
	}
	return st.global[i], nil
}

// LatestGlobal returns the most recent global slice, or nil before the first commit.
func (st *State) LatestGlobal() *GlobalSlice {
	if len(st.global) == 0 {
		return nil
	}
	return st.global[len(st.global)-1]
}
