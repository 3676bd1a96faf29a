package world

import (
	"errors"
	"fmt"
)

// ErrSliceExists is returned when a year that already has a committed slice is committed again.
var ErrSliceExists = errors.New("year slice already committed")

// ErrNoSlice is returned when a year has no committed slice.
var ErrNoSlice = errors.New("no slice for year")

// Region is the flat record of one modeled region: static attributes plus an
// append-only arena of year slices addressed by year index.
type Region struct {
	Code RegionCode `json:"code"`

	// Static per-capita need in tonnes/person/year, reflecting regional diet.
	NeedPerCapita [NumCrops]float64 `json:"need_per_capita"`

	// Baseline yield per crop at the start year, tonnes/km², and the land the
	// baseline was measured on (for diminishing returns).
	BaseYield [NumCrops]float64 `json:"base_yield"`
	BaseLand  [NumCrops]float64 `json:"base_land"`

	// BaseTradePenalty is the region's trade inefficiency before tariffs, 0..1 (lower is better).
	BaseTradePenalty float64 `json:"base_trade_penalty"`

	Grid *Grid `json:"-"`

	startYear int
	history   []*YearSlice
}

// NewRegion creates a region whose history starts at startYear.
func NewRegion(code RegionCode, startYear int) *Region {
	return &Region{Code: code, startYear: startYear}
}

// StartYear returns the first year of the history.
func (r *Region) StartYear() int {
	return r.startYear
}

// Commit appends the slice for the next year. Slices must arrive in year order and
// are never replaced.
func (r *Region) Commit(s *YearSlice) error {
	if err := r.checkNext(s); err != nil {
		return err
	}
	r.history = append(r.history, s)
	return nil
}

func (r *Region) checkNext(s *YearSlice) error {
	if s == nil {
		return fmt.Errorf("region %s: nil slice", r.Code)
	}
	next := r.startYear + len(r.history)
	if s.Year < next {
		return fmt.Errorf("region %s year %d: %w", r.Code, s.Year, ErrSliceExists)
	}
	if s.Year != next {
		return fmt.Errorf("region %s: commit year %d, expected %d", r.Code, s.Year, next)
	}
	return nil
}

// Slice returns the committed slice for a year. Callers must not mutate it.
func (r *Region) Slice(year int) (*YearSlice, error) {
	i := year - r.startYear
	if i < 0 || i >= len(r.history) {
		return nil, fmt.Errorf("region %s year %d: %w", r.Code, year, ErrNoSlice)
	}
	return r.history[i], nil
}

// Latest returns the most recent committed slice, or nil before the first commit.
func (r *Region) Latest() *YearSlice {
	if len(r.history) == 0 {
		return nil
	}
	return r.history[len(r.history)-1]
}

// Years returns the number of committed years.
func (r *Region) Years() int {
	return len(r.history)
}

// View returns a read-only deep copy of the region for external collaborators.
func (r *Region) View() RegionView {
	v := RegionView{
		Code:          r.Code,
		Name:          r.Code.Name(),
		Player:        r.Code.Player(),
		NeedPerCapita: r.NeedPerCapita,
		History:       make([]YearSlice, len(r.history)),
	}
	for i, s := range r.history {
		v.History[i] = *s.Clone()
	}
	return v
}

// RegionView is a snapshot of a region detached from the live simulation.
type RegionView struct {
	Code          RegionCode        `json:"code"`
	Name          string            `json:"name"`
	Player        bool              `json:"player"`
	NeedPerCapita [NumCrops]float64 `json:"need_per_capita"`
	History       []YearSlice       `json:"history"`
}

// Latest returns the most recent year of the view.
func (v RegionView) Latest() (YearSlice, bool) {
	if len(v.History) == 0 {
		return YearSlice{}, false
	}
	return v.History[len(v.History)-1], true
}

// Year returns the slice for a year.
func (v RegionView) Year(year int) (YearSlice, bool) {
	for _, s := range v.History {
		if s.Year == year {
			return s, true
		}
	}
	return YearSlice{}, false
}
