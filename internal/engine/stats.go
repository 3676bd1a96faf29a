package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/talgya/famine-sim/internal/world"
)

// ErrUnknownStatistic is returned by GlobalStatistic for names it does not know.
var ErrUnknownStatistic = errors.New("unknown statistic")

// StatisticNames lists the scalar statistics; per-crop statistics take the form
// "price:WHEAT", "supply:WHEAT" and "surplus:WHEAT".
var StatisticNames = []string{
	"year",
	"population",
	"undernourished_fraction",
	"hdi",
	"sea_level",
	"revenue",
}

// GlobalStatistic returns a world statistic of the latest committed year.
func (s *Simulation) GlobalStatistic(name string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.loadedLocked(); err != nil {
		return 0, err
	}
	g := s.world.LatestGlobal()

	if kind, crop, ok := strings.Cut(name, ":"); ok {
		c, found := world.CropFromString(crop)
		if !found {
			return 0, fmt.Errorf("%w: %q", ErrUnknownStatistic, name)
		}
		switch kind {
		case "price":
			return g.Price[c], nil
		case "supply":
			return g.Supply[c], nil
		case "surplus":
			return g.Surplus[c], nil
		}
		return 0, fmt.Errorf("%w: %q", ErrUnknownStatistic, name)
	}

	switch name {
	case "year":
		return float64(g.Year), nil
	case "population":
		return g.Population, nil
	case "undernourished_fraction":
		return g.Undernourished, nil
	case "hdi":
		return g.HDI, nil
	case "sea_level":
		return g.SeaLevel, nil
	case "revenue":
		return g.Revenue, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatistic, name)
}
