package engine

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/cucumber/godog"

	"github.com/talgya/famine-sim/internal/economy"
	"github.com/talgya/famine-sim/internal/provider"
	"github.com/talgya/famine-sim/internal/world"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"testdata/features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func InitializeScenario(sc *godog.ScenarioContext) {
	m := &marketContext{}
	sc.Step(`^a world supply of (\d+) tonnes of "([^"]*)"$`, m.aWorldSupplyOf)
	sc.Step(`^region "([^"]*)" needs (\d+) tonnes with trade penalty ([\d.]+)$`, m.regionNeeds)
	sc.Step(`^the market clears$`, m.theMarketClears)
	sc.Step(`^region "([^"]*)" receives (\d+) tonnes$`, m.regionReceives)
	sc.Step(`^region "([^"]*)" has a satisfied fraction of ([\d.]+)$`, m.regionSatisfied)
	sc.Step(`^no supply is left over$`, m.noSupplyLeft)
	sc.Step(`^(\d+) tonnes of supply are left over$`, m.supplyLeftOver)

	y := &yearContext{}
	sc.Step(`^a simulation initialized in (\d+) with seed (\d+)$`, y.aSimulationInitialized)
	sc.Step(`^I advance (\d+) years? without policies$`, y.iAdvanceYears)
	sc.Step(`^the current year is (\d+)$`, y.theCurrentYearIs)
	sc.Step(`^the arable land of "([^"]*)" is unchanged$`, y.arableLandUnchanged)
	sc.Step(`^every region keeps its crop land within its arable land$`, y.cropLandWithinArable)

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*m = marketContext{}
		*y = yearContext{}
		return ctx, nil
	})
}

type marketContext struct {
	crop   world.Crop
	supply float64
	claims []economy.Claim
	result economy.Result
}

func (c *marketContext) aWorldSupplyOf(tonnes int, crop string) error {
	parsed, ok := world.CropFromString(crop)
	if !ok {
		return fmt.Errorf("unknown crop %q", crop)
	}
	c.crop = parsed
	c.supply = float64(tonnes)
	return nil
}

func (c *marketContext) regionNeeds(region string, tonnes int, penalty float64) error {
	code, ok := world.RegionFromString(region)
	if !ok {
		return fmt.Errorf("unknown region %q", region)
	}
	c.claims = append(c.claims, economy.Claim{Region: code, Need: float64(tonnes), Penalty: penalty})
	return nil
}

func (c *marketContext) theMarketClears() error {
	res, err := economy.Clear(c.crop, c.supply, c.claims, world.CropProfiles[c.crop].BasePrice, economy.DefaultPriceBounds)
	if err != nil {
		return err
	}
	c.result = res
	return nil
}

func (c *marketContext) allocation(region string) (economy.Allocation, error) {
	code, ok := world.RegionFromString(region)
	if !ok {
		return economy.Allocation{}, fmt.Errorf("unknown region %q", region)
	}
	for _, a := range c.result.Allocations {
		if a.Region == code {
			return a, nil
		}
	}
	return economy.Allocation{}, fmt.Errorf("region %s has no allocation", region)
}

func (c *marketContext) regionReceives(region string, tonnes int) error {
	a, err := c.allocation(region)
	if err != nil {
		return err
	}
	if math.Abs(a.Delivered-float64(tonnes)) > 1e-9 {
		return fmt.Errorf("region %s received %g tonnes, want %d", region, a.Delivered, tonnes)
	}
	return nil
}

func (c *marketContext) regionSatisfied(region string, fraction float64) error {
	a, err := c.allocation(region)
	if err != nil {
		return err
	}
	if math.Abs(a.Satisfied-fraction) > 1e-9 {
		return fmt.Errorf("region %s satisfied %g, want %g", region, a.Satisfied, fraction)
	}
	return nil
}

func (c *marketContext) noSupplyLeft() error {
	return c.supplyLeftOver(0)
}

func (c *marketContext) supplyLeftOver(tonnes int) error {
	if math.Abs(c.result.Surplus-float64(tonnes)) > 1e-9 {
		return fmt.Errorf("surplus is %g, want %d", c.result.Surplus, tonnes)
	}
	return nil
}

type yearContext struct {
	sim    *Simulation
	arable [world.NumRegions]float64
}

func (c *yearContext) aSimulationInitialized(year int, seed int) error {
	c.sim = NewSimulation(provider.NewSynthetic(), testOptions(int64(seed)))
	if err := c.sim.Initialize(context.Background(), year); err != nil {
		return err
	}
	for _, code := range world.AllRegions() {
		view, err := c.sim.RegionSnapshot(code)
		if err != nil {
			return err
		}
		s, _ := view.Latest()
		c.arable[code] = s.LandArable
	}
	return nil
}

func (c *yearContext) iAdvanceYears(years int) error {
	for range years {
		if _, err := c.sim.AdvanceYear(context.Background(), nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *yearContext) theCurrentYearIs(year int) error {
	if got := c.sim.Year(); got != year {
		return fmt.Errorf("current year is %d, want %d", got, year)
	}
	return nil
}

func (c *yearContext) arableLandUnchanged(region string) error {
	code, ok := world.RegionFromString(region)
	if !ok {
		return fmt.Errorf("unknown region %q", region)
	}
	view, err := c.sim.RegionSnapshot(code)
	if err != nil {
		return err
	}
	s, _ := view.Latest()
	if s.LandArable != c.arable[code] {
		return fmt.Errorf("arable land of %s changed from %g to %g", region, c.arable[code], s.LandArable)
	}
	return nil
}

func (c *yearContext) cropLandWithinArable() error {
	for _, code := range world.AllRegions() {
		view, err := c.sim.RegionSnapshot(code)
		if err != nil {
			return err
		}
		for _, s := range view.History {
			if land := s.TotalCropLand(); land > s.LandArable {
				return fmt.Errorf("region %s year %d: crop land %g above arable %g", code, s.Year, land, s.LandArable)
			}
		}
	}
	return nil
}
