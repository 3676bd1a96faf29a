package economy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/famine-sim/internal/world"
)

func TestClear_WheatExample(t *testing.T) {
	// Arrange
	claims := []Claim{
		{Region: world.RegionSubSaharan, Need: 400, Penalty: 0.9},
		{Region: world.RegionEurope, Need: 800, Penalty: 0.5},
	}

	// Act
	res, err := Clear(world.CropWheat, 1000, claims, 200, DefaultPriceBounds)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 200.0, res.Allocations[0].Allocated)
	assert.Equal(t, 800.0, res.Allocations[1].Allocated)
	assert.Equal(t, 0.5, res.Allocations[0].Satisfied)
	assert.Equal(t, 1.0, res.Allocations[1].Satisfied)
	assert.Equal(t, 0.0, res.Surplus)
	assert.Equal(t, 200.0, res.Unmet)
	assert.InDelta(t, 240.0, res.Entry.Price, 1e-9)
	assert.InDelta(t, 200*0.1+800*0.5, res.PenaltyFed, 1e-9)
}

func TestClear_ZeroSupply(t *testing.T) {
	claims := []Claim{
		{Region: world.RegionUSA, Need: 100, Penalty: 0.1},
		{Region: world.RegionRussia, Need: 50, Penalty: 0.3},
	}

	res, err := Clear(world.CropRice, 0, claims, 380, DefaultPriceBounds)

	require.NoError(t, err)
	for _, a := range res.Allocations {
		assert.Equal(t, 0.0, a.Delivered)
		assert.Equal(t, 0.0, a.Satisfied)
	}
	assert.Equal(t, 380*DefaultPriceBounds.Ceiling, res.Entry.Price)
}

func TestClear_SurplusDepressesPrice(t *testing.T) {
	claims := []Claim{{Region: world.RegionUSA, Need: 100, Penalty: 0.1}}

	res, err := Clear(world.CropCorn, 1000, claims, 170, DefaultPriceBounds)

	require.NoError(t, err)
	assert.Equal(t, 900.0, res.Surplus)
	assert.Equal(t, 1.0, res.Allocations[0].Satisfied)
	assert.Equal(t, 170*DefaultPriceBounds.Floor, res.Entry.Price)
	assert.Less(t, res.Entry.Price, res.Entry.BasePrice)
}

func TestClear_ZeroNeedIsSatisfied(t *testing.T) {
	res, err := Clear(world.CropFruit, 10, []Claim{{Region: world.RegionArctic}}, 600, DefaultPriceBounds)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Allocations[0].Satisfied)
	assert.Equal(t, 10.0, res.Surplus)
}

func TestClear_PreDistributionFirst(t *testing.T) {
	claims := []Claim{
		{Region: world.RegionUSA, Need: 500, Penalty: 0.0},
		{Region: world.RegionSubSaharan, Need: 300, Penalty: 0.9, PreDistribution: 200},
	}

	res, err := Clear(world.CropWheat, 600, claims, 200, DefaultPriceBounds)

	require.NoError(t, err)
	ssa := res.Allocations[1]
	assert.Equal(t, 200.0, ssa.PreDistributed)
	// The best region takes everything the mandate left.
	assert.Equal(t, 400.0, res.Allocations[0].Allocated)
	assert.Equal(t, 0.0, ssa.Allocated)
	assert.InDelta(t, 200.0/300.0, ssa.Satisfied, 1e-12)
	// Counted demand: 500 + (300-200) against 400 remaining supply.
	assert.Equal(t, 600.0, res.Entry.Demand)
	assert.Equal(t, 400.0, res.Entry.Supply)
}

func TestClear_PreDistributionBoundedBySupply(t *testing.T) {
	claims := []Claim{
		{Region: world.RegionUSA, Need: 100, PreDistribution: 80},
		{Region: world.RegionEurope, Need: 100, PreDistribution: 80},
	}

	res, err := Clear(world.CropSoy, 100, claims, 390, DefaultPriceBounds)

	require.NoError(t, err)
	assert.Equal(t, 80.0, res.Allocations[0].PreDistributed)
	assert.Equal(t, 20.0, res.Allocations[1].PreDistributed)
	assert.InDelta(t, 100.0, res.TotalDelivered(), 1e-12)
}

func TestClear_TiesBrokenByRegionOrdinal(t *testing.T) {
	claims := []Claim{
		{Region: world.RegionOceania, Need: 100, Penalty: 0.2},
		{Region: world.RegionUSA, Need: 100, Penalty: 0.2},
	}

	res, err := Clear(world.CropWheat, 100, claims, 200, DefaultPriceBounds)

	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Allocations[0].Allocated)
	assert.Equal(t, 100.0, res.Allocations[1].Allocated)
}

func TestClear_RanksByPeopleFedPerTonne(t *testing.T) {
	// Europe pays the higher penalty, but each of its people needs a third of the
	// food, so a tonne there feeds 0.6/0.1 = 6 people against 0.8/0.3 in the USA.
	claims := []Claim{
		{Region: world.RegionUSA, Need: 300, Penalty: 0.2, NeedPerCapita: 0.3},
		{Region: world.RegionEurope, Need: 300, Penalty: 0.4, NeedPerCapita: 0.1},
	}

	res, err := Clear(world.CropWheat, 300, claims, 200, DefaultPriceBounds)

	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Allocations[0].Allocated)
	assert.Equal(t, 300.0, res.Allocations[1].Allocated)

	// Equal people fed per tonne falls back to the lower penalty.
	claims = []Claim{
		{Region: world.RegionUSA, Need: 100, Penalty: 0.5, NeedPerCapita: 0.25},
		{Region: world.RegionEurope, Need: 100, Penalty: 0.0, NeedPerCapita: 0.5},
	}
	res, err = Clear(world.CropWheat, 100, claims, 200, DefaultPriceBounds)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Allocations[0].Allocated)
	assert.Equal(t, 100.0, res.Allocations[1].Allocated)

	_, err = Clear(world.CropWheat, 100, []Claim{{Region: world.RegionUSA, Need: 1, NeedPerCapita: -1}}, 200, DefaultPriceBounds)
	assert.ErrorIs(t, err, ErrInvalidClaim)
}

func TestClear_NeverOverAllocatesAndMonotone(t *testing.T) {
	claims := []Claim{
		{Region: world.RegionUSA, Need: 300, Penalty: 0.2},
		{Region: world.RegionEurope, Need: 250, Penalty: 0.6, PreDistribution: 50},
		{Region: world.RegionSouthAsia, Need: 900, Penalty: 0.4},
		{Region: world.RegionEastAsia, Need: 700, Penalty: 0.4},
	}

	prev := make([]float64, len(claims))
	for supply := 0.0; supply <= 2500; supply += 50 {
		res, err := Clear(world.CropRice, supply, claims, 380, DefaultPriceBounds)
		require.NoError(t, err)

		assert.LessOrEqual(t, res.TotalDelivered(), supply+1e-9)
		for i, a := range res.Allocations {
			assert.GreaterOrEqual(t, a.Allocated, 0.0)
			assert.GreaterOrEqual(t, a.Delivered+1e-9, prev[i], "region %s at supply %g", a.Region, supply)
			prev[i] = a.Delivered
		}
	}
}

func TestClear_NegativeSupplyIsFatal(t *testing.T) {
	_, err := Clear(world.CropWheat, -1, nil, 200, DefaultPriceBounds)
	assert.True(t, errors.Is(err, ErrNegativeSupply))

	_, err = Clear(world.CropWheat, 10, []Claim{{Region: world.RegionUSA, Need: -5}}, 200, DefaultPriceBounds)
	assert.True(t, errors.Is(err, ErrInvalidClaim))
}

func TestResolvePrice_Bounds(t *testing.T) {
	e := &MarketEntry{Supply: 100, Demand: 100, BasePrice: 10}
	assert.Equal(t, 10.0, e.ResolvePrice(DefaultPriceBounds))

	e.Demand = 150
	assert.Equal(t, 15.0, e.ResolvePrice(DefaultPriceBounds))
	assert.Equal(t, 15.0, e.Price)

	e.Demand = 1e9
	assert.Equal(t, 40.0, e.ResolvePrice(DefaultPriceBounds))
}
