package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/famine-sim/internal/config"
	"github.com/talgya/famine-sim/internal/policy"
	"github.com/talgya/famine-sim/internal/provider"
	"github.com/talgya/famine-sim/internal/world"
)

const testStartYear = 1981

func testOptions(seed int64) Options {
	return Options{
		Seed:            seed,
		ScaleFactor:     0.5,
		Workers:         4,
		FamineThreshold: 0.35,
		Tuning:          config.DefaultTuning(),
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func newTestSimulation(t *testing.T, opts Options) *Simulation {
	t.Helper()
	sim := NewSimulation(provider.NewSynthetic(), opts)
	require.NoError(t, sim.Initialize(context.Background(), testStartYear))
	return sim
}

func advance(t *testing.T, sim *Simulation, years int, effects func(year int) []policy.Effect) {
	t.Helper()
	for range years {
		var e []policy.Effect
		if effects != nil {
			e = effects(sim.Year() + 1)
		}
		_, err := sim.AdvanceYear(context.Background(), e)
		require.NoError(t, err)
	}
}

func TestAdvanceYear_IncrementsByOne(t *testing.T) {
	sim := newTestSimulation(t, testOptions(42))
	assert.Equal(t, testStartYear, sim.Year())

	for i := 1; i <= 5; i++ {
		year, err := sim.AdvanceYear(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, testStartYear+i, year)
		assert.Equal(t, year, sim.Year())
	}
}

func TestAdvanceYear_USAExample(t *testing.T) {
	sim := newTestSimulation(t, testOptions(42))

	before, err := sim.RegionSnapshot(world.RegionUSA)
	require.NoError(t, err)
	start, _ := before.Latest()

	year, err := sim.AdvanceYear(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1982, year)

	after, err := sim.RegionSnapshot(world.RegionUSA)
	require.NoError(t, err)
	next, ok := after.Latest()
	require.True(t, ok)

	assert.Equal(t, start.LandArable, next.LandArable)
	assert.LessOrEqual(t, next.TotalCropLand(), next.LandArable)
}

func TestAdvanceYear_Invariants(t *testing.T) {
	sim := newTestSimulation(t, testOptions(7))
	advance(t, sim, 15, nil)

	for _, code := range world.AllRegions() {
		view, err := sim.RegionSnapshot(code)
		require.NoError(t, err)
		require.Len(t, view.History, 16)

		for _, s := range view.History {
			assert.LessOrEqual(t, s.TotalCropLand(), s.LandArable, "%s %d", code, s.Year)
			sum := 0.0
			for _, m := range s.MethodShare {
				sum += m
			}
			assert.InDelta(t, 1.0, sum, 1e-9, "%s %d method shares", code, s.Year)

			for c := range world.NumCrops {
				assert.Equal(t, s.CropYield[c]*s.CropLand[c], s.CropProduction[c], "%s %d %s", code, s.Year, world.Crop(c))
				assert.GreaterOrEqual(t, s.CropProduction[c], 0.0)
				assert.GreaterOrEqual(t, s.CropSatisfied[c], 0.0)
				assert.LessOrEqual(t, s.CropSatisfied[c], 1.0)
			}
			assert.GreaterOrEqual(t, s.Population, 0.0)
			assert.GreaterOrEqual(t, s.HDI, 0.0)
			assert.LessOrEqual(t, s.HDI, 1.0)
			if !code.Player() {
				assert.Zero(t, s.Revenue)
			}
		}
	}
}

func TestAdvanceYear_Deterministic(t *testing.T) {
	effects := func(year int) []policy.Effect {
		return []policy.Effect{
			{Kind: policy.KindLandUseIncentive, Regions: []string{"USA"}, Crop: "CORN", Magnitude: 1.4},
			{Kind: policy.KindTariff, Regions: []string{"EUR"}, Magnitude: 0.1},
		}
	}

	run := func(workers int) (string, string) {
		opts := testOptions(1234)
		opts.Workers = workers
		sim := newTestSimulation(t, opts)
		advance(t, sim, 8, effects)

		digest, err := sim.Digest()
		require.NoError(t, err)
		var report bytes.Buffer
		require.NoError(t, sim.WriteReport(&report, sim.Year()))
		return digest, report.String()
	}

	digest1, report1 := run(1)
	digest8, report8 := run(8)

	assert.Equal(t, digest1, digest8)
	assert.Equal(t, report1, report8)
	assert.Contains(t, report1, "Data for region United States in year 1989")
}

func TestAdvanceYear_SeedChangesHistory(t *testing.T) {
	a := newTestSimulation(t, testOptions(1))
	b := newTestSimulation(t, testOptions(2))
	advance(t, a, 5, nil)
	advance(t, b, 5, nil)

	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, da, db)
}

// droughtOnly makes every region draw a drought each year unless mitigated, and
// nothing else.
func droughtOnly() Options {
	opts := testOptions(99)
	opts.Tuning.Events.Base.Drought = 1
	opts.Tuning.Events.MaxProbability = 1
	return opts
}

func mitigate(kinds ...world.EventKind) []policy.Effect {
	var out []policy.Effect
	for _, k := range kinds {
		out = append(out, policy.Effect{Kind: policy.KindEventMitigation, Event: k.String(), Magnitude: 1})
	}
	return out
}

func TestDrought_AffectsOnlyItsYear(t *testing.T) {
	others := []world.EventKind{world.EventStorm, world.EventFlood, world.EventFrost, world.EventDisease, world.EventBumper}

	calm := newTestSimulation(t, droughtOnly())
	advance(t, calm, 2, func(int) []policy.Effect {
		return mitigate(append(others, world.EventDrought)...)
	})

	dry := newTestSimulation(t, droughtOnly())
	advance(t, dry, 2, func(year int) []policy.Effect {
		if year == testStartYear+1 {
			return mitigate(others...)
		}
		return mitigate(append(others, world.EventDrought)...)
	})

	for _, code := range world.AllRegions() {
		calmView, _ := calm.RegionSnapshot(code)
		dryView, _ := dry.RegionSnapshot(code)

		c1, _ := calmView.Year(testStartYear + 1)
		d1, _ := dryView.Year(testStartYear + 1)
		require.True(t, d1.HasEvent(world.EventDrought), "region %s", code)
		require.False(t, c1.HasEvent(world.EventDrought))

		// Same land and climate in the drought year, so only the event differs.
		assert.Equal(t, c1.CropLand, d1.CropLand)
		for c := range world.NumCrops {
			assert.Less(t, d1.CropEventFactor[c], 1.0)
			assert.InDelta(t, c1.CropYield[c]*d1.CropEventFactor[c], d1.CropYield[c], 1e-9*c1.CropYield[c]+1e-12)
		}

		// The next year is back on the baseline of its own land.
		c2, _ := calmView.Year(testStartYear + 2)
		d2, _ := dryView.Year(testStartYear + 2)
		assert.Empty(t, d2.Events)
		baseLand := dry.world.Region(code).BaseLand
		k := dry.opts.Tuning.Yield.DiminishingReturns
		for c := range world.NumCrops {
			assert.Equal(t, 1.0, d2.CropEventFactor[c])
			calmBase := c2.CropYield[c] / diminishingReturns(c2.CropLand[c], baseLand[c], k)
			dryBase := d2.CropYield[c] / diminishingReturns(d2.CropLand[c], baseLand[c], k)
			assert.InDelta(t, calmBase, dryBase, 1e-9*calmBase+1e-12, "region %s crop %s", code, world.Crop(c))
		}
	}
}

func TestAdvanceYear_NoPolicyDriftIsBounded(t *testing.T) {
	opts := testOptions(5)
	sim := newTestSimulation(t, opts)
	advance(t, sim, 20, nil)

	limit := opts.Tuning.LandUse.AdjustRate + 0.01
	for _, code := range world.AllRegions() {
		view, _ := sim.RegionSnapshot(code)
		for i := 1; i < len(view.History); i++ {
			prev, next := view.History[i-1], view.History[i]
			change := 0.0
			for c := range world.NumCrops {
				change += math.Abs(next.CropLand[c]/next.TotalCropLand() - prev.CropLand[c]/prev.TotalCropLand())
			}
			assert.LessOrEqual(t, change/2, limit, "%s year %d", code, next.Year)
			assert.InDelta(t, prev.TotalCropLand(), next.TotalCropLand(), 1e-6*prev.TotalCropLand())
		}
	}
}

func TestStateMachine(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulation(provider.NewSynthetic(), testOptions(3))
	assert.Equal(t, StateUninitialized, sim.Status())

	_, err := sim.AdvanceYear(ctx, nil)
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = sim.RegionSnapshot(world.RegionUSA)
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = sim.GlobalStatistic("population")
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, sim.Initialize(ctx, testStartYear))
	assert.Equal(t, StateReady, sim.Status())
	assert.ErrorIs(t, sim.Initialize(ctx, testStartYear), ErrNotReady)

	_, err = sim.RegionSnapshot(world.RegionCode(world.NumRegions))
	assert.ErrorIs(t, err, ErrUnknownRegion)

	sim.Terminate()
	assert.Equal(t, StateTerminated, sim.Status())
	_, err = sim.AdvanceYear(ctx, nil)
	assert.ErrorIs(t, err, ErrTerminated)
	assert.ErrorIs(t, sim.Initialize(ctx, testStartYear), ErrTerminated)

	// History stays readable after termination.
	view, err := sim.RegionSnapshot(world.RegionUSA)
	require.NoError(t, err)
	assert.Len(t, view.History, 1)
}

func TestAdvanceYear_CancelledContext(t *testing.T) {
	sim := newTestSimulation(t, testOptions(3))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.AdvanceYear(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateReady, sim.Status())
	assert.Equal(t, testStartYear, sim.Year())
}

type brokenProvider struct {
	*provider.Synthetic
}

func (brokenProvider) Snapshot() ([]provider.RegionRecord, error) {
	return nil, nil
}

func TestInitialize_InvalidData(t *testing.T) {
	sim := NewSimulation(brokenProvider{provider.NewSynthetic()}, testOptions(3))

	err := sim.Initialize(context.Background(), testStartYear)
	assert.True(t, errors.Is(err, provider.ErrInvalidData))
	assert.Equal(t, StateUninitialized, sim.Status())
}

func TestInitialize_ScaleFactor(t *testing.T) {
	records, err := provider.NewSynthetic().Snapshot()
	require.NoError(t, err)
	sim := newTestSimulation(t, testOptions(3))

	for _, r := range records {
		view, err := sim.RegionSnapshot(r.Code)
		require.NoError(t, err)
		s, _ := view.Latest()
		assert.InDelta(t, r.Population*0.5, s.Population, 1e-6)
		assert.InDelta(t, r.LandArable*0.5, s.LandArable, 1e-6)
		assert.Equal(t, r.CropYield, s.CropYield)
		assert.Equal(t, r.NeedPerCapita, view.NeedPerCapita)
	}
}

func TestAdvanceYear_PolicyWarnings(t *testing.T) {
	sim := newTestSimulation(t, testOptions(3))

	_, err := sim.AdvanceYear(context.Background(), []policy.Effect{
		{Kind: policy.KindLandUseIncentive, Regions: []string{"ATLANTIS"}, Crop: "WHEAT", Magnitude: 2},
	})
	require.NoError(t, err)

	var found bool
	for _, w := range sim.Warnings() {
		if w.Phase == PhasePolicy {
			found = true
			assert.Equal(t, testStartYear+1, w.Year)
			assert.Contains(t, w.Message, "ATLANTIS")
		}
	}
	assert.True(t, found)
}

func TestGlobalStatistic(t *testing.T) {
	sim := newTestSimulation(t, testOptions(3))
	advance(t, sim, 2, nil)

	year, err := sim.GlobalStatistic("year")
	require.NoError(t, err)
	assert.Equal(t, float64(testStartYear+2), year)

	pop, err := sim.GlobalStatistic("population")
	require.NoError(t, err)
	total := 0.0
	for _, code := range world.AllRegions() {
		view, _ := sim.RegionSnapshot(code)
		s, _ := view.Latest()
		total += s.Population
	}
	assert.InDelta(t, total, pop, 1e-6*total)

	price, err := sim.GlobalStatistic("price:wheat")
	require.NoError(t, err)
	assert.Greater(t, price, 0.0)

	for _, name := range []string{"gdp", "price:BARLEY", "volume:WHEAT"} {
		_, err := sim.GlobalStatistic(name)
		assert.ErrorIs(t, err, ErrUnknownStatistic, name)
	}
}

func TestRevenue_PlayerRegionsOnly(t *testing.T) {
	sim := newTestSimulation(t, testOptions(9))
	advance(t, sim, 1, func(int) []policy.Effect {
		return []policy.Effect{
			{Kind: policy.KindTaxRate, Regions: []string{"USA"}, Magnitude: 0.5},
			{Kind: policy.KindGrant, Regions: []string{"USA"}, Magnitude: 1000},
			{Kind: policy.KindGrant, Regions: []string{"RUS"}, Magnitude: 500},
		}
	})

	slices, global, err := sim.YearSlices(sim.Year())
	require.NoError(t, err)

	usa := slices[world.RegionUSA]
	gross := 0.0
	for _, c := range world.AllCrops() {
		gross += usa.CropProduction[c] * global.Price[c]
	}
	assert.InDelta(t, gross, usa.GrossFarmIncome, 1e-9*math.Max(gross, 1))
	assert.InDelta(t, usa.GrossFarmIncome-usa.ProductionCost, usa.NetFarmIncome, 1e-6)
	assert.Equal(t, 0.5, usa.TaxRate)
	assert.Equal(t, 1000.0, usa.Grant)
	assert.InDelta(t, math.Max(usa.NetFarmIncome*0.5, 0)+1000, usa.Revenue, 1e-6)

	rus := slices[world.RegionRussia]
	assert.Zero(t, rus.Grant)
	assert.Zero(t, rus.Revenue)
	assert.NotZero(t, rus.GrossFarmIncome)
}

func TestHDI_FollowsDelivery(t *testing.T) {
	sim := newTestSimulation(t, testOptions(13))
	advance(t, sim, 5, nil)
	malMax := config.DefaultTuning().HDI.MalnutritionMax

	for _, code := range world.AllRegions() {
		view, err := sim.RegionSnapshot(code)
		require.NoError(t, err)
		for _, s := range view.History {
			sat := 1.0
			if need := s.TotalNeed(); need > 0 {
				sat = math.Min(s.TotalDelivered()/need, 1)
			}
			assert.InDelta(t, 1-sat, s.Undernourished, 1e-9, "%s %d", code, s.Year)
			assert.InDelta(t, malMax*(1-sat), s.Malnutrition, 1e-9, "%s %d", code, s.Year)
			assert.GreaterOrEqual(t, s.HDI, 0.0)
			assert.LessOrEqual(t, s.HDI, 1.0)
			assert.GreaterOrEqual(t, s.InfantMortality, 0.0)
		}
	}
}

func TestNeed_ScalesWithPopulation(t *testing.T) {
	sim := newTestSimulation(t, testOptions(21))
	advance(t, sim, 3, nil)

	for _, code := range world.AllRegions() {
		view, err := sim.RegionSnapshot(code)
		require.NoError(t, err)
		for _, s := range view.History {
			for _, c := range world.AllCrops() {
				assert.Equal(t, s.Population*view.NeedPerCapita[c], s.CropNeed[c], "%s %s %d", code, c, s.Year)
			}
		}
	}
}

func TestTerminateBeforeInitialize(t *testing.T) {
	sim := NewSimulation(provider.NewSynthetic(), testOptions(1))
	sim.Terminate()

	assert.Equal(t, StateTerminated, sim.Status())
	assert.Zero(t, sim.Year())
	assert.Zero(t, sim.StartYear())
	assert.False(t, sim.FamineReached())
	assert.Empty(t, sim.Fingerprint())

	_, err := sim.GlobalStatistic("hdi")
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = sim.RegionSnapshot(world.RegionUSA)
	assert.ErrorIs(t, err, ErrNotReady)
	_, _, err = sim.YearSlices(testStartYear)
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = sim.Digest()
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, sim.WriteReport(io.Discard, testStartYear), ErrNotReady)

	_, err = sim.AdvanceYear(context.Background(), nil)
	assert.ErrorIs(t, err, ErrTerminated)
	assert.ErrorIs(t, sim.Initialize(context.Background(), testStartYear), ErrTerminated)
}

func landIn(t *testing.T, sim *Simulation, code world.RegionCode, year int) world.YearSlice {
	t.Helper()
	slices, _, err := sim.YearSlices(year)
	require.NoError(t, err)
	return slices[code]
}

func TestLandUseCap_BoundsCropLand(t *testing.T) {
	const capShare = 0.1
	sim := newTestSimulation(t, testOptions(8))
	advance(t, sim, 4, func(int) []policy.Effect {
		return []policy.Effect{{Kind: policy.KindLandUseCap, Regions: []string{"USA"}, Crop: "CORN", Magnitude: capShare}}
	})

	for year := testStartYear + 1; year <= sim.Year(); year++ {
		usa := landIn(t, sim, world.RegionUSA, year)
		assert.LessOrEqual(t, usa.CropLand[world.CropCorn], capShare*usa.LandArable+1e-9, "year %d", year)
		assert.LessOrEqual(t, usa.TotalCropLand(), usa.LandArable+1e-9, "year %d", year)
	}
}

func TestLandUseCap_CropReturnsAfterLift(t *testing.T) {
	sim := newTestSimulation(t, testOptions(8))
	advance(t, sim, 10, func(year int) []policy.Effect {
		if year != testStartYear+1 {
			return nil
		}
		return []policy.Effect{{Kind: policy.KindLandUseCap, Regions: []string{"USA"}, Crop: "WHEAT", Magnitude: 0}}
	})

	capped := landIn(t, sim, world.RegionUSA, testStartYear+1)
	assert.Zero(t, capped.CropLand[world.CropWheat])

	for year := testStartYear + 2; year <= sim.Year(); year++ {
		usa := landIn(t, sim, world.RegionUSA, year)
		assert.Greater(t, usa.CropLand[world.CropWheat], 0.0, "year %d", year)
	}
}

func TestSeedShare(t *testing.T) {
	assert.Equal(t, 0.002, seedShare(0, 100, 0.002))
	assert.Equal(t, 0.3, seedShare(0.3, 100, 0.002))
	assert.Equal(t, 0.0, seedShare(0, -5, 0.002))
	assert.Equal(t, 0.001, seedShare(0.001, 0, 0.002))
}

// shiftedShare returns a crop's share of USA land in the first advanced year, with
// and without the effects.
func shiftedShare(t *testing.T, crop world.Crop, effects []policy.Effect) (calm, shifted float64) {
	t.Helper()
	share := func(e []policy.Effect) float64 {
		sim := newTestSimulation(t, testOptions(17))
		_, err := sim.AdvanceYear(context.Background(), e)
		require.NoError(t, err)
		usa := landIn(t, sim, world.RegionUSA, testStartYear+1)
		return usa.CropLand[crop] / usa.TotalCropLand()
	}
	return share(nil), share(effects)
}

func TestSubsidy_MovesLandTowardCrop(t *testing.T) {
	calm, subsidized := shiftedShare(t, world.CropSoy, []policy.Effect{
		{Kind: policy.KindSubsidy, Regions: []string{"USA"}, Crop: "SOY", Magnitude: 1},
	})
	assert.Greater(t, subsidized, calm)
}

func TestLandUseIncentive_MovesLandTowardCrop(t *testing.T) {
	calm, favoured := shiftedShare(t, world.CropWheat, []policy.Effect{
		{Kind: policy.KindLandUseIncentive, Regions: []string{"USA"}, Crop: "WHEAT", Magnitude: 3},
	})
	assert.Greater(t, favoured, calm)

	calm, shunned := shiftedShare(t, world.CropWheat, []policy.Effect{
		{Kind: policy.KindLandUseIncentive, Regions: []string{"USA"}, Crop: "WHEAT", Magnitude: 0.2},
	})
	assert.Less(t, shunned, calm)
}

func TestDistributionMandate_DeliveredBeforeMarket(t *testing.T) {
	year := testStartYear + 1
	calm := newTestSimulation(t, testOptions(19))
	advance(t, calm, 1, nil)
	calmSlices, calmGlobal, err := calm.YearSlices(year)
	require.NoError(t, err)

	ssaNeed := calmSlices[world.RegionSubSaharan].CropNeed[world.CropCorn]
	require.Greater(t, ssaNeed, 0.0)
	mandate := 0.5 * ssaNeed
	require.Greater(t, calmGlobal.Supply[world.CropCorn], mandate)

	sim := newTestSimulation(t, testOptions(19))
	advance(t, sim, 1, func(int) []policy.Effect {
		return []policy.Effect{{Kind: policy.KindDistributionMandate, Regions: []string{"SSA"}, Crop: "CORN", Magnitude: mandate}}
	})
	slices, global, err := sim.YearSlices(year)
	require.NoError(t, err)

	// Production and need come before the market, so only the allocation moves.
	assert.Equal(t, calmGlobal.Supply[world.CropCorn], global.Supply[world.CropCorn])
	ssa := slices[world.RegionSubSaharan]
	assert.GreaterOrEqual(t, ssa.CropDelivered[world.CropCorn], mandate)
	assert.GreaterOrEqual(t, ssa.CropDelivered[world.CropCorn], calmSlices[world.RegionSubSaharan].CropDelivered[world.CropCorn])

	// Unmet demand is counted after the mandated tonnes leave SSA's need.
	counted, allocated := 0.0, 0.0
	for _, code := range world.AllRegions() {
		s := slices[code]
		pre := 0.0
		if code == world.RegionSubSaharan {
			pre = mandate
		}
		counted += math.Max(s.CropNeed[world.CropCorn]-pre, 0)
		allocated += s.CropDelivered[world.CropCorn] - pre
	}
	assert.InDelta(t, counted-allocated, global.Unmet[world.CropCorn], 1e-6*math.Max(counted, 1))
	assert.InDelta(t, sumNeed(calmSlices, world.CropCorn)-mandate, counted, 1e-6*math.Max(counted, 1))
}

func sumNeed(slices [world.NumRegions]world.YearSlice, crop world.Crop) float64 {
	total := 0.0
	for _, s := range slices {
		total += s.CropNeed[crop]
	}
	return total
}
