package engine

import (
	"fmt"

	"github.com/talgya/famine-sim/internal/economy"
	"github.com/talgya/famine-sim/internal/world"
)

// clearMarkets pools production per crop and distributes it to the regions that
// feed the most people per tonne.
// Clearing couples all regions, so it runs once for the world after the barrier
// of the need phase.
func (s *Simulation) clearMarkets(d *draft) error {
	bounds := s.sc.Tuning.Market.PriceBounds

	claims := make([]economy.Claim, world.NumRegions)
	for _, code := range world.AllRegions() {
		region := s.world.Region(code)
		d.next[code].TradePenalty = d.overrides.TradePenalty(code, region.BaseTradePenalty)
	}

	for _, crop := range world.AllCrops() {
		supply := 0.0
		for _, code := range world.AllRegions() {
			next := d.next[code]
			supply += next.CropProduction[crop]
			claims[code] = economy.Claim{
				Region:          code,
				Need:            next.CropNeed[crop],
				Penalty:         next.TradePenalty,
				PreDistribution: d.overrides.PreDistribution[code][crop],
				NeedPerCapita:   s.world.Region(code).NeedPerCapita[crop],
			}
		}

		res, err := economy.Clear(crop, supply, claims, world.CropProfiles[crop].BasePrice, bounds)
		if err != nil {
			return fmt.Errorf("%s: %w", PhaseMarket, err)
		}

		for i, a := range res.Allocations {
			next := d.next[i]
			next.CropDelivered[crop] = a.Delivered
			next.CropSatisfied[crop] = a.Satisfied
			if mandated := d.overrides.PreDistribution[i][crop]; a.PreDistributed < mandated {
				s.sc.warn(PhaseMarket, "%s %s: mandate of %.0f t cut to %.0f t by supply", a.Region, crop, mandated, a.PreDistributed)
			}
		}

		g := d.global
		g.Supply[crop] = res.Supply
		g.Price[crop] = res.Entry.Price
		g.Surplus[crop] = res.Surplus
		g.Unmet[crop] = res.Unmet
		g.PenaltyFed[crop] = res.PenaltyFed
	}
	return nil
}
