package engine

import "github.com/talgya/famine-sim/internal/world"

// updateRevenue computes farm income for every region and tax revenue for the
// player regions. Non-player regions keep a zero revenue.
func (s *Simulation) updateRevenue(d *draft) error {
	return s.sc.forEachRegion(PhaseRevenue, func(code world.RegionCode, log *regionLog) error {
		next := d.next[code]

		gross, cost := 0.0, 0.0
		for _, crop := range world.AllCrops() {
			gross += next.CropProduction[crop] * d.global.Price[crop]
			cost += next.CropLand[crop] * s.costPerArea(code, crop, d)
		}
		next.GrossFarmIncome = gross
		next.ProductionCost = cost
		next.NetFarmIncome = gross - cost

		next.Grant = 0
		next.Revenue = 0
		if !code.Player() {
			return nil
		}

		next.TaxRate = d.overrides.TaxRate(code, next.TaxRate)
		tax := next.NetFarmIncome * next.TaxRate
		if tax < 0 {
			log.warnf("net farm income %.0f is negative, tax revenue clamped to 0", next.NetFarmIncome)
			tax = 0
		}
		next.Grant = d.overrides.Grant[code]
		next.Revenue = tax + next.Grant
		return nil
	})
}

// aggregate fills the world totals of the draft year.
func (s *Simulation) aggregate(d *draft) {
	g := d.global
	undernourished, hdi := 0.0, 0.0
	for _, next := range d.next {
		g.Population += next.Population
		undernourished += next.Undernourished * next.Population
		hdi += next.HDI * next.Population
		g.Revenue += next.Revenue
	}
	if g.Population > 0 {
		g.Undernourished = undernourished / g.Population
		g.HDI = hdi / g.Population
	}
}
