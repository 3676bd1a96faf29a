package engine

import "github.com/talgya/famine-sim/internal/world"

// updateNeed sets need per crop from population and the region's static diet.
func (s *Simulation) updateNeed(d *draft) error {
	return s.sc.forEachRegion(PhaseNeed, func(code world.RegionCode, log *regionLog) error {
		region := s.world.Region(code)
		next := d.next[code]
		for _, crop := range world.AllCrops() {
			next.CropNeed[crop] = log.nonNegative("need", next.Population*region.NeedPerCapita[crop])
		}
		return nil
	})
}
