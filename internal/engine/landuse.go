package engine

import (
	"math"

	"github.com/talgya/famine-sim/internal/world"
)

// maxRelativeProfit bounds the exponent of the share update.
const maxRelativeProfit = 3.0

// updateLandUse shifts each region's crop land toward last year's most profitable
// crops, bounded by policy caps and the region's arable land.
func (s *Simulation) updateLandUse(d *draft) error {
	tuning := s.sc.Tuning.LandUse
	return s.sc.forEachRegion(PhaseLandUse, func(code world.RegionCode, log *regionLog) error {
		prev, next := d.prev[code], d.next[code]
		arable := next.LandArable

		cultivated := min(prev.TotalCropLand(), arable)
		if cultivated <= 0 {
			next.MethodShare = allocateMethods(prev.MethodShare, d.overrides.MethodIncentive[code])
			return nil
		}

		var share [world.NumCrops]float64
		for c := range share {
			share[c] = prev.CropLand[c] / prev.TotalCropLand()
		}

		// Profit per km² at last year's yield and price, subsidies included.
		var profit [world.NumCrops]float64
		meanProfit := 0.0
		for c := range profit {
			price := d.prevGlobal.Price[c] * d.overrides.PriceFactor[code][c]
			profit[c] = prev.CropYield[c]*price - s.costPerArea(code, world.Crop(c), d)
			meanProfit += share[c] * profit[c]
		}
		scale := math.Max(math.Abs(meanProfit), 1)

		var target [world.NumCrops]float64
		total := 0.0
		for c := range target {
			rel := (profit[c] - meanProfit) / scale
			rel = min(max(rel, -maxRelativeProfit), maxRelativeProfit)
			target[c] = seedShare(share[c], profit[c], tuning.MinShare) * math.Exp(tuning.Elasticity*rel) * d.overrides.LandIncentive[code][c]
			total += target[c]
		}
		if total <= 0 {
			target = share
		} else {
			for c := range target {
				target[c] /= total
			}
		}

		var blended [world.NumCrops]float64
		for c := range blended {
			blended[c] = (1-tuning.AdjustRate)*share[c] + tuning.AdjustRate*target[c]
			if share[c] > 0 && blended[c] < tuning.MinShare {
				blended[c] = tuning.MinShare
			}
		}
		blended = normalizeShares(blended)

		var capShare [world.NumCrops]float64
		for c := range capShare {
			capShare[c] = d.overrides.LandCap[code][c] * arable / cultivated
		}
		final := waterFill(blended, capShare)

		for c := range final {
			next.CropLand[c] = log.nonNegative("land", final[c]*cultivated)
		}
		fitToArable(&next.CropLand, arable)

		next.MethodShare = allocateMethods(prev.MethodShare, d.overrides.MethodIncentive[code])
		return nil
	})
}

// seedShare is the share a crop's target grows from. A profitable crop that lost
// its land (a cap or a zero incentive last year) restarts from the minimum share,
// so a one-year policy never removes a crop for good.
func seedShare(share, profit, minShare float64) float64 {
	if profit > 0 {
		return max(share, minShare)
	}
	return share
}

// costPerArea is the production cost of a crop in a region, $ per km².
func (s *Simulation) costPerArea(code world.RegionCode, crop world.Crop, d *draft) float64 {
	return world.CropProfiles[crop].CostPerArea * s.sc.Tuning.Revenue.CostScale * d.overrides.CostMultiplier[code]
}

// waterFill caps shares and redistributes the excess proportionally over the
// uncapped crops until no cap is exceeded. If every crop is capped the shares sum
// to less than one and the rest of the land lies fallow.
func waterFill(share, caps [world.NumCrops]float64) [world.NumCrops]float64 {
	var fixed [world.NumCrops]bool
	for range world.NumCrops {
		excess := 0.0
		free := 0.0
		changed := false
		for c := range share {
			if fixed[c] {
				continue
			}
			if share[c] > caps[c] {
				excess += share[c] - caps[c]
				share[c] = caps[c]
				fixed[c] = true
				changed = true
			}
		}
		if !changed {
			break
		}
		for c := range share {
			if !fixed[c] {
				free += share[c]
			}
		}
		if free <= 0 {
			break
		}
		for c := range share {
			if !fixed[c] {
				share[c] += excess * share[c] / free
			}
		}
	}
	return share
}

// fitToArable scales land down so its sum never exceeds arable land.
func fitToArable(land *[world.NumCrops]float64, arable float64) {
	total := 0.0
	for _, l := range land {
		total += l
	}
	if total <= arable {
		return
	}
	f := arable / total
	total = 0
	largest := 0
	for c := range land {
		land[c] *= f
		total += land[c]
		if land[c] > land[largest] {
			largest = c
		}
	}
	// Rounding can leave the sum a few ulps above arable.
	if total > arable {
		land[largest] = max(land[largest]-(total-arable), 0)
	}
}

// allocateMethods applies method incentives and renormalizes the mix to one.
func allocateMethods(prev, incentive [world.NumMethods]float64) [world.NumMethods]float64 {
	var mix [world.NumMethods]float64
	total := 0.0
	for m := range mix {
		mix[m] = max(prev[m]*incentive[m], 0)
		total += mix[m]
	}
	if total <= 0 {
		mix = [world.NumMethods]float64{}
		mix[world.MethodConventional] = 1
		return mix
	}
	for m := range mix {
		mix[m] /= total
	}
	return mix
}

func normalizeShares(v [world.NumCrops]float64) [world.NumCrops]float64 {
	total := 0.0
	for _, x := range v {
		total += x
	}
	if total <= 0 {
		return v
	}
	for c := range v {
		v[c] /= total
	}
	return v
}
