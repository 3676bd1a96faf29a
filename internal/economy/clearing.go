package economy

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/talgya/famine-sim/internal/world"
)

// ErrNegativeSupply is returned when a crop is cleared with negative supply. Supply
// is a sum of non-negative production, so this is a contract violation.
var ErrNegativeSupply = errors.New("negative supply")

// ErrInvalidClaim is returned for a claim with negative or non-finite quantities.
var ErrInvalidClaim = errors.New("invalid claim")

// Claim is one region's demand on the market for a crop.
type Claim struct {
	Region          world.RegionCode
	Need            float64 // Tonnes
	Penalty         float64 // Trade penalty, 0..1, lower is better
	PreDistribution float64 // Tonnes mandated before the market opens
	NeedPerCapita   float64 // Tonnes per person; zero ranks the claim by penalty alone
}

// peopleFedPerTonne is the number of people a tonne allocated to the claim feeds
// once the trade penalty is paid.
func (c Claim) peopleFedPerTonne() float64 {
	perCapita := c.NeedPerCapita
	if perCapita <= 0 {
		perCapita = 1
	}
	return (1 - clampPenalty(c.Penalty)) / perCapita
}

// Allocation is the food a region received for a crop.
type Allocation struct {
	Region         world.RegionCode `json:"region"`
	PreDistributed float64          `json:"pre_distributed"`
	Allocated      float64          `json:"allocated"`
	Delivered      float64          `json:"delivered"` // PreDistributed + Allocated
	Satisfied      float64          `json:"satisfied"` // Delivered / need, 0..1
}

// Result is the cleared market of one crop.
type Result struct {
	Entry       MarketEntry  `json:"entry"`
	Allocations []Allocation `json:"allocations"` // Same order as the claims
	Supply      float64      `json:"supply"`      // Total before pre-distribution
	Surplus     float64      `json:"surplus"`
	Unmet       float64      `json:"unmet"`       // Counted demand left unserved
	PenaltyFed  float64      `json:"penalty_fed"` // Σ allocated × (1 − penalty)
}

// TotalDelivered returns all food handed out, which never exceeds Supply.
func (r Result) TotalDelivered() float64 {
	total := 0.0
	for _, a := range r.Allocations {
		total += a.Delivered
	}
	return total
}

// Clear distributes supply of one crop. Pre-distribution mandates are served first
// in region order and removed from both supply and counted demand. The remaining
// supply goes greedily to the regions that feed the most people per tonne (ties
// by lower penalty, then region ordinal), each receiving min(remaining need,
// remaining supply). The price is
// resolved from counted demand against the supply left after pre-distribution.
func Clear(crop world.Crop, supply float64, claims []Claim, basePrice float64, bounds PriceBounds) (Result, error) {
	if math.IsNaN(supply) || supply < 0 {
		return Result{}, fmt.Errorf("clearing %s: supply %g: %w", crop, supply, ErrNegativeSupply)
	}
	for _, c := range claims {
		if !finiteNonNegative(c.Need) || !finiteNonNegative(c.PreDistribution) || !finiteNonNegative(c.NeedPerCapita) || math.IsNaN(c.Penalty) {
			return Result{}, fmt.Errorf("clearing %s: region %s: %w", crop, c.Region, ErrInvalidClaim)
		}
	}

	res := Result{
		Supply:      supply,
		Allocations: make([]Allocation, len(claims)),
	}
	remaining := supply

	// Pre-distribution in region ordinal order.
	byRegion := make([]int, len(claims))
	for i := range byRegion {
		byRegion[i] = i
	}
	sort.SliceStable(byRegion, func(a, b int) bool {
		return claims[byRegion[a]].Region < claims[byRegion[b]].Region
	})

	counted := make([]float64, len(claims))
	for _, i := range byRegion {
		c := claims[i]
		pre := min(c.PreDistribution, remaining)
		remaining -= pre
		res.Allocations[i] = Allocation{Region: c.Region, PreDistributed: pre}
		counted[i] = max(c.Need-pre, 0)
	}
	marketSupply := remaining

	demand := 0.0
	for _, d := range counted {
		demand += d
	}

	// Greedy allocation, most efficient region first.
	order := append([]int(nil), byRegion...)
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := claims[order[a]], claims[order[b]]
		if fa, fb := ca.peopleFedPerTonne(), cb.peopleFedPerTonne(); fa != fb {
			return fa > fb
		}
		return ca.Penalty < cb.Penalty
	})
	for _, i := range order {
		if remaining <= 0 {
			break
		}
		alloc := min(counted[i], remaining)
		remaining -= alloc
		res.Allocations[i].Allocated = alloc
		res.PenaltyFed += alloc * (1 - clampPenalty(claims[i].Penalty))
	}

	for i, c := range claims {
		a := &res.Allocations[i]
		a.Delivered = a.PreDistributed + a.Allocated
		if c.Need > 0 {
			a.Satisfied = min(a.Delivered/c.Need, 1)
		} else {
			a.Satisfied = 1
		}
		res.Unmet += counted[i] - a.Allocated
	}
	res.Surplus = max(remaining, 0)

	res.Entry = MarketEntry{
		Crop:      crop,
		Supply:    marketSupply,
		Demand:    demand,
		BasePrice: basePrice,
	}
	res.Entry.ResolvePrice(bounds)
	return res, nil
}

func clampPenalty(p float64) float64 {
	return min(max(p, 0), 1)
}

func finiteNonNegative(x float64) bool {
	return x >= 0 && !math.IsInf(x, 0)
}
