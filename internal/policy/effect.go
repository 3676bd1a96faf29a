// Package policy folds a year's enacted policy effects into parameter overrides
// consumed by the simulation phases. It never touches world state.
package policy

import (
	"fmt"
	"strings"
)

// Kind identifies what an effect changes.
type Kind string

const (
	KindLandUseIncentive    Kind = "land_use_incentive"   // × target land share of a crop
	KindLandUseCap          Kind = "land_use_cap"         // max fraction of arable land for a crop
	KindTariff              Kind = "tariff"               // + trade penalty of the region
	KindSubsidy             Kind = "subsidy"              // × (1+m) farm-gate price used for planting decisions
	KindDistributionMandate Kind = "distribution_mandate" // tonnes delivered to the region before the market
	KindEventMitigation     Kind = "event_mitigation"     // event probability × (1−m)
	KindTaxRate             Kind = "tax_rate"             // replaces the region's tax rate
	KindProductionCost      Kind = "production_cost"      // × production cost per area
	KindGrant               Kind = "grant"                // fixed $ added to revenue
	KindMethodIncentive     Kind = "method_incentive"     // × share of a cultivation method
)

// Kinds lists every effect kind in a fixed order.
var Kinds = []Kind{
	KindLandUseIncentive, KindLandUseCap, KindTariff, KindSubsidy, KindDistributionMandate,
	KindEventMitigation, KindTaxRate, KindProductionCost, KindGrant, KindMethodIncentive,
}

// Effect is one enacted policy decision for one simulated year. Targets are given by
// name as they arrive from the game server; an empty Regions list means every region.
// Multi-year policies are re-submitted every year they remain enacted.
type Effect struct {
	Kind      Kind     `json:"kind" yaml:"kind" validate:"required,oneof=land_use_incentive land_use_cap tariff subsidy distribution_mandate event_mitigation tax_rate production_cost grant method_incentive"`
	Regions   []string `json:"regions,omitempty" yaml:"regions,omitempty" validate:"dive,required"`
	Crop      string   `json:"crop,omitempty" yaml:"crop,omitempty"`
	Method    string   `json:"method,omitempty" yaml:"method,omitempty"`
	Event     string   `json:"event,omitempty" yaml:"event,omitempty"`
	Magnitude float64  `json:"magnitude" yaml:"magnitude"`
}

func (e Effect) String() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if len(e.Regions) > 0 {
		fmt.Fprintf(&b, " regions=%s", strings.Join(e.Regions, ","))
	}
	if e.Crop != "" {
		fmt.Fprintf(&b, " crop=%s", e.Crop)
	}
	if e.Method != "" {
		fmt.Fprintf(&b, " method=%s", e.Method)
	}
	if e.Event != "" {
		fmt.Fprintf(&b, " event=%s", e.Event)
	}
	fmt.Fprintf(&b, " magnitude=%g", e.Magnitude)
	return b.String()
}

// Warning records an effect, or part of one, that was dropped.
type Warning struct {
	Index   int    `json:"index"` // Position in the submitted list
	Effect  string `json:"effect"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("effect %d (%s): %s", w.Index, w.Effect, w.Message)
}
