package policy

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/talgya/famine-sim/internal/world"
)

// Overrides is the per-year parameter set produced from enacted effects.
// Neutral values are 1 for multipliers and 0 for additive terms.
type Overrides struct {
	LandIncentive   [world.NumRegions][world.NumCrops]float64
	LandCap         [world.NumRegions][world.NumCrops]float64 // Fraction of arable land
	MethodIncentive [world.NumRegions][world.NumMethods]float64
	PriceFactor     [world.NumRegions][world.NumCrops]float64
	PenaltyDelta    [world.NumRegions]float64
	Mitigation      [world.NumRegions][world.NumEventKinds]float64 // 0..1
	PreDistribution [world.NumRegions][world.NumCrops]float64      // Tonnes
	CostMultiplier  [world.NumRegions]float64
	Grant           [world.NumRegions]float64

	taxRate    [world.NumRegions]float64
	taxRateSet [world.NumRegions]bool
}

// NewOverrides returns the neutral override set of a year with no policies.
func NewOverrides() *Overrides {
	o := &Overrides{}
	for r := range world.NumRegions {
		for c := range world.NumCrops {
			o.LandIncentive[r][c] = 1
			o.LandCap[r][c] = 1
			o.PriceFactor[r][c] = 1
		}
		for m := range world.NumMethods {
			o.MethodIncentive[r][m] = 1
		}
		o.CostMultiplier[r] = 1
	}
	return o
}

// TaxRate returns the enacted tax rate for a region, or fallback when none was enacted.
func (o *Overrides) TaxRate(code world.RegionCode, fallback float64) float64 {
	if o.taxRateSet[code] {
		return o.taxRate[code]
	}
	return fallback
}

// TradePenalty returns the region's penalty after tariffs, clamped to [0, 1].
func (o *Overrides) TradePenalty(code world.RegionCode, base float64) float64 {
	return min(max(base+o.PenaltyDelta[code], 0), 1)
}

// Applier validates effects and folds them into overrides.
type Applier struct {
	validate *validator.Validate
}

// NewApplier creates an applier.
func NewApplier() *Applier {
	return &Applier{validate: validator.New()}
}

var errDropped = errors.New("dropped")

// target is an effect with its names resolved.
type target struct {
	regions []world.RegionCode
	crop    world.Crop
	hasCrop bool
	method  world.Method
	event   world.EventKind
}

// Apply folds effects in submission order. Invalid effects are dropped with a
// warning; Apply never fails.
func (a *Applier) Apply(effects []Effect) (*Overrides, []Warning) {
	o := NewOverrides()
	var warnings []Warning

	for i, e := range effects {
		warn := func(msg string) {
			warnings = append(warnings, Warning{Index: i, Effect: e.String(), Message: msg})
		}

		t, err := a.resolve(e)
		if err != nil {
			warn(err.Error())
			continue
		}

		// Fiscal effects only reach player regions.
		if e.Kind == KindTaxRate || e.Kind == KindGrant {
			var players []world.RegionCode
			for _, code := range t.regions {
				if code.Player() {
					players = append(players, code)
				} else if len(e.Regions) > 0 {
					warn(fmt.Sprintf("region %s is not a player region", code))
				}
			}
			t.regions = players
		}

		crops := world.AllCrops()
		if t.hasCrop {
			crops = []world.Crop{t.crop}
		}

		for _, code := range t.regions {
			switch e.Kind {
			case KindLandUseIncentive:
				o.LandIncentive[code][t.crop] *= e.Magnitude
			case KindLandUseCap:
				o.LandCap[code][t.crop] = min(o.LandCap[code][t.crop], e.Magnitude)
			case KindTariff:
				o.PenaltyDelta[code] += e.Magnitude
			case KindSubsidy:
				for _, c := range crops {
					o.PriceFactor[code][c] *= 1 + e.Magnitude
				}
			case KindDistributionMandate:
				o.PreDistribution[code][t.crop] += e.Magnitude
			case KindEventMitigation:
				prev := o.Mitigation[code][t.event]
				o.Mitigation[code][t.event] = 1 - (1-prev)*(1-e.Magnitude)
			case KindTaxRate:
				o.taxRate[code] = e.Magnitude
				o.taxRateSet[code] = true
			case KindProductionCost:
				o.CostMultiplier[code] *= e.Magnitude
			case KindGrant:
				o.Grant[code] += e.Magnitude
			case KindMethodIncentive:
				o.MethodIncentive[code][t.method] *= e.Magnitude
			}
		}
	}
	return o, warnings
}

// resolve checks an effect and maps its names onto enumerations.
func (a *Applier) resolve(e Effect) (target, error) {
	var t target

	if err := a.validate.Struct(e); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("field '%s' failed %s", fe.Field(), fe.Tag()))
			}
			return t, fmt.Errorf("%w: %s", errDropped, strings.Join(msgs, "; "))
		}
		return t, fmt.Errorf("%w: %v", errDropped, err)
	}
	if math.IsNaN(e.Magnitude) || math.IsInf(e.Magnitude, 0) {
		return t, fmt.Errorf("%w: magnitude is not finite", errDropped)
	}

	if len(e.Regions) == 0 {
		if e.Kind == KindDistributionMandate {
			return t, fmt.Errorf("%w: distribution mandate needs a target region", errDropped)
		}
		t.regions = world.AllRegions()
	}
	seen := [world.NumRegions]bool{}
	for _, name := range e.Regions {
		code, ok := world.RegionFromString(name)
		if !ok {
			return t, fmt.Errorf("%w: unknown region %q", errDropped, name)
		}
		if !seen[code] {
			seen[code] = true
			t.regions = append(t.regions, code)
		}
	}

	if e.Crop != "" {
		c, ok := world.CropFromString(e.Crop)
		if !ok {
			return t, fmt.Errorf("%w: unknown crop %q", errDropped, e.Crop)
		}
		t.crop, t.hasCrop = c, true
	}
	methodSet := false
	if e.Method != "" {
		m, ok := world.MethodFromString(e.Method)
		if !ok {
			return t, fmt.Errorf("%w: unknown method %q", errDropped, e.Method)
		}
		t.method, methodSet = m, true
	}
	eventSet := false
	if e.Event != "" {
		k, ok := world.EventKindFromString(e.Event)
		if !ok {
			return t, fmt.Errorf("%w: unknown event %q", errDropped, e.Event)
		}
		t.event, eventSet = k, true
	}

	switch e.Kind {
	case KindLandUseIncentive, KindLandUseCap, KindDistributionMandate:
		if !t.hasCrop {
			return t, fmt.Errorf("%w: %s needs a crop", errDropped, e.Kind)
		}
	case KindMethodIncentive:
		if !methodSet {
			return t, fmt.Errorf("%w: %s needs a method", errDropped, e.Kind)
		}
	case KindEventMitigation:
		if !eventSet {
			return t, fmt.Errorf("%w: %s needs an event", errDropped, e.Kind)
		}
	}

	if err := checkMagnitude(e.Kind, e.Magnitude); err != nil {
		return t, fmt.Errorf("%w: %v", errDropped, err)
	}
	return t, nil
}

func checkMagnitude(kind Kind, m float64) error {
	switch kind {
	case KindLandUseCap, KindEventMitigation, KindTaxRate:
		if m < 0 || m > 1 {
			return fmt.Errorf("magnitude %g outside [0, 1]", m)
		}
	case KindTariff:
		if m < -1 || m > 1 {
			return fmt.Errorf("magnitude %g outside [-1, 1]", m)
		}
	case KindSubsidy:
		if m <= -1 {
			return fmt.Errorf("subsidy %g would make prices non-positive", m)
		}
	default:
		if m < 0 {
			return fmt.Errorf("magnitude %g is negative", m)
		}
	}
	return nil
}
