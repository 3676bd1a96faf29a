package engine

import (
	"fmt"

	"github.com/talgya/famine-sim/internal/entropy"
	"github.com/talgya/famine-sim/internal/world"
)

// drawsPerKind is fixed so that a changed probability never shifts later draws.
const drawsPerKind = 3

// generateEvents draws each region's special events from its own sub-stream.
// Every kind consumes exactly three draws (trigger, severity, crop) in a fixed
// order whether or not it fires.
func (s *Simulation) generateEvents(d *draft) error {
	return s.sc.forEachRegion(PhaseEvents, func(code world.RegionCode, log *regionLog) error {
		next := d.next[code]
		stream := s.sc.Entropy.Stream(d.year, code, entropy.PurposeEvents)

		next.Events = nil
		for _, kind := range world.AllEventKinds() {
			p := s.eventProbability(code, kind, d)

			trigger := stream.Float()
			severityDraw := stream.Float()
			crop := world.Crop(stream.IntN(world.NumCrops))

			if trigger >= p {
				continue
			}
			out := world.EventOutcome{
				Kind:     kind,
				Severity: s.sc.Tuning.Events.SeverityMin + severityDraw*(s.sc.Tuning.Events.SeverityMax-s.sc.Tuning.Events.SeverityMin),
			}
			switch kind {
			case world.EventDisease, world.EventBumper:
				out.Crop = crop
			default:
				out.AllCrops = true
			}
			next.Events = append(next.Events, out)
		}

		if err := stream.Err(); err != nil {
			return fmt.Errorf("event stream: %w", err)
		}
		if stream.Draws() != drawsPerKind*world.NumEventKinds {
			return fmt.Errorf("event stream: %d draws, want %d", stream.Draws(), drawsPerKind*world.NumEventKinds)
		}
		return nil
	})
}

// eventProbability is the base rate times climate and land modifiers times
// (1 − mitigation), clamped to [0, MaxProbability].
func (s *Simulation) eventProbability(code world.RegionCode, kind world.EventKind, d *draft) float64 {
	t := s.sc.Tuning.Events
	next := d.next[code]
	base := s.static[code].baseClimate

	mod := 1.0
	switch kind {
	case world.EventStorm, world.EventFlood:
		mod = 1 + t.SeaLevelSensitivity*max(d.global.SeaLevel, 0)
	case world.EventDrought:
		deficit := 0.0
		if base.Precipitation > 0 {
			deficit = max(0, 1-next.Climate.Precipitation/base.Precipitation)
		}
		heat := max(0, next.Climate.DayTemp-base.DayTemp)
		mod = 1 + t.DroughtSensitivity*deficit + t.HeatSensitivity*heat
	case world.EventFrost:
		mod = 1 + t.FrostSensitivity*max(0, (frostReferenceDays-next.Climate.FrostFreeDays)/frostReferenceDays)
	case world.EventDisease:
		mod = 1 + t.MonocultureSensitivity*monocultureIndex(next.CropLand)
	}

	p := t.Base.Rate(kind) * mod * (1 - d.overrides.Mitigation[code][kind])
	return min(max(p, 0), t.MaxProbability)
}

// frostReferenceDays is the frost-free season below which frost risk rises.
const frostReferenceDays = 180.0

// monocultureIndex is the crop-land concentration rescaled to 0 (even spread)
// .. 1 (one crop).
func monocultureIndex(land [world.NumCrops]float64) float64 {
	total := 0.0
	for _, l := range land {
		total += l
	}
	if total <= 0 {
		return 0
	}
	hhi := 0.0
	for _, l := range land {
		share := l / total
		hhi += share * share
	}
	even := 1.0 / world.NumCrops
	return max(0, (hhi-even)/(1-even))
}

// eventFactors turns a year's events into a yield multiplier per crop.
func eventFactors(events []world.EventOutcome, bumperGain float64) [world.NumCrops]float64 {
	var f [world.NumCrops]float64
	for c := range f {
		f[c] = 1
	}
	for _, e := range events {
		switch {
		case e.Kind == world.EventBumper:
			f[e.Crop] *= 1 + e.Severity*bumperGain
		case e.AllCrops:
			for c := range f {
				f[c] *= 1 - e.Severity*world.EventSensitivity[e.Kind][c]
			}
		default:
			f[e.Crop] *= 1 - e.Severity
		}
	}
	for c := range f {
		f[c] = max(f[c], 0)
	}
	return f
}
