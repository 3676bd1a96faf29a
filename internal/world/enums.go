// Fixed enumerations for regions, crops, cultivation methods, and special events.
// Every per-region and per-crop table in the simulation is an array indexed by these.
package world

import (
	"fmt"
	"strings"
)

// RegionCode identifies one of the modeled geopolitical regions.
type RegionCode uint8

const (
	RegionUSA          RegionCode = iota // United States (player)
	RegionArctic                         // Canada, Alaska, Greenland
	RegionMiddleAmerica                  // Mexico, Central America, Caribbean
	RegionSouthAmerica                   // (player)
	RegionEurope                         // (player)
	RegionMiddleEast                     // Middle East, North Africa
	RegionSubSaharan                     // (player)
	RegionRussia                         // Russia and Caucasus
	RegionCentralAsia                    // Central Asian republics
	RegionSouthAsia                      // (player)
	RegionEastAsia                       // (player)
	RegionOceania                        // (player)

	NumRegions = 12
)

type regionInfo struct {
	code   string
	name   string
	player bool
}

var regionTable = [NumRegions]regionInfo{
	RegionUSA:           {"USA", "United States", true},
	RegionArctic:        {"ARC", "Arctic America", false},
	RegionMiddleAmerica: {"MAM", "Middle America", false},
	RegionSouthAmerica:  {"SAM", "South America", true},
	RegionEurope:        {"EUR", "Europe", true},
	RegionMiddleEast:    {"MEA", "Middle East", false},
	RegionSubSaharan:    {"SSA", "Sub-Saharan Africa", true},
	RegionRussia:        {"RUS", "Russia", false},
	RegionCentralAsia:   {"CAS", "Central Asia", false},
	RegionSouthAsia:     {"SAS", "South Asia", true},
	RegionEastAsia:      {"EAS", "East Asia", true},
	RegionOceania:       {"OCE", "Oceania", true},
}

// String returns the short region code, e.g. "USA".
func (r RegionCode) String() string {
	if !r.Valid() {
		return fmt.Sprintf("REGION(%d)", uint8(r))
	}
	return regionTable[r].code
}

// Name returns the display name.
func (r RegionCode) Name() string {
	if !r.Valid() {
		return "Unknown"
	}
	return regionTable[r].name
}

// Player reports whether a player controls the region and collects revenue from it.
func (r RegionCode) Player() bool {
	return r.Valid() && regionTable[r].player
}

// Valid reports whether r is one of the enumerated regions.
func (r RegionCode) Valid() bool {
	return r < NumRegions
}

// AllRegions returns every region code in ordinal order.
func AllRegions() []RegionCode {
	out := make([]RegionCode, NumRegions)
	for i := range out {
		out[i] = RegionCode(i)
	}
	return out
}

// RegionFromString parses a region code (case-insensitive).
func RegionFromString(s string) (RegionCode, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, info := range regionTable {
		if info.code == s {
			return RegionCode(i), true
		}
	}
	return 0, false
}

// Crop is a farm product category.
type Crop uint8

const (
	CropWheat Crop = iota
	CropRice
	CropCorn
	CropSoy
	CropVegetables
	CropFruit
	CropOilseed
	CropFeed

	NumCrops = 8
)

var cropNames = [NumCrops]string{"WHEAT", "RICE", "CORN", "SOY", "VEGETABLES", "FRUIT", "OILSEED", "FEED"}

func (c Crop) String() string {
	if !c.Valid() {
		return fmt.Sprintf("CROP(%d)", uint8(c))
	}
	return cropNames[c]
}

// Valid reports whether c is one of the enumerated crops.
func (c Crop) Valid() bool {
	return c < NumCrops
}

// AllCrops returns every crop in ordinal order.
func AllCrops() []Crop {
	out := make([]Crop, NumCrops)
	for i := range out {
		out[i] = Crop(i)
	}
	return out
}

// CropFromString parses a crop name (case-insensitive).
func CropFromString(s string) (Crop, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range cropNames {
		if name == s {
			return Crop(i), true
		}
	}
	return 0, false
}

// Method is a cultivation technique. Each region splits its cropland across methods.
type Method uint8

const (
	MethodConventional Method = iota
	MethodOrganic
	MethodGMO

	NumMethods = 3
)

var methodNames = [NumMethods]string{"CONVENTIONAL", "ORGANIC", "GMO"}

func (m Method) String() string {
	if !m.Valid() {
		return fmt.Sprintf("METHOD(%d)", uint8(m))
	}
	return methodNames[m]
}

// Valid reports whether m is one of the enumerated methods.
func (m Method) Valid() bool {
	return m < NumMethods
}

// AllMethods returns every method in ordinal order.
func AllMethods() []Method {
	return []Method{MethodConventional, MethodOrganic, MethodGMO}
}

// MethodFromString parses a method name (case-insensitive).
func MethodFromString(s string) (Method, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range methodNames {
		if name == s {
			return Method(i), true
		}
	}
	return 0, false
}

// MethodYieldFactor is the yield multiplier of land farmed with a method.
var MethodYieldFactor = [NumMethods]float64{
	MethodConventional: 1.0,
	MethodOrganic:      0.8,
	MethodGMO:          1.15,
}

// EventKind is a stochastic yearly occurrence that alters yield for one year.
type EventKind uint8

const (
	EventStorm EventKind = iota // Hurricanes, typhoons
	EventDrought
	EventFlood
	EventFrost   // Unseasonable frost, harsh winter
	EventDisease // Crop disease, blight, insects
	EventBumper  // Favorable season

	NumEventKinds = 6
)

var eventNames = [NumEventKinds]string{"STORM", "DROUGHT", "FLOOD", "FROST", "DISEASE", "BUMPER"}

func (e EventKind) String() string {
	if !e.Valid() {
		return fmt.Sprintf("EVENT(%d)", uint8(e))
	}
	return eventNames[e]
}

// Valid reports whether e is one of the enumerated event kinds.
func (e EventKind) Valid() bool {
	return e < NumEventKinds
}

// Destructive reports whether the event lowers yield.
func (e EventKind) Destructive() bool {
	return e != EventBumper
}

// AllEventKinds returns every event kind in draw order.
func AllEventKinds() []EventKind {
	out := make([]EventKind, NumEventKinds)
	for i := range out {
		out[i] = EventKind(i)
	}
	return out
}

// EventKindFromString parses an event kind name (case-insensitive).
func EventKindFromString(s string) (EventKind, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range eventNames {
		if name == s {
			return EventKind(i), true
		}
	}
	return 0, false
}
