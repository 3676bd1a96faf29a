// Package economy provides the world food market: per-crop clearing of global
// supply against regional need, and the resulting price.
package economy

import "github.com/talgya/famine-sim/internal/world"

// PriceBounds limits a cleared price to multiples of the crop's base price.
type PriceBounds struct {
	Floor   float64 `mapstructure:"floor" yaml:"floor" validate:"gt=0"`
	Ceiling float64 `mapstructure:"ceiling" yaml:"ceiling" validate:"gtfield=Floor"`
}

// DefaultPriceBounds keeps prices within a quarter and four times the base price.
var DefaultPriceBounds = PriceBounds{Floor: 0.25, Ceiling: 4}

// minSupply prevents division by zero when no supply is left.
const minSupply = 1e-9

// MarketEntry is the supply/demand state of one crop after pre-distribution.
type MarketEntry struct {
	Crop      world.Crop `json:"crop"`
	Supply    float64    `json:"supply"` // Tonnes available to the market
	Demand    float64    `json:"demand"` // Counted demand, tonnes
	Price     float64    `json:"price"`  // $ per tonne
	BasePrice float64    `json:"base_price"`
}

// ResolvePrice sets the price from the demand/supply ratio. The price rises while
// demand exceeds supply and falls on surplus, bounded by floor and ceiling.
func (e *MarketEntry) ResolvePrice(bounds PriceBounds) float64 {
	supply := max(e.Supply, minSupply)

	price := e.BasePrice * (e.Demand / supply)

	floor := e.BasePrice * bounds.Floor
	ceiling := e.BasePrice * bounds.Ceiling
	e.Price = min(max(price, floor), ceiling)
	return e.Price
}
