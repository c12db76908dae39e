package economy

import (
	"math"

	"github.com/talgya/chronicle/internal/engine"
)

// Price bounds relative to base price, and how strongly price reacts to the
// demand/supply ratio.
const (
	PriceFloor      = 0.25
	PriceCeiling    = 4.0
	PriceElasticity = 0.8

	risingThreshold  = 1.05
	fallingThreshold = 0.95
)

// CalculatePrice resolves a price from supply/demand pressure, bounded by
// floor and ceiling. Equal supply and demand yield the base price times the
// modifier. A non-positive modifier is treated as 1.
func CalculatePrice(r Resource, supply, demand, modifier float64) float64 {
	base := BasePrice(r)
	if modifier <= 0 {
		modifier = 1
	}
	floor := base * PriceFloor
	ceiling := base * PriceCeiling

	switch {
	case supply <= 0:
		return ceiling
	case demand <= 0:
		return floor
	}

	price := base * math.Pow(demand/supply, PriceElasticity) * modifier
	if price < floor {
		price = floor
	}
	if price > ceiling {
		price = ceiling
	}
	return price
}

// Trend is the direction of a price between two resolutions.
type Trend uint8

const (
	Stable Trend = iota
	Rising
	Falling
)

func (t Trend) String() string {
	switch t {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	default:
		return "stable"
	}
}

func (t Trend) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// DetermineTrend compares two prices: rising at +5% or more, falling at -5%
// or more, otherwise stable.
func DetermineTrend(oldPrice, newPrice float64) Trend {
	if oldPrice <= 0 {
		return Stable
	}
	switch {
	case newPrice >= oldPrice*risingThreshold:
		return Rising
	case newPrice <= oldPrice*fallingThreshold:
		return Falling
	default:
		return Stable
	}
}

// SeasonalModifier returns a price modifier for r in the given season.
// Food is dear in winter and cheap after the autumn harvest; furs peak in
// winter; herbs are plentiful in summer.
func SeasonalModifier(season engine.Season, r Resource) float64 {
	switch season {
	case engine.Winter:
		switch r {
		case Food, Fish:
			return 1.5
		case Furs:
			return 1.8
		case Herbs:
			return 1.4
		default:
			return 1.1
		}
	case engine.Spring:
		switch r {
		case Food, Fish:
			return 1.2
		case Herbs:
			return 0.8
		default:
			return 1.0
		}
	case engine.Summer:
		switch r {
		case Herbs, Furs:
			return 0.7
		default:
			return 0.9
		}
	case engine.Autumn:
		switch r {
		case Food:
			return 0.7
		case Fish:
			return 0.8
		case Herbs:
			return 0.9
		default:
			return 1.0
		}
	}
	return 1.0
}
