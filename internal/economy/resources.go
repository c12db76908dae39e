// Package economy provides settlement markets, production, pricing, demand,
// inter-settlement trade routes, and the monthly economic system that ties
// them together.
package economy

import (
	"fmt"
	"strings"
)

// Resource is a tradeable good.
type Resource uint8

// ResourceNone is the zero value and means "no resource", e.g. a market
// without a specialization.
const (
	ResourceNone Resource = iota
	Food
	Timber
	Stone
	Iron
	Copper
	Gold
	Gems
	Fish
	Furs
	Herbs
	Cloth
	Tools
	Weapons
	Spices
	Luxuries
	MagicalComponents
	resourceCount
)

var resourceNames = [...]string{
	ResourceNone:      "None",
	Food:              "Food",
	Timber:            "Timber",
	Stone:             "Stone",
	Iron:              "Iron",
	Copper:            "Copper",
	Gold:              "Gold",
	Gems:              "Gems",
	Fish:              "Fish",
	Furs:              "Furs",
	Herbs:             "Herbs",
	Cloth:             "Cloth",
	Tools:             "Tools",
	Weapons:           "Weapons",
	Spices:            "Spices",
	Luxuries:          "Luxuries",
	MagicalComponents: "MagicalComponents",
}

// basePrices in crowns per unit.
var basePrices = [resourceCount]float64{
	Food:              2,
	Timber:            3,
	Stone:             3,
	Iron:              5,
	Copper:            4,
	Gold:              20,
	Gems:              25,
	Fish:              2,
	Furs:              6,
	Herbs:             5,
	Cloth:             6,
	Tools:             10,
	Weapons:           15,
	Spices:            12,
	Luxuries:          30,
	MagicalComponents: 40,
}

// AllResources returns every tradeable resource in declaration order.
// Iterating in this order keeps results reproducible.
func AllResources() []Resource {
	out := make([]Resource, 0, resourceCount-1)
	for r := Food; r < resourceCount; r++ {
		out = append(out, r)
	}
	return out
}

// Valid reports whether r is a tradeable resource.
func (r Resource) Valid() bool {
	return r > ResourceNone && r < resourceCount
}

func (r Resource) String() string {
	if int(r) < len(resourceNames) {
		return resourceNames[r]
	}
	return "Unknown"
}

// BasePrice returns the reference price of r, or 0 for invalid resources.
func BasePrice(r Resource) float64 {
	if !r.Valid() {
		return 0
	}
	return basePrices[r]
}

// Crafted reports whether r is made from other goods rather than gathered.
func (r Resource) Crafted() bool {
	switch r {
	case Cloth, Tools, Weapons, Luxuries:
		return true
	}
	return false
}

// Perishable reports whether stockpiles of r spoil over time.
func (r Resource) Perishable() bool {
	switch r {
	case Food, Fish, Herbs:
		return true
	}
	return false
}

// ParseResource resolves a resource name, case-insensitively.
func ParseResource(name string) (Resource, error) {
	n := strings.TrimSpace(name)
	for r := Food; r < resourceCount; r++ {
		if strings.EqualFold(resourceNames[r], n) {
			return r, nil
		}
	}
	return ResourceNone, fmt.Errorf("unknown resource %q", name)
}

func (r Resource) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Resource) UnmarshalText(text []byte) error {
	parsed, err := ParseResource(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
