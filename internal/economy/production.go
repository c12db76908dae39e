package economy

import (
	"math"

	"github.com/talgya/chronicle/internal/world"
)

// SpecializationBonus multiplies output of a market's specialty.
const SpecializationBonus = 1.5

// baseYield is monthly output per resource for a reference settlement of
// 100 people at tech 0 on neutral terrain.
var baseYield = [resourceCount]float64{
	Food:              20,
	Timber:            12,
	Stone:             10,
	Iron:              6,
	Copper:            5,
	Gold:              1,
	Gems:              0.5,
	Fish:              10,
	Furs:              4,
	Herbs:             5,
	Cloth:             4,
	Tools:             2,
	Weapons:           1,
	Spices:            2,
	Luxuries:          0.5,
	MagicalComponents: 0.2,
}

// terrainBonus overrides the default terrain multiplier for a resource.
var terrainBonus = map[world.Terrain]map[Resource]float64{
	world.TerrainPlains: {
		Food: 1.5, Cloth: 1.3, Herbs: 0.6, Timber: 0.5,
	},
	world.TerrainForest: {
		Timber: 2.0, Herbs: 1.3, Furs: 1.2, Food: 0.7,
	},
	world.TerrainMountain: {
		Stone: 2.0, Iron: 1.8, Gold: 1.5, Gems: 1.5, Copper: 1.3, Food: 0.4,
	},
	world.TerrainHills: {
		Iron: 1.6, Copper: 1.5, Stone: 1.3, Food: 0.8,
	},
	world.TerrainCoast: {
		Fish: 2.0, Food: 0.9, Spices: 0.6,
	},
	world.TerrainRiver: {
		Food: 1.8, Fish: 1.2, Cloth: 1.1,
	},
	world.TerrainDesert: {
		Food: 0.3, Spices: 2.0, Gems: 1.1, Gold: 0.8,
	},
	world.TerrainSwamp: {
		Herbs: 2.0, MagicalComponents: 1.5, Food: 0.5,
	},
	world.TerrainTundra: {
		Furs: 2.0, Fish: 0.8, Food: 0.3,
	},
	world.TerrainOcean: {
		Fish: 1.0,
	},
}

// specializations maps terrain to the resource its settlements specialise in.
var specializations = map[world.Terrain]Resource{
	world.TerrainPlains:   Food,
	world.TerrainForest:   Timber,
	world.TerrainMountain: Stone,
	world.TerrainHills:    Iron,
	world.TerrainCoast:    Fish,
	world.TerrainRiver:    Food,
	world.TerrainDesert:   Spices,
	world.TerrainSwamp:    Herbs,
	world.TerrainTundra:   Furs,
}

// SpecializationFor returns the terrain's specialty, or ResourceNone.
func SpecializationFor(t world.Terrain) Resource {
	return specializations[t]
}

// TerrainMultiplier returns how well terrain t supports producing r.
// Crafted goods are terrain-neutral; raw goods the land does not favour
// yield a fraction of normal. Nothing grows on open ocean but fish.
func TerrainMultiplier(t world.Terrain, r Resource) float64 {
	if m, ok := terrainBonus[t][r]; ok {
		return m
	}
	if t == world.TerrainOcean {
		return 0
	}
	if r.Crafted() {
		return 1.0
	}
	return 0.3
}

// TechMultiplier grows linearly: 10% per tech level.
func TechMultiplier(techLevel int) float64 {
	if techLevel < 0 {
		techLevel = 0
	}
	return 1 + 0.1*float64(techLevel)
}

// WorkforceMultiplier is sub-linear in population: sqrt(pop/100).
func WorkforceMultiplier(population int) float64 {
	if population <= 0 {
		return 0
	}
	return math.Sqrt(float64(population) / 100)
}

// CalculateProduction returns monthly output of r for a settlement.
func CalculateProduction(r Resource, terrain world.Terrain, population, techLevel int, specialization Resource) float64 {
	if !r.Valid() {
		return 0
	}
	spec := 1.0
	if specialization != ResourceNone && r == specialization {
		spec = SpecializationBonus
	}
	return baseYield[r] *
		TerrainMultiplier(terrain, r) *
		TechMultiplier(techLevel) *
		WorkforceMultiplier(population) *
		spec
}
