// Package world provides the hex grid, terrain, and procedural map generation
// used to seed settlements. Uses axial coordinates (q, r) for the hex grid.
package world

import (
	"fmt"
	"strings"
)

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q" yaml:"q"`
	R int `json:"r" yaml:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Terrain types for hex tiles.
type Terrain uint8

const (
	TerrainPlains   Terrain = iota // Fertile plains, high agricultural yield
	TerrainForest                  // Timber, herbs, game
	TerrainMountain                // Stone, ore, gold
	TerrainHills                   // Iron and copper seams
	TerrainCoast                   // Fishing, port potential
	TerrainRiver                   // Freshwater, irrigation, trade arteries
	TerrainDesert                  // Spices, harsh conditions
	TerrainSwamp                   // Alchemical ingredients
	TerrainTundra                  // Furs, extreme conditions
	TerrainOcean                   // Impassable
)

var terrainNames = [...]string{
	TerrainPlains:   "Plains",
	TerrainForest:   "Forest",
	TerrainMountain: "Mountain",
	TerrainHills:    "Hills",
	TerrainCoast:    "Coast",
	TerrainRiver:    "River",
	TerrainDesert:   "Desert",
	TerrainSwamp:    "Swamp",
	TerrainTundra:   "Tundra",
	TerrainOcean:    "Ocean",
}

// String returns a human-readable name for a terrain type.
func (t Terrain) String() string {
	if int(t) < len(terrainNames) {
		return terrainNames[t]
	}
	return "Unknown"
}

// ParseTerrain resolves a terrain name, case-insensitively.
func ParseTerrain(name string) (Terrain, error) {
	for i, n := range terrainNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Terrain(i), nil
		}
	}
	return TerrainPlains, fmt.Errorf("unknown terrain %q", name)
}

// UnmarshalText lets scenario files name terrain by string.
func (t *Terrain) UnmarshalText(text []byte) error {
	parsed, err := ParseTerrain(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalText is the inverse of UnmarshalText.
func (t Terrain) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Hex represents a single tile on the world map.
type Hex struct {
	Coord   HexCoord `json:"coord"`
	Terrain Terrain  `json:"terrain"`

	// Elevation and climate data (set during world generation).
	Elevation   float64 `json:"elevation"`   // 0.0 (sea level) to 1.0 (peak)
	Rainfall    float64 `json:"rainfall"`    // 0.0 (arid) to 1.0 (tropical)
	Temperature float64 `json:"temperature"` // 0.0 (frozen) to 1.0 (hot)

	// Fertility summarises how much the land can feed: 0.0 barren to 1.0 rich.
	Fertility float64 `json:"fertility"`
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Less orders coordinates by q, then r. Used wherever map iteration order
// would otherwise leak into results.
func (h HexCoord) Less(o HexCoord) bool {
	if h.Q != o.Q {
		return h.Q < o.Q
	}
	return h.R < o.R
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	// Max of the three absolute differences in cube coordinates.
	max := dq
	if dr > max {
		max = dr
	}
	if ds > max {
		max = ds
	}
	return max
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
