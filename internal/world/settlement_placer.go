// Settlement placement: finds suitable hexes and seeds the initial settlements.
package world

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// SettlementSeed holds the parameters for an initial settlement placement.
type SettlementSeed struct {
	Coord   HexCoord
	Terrain Terrain
	Size    SettlementSize
	Score   float64 // Desirability score
	Name    string
}

// SettlementSize categorizes settlement scale.
type SettlementSize uint8

const (
	SizeVillage SettlementSize = iota // 50–300 people
	SizeTown                          // 300–2,000 people
	SizeCity                          // 2,000–8,000 people
)

var sizeNames = [...]string{"village", "town", "city"}

func (s SettlementSize) String() string {
	if int(s) < len(sizeNames) {
		return sizeNames[s]
	}
	return "unknown"
}

// ParseSettlementSize resolves a size name, case-insensitively.
func ParseSettlementSize(name string) (SettlementSize, error) {
	for i, n := range sizeNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return SettlementSize(i), nil
		}
	}
	return 0, fmt.Errorf("unknown settlement size %q", name)
}

func (s SettlementSize) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *SettlementSize) UnmarshalText(text []byte) error {
	parsed, err := ParseSettlementSize(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// PlacementConfig bounds how many settlements of each size are placed.
type PlacementConfig struct {
	Cities, Towns, Villages int
}

// DefaultPlacement returns a small world's worth of settlements.
func DefaultPlacement() PlacementConfig {
	return PlacementConfig{Cities: 2, Towns: 5, Villages: 8}
}

// PlaceSettlements finds the best locations for initial settlements on the
// map. Results are ordered cities first, then towns, then villages.
func PlaceSettlements(m *Map, seed int64, pc PlacementConfig) []SettlementSeed {
	rng := rand.New(rand.NewSource(seed + 200))

	type scored struct {
		coord HexCoord
		score float64
	}
	var candidates []scored
	for _, coord := range m.Coords() {
		hex := m.Get(coord)
		if hex.Terrain == TerrainOcean {
			continue
		}
		if s := settlementScore(m, coord, hex); s > 0 {
			candidates = append(candidates, scored{coord, s})
		}
	}

	// Sort by score descending, coordinate breaks ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].coord.Less(candidates[j].coord)
	})

	var seeds []SettlementSeed
	place := func(size SettlementSize, want, minDist int) {
		placed := 0
		for _, c := range candidates {
			if placed >= want {
				return
			}
			if tooClose(c.coord, seeds, minDist) {
				continue
			}
			seeds = append(seeds, SettlementSeed{
				Coord:   c.coord,
				Terrain: m.Get(c.coord).Terrain,
				Size:    size,
				Score:   c.score,
			})
			placed++
		}
	}
	place(SizeCity, pc.Cities, 6)
	place(SizeTown, pc.Towns, 3)
	place(SizeVillage, pc.Villages, 2)

	names := generateNames(rng, len(seeds))
	for i := range seeds {
		seeds[i].Name = names[i]
	}
	return seeds
}

// settlementScore evaluates how desirable a hex is for a settlement.
// Prefers coast and rivers (trade), fertile plains, and varied surroundings.
func settlementScore(m *Map, coord HexCoord, hex *Hex) float64 {
	score := 0.0

	switch hex.Terrain {
	case TerrainPlains:
		score += 3.0
	case TerrainCoast:
		score += 4.0 // Harbors are prime locations
	case TerrainRiver:
		score += 3.5 // Freshwater + trade arteries
	case TerrainForest, TerrainHills:
		score += 1.5
	case TerrainDesert, TerrainSwamp, TerrainTundra:
		score += 0.5
	case TerrainMountain:
		score += 0.8 // Mining outposts
	default:
		return 0
	}

	// Bonus for nearby terrain diversity (economic complexity).
	terrainTypes := make(map[Terrain]bool)
	for _, nc := range coord.Neighbors() {
		nh := m.Get(nc)
		if nh != nil && nh.Terrain != TerrainOcean {
			terrainTypes[nh.Terrain] = true
		}
	}
	score += float64(len(terrainTypes)) * 0.3
	score += hex.Fertility

	return score
}

func tooClose(coord HexCoord, existing []SettlementSeed, minDist int) bool {
	for _, s := range existing {
		if Distance(coord, s.Coord) < minDist {
			return true
		}
	}
	return false
}

// generateNames produces procedural settlement names by combining syllables.
func generateNames(rng *rand.Rand, count int) []string {
	prefixes := []string{
		"Iron", "Green", "Ash", "Stone", "Mill", "Cross", "Black",
		"Silver", "Red", "White", "Dark", "Bright", "High", "Low",
		"Old", "New", "Far", "Deep", "Long", "Broad", "Gold", "Frost",
		"Storm", "Thorn", "Elm", "Oak", "Pine", "Copper", "River",
	}
	suffixes := []string{
		"haven", "ford", "hollow", "wick", "bridge", "gate", "keep",
		"stead", "wood", "field", "dale", "crest", "vale", "port",
		"town", "bury", "marsh", "well", "brook", "cliff", "moor",
		"ridge", "watch", "fall", "rest", "point", "reach", "helm",
	}

	used := make(map[string]bool)
	names := make([]string, 0, count)
	for len(names) < count {
		name := prefixes[rng.Intn(len(prefixes))] + suffixes[rng.Intn(len(suffixes))]
		if !used[name] {
			used[name] = true
			names = append(names, name)
		}
	}
	return names
}

// PopulationForSize returns an initial population for a settlement size.
func PopulationForSize(size SettlementSize, rng *rand.Rand) int {
	switch size {
	case SizeCity:
		return 2000 + rng.Intn(6000)
	case SizeTown:
		return 300 + rng.Intn(1700)
	case SizeVillage:
		return 50 + rng.Intn(250)
	default:
		return 100
	}
}

// TechForSize returns a starting tech level for a settlement size.
func TechForSize(size SettlementSize) int {
	switch size {
	case SizeCity:
		return 6
	case SizeTown:
		return 4
	default:
		return 2
	}
}
