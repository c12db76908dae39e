package scenario

import (
	"math/rand"

	"github.com/talgya/chronicle/internal/social"
	"github.com/talgya/chronicle/internal/treaty"
	"github.com/talgya/chronicle/internal/world"
)

// Treaty ticks for the generated world.
const (
	generatedAccordExpiry = 3 * 360
)

// terrainIndustries lists the trades a settlement on each terrain takes up.
// Larger settlements take up more of the list.
var terrainIndustries = map[world.Terrain][]string{
	world.TerrainPlains:   {"weaving", "carpentry", "jewelcraft"},
	world.TerrainForest:   {"carpentry", "tanning", "alchemy"},
	world.TerrainMountain: {"masonry", "smithing", "jewelcraft"},
	world.TerrainHills:    {"smithing", "masonry", "armory"},
	world.TerrainCoast:    {"carpentry", "weaving", "jewelcraft"},
	world.TerrainRiver:    {"weaving", "smithing", "carpentry"},
	world.TerrainDesert:   {"jewelcraft", "alchemy", "weaving"},
	world.TerrainSwamp:    {"alchemy", "magic", "tanning"},
	world.TerrainTundra:   {"tanning", "smithing", "armory"},
}

// IndustriesFor returns the starting industries for a settlement.
// Villages take one, towns two, cities three.
func IndustriesFor(t world.Terrain, size world.SettlementSize) []string {
	list := terrainIndustries[t]
	n := int(size) + 1
	if n > len(list) {
		n = len(list)
	}
	out := make([]string, n)
	copy(out, list[:n])
	return out
}

// Generate builds a scenario from a seeded hex map. Cities and towns are
// dealt to the founding factions in turn; each village joins the faction of
// the nearest city or town. The same configuration always yields the same
// scenario.
func Generate(gen world.GenConfig, pc world.PlacementConfig) *Scenario {
	m := world.Generate(gen)
	seeds := world.PlaceSettlements(m, gen.Seed, pc)
	rng := rand.New(rand.NewSource(gen.Seed + 300))

	founding := social.SeedFactions()
	s := &Scenario{
		Name: "generated",
		Seed: gen.Seed,
		Map:  m,
	}
	for _, f := range founding {
		s.Factions = append(s.Factions, FactionSpec{
			Key:                FactionKey(f.Name),
			Name:               f.Name,
			Kind:               f.Kind,
			TaxPreference:      f.TaxPreference,
			TradePreference:    f.TradePreference,
			MilitaryPreference: f.MilitaryPreference,
		})
	}
	for _, r := range social.SeedRelations {
		s.Relations = append(s.Relations, RelationSpec{
			A:     s.Factions[r.A].Key,
			B:     s.Factions[r.B].Key,
			Value: r.Value,
		})
	}

	type owned struct {
		coord world.HexCoord
		key   string
	}
	var centers []owned
	next := 0
	for _, seed := range seeds {
		pop := world.PopulationForSize(seed.Size, rng)
		st := SettlementSpec{
			Name:       seed.Name,
			X:          seed.Coord.Q,
			Y:          seed.Coord.R,
			Terrain:    seed.Terrain,
			Size:       seed.Size,
			Population: pop,
			Tech:       world.TechForSize(seed.Size),
			Industries: IndustriesFor(seed.Terrain, seed.Size),
			Wealth:     float64(pop) * 0.5,
		}

		if seed.Size == world.SizeVillage && len(centers) > 0 {
			best, bestDist := centers[0], world.Distance(seed.Coord, centers[0].coord)
			for _, c := range centers[1:] {
				if d := world.Distance(seed.Coord, c.coord); d < bestDist {
					best, bestDist = c, d
				}
			}
			st.Faction = best.key
		} else {
			st.Faction = s.Factions[next%len(s.Factions)].Key
			next++
			centers = append(centers, owned{seed.Coord, st.Faction})
		}

		pref := 0.0
		for i := range s.Factions {
			if s.Factions[i].Key == st.Faction {
				pref = s.Factions[i].TradePreference
			}
		}
		open := clampOpenness(DefaultTradeOpenness + 30*pref + rng.Float64()*10)
		st.TradeOpenness = &open

		s.Settlements = append(s.Settlements, st)
	}

	s.Treaties = defaultTreaties(s.Factions)
	return s
}

// defaultTreaties binds the Crown and the Iron Brotherhood in a defensive
// pact with an iron monopoly, and the Merchants and the Verdant Circle in a
// fixed-term accord.
func defaultTreaties(f []FactionSpec) []TreatySpec {
	if len(f) < 4 {
		return nil
	}
	crown, merchants, iron, verdant := f[0].Key, f[1].Key, f[2].Key, f[3].Key
	return []TreatySpec{
		{
			Name:    "Pact of Steel",
			Parties: []string{crown, iron},
			Terms: []TermSpec{
				{Type: treaty.MutualDefense, Enforceability: 80},
				{Type: treaty.TradeExclusivity, Resources: []string{"Iron"}, Enforceability: 70},
			},
		},
		{
			Name:      "Accord of the Grove",
			Parties:   []string{merchants, verdant},
			ExpiresAt: generatedAccordExpiry,
			Terms: []TermSpec{
				{Type: treaty.NonAggression, Enforceability: 60},
				{Type: treaty.TradeAgreement, Resources: []string{"Herbs", "Timber"}, Enforceability: 50},
			},
		},
	}
}

func clampOpenness(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
