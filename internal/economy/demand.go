package economy

import "strings"

// perCapitaDemand is monthly demand per 100 people. Food is always the
// largest entry.
var perCapitaDemand = [resourceCount]float64{
	Food:              10,
	Timber:            3,
	Stone:             2,
	Iron:              1.5,
	Copper:            1,
	Gold:              0.3,
	Gems:              0.2,
	Fish:              3,
	Furs:              1,
	Herbs:             1,
	Cloth:             2.5,
	Tools:             1.5,
	Weapons:           0.8,
	Spices:            0.6,
	Luxuries:          0.4,
	MagicalComponents: 0.1,
}

// industryDemand is extra monthly demand per 100 people that an industry
// adds for its inputs.
var industryDemand = map[string]map[Resource]float64{
	"smithing":   {Iron: 4, Copper: 2},
	"magic":      {MagicalComponents: 2},
	"carpentry":  {Timber: 4},
	"masonry":    {Stone: 4},
	"weaving":    {Cloth: 3},
	"jewelcraft": {Gems: 1.5, Gold: 1},
	"alchemy":    {Herbs: 3},
	"armory":     {Weapons: 2, Iron: 2},
	"tanning":    {Furs: 3},
}

// Industries returns the recognised industry names.
func Industries() []string {
	return []string{"alchemy", "armory", "carpentry", "jewelcraft", "magic", "masonry", "smithing", "tanning", "weaving"}
}

// CalculateDemand returns monthly demand for r. Base demand is linear in
// population; each recognised industry adds its increment. Unknown
// industries are ignored.
func CalculateDemand(r Resource, population int, industries []string) float64 {
	if !r.Valid() || population <= 0 {
		return 0
	}
	scale := float64(population) / 100
	demand := perCapitaDemand[r] * scale
	for _, ind := range industries {
		if inc, ok := industryDemand[strings.ToLower(ind)][r]; ok {
			demand += inc * scale
		}
	}
	return demand
}
