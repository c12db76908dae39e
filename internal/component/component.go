// Package component defines the concrete component schemas stored in the
// ECS world. Each type reports its registry name through ComponentType.
package component

import (
	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/world"
)

// Registry names. These spellings are read by external tooling and must not
// change.
const (
	TypePosition   = "Position"
	TypeHealth     = "Health"
	TypeName       = "Name"
	TypePopulation = "Population"
	TypeEconomy    = "Economy"
	TypeBiome      = "Biome"
	TypeOwnership  = "Ownership"
	TypeSettlement = "Settlement"
	TypeFaction    = "Faction"
)

// Position places an entity on the hex grid in axial coordinates.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (*Position) ComponentType() string { return TypePosition }

// Hex returns the position as a map coordinate.
func (p *Position) Hex() world.HexCoord {
	return world.HexCoord{Q: p.X, R: p.Y}
}

// DistanceTo returns the hex distance between two positions.
func (p *Position) DistanceTo(o *Position) int {
	return world.Distance(p.Hex(), o.Hex())
}

// Health tracks hit points for anything that can be harmed.
type Health struct {
	Current int `json:"current"`
	Maximum int `json:"maximum"`
}

func (*Health) ComponentType() string { return TypeHealth }

// Ratio returns Current/Maximum in 0.0–1.0, or 0 when Maximum is unset.
func (h *Health) Ratio() float64 {
	if h.Maximum <= 0 {
		return 0
	}
	r := float64(h.Current) / float64(h.Maximum)
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// Name is a display name.
type Name struct {
	Value string `json:"value"`
}

func (*Name) ComponentType() string { return TypeName }

// Population is the headcount of a settlement.
type Population struct {
	Count      int     `json:"count"`
	GrowthRate float64 `json:"growth_rate"` // Fraction per year
}

func (*Population) ComponentType() string { return TypePopulation }

// Economy carries a settlement's economic attributes.
type Economy struct {
	Wealth        float64  `json:"wealth"`
	TechLevel     int      `json:"tech_level"`     // 0–10
	Industries    []string `json:"industries"`     // e.g. "smithing", "magic"
	TradeOpenness float64  `json:"trade_openness"` // 0–100
}

func (*Economy) ComponentType() string { return TypeEconomy }

// HasIndustry reports whether the settlement practices the named industry.
func (e *Economy) HasIndustry(name string) bool {
	for _, i := range e.Industries {
		if i == name {
			return true
		}
	}
	return false
}

// Biome is the dominant terrain around an entity.
type Biome struct {
	Terrain world.Terrain `json:"terrain"`
}

func (*Biome) ComponentType() string { return TypeBiome }

// Ownership names the faction that controls an entity.
type Ownership struct {
	FactionID ecs.FactionID `json:"faction_id"`
}

func (*Ownership) ComponentType() string { return TypeOwnership }

// Settlement marks an entity as a population center.
type Settlement struct {
	Size    world.SettlementSize `json:"size"`
	Founded uint64               `json:"founded"` // Tick
}

func (*Settlement) ComponentType() string { return TypeSettlement }

// Faction links an entity to a faction record held by the social registry.
type Faction struct {
	ID ecs.FactionID `json:"id"`
}

func (*Faction) ComponentType() string { return TypeFaction }

// RegisterAll registers every component type on w.
func RegisterAll(w *ecs.World) {
	ecs.Register[*Position](w)
	ecs.Register[*Health](w)
	ecs.Register[*Name](w)
	ecs.Register[*Population](w)
	ecs.Register[*Economy](w)
	ecs.Register[*Biome](w)
	ecs.Register[*Ownership](w)
	ecs.Register[*Settlement](w)
	ecs.Register[*Faction](w)
}

// NameOf returns e's display name, or "" when it has none.
func NameOf(w *ecs.World, e ecs.EntityID) string {
	if n, ok := ecs.Get[*Name](w, e); ok && n != nil {
		return n.Value
	}
	return ""
}
