// Package social provides factions, the relations between them, and the
// influence system that tracks which faction dominates the world.
package social

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/talgya/chronicle/internal/ecs"
)

// Faction represents an organization with goals, influence, and membership.
type Faction struct {
	ID   ecs.FactionID `json:"id"`
	Name string        `json:"name"`
	Kind FactionKind   `json:"kind"`

	// Population held per settlement (settlement ID → people).
	Influence map[ecs.SiteID]float64 `json:"influence"`
	// Share of the world's settled population, 0–100.
	Share float64 `json:"share"`

	// Relations with other factions (faction ID → -100 to +100).
	Relations map[ecs.FactionID]float64 `json:"relations"`

	// Policy tendencies
	TaxPreference      float64 `json:"tax_preference"`      // -1 low taxes, +1 high taxes
	TradePreference    float64 `json:"trade_preference"`    // -1 isolationist, +1 free trade
	MilitaryPreference float64 `json:"military_preference"` // -1 pacifist, +1 militarist
}

// FactionKind categorizes the nature of a faction.
type FactionKind uint8

const (
	FactionPolitical FactionKind = iota // Governance-focused
	FactionEconomic                     // Trade and wealth
	FactionMilitary                     // Martial power
	FactionReligious                    // Spiritual and cultural
	FactionCriminal                     // Underground
)

var kindNames = [...]string{"political", "economic", "military", "religious", "criminal"}

func (k FactionKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseFactionKind resolves a kind name, case-insensitively.
func ParseFactionKind(name string) (FactionKind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return FactionKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown faction kind %q", name)
}

func (k FactionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *FactionKind) UnmarshalText(text []byte) error {
	parsed, err := ParseFactionKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// NewFaction returns a faction with empty influence and relations.
func NewFaction(id ecs.FactionID, name string, kind FactionKind) *Faction {
	return &Faction{
		ID:        id,
		Name:      name,
		Kind:      kind,
		Influence: make(map[ecs.SiteID]float64),
		Relations: make(map[ecs.FactionID]float64),
	}
}

// SeedFactions returns the five founding factions of a generated world,
// without ids. Callers assign ids when the factions become entities.
func SeedFactions() []*Faction {
	seed := []struct {
		name            string
		kind            FactionKind
		tax, trade, war float64
	}{
		{"The Crown", FactionPolitical, 0.3, 0.0, 0.5},
		{"Merchant's Compact", FactionEconomic, -0.5, 0.8, -0.3},
		{"Iron Brotherhood", FactionMilitary, 0.2, -0.2, 0.9},
		{"Verdant Circle", FactionReligious, 0.0, -0.3, -0.5},
		{"Ashen Path", FactionCriminal, -0.8, 0.4, 0.2},
	}
	out := make([]*Faction, len(seed))
	for i, s := range seed {
		f := NewFaction(0, s.name, s.kind)
		f.TaxPreference = s.tax
		f.TradePreference = s.trade
		f.MilitaryPreference = s.war
		out[i] = f
	}
	return out
}

// SeedRelations gives the founding relations between SeedFactions, by
// index into that slice. Crown and Iron Brotherhood are allied; the Ashen
// Path is distrusted by all.
var SeedRelations = []struct {
	A, B  int
	Value float64
}{
	{0, 1, -20}, {0, 2, 30}, {0, 3, 10}, {0, 4, -50},
	{1, 2, -10}, {1, 3, 20}, {1, 4, -30},
	{2, 3, -20}, {2, 4, -40},
	{3, 4, -60},
}

// ErrDuplicateFaction is returned when adding an id already registered.
var ErrDuplicateFaction = errors.New("faction already registered")

// Registry holds every faction in the world.
type Registry struct {
	factions map[ecs.FactionID]*Faction
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factions: make(map[ecs.FactionID]*Faction)}
}

// Add registers f. Its ID must be non-zero and unused.
func (r *Registry) Add(f *Faction) error {
	if f.ID == 0 {
		return fmt.Errorf("add faction %q: zero id", f.Name)
	}
	if _, ok := r.factions[f.ID]; ok {
		return fmt.Errorf("add faction %d: %w", f.ID, ErrDuplicateFaction)
	}
	if f.Influence == nil {
		f.Influence = make(map[ecs.SiteID]float64)
	}
	if f.Relations == nil {
		f.Relations = make(map[ecs.FactionID]float64)
	}
	r.factions[f.ID] = f
	return nil
}

// Get returns the faction with the given id.
func (r *Registry) Get(id ecs.FactionID) (*Faction, bool) {
	f, ok := r.factions[id]
	return f, ok
}

// All returns every faction ordered by id.
func (r *Registry) All() []*Faction {
	out := make([]*Faction, 0, len(r.factions))
	for _, f := range r.factions {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of factions.
func (r *Registry) Len() int {
	return len(r.factions)
}

// SetRelation sets a symmetric relation, clamped to -100..100.
func (r *Registry) SetRelation(a, b ecs.FactionID, value float64) {
	if a == b {
		return
	}
	value = clampRelation(value)
	if f, ok := r.factions[a]; ok {
		f.Relations[b] = value
	}
	if f, ok := r.factions[b]; ok {
		f.Relations[a] = value
	}
}

// Relation returns how a regards b; zero when unknown.
func (r *Registry) Relation(a, b ecs.FactionID) float64 {
	if f, ok := r.factions[a]; ok {
		return f.Relations[b]
	}
	return 0
}

// NameOf returns a faction's name, or "" when unknown.
func (r *Registry) NameOf(id ecs.FactionID) string {
	if f, ok := r.factions[id]; ok {
		return f.Name
	}
	return ""
}

func clampRelation(v float64) float64 {
	if v < -100 {
		return -100
	}
	if v > 100 {
		return 100
	}
	return v
}
