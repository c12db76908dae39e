// Package scenario describes a starting world: factions, settlements,
// relations and treaties. Scenarios are read from YAML or generated from a
// seeded hex map, then built into an ECS world.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/chronicle/internal/social"
	"github.com/talgya/chronicle/internal/treaty"
	"github.com/talgya/chronicle/internal/world"
)

// ErrInvalidScenario is wrapped by every validation failure.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is the full description of a starting world.
type Scenario struct {
	Name        string           `yaml:"name"`
	Seed        int64            `yaml:"seed,omitempty"`
	Factions    []FactionSpec    `yaml:"factions"`
	Relations   []RelationSpec   `yaml:"relations,omitempty"`
	Settlements []SettlementSpec `yaml:"settlements"`
	Treaties    []TreatySpec     `yaml:"treaties,omitempty"`

	// Map is set for generated scenarios only.
	Map *world.Map `yaml:"-"`
}

// FactionSpec declares a faction. Key is the handle other entries use.
type FactionSpec struct {
	Key                string             `yaml:"key"`
	Name               string             `yaml:"name"`
	Kind               social.FactionKind `yaml:"kind"`
	TaxPreference      float64            `yaml:"tax_preference,omitempty"`
	TradePreference    float64            `yaml:"trade_preference,omitempty"`
	MilitaryPreference float64            `yaml:"military_preference,omitempty"`
}

// RelationSpec sets the starting relation between two factions.
type RelationSpec struct {
	A     string  `yaml:"a"`
	B     string  `yaml:"b"`
	Value float64 `yaml:"value"`
}

// SettlementSpec declares a settlement. Faction may be empty for an
// unowned settlement.
type SettlementSpec struct {
	Name       string               `yaml:"name"`
	X          int                  `yaml:"x"`
	Y          int                  `yaml:"y"`
	Terrain    world.Terrain        `yaml:"terrain"`
	Size       world.SettlementSize `yaml:"size"`
	Population int                  `yaml:"population"`
	Tech       int                  `yaml:"tech"`
	Industries []string             `yaml:"industries,omitempty"`
	Faction    string               `yaml:"faction,omitempty"`
	Wealth     float64              `yaml:"wealth,omitempty"`
	// Nil means DefaultTradeOpenness.
	TradeOpenness *float64 `yaml:"trade_openness,omitempty"`
}

// DefaultTradeOpenness applies when a settlement omits trade_openness.
const DefaultTradeOpenness = 50.0

// Openness returns the settlement's trade openness.
func (s *SettlementSpec) Openness() float64 {
	if s.TradeOpenness == nil {
		return DefaultTradeOpenness
	}
	return *s.TradeOpenness
}

// TermSpec is a treaty term with parties given by faction key.
type TermSpec struct {
	Type           treaty.TermType   `yaml:"type"`
	Parties        []string          `yaml:"parties,omitempty"`
	Resources      []string          `yaml:"resources,omitempty"`
	Parameters     map[string]string `yaml:"parameters,omitempty"`
	Enforceability int               `yaml:"enforceability"`
}

// TreatySpec is a treaty with parties given by faction key.
type TreatySpec struct {
	Name      string     `yaml:"name"`
	Parties   []string   `yaml:"parties"`
	SignedAt  uint64     `yaml:"signed_at,omitempty"`
	ExpiresAt uint64     `yaml:"expires_at,omitempty"`
	Terms     []TermSpec `yaml:"terms"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a scenario. Unknown keys are rejected so that
// typos do not silently drop data.
func Parse(r io.Reader) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes s as YAML.
func (s *Scenario) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create scenario: %w", err)
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		f.Close()
		return fmt.Errorf("encode scenario: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("encode scenario: %w", err)
	}
	return f.Close()
}

// Validate checks references and ranges. Treaty term rules are left to
// treaty.Enforcement, which sees resolved faction ids.
func (s *Scenario) Validate() error {
	if len(s.Factions) == 0 {
		return fmt.Errorf("%w: no factions", ErrInvalidScenario)
	}
	keys := make(map[string]bool, len(s.Factions))
	for i, f := range s.Factions {
		if f.Key == "" || f.Name == "" {
			return fmt.Errorf("%w: faction %d needs key and name", ErrInvalidScenario, i)
		}
		if keys[f.Key] {
			return fmt.Errorf("%w: duplicate faction key %q", ErrInvalidScenario, f.Key)
		}
		keys[f.Key] = true
	}

	for _, r := range s.Relations {
		if !keys[r.A] || !keys[r.B] {
			return fmt.Errorf("%w: relation %s/%s names an unknown faction", ErrInvalidScenario, r.A, r.B)
		}
		if r.A == r.B {
			return fmt.Errorf("%w: relation of %s with itself", ErrInvalidScenario, r.A)
		}
		if r.Value < -100 || r.Value > 100 {
			return fmt.Errorf("%w: relation %s/%s value %.1f out of range", ErrInvalidScenario, r.A, r.B, r.Value)
		}
	}

	names := make(map[string]bool, len(s.Settlements))
	coords := make(map[world.HexCoord]string, len(s.Settlements))
	for _, st := range s.Settlements {
		switch {
		case st.Name == "":
			return fmt.Errorf("%w: settlement without a name", ErrInvalidScenario)
		case names[st.Name]:
			return fmt.Errorf("%w: duplicate settlement %q", ErrInvalidScenario, st.Name)
		case st.Terrain == world.TerrainOcean:
			return fmt.Errorf("%w: settlement %q on ocean", ErrInvalidScenario, st.Name)
		case st.Population < 0:
			return fmt.Errorf("%w: settlement %q has negative population", ErrInvalidScenario, st.Name)
		case st.Tech < 0 || st.Tech > 10:
			return fmt.Errorf("%w: settlement %q tech %d outside 0-10", ErrInvalidScenario, st.Name, st.Tech)
		case st.Openness() < 0 || st.Openness() > 100:
			return fmt.Errorf("%w: settlement %q trade openness outside 0-100", ErrInvalidScenario, st.Name)
		case st.Faction != "" && !keys[st.Faction]:
			return fmt.Errorf("%w: settlement %q owned by unknown faction %q", ErrInvalidScenario, st.Name, st.Faction)
		}
		c := world.HexCoord{Q: st.X, R: st.Y}
		if other, ok := coords[c]; ok {
			return fmt.Errorf("%w: settlements %q and %q share a hex", ErrInvalidScenario, other, st.Name)
		}
		names[st.Name] = true
		coords[c] = st.Name
	}

	for _, t := range s.Treaties {
		if t.Name == "" {
			return fmt.Errorf("%w: treaty without a name", ErrInvalidScenario)
		}
		for _, p := range t.Parties {
			if !keys[p] {
				return fmt.Errorf("%w: treaty %q names unknown faction %q", ErrInvalidScenario, t.Name, p)
			}
		}
		for _, term := range t.Terms {
			for _, p := range term.Parties {
				if !keys[p] {
					return fmt.Errorf("%w: treaty %q term %s names unknown faction %q", ErrInvalidScenario, t.Name, term.Type, p)
				}
			}
		}
	}
	return nil
}

// FactionKey derives a scenario key from a faction name:
// "Merchant's Compact" becomes "merchants-compact".
func FactionKey(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
		case r == '\'':
		default:
			dash = true
		}
	}
	return b.String()
}
