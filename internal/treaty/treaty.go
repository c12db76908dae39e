// Package treaty models agreements between factions and answers the
// questions simulation systems ask before acting: may these two factions
// trade this good, are they bound not to fight, who are a faction's allies.
package treaty

import (
	"fmt"
	"strings"

	"github.com/talgya/chronicle/internal/ecs"
)

// TermType is the kind of obligation a term imposes.
type TermType uint8

const (
	TradeExclusivity TermType = iota
	NonAggression
	MutualDefense
	Tributary
	DemilitarizedZone
	OpenBorders
	TradeAgreement
)

var termNames = [...]string{
	TradeExclusivity:  "trade_exclusivity",
	NonAggression:     "non_aggression",
	MutualDefense:     "mutual_defense",
	Tributary:         "tributary",
	DemilitarizedZone: "demilitarized_zone",
	OpenBorders:       "open_borders",
	TradeAgreement:    "trade_agreement",
}

func (t TermType) String() string {
	if int(t) < len(termNames) {
		return termNames[t]
	}
	return "unknown"
}

// ParseTermType resolves a term name such as "trade_exclusivity".
func ParseTermType(name string) (TermType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, tn := range termNames {
		if tn == n {
			return TermType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown treaty term %q", name)
}

func (t TermType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TermType) UnmarshalText(text []byte) error {
	parsed, err := ParseTermType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Term is one clause of a treaty.
type Term struct {
	Type    TermType        `json:"type" yaml:"type"`
	Parties []ecs.FactionID `json:"parties" yaml:"parties"` // Empty means every treaty party
	// Resources the term covers, by resource name. Used by trade terms.
	Resources []string `json:"resources,omitempty" yaml:"resources,omitempty"`
	// Free-form parameters (tribute rate, zone site, ...).
	Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	// Enforceability is a 0–100 strength weight, not a boolean gate.
	Enforceability int `json:"enforceability" yaml:"enforceability"`
}

// Binds reports whether f is a party to the term.
func (t *Term) Binds(f ecs.FactionID) bool {
	return containsFaction(t.Parties, f)
}

// Covers reports whether the term names resource.
func (t *Term) Covers(resource string) bool {
	for _, r := range t.Resources {
		if strings.EqualFold(r, resource) {
			return true
		}
	}
	return false
}

// Treaty is a named agreement between two or more factions.
type Treaty struct {
	ID        ecs.TreatyID    `json:"id"`
	Name      string          `json:"name" yaml:"name"`
	Parties   []ecs.FactionID `json:"parties" yaml:"parties"`
	Terms     []Term          `json:"terms" yaml:"terms"`
	SignedAt  uint64          `json:"signed_at" yaml:"signed_at"`
	ExpiresAt uint64          `json:"expires_at,omitempty" yaml:"expires_at,omitempty"` // Zero never expires
	Active    bool            `json:"active"`
}

// Includes reports whether f signed the treaty.
func (t *Treaty) Includes(f ecs.FactionID) bool {
	return containsFaction(t.Parties, f)
}

// Expired reports whether the treaty has lapsed by tick.
func (t *Treaty) Expired(tick uint64) bool {
	return t.ExpiresAt > 0 && tick >= t.ExpiresAt
}

func containsFaction(list []ecs.FactionID, f ecs.FactionID) bool {
	for _, x := range list {
		if x == f {
			return true
		}
	}
	return false
}
