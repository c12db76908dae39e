package events

import (
	"strings"

	"github.com/talgya/chronicle/internal/ecs"
)

// Hook is a follow-on event that may plausibly result from this one.
type Hook struct {
	Subtype     string  `json:"subtype"`
	Probability float64 `json:"probability"` // 0.0–1.0
}

// Payload is the subtype-specific body of an event. Each emitting system
// defines one struct per subtype; Fields flattens it for template rendering.
type Payload interface {
	Fields() map[string]any
}

// Data is the generic key/value payload for events without a dedicated type.
type Data map[string]any

func (d Data) Fields() map[string]any { return d }

// WorldEvent is one entry in the world's history. Once appended to a Log only
// Consequences may grow, and only through Log.LinkCause.
type WorldEvent struct {
	ID                   ecs.EventID    `json:"id"`
	Category             Category       `json:"category"`
	Subtype              string         `json:"subtype"`
	Timestamp            uint64         `json:"timestamp"` // Tick
	Participants         []ecs.EntityID `json:"participants"`
	Location             *ecs.SiteID    `json:"location,omitempty"`
	Causes               []ecs.EventID  `json:"causes"`
	Consequences         []ecs.EventID  `json:"consequences"`
	Data                 Payload        `json:"data"`
	Significance         int            `json:"significance"` // 0–100
	ConsequencePotential []Hook         `json:"consequence_potential,omitempty"`
}

// Fields returns the payload as a flat map. Never nil.
func (e *WorldEvent) Fields() map[string]any {
	if e.Data == nil {
		return map[string]any{}
	}
	f := e.Data.Fields()
	if f == nil {
		return map[string]any{}
	}
	return f
}

// Involves reports whether entity participates in e or is its location.
func (e *WorldEvent) Involves(entity ecs.EntityID) bool {
	if e.Location != nil && ecs.Entity(*e.Location) == entity {
		return true
	}
	for _, p := range e.Participants {
		if p == entity {
			return true
		}
	}
	return false
}

// Domain returns the subtype's leading dotted segment ("economy" for
// "economy.shortage"), or "" when the subtype is undotted.
func Domain(subtype string) string {
	if i := strings.IndexByte(subtype, '.'); i > 0 {
		return subtype[:i]
	}
	return ""
}

// TemplateKeys returns the lookup keys a narrative renderer tries, most
// specific first: the full subtype, then the bare name with the domain
// prefix stripped.
func TemplateKeys(subtype string) []string {
	keys := []string{subtype}
	if i := strings.IndexByte(subtype, '.'); i >= 0 && i+1 < len(subtype) {
		keys = append(keys, subtype[i+1:])
	}
	return keys
}
