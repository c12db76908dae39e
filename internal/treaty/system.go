package treaty

import (
	"log/slog"

	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/engine"
	"github.com/talgya/chronicle/internal/events"
)

// Event subtypes emitted by the treaty system.
const (
	SubtypeSigned  = "diplomacy.treaty_signed"
	SubtypeExpired = "diplomacy.treaty_expired"
)

// Payload describes a treaty lifecycle change.
type Payload struct {
	TreatyID ecs.TreatyID
	Name     string
	Parties  []ecs.FactionID
	Terms    []string
}

func (p Payload) Fields() map[string]any {
	return map[string]any{
		"treaty_id": uint64(p.TreatyID),
		"treaty":    p.Name,
		"parties":   p.Parties,
		"terms":     p.Terms,
	}
}

// System announces new treaties and retires lapsed ones each month.
type System struct {
	enforcement *Enforcement
	factory     *events.Factory
	logger      *slog.Logger
}

// NewSystem wires a treaty system to the registry it maintains.
func NewSystem(enf *Enforcement, factory *events.Factory) *System {
	return &System{enforcement: enf, factory: factory, logger: slog.Default()}
}

func (s *System) Name() string      { return "treaty" }
func (s *System) Frequency() uint64 { return engine.TicksPerMonth }

// Execute emits diplomacy.treaty_signed for treaties registered since the
// last run and diplomacy.treaty_expired for those that lapsed.
func (s *System) Execute(_ *ecs.World, clock *engine.Clock, bus *events.Bus) error {
	tick := clock.Tick()

	for _, t := range s.enforcement.DrainSigned() {
		s.emit(bus, tick, SubtypeSigned, t, 45)
	}
	for _, t := range s.enforcement.Expire(tick) {
		s.logger.Info("treaty expired", "treaty", t.Name, "id", t.ID, "tick", tick)
		s.emit(bus, tick, SubtypeExpired, t, 35)
	}
	return nil
}

func (s *System) emit(bus *events.Bus, tick uint64, subtype string, t Treaty, significance int) {
	if bus == nil {
		return
	}
	participants := make([]ecs.EntityID, len(t.Parties))
	for i, p := range t.Parties {
		participants[i] = ecs.Entity(p)
	}
	terms := make([]string, len(t.Terms))
	for i, term := range t.Terms {
		terms[i] = term.Type.String()
	}
	ev := s.factory.Create(events.Params{
		Category:     events.Political,
		Subtype:      subtype,
		Timestamp:    tick,
		Participants: participants,
		Data:         Payload{TreatyID: t.ID, Name: t.Name, Parties: t.Parties, Terms: terms},
		Significance: significance + 5*len(t.Terms),
	})
	if err := bus.Emit(ev); err != nil {
		s.logger.Warn("treaty event delivery", "subtype", subtype, "error", err)
	}
}
