package social

import (
	"log/slog"
	"math"

	"github.com/talgya/chronicle/internal/component"
	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/engine"
	"github.com/talgya/chronicle/internal/events"
	"github.com/talgya/chronicle/internal/treaty"
)

// Event subtypes emitted by the influence system.
const (
	SubtypeDominanceShift   = "politics.dominance_shift"
	SubtypeRelationsShifted = "politics.relations_shifted"
)

const (
	// RelationDecay is the fraction of a relation lost each season as
	// grudges fade and alliances weaken.
	RelationDecay = 0.0236
	// PactBonus is the relation gained per shared peace or defense term.
	PactBonus = 2.0
	// StanceThreshold separates neutral relations from allied or hostile.
	StanceThreshold = 50.0
)

// TermQuery is the part of treaty enforcement the influence system reads.
type TermQuery interface {
	HasTerm(a, b ecs.FactionID, typ treaty.TermType) bool
}

// DominancePayload reports a new most-influential faction.
type DominancePayload struct {
	Faction  string
	Previous string
	Share    float64
}

func (p DominancePayload) Fields() map[string]any {
	return map[string]any{"faction": p.Faction, "previous": p.Previous, "share": p.Share}
}

// RelationsPayload reports a relation crossing into or out of alliance or
// hostility.
type RelationsPayload struct {
	A, B     string
	Old, New float64
	Stance   string
}

func (p RelationsPayload) Fields() map[string]any {
	return map[string]any{"a": p.A, "b": p.B, "old": p.Old, "new": p.New, "stance": p.Stance}
}

// Stance names the band a relation value falls in.
func Stance(v float64) string {
	switch {
	case v >= StanceThreshold:
		return "allied"
	case v <= -StanceThreshold:
		return "hostile"
	default:
		return "neutral"
	}
}

// InfluenceSystem recomputes faction influence from settlement ownership
// and lets relations drift each season.
type InfluenceSystem struct {
	registry *Registry
	treaties TermQuery
	factory  *events.Factory
	logger   *slog.Logger
	dominant ecs.FactionID
}

// NewInfluenceSystem creates the system. treaties may be nil.
func NewInfluenceSystem(reg *Registry, factory *events.Factory, treaties TermQuery) *InfluenceSystem {
	return &InfluenceSystem{registry: reg, treaties: treaties, factory: factory, logger: slog.Default()}
}

func (s *InfluenceSystem) Name() string      { return "influence" }
func (s *InfluenceSystem) Frequency() uint64 { return engine.TicksPerSeason }

// Dominant returns the most influential faction as of the last execution.
func (s *InfluenceSystem) Dominant() ecs.FactionID { return s.dominant }

// Initialize computes opening influence so the first season's shift is
// measured against the founding state.
func (s *InfluenceSystem) Initialize(w *ecs.World) error {
	s.updateInfluence(w)
	s.dominant = s.leader()
	return nil
}

func (s *InfluenceSystem) Execute(w *ecs.World, clock *engine.Clock, bus *events.Bus) error {
	tick := clock.Tick()
	s.updateInfluence(w)

	if lead := s.leader(); lead != 0 && lead != s.dominant {
		prev := s.dominant
		s.dominant = lead
		f, _ := s.registry.Get(lead)
		s.logger.Info("dominance shift", "faction", f.Name, "share", int(f.Share), "tick", tick)
		participants := []ecs.EntityID{ecs.Entity(lead)}
		if prev != 0 {
			participants = append(participants, ecs.Entity(prev))
		}
		s.emit(bus, events.Params{
			Subtype:      SubtypeDominanceShift,
			Timestamp:    tick,
			Participants: participants,
			Data:         DominancePayload{Faction: f.Name, Previous: s.registry.NameOf(prev), Share: f.Share},
			Significance: 50 + int(f.Share/5),
		})
	}

	s.driftRelations(tick, bus)
	return nil
}

// updateInfluence credits each faction with the population of the
// settlements it owns.
func (s *InfluenceSystem) updateInfluence(w *ecs.World) {
	factions := s.registry.All()
	for _, f := range factions {
		clear(f.Influence)
		f.Share = 0
	}
	if w == nil {
		return
	}

	total := 0.0
	held := make(map[ecs.FactionID]float64, len(factions))
	for _, e := range w.Query(component.TypeOwnership, component.TypePopulation) {
		own, okOwn := ecs.Get[*component.Ownership](w, e)
		pop, okPop := ecs.Get[*component.Population](w, e)
		if !okOwn || !okPop {
			continue
		}
		f, ok := s.registry.Get(own.FactionID)
		if !ok || pop.Count <= 0 {
			continue
		}
		f.Influence[ecs.SiteID(e)] = float64(pop.Count)
		held[f.ID] += float64(pop.Count)
		total += float64(pop.Count)
	}
	if total == 0 {
		return
	}
	for _, f := range factions {
		f.Share = held[f.ID] / total * 100
	}
}

// leader returns the faction with the largest share; the lower id wins a
// tie. Zero when nobody holds anything.
func (s *InfluenceSystem) leader() ecs.FactionID {
	var best ecs.FactionID
	bestShare := 0.0
	for _, f := range s.registry.All() {
		if f.Share > bestShare {
			best, bestShare = f.ID, f.Share
		}
	}
	return best
}

func (s *InfluenceSystem) driftRelations(tick uint64, bus *events.Bus) {
	factions := s.registry.All()
	for i := 0; i < len(factions); i++ {
		for j := i + 1; j < len(factions); j++ {
			a, b := factions[i], factions[j]
			old := a.Relations[b.ID]
			next := old - old*RelationDecay
			if s.treaties != nil {
				if s.treaties.HasTerm(a.ID, b.ID, treaty.NonAggression) {
					next += PactBonus
				}
				if s.treaties.HasTerm(a.ID, b.ID, treaty.MutualDefense) {
					next += PactBonus
				}
			}
			next = clampRelation(next)
			s.registry.SetRelation(a.ID, b.ID, next)

			if Stance(old) == Stance(next) {
				continue
			}
			s.logger.Info("relations shifted",
				"a", a.Name, "b", b.Name, "old", math.Round(old), "new", math.Round(next))
			s.emit(bus, events.Params{
				Subtype:      SubtypeRelationsShifted,
				Timestamp:    tick,
				Participants: []ecs.EntityID{ecs.Entity(a.ID), ecs.Entity(b.ID)},
				Data:         RelationsPayload{A: a.Name, B: b.Name, Old: old, New: next, Stance: Stance(next)},
				Significance: 40,
			})
		}
	}
}

func (s *InfluenceSystem) emit(bus *events.Bus, p events.Params) {
	if bus == nil || s.factory == nil {
		return
	}
	p.Category = events.Political
	if err := bus.Emit(s.factory.Create(p)); err != nil {
		s.logger.Warn("influence event delivery", "subtype", p.Subtype, "error", err)
	}
}
