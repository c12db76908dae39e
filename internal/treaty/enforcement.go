package treaty

import (
	"errors"
	"fmt"
	"sort"

	"github.com/talgya/chronicle/internal/ecs"
)

// ErrInvalidTreaty is returned by RegisterTreaty for malformed treaties.
var ErrInvalidTreaty = errors.New("invalid treaty")

// Enforcement is the registry of treaties and the query surface systems
// consult before acting. Only active treaties answer queries.
type Enforcement struct {
	ids      *ecs.Sequence[ecs.TreatyID]
	treaties map[ecs.TreatyID]*Treaty
	signed   []ecs.TreatyID // Registered since the last DrainSigned
}

// NewEnforcement creates an empty registry.
func NewEnforcement() *Enforcement {
	return &Enforcement{
		ids:      ecs.NewSequence[ecs.TreatyID](),
		treaties: make(map[ecs.TreatyID]*Treaty),
	}
}

// RegisterTreaty validates t, assigns it an id and activates it. Terms with
// no parties inherit the treaty's parties.
func (e *Enforcement) RegisterTreaty(t Treaty) (ecs.TreatyID, error) {
	if err := validate(&t); err != nil {
		return 0, fmt.Errorf("register treaty %q: %w", t.Name, err)
	}

	stored := t
	stored.Parties = append([]ecs.FactionID{}, t.Parties...)
	stored.Terms = make([]Term, len(t.Terms))
	for i, term := range t.Terms {
		if len(term.Parties) == 0 {
			term.Parties = stored.Parties
		}
		term.Parties = append([]ecs.FactionID{}, term.Parties...)
		term.Resources = append([]string{}, term.Resources...)
		stored.Terms[i] = term
	}
	stored.ID = e.ids.Next()
	stored.Active = true

	e.treaties[stored.ID] = &stored
	e.signed = append(e.signed, stored.ID)
	return stored.ID, nil
}

func validate(t *Treaty) error {
	if len(uniqueFactions(t.Parties)) < 2 {
		return fmt.Errorf("%w: needs at least two distinct parties", ErrInvalidTreaty)
	}
	if len(t.Terms) == 0 {
		return fmt.Errorf("%w: needs at least one term", ErrInvalidTreaty)
	}
	for i, term := range t.Terms {
		if term.Enforceability < 0 || term.Enforceability > 100 {
			return fmt.Errorf("%w: term %d enforceability %d outside 0-100", ErrInvalidTreaty, i, term.Enforceability)
		}
		for _, p := range term.Parties {
			if !t.Includes(p) {
				return fmt.Errorf("%w: term %d binds faction %d which did not sign", ErrInvalidTreaty, i, p)
			}
		}
		if term.Type == TradeExclusivity && len(term.Resources) == 0 {
			return fmt.Errorf("%w: exclusivity term %d names no resources", ErrInvalidTreaty, i)
		}
	}
	return nil
}

func uniqueFactions(list []ecs.FactionID) []ecs.FactionID {
	seen := make(map[ecs.FactionID]bool, len(list))
	var out []ecs.FactionID
	for _, f := range list {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// Treaty returns a copy of the treaty with the given id.
func (e *Enforcement) Treaty(id ecs.TreatyID) (Treaty, bool) {
	t, ok := e.treaties[id]
	if !ok {
		return Treaty{}, false
	}
	return *t, true
}

// All returns every treaty, active or not, ordered by id.
func (e *Enforcement) All() []Treaty {
	return e.collect(func(*Treaty) bool { return true })
}

// ActiveTreaties returns the treaties currently in force, ordered by id.
func (e *Enforcement) ActiveTreaties() []Treaty {
	return e.collect(func(t *Treaty) bool { return t.Active })
}

func (e *Enforcement) collect(keep func(*Treaty) bool) []Treaty {
	if e == nil {
		return []Treaty{}
	}
	ids := make([]ecs.TreatyID, 0, len(e.treaties))
	for id := range e.treaties {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := []Treaty{}
	for _, id := range ids {
		if t := e.treaties[id]; keep(t) {
			out = append(out, *t)
		}
	}
	return out
}

// ActiveTerm is a term together with the treaty it belongs to.
type ActiveTerm struct {
	TreatyID ecs.TreatyID
	Treaty   string
	Term
}

func (e *Enforcement) activeTerms(match func(*Term) bool) []ActiveTerm {
	var out []ActiveTerm
	for _, t := range e.ActiveTreaties() {
		for i := range t.Terms {
			if match(&t.Terms[i]) {
				out = append(out, ActiveTerm{TreatyID: t.ID, Treaty: t.Name, Term: t.Terms[i]})
			}
		}
	}
	return out
}

// ExclusivityTerms returns the active trade exclusivity terms binding
// faction that cover resource.
func (e *Enforcement) ExclusivityTerms(faction ecs.FactionID, resource string) []ActiveTerm {
	return e.activeTerms(func(t *Term) bool {
		return t.Type == TradeExclusivity && t.Binds(faction) && t.Covers(resource)
	})
}

// TermsBetween returns every active term binding both a and b.
func (e *Enforcement) TermsBetween(a, b ecs.FactionID) []ActiveTerm {
	return e.activeTerms(func(t *Term) bool {
		return t.Binds(a) && t.Binds(b)
	})
}

// HasTerm reports whether a and b share an active term of the given type.
func (e *Enforcement) HasTerm(a, b ecs.FactionID, typ TermType) bool {
	for _, t := range e.TermsBetween(a, b) {
		if t.Type == typ {
			return true
		}
	}
	return false
}

// Allies returns the factions bound to f by an active mutual defense term,
// ascending.
func (e *Enforcement) Allies(f ecs.FactionID) []ecs.FactionID {
	seen := map[ecs.FactionID]bool{}
	for _, t := range e.activeTerms(func(t *Term) bool {
		return t.Type == MutualDefense && t.Binds(f)
	}) {
		for _, p := range t.Parties {
			if p != f {
				seen[p] = true
			}
		}
	}
	out := make([]ecs.FactionID, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Expire deactivates every active treaty that has lapsed by tick and
// returns them, ordered by id.
func (e *Enforcement) Expire(tick uint64) []Treaty {
	var out []Treaty
	for _, t := range e.ActiveTreaties() {
		if t.Expired(tick) {
			e.treaties[t.ID].Active = false
			t.Active = false
			out = append(out, t)
		}
	}
	return out
}

// Revoke deactivates a treaty early. Returns false if it was unknown or
// already inactive.
func (e *Enforcement) Revoke(id ecs.TreatyID) bool {
	t, ok := e.treaties[id]
	if !ok || !t.Active {
		return false
	}
	t.Active = false
	return true
}

// DrainSigned returns the treaties registered since the previous call.
func (e *Enforcement) DrainSigned() []Treaty {
	var out []Treaty
	for _, id := range e.signed {
		out = append(out, *e.treaties[id])
	}
	e.signed = nil
	return out
}

// Len returns the number of registered treaties.
func (e *Enforcement) Len() int {
	return len(e.treaties)
}

// Reset forgets every treaty and rewinds the id sequence.
func (e *Enforcement) Reset() {
	e.treaties = make(map[ecs.TreatyID]*Treaty)
	e.signed = nil
	e.ids.Reset()
}
