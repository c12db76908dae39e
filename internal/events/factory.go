package events

import "github.com/talgya/chronicle/internal/ecs"

// Params describes an event to be minted by a Factory.
type Params struct {
	Category     Category
	Subtype      string
	Timestamp    uint64
	Participants []ecs.EntityID
	Location     *ecs.SiteID
	Causes       []ecs.EventID
	Data         Payload
	Significance int
	Potential    []Hook
}

// Factory mints events with sequential ids. One per simulation run.
type Factory struct {
	ids *ecs.Sequence[ecs.EventID]
}

// NewFactory returns a factory whose first event id is 1.
func NewFactory() *Factory {
	return &Factory{ids: ecs.NewSequence[ecs.EventID]()}
}

// Create builds a WorldEvent from p. Slices are copied so later changes to
// p cannot reach the event, and significance is clamped to 0–100.
func (f *Factory) Create(p Params) *WorldEvent {
	ev := &WorldEvent{
		ID:           f.ids.Next(),
		Category:     p.Category,
		Subtype:      p.Subtype,
		Timestamp:    p.Timestamp,
		Participants: append([]ecs.EntityID{}, p.Participants...),
		Causes:       append([]ecs.EventID{}, p.Causes...),
		Consequences: []ecs.EventID{},
		Data:         p.Data,
		Significance: ClampSignificance(p.Significance),
	}
	if p.Location != nil {
		loc := *p.Location
		ev.Location = &loc
	}
	if len(p.Potential) > 0 {
		ev.ConsequencePotential = append([]Hook{}, p.Potential...)
	}
	return ev
}

// Peek returns the id the next Create will assign.
func (f *Factory) Peek() ecs.EventID {
	return f.ids.Peek()
}

// SetNext advances the id sequence when resuming a saved run.
func (f *Factory) SetNext(next ecs.EventID) {
	f.ids.SetNext(next)
}

// Reset rewinds the id sequence. Test setup only.
func (f *Factory) Reset() {
	f.ids.Reset()
}

// ClampSignificance bounds s to 0–100.
func ClampSignificance(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
