// Package ecs provides the entity-component storage layer: identifiers,
// entity lifecycle, typed component stores, and multi-component queries.
package ecs

// EntityID is an opaque handle for anything that lives in the World.
// Zero is never issued and reads as "no entity".
type EntityID uint64

// Branded identifiers. They share EntityID's representation but are distinct
// named types, so passing a SiteID where a FactionID is expected needs an
// explicit conversion.
type (
	CharacterID  uint64
	FactionID    uint64
	SiteID       uint64
	ArtifactID   uint64
	EventID      uint64
	DeityID      uint64
	BookID       uint64
	RegionID     uint64
	WarID        uint64
	TradeRouteID uint64
	TreatyID     uint64
)

// ID is the constraint satisfied by EntityID and every branded id.
type ID interface {
	~uint64
}

// Entity converts a branded id back to the generic handle.
func Entity[T ID](id T) EntityID {
	return EntityID(id)
}

// Sequence mints monotonically increasing ids of one kind. Each simulation
// run owns its own sequences; nothing is process-global.
type Sequence[T ID] struct {
	next T
}

// NewSequence returns a sequence whose first id is 1.
func NewSequence[T ID]() *Sequence[T] {
	return &Sequence[T]{next: 1}
}

// Next returns a fresh id. Ids are never reissued.
func (s *Sequence[T]) Next() T {
	if s.next == 0 {
		s.next = 1
	}
	id := s.next
	s.next++
	return id
}

// Peek returns the id the next call to Next will produce.
func (s *Sequence[T]) Peek() T {
	if s.next == 0 {
		return 1
	}
	return s.next
}

// SetNext moves the sequence forward so that resumed runs do not collide
// with ids already issued. It never moves backwards.
func (s *Sequence[T]) SetNext(next T) {
	if next > s.next {
		s.next = next
	}
}

// Reset rewinds the sequence to 1. Test setup only.
func (s *Sequence[T]) Reset() {
	s.next = 1
}
