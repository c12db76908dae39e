package ecs

import "sort"

// Component is a plain data record tagged with its type name.
// Implementations use pointer receivers so that a nil *T still reports its
// type; the generic accessors rely on that.
type Component interface {
	ComponentType() string
}

// ComponentStore maps entities to at most one component of a single type.
// Uses the sparse set pattern: dense parallel slices for iteration and an
// index map for O(1) lookup and swap-remove.
type ComponentStore struct {
	name     string
	index    map[EntityID]int
	entities []EntityID
	items    []Component
}

// NewComponentStore creates an empty store for the named component type.
func NewComponentStore(name string) *ComponentStore {
	return &ComponentStore{
		name:     name,
		index:    make(map[EntityID]int, 64),
		entities: make([]EntityID, 0, 64),
		items:    make([]Component, 0, 64),
	}
}

// Name returns the component type this store holds.
func (s *ComponentStore) Name() string {
	return s.name
}

// Add inserts or replaces the component for e. Last write wins.
func (s *ComponentStore) Add(e EntityID, c Component) {
	if i, ok := s.index[e]; ok {
		s.items[i] = c
		return
	}
	s.index[e] = len(s.entities)
	s.entities = append(s.entities, e)
	s.items = append(s.items, c)
}

// Get returns the component for e, if present.
func (s *ComponentStore) Get(e EntityID) (Component, bool) {
	i, ok := s.index[e]
	if !ok {
		return nil, false
	}
	return s.items[i], true
}

// Has reports whether e holds a component in this store.
func (s *ComponentStore) Has(e EntityID) bool {
	_, ok := s.index[e]
	return ok
}

// Remove deletes e's component. Removing an absent component is a no-op.
func (s *ComponentStore) Remove(e EntityID) {
	i, ok := s.index[e]
	if !ok {
		return
	}
	last := len(s.entities) - 1
	if i != last {
		moved := s.entities[last]
		s.entities[i] = moved
		s.items[i] = s.items[last]
		s.index[moved] = i
	}
	s.entities = s.entities[:last]
	s.items[last] = nil
	s.items = s.items[:last]
	delete(s.index, e)
}

// Count returns the number of components held.
func (s *ComponentStore) Count() int {
	return len(s.entities)
}

// Entities returns the ids holding this component, ascending.
func (s *ComponentStore) Entities() []EntityID {
	out := make([]EntityID, len(s.entities))
	copy(out, s.entities)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clear drops every component but keeps the store registered.
func (s *ComponentStore) Clear() {
	s.index = make(map[EntityID]int, 64)
	s.entities = s.entities[:0]
	for i := range s.items {
		s.items[i] = nil
	}
	s.items = s.items[:0]
}
