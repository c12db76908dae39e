package ecs

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrComponentNotRegistered is returned when a store is looked up or
	// written for a type that was never registered.
	ErrComponentNotRegistered = errors.New("component type not registered")
	// ErrEntityNotAlive is returned when attaching a component to an entity
	// that was destroyed or never issued.
	ErrEntityNotAlive = errors.New("entity not alive")
)

// World owns the entity manager and one ComponentStore per registered
// component type name.
type World struct {
	entities *EntityManager
	stores   map[string]*ComponentStore
}

// NewWorld creates an empty world with no registered component types.
func NewWorld() *World {
	return &World{
		entities: NewEntityManager(),
		stores:   make(map[string]*ComponentStore),
	}
}

// RegisterComponent creates the store for name, or returns the existing one.
// Registering twice never resets data.
func (w *World) RegisterComponent(name string) *ComponentStore {
	if s, ok := w.stores[name]; ok {
		return s
	}
	s := NewComponentStore(name)
	w.stores[name] = s
	return s
}

// Store returns the store for name or ErrComponentNotRegistered.
func (w *World) Store(name string) (*ComponentStore, error) {
	s, ok := w.stores[name]
	if !ok {
		return nil, fmt.Errorf("store %q: %w", name, ErrComponentNotRegistered)
	}
	return s, nil
}

// HasStore reports whether name has been registered.
func (w *World) HasStore(name string) bool {
	_, ok := w.stores[name]
	return ok
}

// ComponentTypes returns the registered type names, sorted.
func (w *World) ComponentTypes() []string {
	names := make([]string, 0, len(w.stores))
	for name := range w.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateEntity issues a new living entity.
func (w *World) CreateEntity() EntityID {
	return w.entities.CreateEntity()
}

// DestroyEntity kills e and strips it from every store. Idempotent.
func (w *World) DestroyEntity(e EntityID) {
	for _, s := range w.stores {
		s.Remove(e)
	}
	w.entities.DestroyEntity(e)
}

// IsAlive reports whether e is alive.
func (w *World) IsAlive(e EntityID) bool {
	return w.entities.IsAlive(e)
}

// Entities returns every living entity, ascending.
func (w *World) Entities() []EntityID {
	return w.entities.Entities()
}

// EntityCount returns the number of living entities.
func (w *World) EntityCount() int {
	return w.entities.EntityCount()
}

// AddComponent attaches c to e, replacing any component of the same type.
func (w *World) AddComponent(e EntityID, c Component) error {
	if !w.entities.IsAlive(e) {
		return fmt.Errorf("add %s to entity %d: %w", c.ComponentType(), e, ErrEntityNotAlive)
	}
	s, err := w.Store(c.ComponentType())
	if err != nil {
		return fmt.Errorf("add to entity %d: %w", e, err)
	}
	s.Add(e, c)
	return nil
}

// GetComponent returns e's component of the named type. Missing entity,
// missing component and unregistered type all read as absent.
func (w *World) GetComponent(e EntityID, name string) (Component, bool) {
	s, ok := w.stores[name]
	if !ok {
		return nil, false
	}
	return s.Get(e)
}

// HasComponent reports whether e holds a component of the named type.
func (w *World) HasComponent(e EntityID, name string) bool {
	s, ok := w.stores[name]
	return ok && s.Has(e)
}

// RemoveComponent detaches the named component from e. Idempotent.
func (w *World) RemoveComponent(e EntityID, name string) {
	if s, ok := w.stores[name]; ok {
		s.Remove(e)
	}
}

// Query returns the living entities that hold every named component type,
// ascending. With no names it returns all living entities. Any unregistered
// name yields an empty result.
func (w *World) Query(names ...string) []EntityID {
	if len(names) == 0 {
		return w.entities.Entities()
	}

	stores := make([]*ComponentStore, 0, len(names))
	for _, name := range names {
		s, ok := w.stores[name]
		if !ok {
			return []EntityID{}
		}
		stores = append(stores, s)
	}

	// Start from the smallest store to minimise membership checks.
	sort.SliceStable(stores, func(i, j int) bool {
		return stores[i].Count() < stores[j].Count()
	})

	result := make([]EntityID, 0, stores[0].Count())
	for _, e := range stores[0].entities {
		if !w.entities.IsAlive(e) {
			continue
		}
		matched := true
		for _, s := range stores[1:] {
			if !s.Has(e) {
				matched = false
				break
			}
		}
		if matched {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Entry pairs an entity with one of its components.
type Entry struct {
	Entity    EntityID
	Component Component
}

// QueryWith returns every living entity holding the named component together
// with the component, ascending by entity.
func (w *World) QueryWith(name string) []Entry {
	s, ok := w.stores[name]
	if !ok {
		return []Entry{}
	}
	out := make([]Entry, 0, s.Count())
	for _, e := range s.Entities() {
		if !w.entities.IsAlive(e) {
			continue
		}
		c, _ := s.Get(e)
		out = append(out, Entry{Entity: e, Component: c})
	}
	return out
}

// Reset removes every entity and component. Stores stay registered, so
// references obtained from RegisterComponent remain valid.
func (w *World) Reset() {
	for _, s := range w.stores {
		s.Clear()
	}
	w.entities.Reset()
}
