package ecs

import "sort"

// EntityManager allocates entity ids and tracks which are alive.
// Ids are monotonic and never recycled, so a stale handle can never alias a
// newer entity.
type EntityManager struct {
	ids   *Sequence[EntityID]
	alive map[EntityID]struct{}
}

// NewEntityManager creates an empty manager.
func NewEntityManager() *EntityManager {
	return &EntityManager{
		ids:   NewSequence[EntityID](),
		alive: make(map[EntityID]struct{}, 256),
	}
}

// CreateEntity issues a fresh id and marks it alive.
func (m *EntityManager) CreateEntity() EntityID {
	id := m.ids.Next()
	m.alive[id] = struct{}{}
	return id
}

// IsAlive reports whether id was issued and not yet destroyed.
// Never-issued ids read as dead.
func (m *EntityManager) IsAlive(id EntityID) bool {
	_, ok := m.alive[id]
	return ok
}

// DestroyEntity marks id dead. Destroying twice is a no-op.
func (m *EntityManager) DestroyEntity(id EntityID) {
	delete(m.alive, id)
}

// Entities returns all living ids in ascending order.
func (m *EntityManager) Entities() []EntityID {
	out := make([]EntityID, 0, len(m.alive))
	for id := range m.alive {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// EntityCount returns the number of living entities.
func (m *EntityManager) EntityCount() int {
	return len(m.alive)
}

// Reset forgets every entity and rewinds the id sequence.
func (m *EntityManager) Reset() {
	m.alive = make(map[EntityID]struct{}, 256)
	m.ids.Reset()
}
