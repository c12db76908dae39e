package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type position struct{ X, Y int }

func (*position) ComponentType() string { return "Position" }

type health struct{ Current, Maximum int }

func (*health) ComponentType() string { return "Health" }

type tag struct{}

func (*tag) ComponentType() string { return "Tag" }

func newTestWorld() *World {
	w := NewWorld()
	Register[*position](w)
	Register[*health](w)
	return w
}

func TestQueryScenario(t *testing.T) {
	w := newTestWorld()

	e1 := w.CreateEntity()
	require.NoError(t, w.AddComponent(e1, &position{10, 20}))
	require.NoError(t, w.AddComponent(e1, &health{100, 100}))
	assert.Equal(t, []EntityID{e1}, w.Query("Position", "Health"))

	e2 := w.CreateEntity()
	require.NoError(t, w.AddComponent(e2, &position{0, 0}))
	assert.Equal(t, []EntityID{e1}, w.Query("Position", "Health"))
	assert.Equal(t, []EntityID{e1, e2}, w.Query("Position"))

	p, ok := Get[*position](w, e1)
	require.True(t, ok)
	assert.Equal(t, 20, p.Y)
}

func TestQueryIsIntersection(t *testing.T) {
	w := newTestWorld()
	var ids []EntityID
	for i := 0; i < 12; i++ {
		e := w.CreateEntity()
		ids = append(ids, e)
		if i%2 == 0 {
			require.NoError(t, w.AddComponent(e, &position{i, i}))
		}
		if i%3 == 0 {
			require.NoError(t, w.AddComponent(e, &health{i, 10}))
		}
	}

	pos := w.Query("Position")
	hp := w.Query("Health")
	var want []EntityID
	for _, e := range pos {
		for _, h := range hp {
			if e == h {
				want = append(want, e)
			}
		}
	}
	assert.Equal(t, want, w.Query("Position", "Health"))
	assert.Equal(t, want, w.Query("Health", "Position"))
	assert.Equal(t, ids, w.Query())
	assert.Empty(t, w.Query("Position", "Unregistered"))
}

func TestDestroyRemovesFromEveryStore(t *testing.T) {
	w := newTestWorld()
	e := w.CreateEntity()
	require.NoError(t, w.AddComponent(e, &position{1, 1}))
	require.NoError(t, w.AddComponent(e, &health{5, 5}))
	require.True(t, w.IsAlive(e))

	w.DestroyEntity(e)
	w.DestroyEntity(e)
	assert.False(t, w.IsAlive(e))
	for _, name := range w.ComponentTypes() {
		s, err := w.Store(name)
		require.NoError(t, err)
		assert.False(t, s.Has(e), name)
	}
	assert.Empty(t, w.Query())
	assert.Zero(t, w.EntityCount())

	next := w.CreateEntity()
	assert.NotEqual(t, e, next, "ids are never recycled")
}

func TestMissingComponentsReadAsAbsent(t *testing.T) {
	w := newTestWorld()
	e := w.CreateEntity()

	assert.False(t, w.HasComponent(e, "Health"))
	c, ok := w.GetComponent(e, "Health")
	assert.False(t, ok)
	assert.Nil(t, c)

	_, ok = w.GetComponent(e, "Unregistered")
	assert.False(t, ok)
	_, ok = Get[*health](w, 999)
	assert.False(t, ok)

	w.RemoveComponent(e, "Health")
	w.RemoveComponent(e, "Unregistered")
}

func TestAddComponentErrors(t *testing.T) {
	w := newTestWorld()
	e := w.CreateEntity()

	assert.ErrorIs(t, w.AddComponent(e, &tag{}), ErrComponentNotRegistered)
	assert.False(t, w.HasStore("Tag"))

	w.DestroyEntity(e)
	assert.ErrorIs(t, w.AddComponent(e, &position{}), ErrEntityNotAlive)
	assert.ErrorIs(t, w.AddComponent(EntityID(42), &position{}), ErrEntityNotAlive)

	_, err := w.Store("Tag")
	assert.ErrorIs(t, err, ErrComponentNotRegistered)
}

func TestRegisterIsIdempotent(t *testing.T) {
	w := NewWorld()
	first := w.RegisterComponent("Position")
	e := w.CreateEntity()
	require.NoError(t, w.AddComponent(e, &position{3, 4}))

	second := w.RegisterComponent("Position")
	assert.Same(t, first, second)
	assert.True(t, second.Has(e))
	assert.Same(t, first, Register[*position](w))
}

func TestAddReplacesSameType(t *testing.T) {
	w := newTestWorld()
	e := w.CreateEntity()
	require.NoError(t, w.AddComponent(e, &health{10, 10}))
	require.NoError(t, w.AddComponent(e, &health{3, 10}))

	h, ok := Get[*health](w, e)
	require.True(t, ok)
	assert.Equal(t, 3, h.Current)
	s, _ := w.Store("Health")
	assert.Equal(t, 1, s.Count())
}

func TestQueryAsAndQueryWith(t *testing.T) {
	w := newTestWorld()
	a := w.CreateEntity()
	b := w.CreateEntity()
	c := w.CreateEntity()
	require.NoError(t, w.AddComponent(c, &health{1, 1}))
	require.NoError(t, w.AddComponent(a, &health{2, 2}))
	_ = b

	rows := QueryAs[*health](w)
	require.Len(t, rows, 2)
	assert.Equal(t, a, rows[0].Entity)
	assert.Equal(t, 2, rows[0].Component.Current)
	assert.Equal(t, c, rows[1].Entity)

	w.DestroyEntity(a)
	entries := w.QueryWith("Health")
	require.Len(t, entries, 1)
	assert.Equal(t, c, entries[0].Entity)
	assert.Empty(t, w.QueryWith("Unregistered"))
	assert.Equal(t, "Health", TypeOf[*health]())
}

func TestResetKeepsStoresAndRewindsIDs(t *testing.T) {
	w := newTestWorld()
	store := Register[*position](w)
	e := w.CreateEntity()
	require.NoError(t, w.AddComponent(e, &position{}))

	w.Reset()
	assert.Zero(t, w.EntityCount())
	assert.Zero(t, store.Count())
	assert.True(t, w.HasStore("Position"))
	assert.Equal(t, EntityID(1), w.CreateEntity())
}
