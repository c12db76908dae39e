package ecs

// TypeOf returns the component type name declared by T.
func TypeOf[T Component]() string {
	var zero T
	return zero.ComponentType()
}

// Register registers the store for T's component type.
func Register[T Component](w *World) *ComponentStore {
	return w.RegisterComponent(TypeOf[T]())
}

// Get returns e's component of type T.
func Get[T Component](w *World, e EntityID) (T, bool) {
	var zero T
	c, ok := w.GetComponent(e, zero.ComponentType())
	if !ok {
		return zero, false
	}
	t, ok := c.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Pair is a typed query row.
type Pair[T Component] struct {
	Entity    EntityID
	Component T
}

// QueryAs returns every living entity holding a T, with the component,
// ascending by entity.
func QueryAs[T Component](w *World) []Pair[T] {
	entries := w.QueryWith(TypeOf[T]())
	out := make([]Pair[T], 0, len(entries))
	for _, en := range entries {
		if t, ok := en.Component.(T); ok {
			out = append(out, Pair[T]{Entity: en.Entity, Component: t})
		}
	}
	return out
}
