package engine

import (
	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/events"
)

// System is one simulation subsystem. The engine calls Execute on every tick
// divisible by Frequency, in registration order.
type System interface {
	Name() string
	Frequency() uint64
	Execute(w *ecs.World, clock *Clock, bus *events.Bus) error
}

// Initializer is implemented by systems that build state from the world
// before the first tick.
type Initializer interface {
	Initialize(w *ecs.World) error
}

// Due reports whether a system with the given frequency runs on tick.
func Due(tick, frequency uint64) bool {
	return frequency > 0 && tick%frequency == 0
}
