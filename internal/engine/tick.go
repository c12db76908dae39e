// Package engine provides the world clock, the System contract, and the
// tick loop that drives registered systems in a fixed order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/events"
)

// ErrDuplicateSystem is returned when two systems share a name.
var ErrDuplicateSystem = errors.New("system already registered")

// Engine drives the simulation forward.
type Engine struct {
	World *ecs.World
	Clock *Clock
	Bus   *events.Bus

	Speed    float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // Base tick interval (default 1 second)

	// OnTick runs after every tick's systems. Optional.
	OnTick func(tick uint64)

	systems  []System
	names    map[string]bool
	running  atomic.Bool
	state    sync.RWMutex // Held by Step; shared by View
	mu       sync.Mutex
	stop     chan struct{}
	runs     map[string]int
	failures int
	logger   *slog.Logger
}

// NewEngine creates an engine over w and bus with default pacing.
func NewEngine(w *ecs.World, bus *events.Bus) *Engine {
	return &Engine{
		World:    w,
		Clock:    NewClock(),
		Bus:      bus,
		Speed:    1.0,
		Interval: time.Second,
		names:    make(map[string]bool),
		runs:     make(map[string]int),
		logger:   slog.Default(),
	}
}

// SetLogger replaces the engine's logger.
func (e *Engine) SetLogger(l *slog.Logger) {
	if l != nil {
		e.logger = l
	}
}

// Register appends sys to the execution order.
func (e *Engine) Register(sys System) error {
	if sys.Frequency() == 0 {
		return fmt.Errorf("register %s: frequency must be positive", sys.Name())
	}
	if e.names[sys.Name()] {
		return fmt.Errorf("register %s: %w", sys.Name(), ErrDuplicateSystem)
	}
	e.names[sys.Name()] = true
	e.systems = append(e.systems, sys)
	return nil
}

// Systems returns the registered system names in execution order.
func (e *Engine) Systems() []string {
	out := make([]string, len(e.systems))
	for i, s := range e.systems {
		out[i] = s.Name()
	}
	return out
}

// Initialize lets every Initializer build its state from the world.
func (e *Engine) Initialize() error {
	for _, s := range e.systems {
		init, ok := s.(Initializer)
		if !ok {
			continue
		}
		if err := init.Initialize(e.World); err != nil {
			return fmt.Errorf("initialize %s: %w", s.Name(), err)
		}
		e.logger.Info("system initialized", "system", s.Name())
	}
	return nil
}

// Step advances the clock one tick and executes every system due on it.
func (e *Engine) Step() uint64 {
	e.state.Lock()
	defer e.state.Unlock()

	tick := e.Clock.Advance()
	for _, s := range e.systems {
		if Due(tick, s.Frequency()) {
			e.execute(s, tick)
		}
	}
	if e.OnTick != nil {
		e.OnTick(tick)
	}
	return tick
}

// execute runs one system, containing errors and panics so the tick
// always completes.
func (e *Engine) execute(s System, tick uint64) {
	defer func() {
		if r := recover(); r != nil {
			e.failures++
			e.logger.Error("system panicked", "system", s.Name(), "tick", tick, "panic", r)
		}
	}()
	e.runs[s.Name()]++
	if err := s.Execute(e.World, e.Clock, e.Bus); err != nil {
		e.failures++
		e.logger.Warn("system error", "system", s.Name(), "tick", tick, "error", err)
	}
}

// RunTicks steps n ticks without pacing.
func (e *Engine) RunTicks(n uint64) {
	for i := uint64(0); i < n; i++ {
		e.Step()
	}
}

// RunTicksContext steps up to n ticks without pacing (zero means until ctx
// ends) and returns how many ran.
func (e *Engine) RunTicksContext(ctx context.Context, n uint64) (uint64, error) {
	var done uint64
	for n == 0 || done < n {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		e.Step()
		done++
	}
	return done, nil
}

// Run starts the paced simulation loop. It returns when ctx is done, Stop is
// called, or limit ticks have run (zero means no limit).
func (e *Engine) Run(ctx context.Context, limit uint64) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine already running")
	}
	e.mu.Lock()
	e.stop = make(chan struct{})
	stop := e.stop
	e.mu.Unlock()
	defer e.running.Store(false)

	e.logger.Info("simulation engine started", "tick", e.Clock.Tick(), "speed", e.Speed)
	defer func() {
		e.logger.Info("simulation engine stopped", "tick", e.Clock.Tick())
	}()

	var done uint64
	for limit == 0 || done < limit {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		if e.Speed <= 0 {
			// Paused: sleep briefly and check again.
			if !sleep(ctx, stop, 100*time.Millisecond) {
				return ctx.Err()
			}
			continue
		}

		start := time.Now()
		e.Step()
		done++

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / e.Speed)
		if elapsed < target {
			if !sleep(ctx, stop, target-elapsed) {
				return ctx.Err()
			}
		}
	}
	return nil
}

// sleep waits for d; false means ctx ended first.
func sleep(ctx context.Context, stop <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-stop:
		return true
	case <-t.C:
		return true
	}
}

// View runs fn while no tick is in progress. Readers on other goroutines
// (the HTTP API) must go through View; fn must not call Step.
func (e *Engine) View(fn func()) {
	e.state.RLock()
	defer e.state.RUnlock()
	fn()
}

// Stop halts a running loop. No-op when idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() && e.stop != nil {
		select {
		case <-e.stop:
		default:
			close(e.stop)
		}
	}
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Runs returns how many times the named system has executed.
func (e *Engine) Runs(name string) int {
	return e.runs[name]
}

// Failures returns the number of system errors and panics contained.
func (e *Engine) Failures() int {
	return e.failures
}
