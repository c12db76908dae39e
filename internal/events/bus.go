package events

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/chronicle/internal/ecs"
)

// DefaultMaxCascadeDepth bounds how deeply handlers may emit from inside
// other handlers.
const DefaultMaxCascadeDepth = 64

var (
	// ErrCascadeDepthExceeded is returned when a handler-triggered emit
	// would nest deeper than the bus allows.
	ErrCascadeDepthExceeded = errors.New("event cascade depth exceeded")
	// ErrReentrantEvent is returned when an event is emitted again while it
	// is still being dispatched.
	ErrReentrantEvent = errors.New("event already being dispatched")
	// ErrNilEvent is returned by Emit(nil).
	ErrNilEvent = errors.New("nil event")
)

// Handler receives an event. A returned error is logged and reported from
// Emit but never stops delivery to the remaining handlers.
type Handler func(*WorldEvent) error

// Unsubscribe removes a handler. Safe to call any number of times.
type Unsubscribe func()

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous publish/subscribe dispatcher keyed by category.
// Delivery order is fixed: category handlers in registration order, then
// wildcard handlers in registration order. Not safe for concurrent use; the
// engine drives it from a single goroutine.
type Bus struct {
	log      *Log
	logger   *slog.Logger
	maxDepth int

	handlers map[Category][]subscription
	wildcard []subscription
	nextID   uint64

	depth    int
	inflight map[ecs.EventID]struct{}
	emitted  int
	failures int
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLog makes the bus append every accepted event to l before fan-out.
func WithLog(l *Log) BusOption {
	return func(b *Bus) { b.log = l }
}

// WithLogger sets the logger used for handler failures.
func WithLogger(logger *slog.Logger) BusOption {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMaxCascadeDepth overrides DefaultMaxCascadeDepth. Values below 1 are
// ignored.
func WithMaxCascadeDepth(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.maxDepth = n
		}
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		logger:   slog.Default(),
		maxDepth: DefaultMaxCascadeDepth,
		handlers: make(map[Category][]subscription),
		inflight: make(map[ecs.EventID]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Log returns the attached event log, or nil.
func (b *Bus) Log() *Log {
	return b.log
}

// On registers h for every event of category c.
func (b *Bus) On(c Category, h Handler) Unsubscribe {
	b.nextID++
	id := b.nextID
	b.handlers[c] = append(b.handlers[c], subscription{id: id, handler: h})
	var once sync.Once
	return func() {
		once.Do(func() {
			b.handlers[c] = without(b.handlers[c], id)
		})
	}
}

// OnAny registers h for every event regardless of category.
func (b *Bus) OnAny(h Handler) Unsubscribe {
	b.nextID++
	id := b.nextID
	b.wildcard = append(b.wildcard, subscription{id: id, handler: h})
	var once sync.Once
	return func() {
		once.Do(func() {
			b.wildcard = without(b.wildcard, id)
		})
	}
}

// without returns subs minus id in a fresh slice, so a dispatch already
// iterating the old slice is unaffected.
func without(subs []subscription, id uint64) []subscription {
	out := make([]subscription, 0, len(subs))
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// Emit records ev in the attached log and delivers it to subscribers.
// Handler errors and panics are contained per handler; the joined errors are
// returned after every handler has run.
func (b *Bus) Emit(ev *WorldEvent) error {
	if ev == nil {
		return ErrNilEvent
	}
	if _, busy := b.inflight[ev.ID]; busy {
		return fmt.Errorf("emit event %d: %w", ev.ID, ErrReentrantEvent)
	}
	if b.depth >= b.maxDepth {
		b.logger.Warn("event cascade refused",
			"event", ev.ID, "subtype", ev.Subtype, "depth", b.depth)
		return fmt.Errorf("emit event %d at depth %d: %w", ev.ID, b.depth, ErrCascadeDepthExceeded)
	}

	if b.log != nil {
		if err := b.log.Append(ev); err != nil {
			return fmt.Errorf("emit: %w", err)
		}
	}

	b.depth++
	b.inflight[ev.ID] = struct{}{}
	defer func() {
		delete(b.inflight, ev.ID)
		b.depth--
	}()
	b.emitted++

	// Snapshot both lists so subscriptions changed by a handler take effect
	// from the next emit.
	direct := b.handlers[ev.Category]
	wild := b.wildcard

	var errs []error
	for _, s := range direct {
		if err := b.dispatch(s, ev); err != nil {
			errs = append(errs, err)
		}
	}
	for _, s := range wild {
		if err := b.dispatch(s, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) dispatch(s subscription, ev *WorldEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %d panicked on event %d: %v", s.id, ev.ID, r)
		}
		if err != nil {
			b.failures++
			b.logger.Error("event handler failed",
				"event", ev.ID, "subtype", ev.Subtype, "error", err)
		}
	}()
	return s.handler(ev)
}

// Emitted returns how many events have been accepted for delivery.
func (b *Bus) Emitted() int {
	return b.emitted
}

// Failures returns how many handler invocations errored or panicked.
func (b *Bus) Failures() int {
	return b.failures
}

// Depth returns the current nesting depth; non-zero only inside a handler.
func (b *Bus) Depth() int {
	return b.depth
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	n := len(b.wildcard)
	for _, subs := range b.handlers {
		n += len(subs)
	}
	return n
}
