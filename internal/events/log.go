package events

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/talgya/chronicle/internal/ecs"
)

// TicksPerBucket is the width of the time index: one calendar month.
const TicksPerBucket = 30

// ErrDuplicateEvent is returned when appending an id already in the log.
var ErrDuplicateEvent = errors.New("duplicate event id")

// Log is the append-only record of every emitted event. Returned events are
// shared with the log and must be treated as read-only.
type Log struct {
	order      []*WorldEvent
	byID       map[ecs.EventID]*WorldEvent
	byEntity   map[ecs.EntityID][]ecs.EventID
	byLocation map[ecs.SiteID][]ecs.EventID
	byBucket   map[uint64][]ecs.EventID
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{
		byID:       make(map[ecs.EventID]*WorldEvent),
		byEntity:   make(map[ecs.EntityID][]ecs.EventID),
		byLocation: make(map[ecs.SiteID][]ecs.EventID),
		byBucket:   make(map[uint64][]ecs.EventID),
	}
}

// Append stores ev and indexes it. Every cause already in the log gains ev
// as a consequence.
func (l *Log) Append(ev *WorldEvent) error {
	if ev == nil {
		return ErrNilEvent
	}
	if _, dup := l.byID[ev.ID]; dup {
		return fmt.Errorf("append event %d: %w", ev.ID, ErrDuplicateEvent)
	}

	l.order = append(l.order, ev)
	l.byID[ev.ID] = ev

	seen := make(map[ecs.EntityID]bool, len(ev.Participants))
	for _, p := range ev.Participants {
		if seen[p] {
			continue
		}
		seen[p] = true
		l.byEntity[p] = append(l.byEntity[p], ev.ID)
	}
	if ev.Location != nil {
		loc := *ev.Location
		l.byLocation[loc] = append(l.byLocation[loc], ev.ID)
		if e := ecs.Entity(loc); !seen[e] {
			l.byEntity[e] = append(l.byEntity[e], ev.ID)
		}
	}
	bucket := ev.Timestamp / TicksPerBucket
	l.byBucket[bucket] = append(l.byBucket[bucket], ev.ID)

	for _, c := range ev.Causes {
		l.LinkCause(c, ev.ID)
	}
	return nil
}

// LinkCause records that consequence followed from cause. Both links are
// kept: cause.Consequences and consequence.Causes. Repeated calls are no-ops.
// Returns false if either event is unknown.
func (l *Log) LinkCause(cause, consequence ecs.EventID) bool {
	c, ok := l.byID[cause]
	if !ok {
		return false
	}
	q, ok := l.byID[consequence]
	if !ok {
		return false
	}
	if !containsID(c.Consequences, consequence) {
		c.Consequences = append(c.Consequences, consequence)
	}
	if !containsID(q.Causes, cause) {
		q.Causes = append(q.Causes, cause)
	}
	return true
}

func containsID(ids []ecs.EventID, id ecs.EventID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// Get returns the event with the given id.
func (l *Log) Get(id ecs.EventID) (*WorldEvent, bool) {
	ev, ok := l.byID[id]
	return ev, ok
}

// ForEntity returns every event naming e as a participant or location, in
// append order.
func (l *Log) ForEntity(e ecs.EntityID) []*WorldEvent {
	return l.resolve(l.byEntity[e])
}

// AtLocation returns every event located at site, in append order.
func (l *Log) AtLocation(site ecs.SiteID) []*WorldEvent {
	return l.resolve(l.byLocation[site])
}

// InRange returns events with from <= Timestamp <= to, ordered by
// timestamp then id.
func (l *Log) InRange(from, to uint64) []*WorldEvent {
	if to < from {
		return []*WorldEvent{}
	}
	var out []*WorldEvent
	for b := from / TicksPerBucket; b <= to/TicksPerBucket; b++ {
		for _, id := range l.byBucket[b] {
			ev := l.byID[id]
			if ev.Timestamp >= from && ev.Timestamp <= to {
				out = append(out, ev)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	if out == nil {
		return []*WorldEvent{}
	}
	return out
}

// BySubtype returns every event with the exact subtype, in append order.
func (l *Log) BySubtype(subtype string) []*WorldEvent {
	out := []*WorldEvent{}
	for _, ev := range l.order {
		if ev.Subtype == subtype {
			out = append(out, ev)
		}
	}
	return out
}

// All returns every event in append order.
func (l *Log) All() []*WorldEvent {
	out := make([]*WorldEvent, len(l.order))
	copy(out, l.order)
	return out
}

// Len returns the number of events.
func (l *Log) Len() int {
	return len(l.order)
}

// Causes returns the recorded causes of id that are present in the log.
func (l *Log) Causes(id ecs.EventID) []*WorldEvent {
	ev, ok := l.byID[id]
	if !ok {
		return []*WorldEvent{}
	}
	return l.resolve(ev.Causes)
}

// CausalChain walks consequences breadth-first from id, returning the root
// first. maxDepth bounds the number of hops; zero or less means unbounded.
// Cycles are tolerated.
func (l *Log) CausalChain(id ecs.EventID, maxDepth int) []*WorldEvent {
	root, ok := l.byID[id]
	if !ok {
		return []*WorldEvent{}
	}
	out := []*WorldEvent{root}
	visited := map[ecs.EventID]bool{id: true}
	frontier := []*WorldEvent{root}
	for depth := 0; len(frontier) > 0 && (maxDepth <= 0 || depth < maxDepth); depth++ {
		var next []*WorldEvent
		for _, ev := range frontier {
			for _, cid := range ev.Consequences {
				if visited[cid] {
					continue
				}
				visited[cid] = true
				if c, ok := l.byID[cid]; ok {
					out = append(out, c)
					next = append(next, c)
				}
			}
		}
		frontier = next
	}
	return out
}

// MaxID returns the highest event id in the log, or zero when empty.
func (l *Log) MaxID() ecs.EventID {
	var max ecs.EventID
	for _, ev := range l.order {
		if ev.ID > max {
			max = ev.ID
		}
	}
	return max
}

func (l *Log) resolve(ids []ecs.EventID) []*WorldEvent {
	out := make([]*WorldEvent, 0, len(ids))
	for _, id := range ids {
		if ev, ok := l.byID[id]; ok {
			out = append(out, ev)
		}
	}
	return out
}

// Digest hashes every event in append order. Two runs with equal digests
// produced the same history.
func (l *Log) Digest() uint64 {
	h := xxhash.New()
	var buf [8]byte
	putU := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	putS := func(s string) {
		putU(uint64(len(s)))
		_, _ = h.WriteString(s)
	}

	for _, ev := range l.order {
		putU(uint64(ev.ID))
		putU(uint64(ev.Category))
		putS(ev.Subtype)
		putU(ev.Timestamp)
		putU(uint64(len(ev.Participants)))
		for _, p := range ev.Participants {
			putU(uint64(p))
		}
		if ev.Location != nil {
			putU(1)
			putU(uint64(*ev.Location))
		} else {
			putU(0)
		}
		putU(uint64(len(ev.Causes)))
		for _, c := range ev.Causes {
			putU(uint64(c))
		}
		putU(uint64(len(ev.Consequences)))
		for _, c := range ev.Consequences {
			putU(uint64(c))
		}
		putU(uint64(ev.Significance))

		fields := ev.Fields()
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			putS(k)
			putS(fmt.Sprintf("%v", fields[k]))
		}
	}
	return h.Sum64()
}
