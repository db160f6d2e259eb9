// Package subscriber implements the in-process half of tracedeck: a span
// registry with identifier recycling, a broadcast fan-out aggregator, and
// the tracing callback contract (Layer) that ties them to application code.
package subscriber

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tracedeck/tracedeck/wire"
)

// slotState distinguishes a live slot from a recycled one.
type slotState uint8

const (
	slotFree slotState = iota
	slotActive
)

// slot is one entry of the registry's dense vector. While active it tracks
// a refcount and a follows-from list; per spec.md's design note (iii), a
// subscriber-side slot never stores field values, only the follows list —
// the console's SpanRecord is where queryable history lives.
type slot struct {
	state    slotState
	refcount int32 // manipulated with atomic ops while holding registry.mu for read
	follows  []wire.SpanId
	nextFree wire.SpanId // valid only when state == slotFree; 0 means "none"
}

// Registry is the span pool: a dense vector of slots plus the head of an
// intrusive free-list threaded through freed slots. It is grounded on the
// same "allocate-or-recycle an integer handle under a lock" shape as the
// teacher's PortAllocator (internal/server/ports.go), generalized to spans
// with refcounting per spec.md §4.1.
type Registry struct {
	mu       sync.RWMutex
	slots    []slot
	nextFree wire.SpanId // head of the free-list; 0 means empty

	updated atomic.Bool
}

// NewRegistry returns an empty span registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewSpan allocates a SpanId: it pops the free-list head if non-empty,
// otherwise grows the slot vector. The returned id is never one currently
// in the Active state.
func (r *Registry) NewSpan() wire.SpanId {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nextFree != 0 {
		id := r.nextFree
		idx := int(id) - 1
		s := &r.slots[idx]
		r.nextFree = s.nextFree
		s.state = slotActive
		s.refcount = 1
		s.follows = nil
		s.nextFree = 0
		return id
	}

	r.slots = append(r.slots, slot{state: slotActive, refcount: 1})
	return wire.SpanId(len(r.slots))
}

// Clone increments the refcount of an Active span. It panics with a BUG
// message if id refers to a Free slot or an out-of-range id — per spec.md
// §7, the protocol is assumed to guarantee this never happens, so a
// violation is a programming error, not a recoverable condition.
func (r *Registry) Clone(id wire.SpanId) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.activeSlot(id)
	atomic.AddInt32(&s.refcount, 1)
}

// Drop decrements the refcount of an Active span. If the refcount was 1
// before the decrement, the slot transitions to Free and is pushed onto the
// head of the free-list; its follows list is cleared.
func (r *Registry) Drop(id wire.SpanId) {
	r.mu.RLock()
	s := r.activeSlot(id)
	remaining := atomic.AddInt32(&s.refcount, -1)
	r.mu.RUnlock()

	if remaining > 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := int(id) - 1
	s2 := &r.slots[idx]
	// Re-check under the exclusive lock: another Clone could have raced
	// between the RUnlock above and this Lock.
	if s2.state != slotActive || atomic.LoadInt32(&s2.refcount) > 0 {
		return
	}
	s2.state = slotFree
	s2.follows = nil
	s2.nextFree = r.nextFree
	r.nextFree = id
}

// RecordFollowsFrom appends follows to id's follows-from list.
func (r *Registry) RecordFollowsFrom(id wire.SpanId, follows wire.SpanId) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.activeSlot(id)
	s.follows = append(s.follows, follows)
	r.updated.Store(true)
}

// Follows returns a copy of id's follows-from list.
func (r *Registry) Follows(id wire.SpanId) []wire.SpanId {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.activeSlot(id)
	out := make([]wire.SpanId, len(s.follows))
	copy(out, s.follows)
	return out
}

// Refcount returns the current refcount of an Active span (for tests).
func (r *Registry) Refcount(id wire.SpanId) int32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return atomic.LoadInt32(&r.activeSlot(id).refcount)
}

// IsActive reports whether id currently refers to an Active slot.
func (r *Registry) IsActive(id wire.SpanId) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := int(id) - 1
	if id == 0 || idx >= len(r.slots) {
		return false
	}
	return r.slots[idx].state == slotActive
}

// NextFree returns the current free-list head (for tests).
func (r *Registry) NextFree() wire.SpanId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextFree
}

// Len returns the total number of slots ever allocated (active + free).
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}

// Updated reports whether RecordFollowsFrom has been called since the last
// call to ClearUpdated. NewSpan, Clone and Drop do not set the flag.
func (r *Registry) Updated() bool { return r.updated.Load() }

// ClearUpdated resets the updated flag.
func (r *Registry) ClearUpdated() { r.updated.Store(false) }

// activeSlot looks up id's slot, panicking with a BUG message on an
// invariant violation. Caller must hold r.mu for reading.
func (r *Registry) activeSlot(id wire.SpanId) *slot {
	idx := int(id) - 1
	if id == 0 || idx >= len(r.slots) {
		panic(fmt.Sprintf("tracedeck: BUG: span id %d out of range", id))
	}
	s := &r.slots[idx]
	if s.state != slotActive {
		panic(fmt.Sprintf("tracedeck: BUG: span id %d is not active", id))
	}
	return s
}

