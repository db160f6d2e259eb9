// Package console implements the standalone viewer half of tracedeck: a
// monotonically-growing arena of events and spans keyed by console-assigned
// identifiers, stable across subscriber-side id recycling.
package console

import (
	"fmt"
	"sync"

	"github.com/tracedeck/tracedeck/wire"
)

// InternalId is a dense index assigned by the console into its own span
// vector, monotonically increasing and never recycled — stable for the
// console's lifetime even when the originating subscriber reuses its
// SpanId. Never compare an InternalId to a wire.SpanId.
type InternalId uint64

// EventEntry is one entry in the store's append-only event log.
type EventEntry struct {
	Span  *InternalId // nil if the event had no parent span
	Event wire.Event
}

// SpanRecord is one entry in the store's span vector. Unlike the
// subscriber-side registry slot, a SpanRecord retains its full field
// history (NewSpan's initial values plus every subsequent Record) because
// the query engine's group-by needs to look values up by span — see
// SPEC_FULL.md §9 (iii).
type SpanRecord struct {
	ID       InternalId
	NewSpan  wire.NewSpan
	ParentID *InternalId
	Records  []wire.Record
	Follows  []wire.SpanId
}

// FieldValue returns the first value named field found across the span's
// initial NewSpan values and its accumulated Records, in that order — "the
// entry's owning span (its new_span attributes or any of its records;
// first match wins in insertion order)" per spec.md §4.4.3.
func (r *SpanRecord) FieldValue(field string) (wire.Value, bool) {
	for _, v := range r.NewSpan.Values {
		if v.Field == field {
			return v, true
		}
	}
	for _, rec := range r.Records {
		for _, v := range rec.Values {
			if v.Field == field {
				return v, true
			}
		}
	}
	return wire.Value{}, false
}

// Store holds the console's entire ingested history: every event and span
// ever seen, plus the id_map from subscriber SpanId to stable InternalId.
//
// Grounded on the teacher's server/server.go buildResolvedEnvironment,
// which folds an ordered log into derived state keyed by service name;
// Store performs the analogous fold keyed by InternalId, with append-only
// history rather than a point-in-time snapshot.
type Store struct {
	mu sync.Mutex

	events []EventEntry
	spans  []SpanRecord
	idMap  map[wire.SpanId]InternalId

	updated bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{idMap: make(map[wire.SpanId]InternalId)}
}

// Dispatch applies a wire.Variant to the store, per spec.md §4.3. It panics
// with a BUG message on a malformed variant (no populated case) or a
// reference to a subscriber span id never announced via NewSpan — the
// protocol guarantees NewSpan precedes any reference (spec.md §7).
func (s *Store) Dispatch(v wire.Variant) {
	switch v.Kind {
	case wire.KindNewSpan:
		if v.NewSpan == nil {
			panic("tracedeck: BUG: NewSpan variant with nil payload")
		}
		s.onNewSpan(*v.NewSpan)
	case wire.KindRecord:
		if v.Record == nil {
			panic("tracedeck: BUG: Record variant with nil payload")
		}
		s.onRecord(*v.Record)
	case wire.KindFollows:
		if v.Follows == nil {
			panic("tracedeck: BUG: Follows variant with nil payload")
		}
		s.onFollows(*v.Follows)
	case wire.KindEvent:
		if v.Event == nil {
			panic("tracedeck: BUG: Event variant with nil payload")
		}
		s.onEvent(*v.Event)
	default:
		panic(fmt.Sprintf("tracedeck: BUG: unknown variant kind %d", v.Kind))
	}
}

func (s *Store) onNewSpan(m wire.NewSpan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := InternalId(len(s.spans))

	// Resolve parent via the id_map *before* the overwrite below. Per
	// spec.md §4.3, self-referential parents are disallowed by the
	// protocol, so ordering here only matters in that impossible case.
	var parentID *InternalId
	if m.Attributes.Parent != nil {
		if pid, ok := s.idMap[*m.Attributes.Parent]; ok {
			p := pid
			parentID = &p
		}
	}

	// Overwriting id_map here is what gives recycled subscriber ids stable
	// history: the previous InternalId entry in s.spans is left untouched,
	// forever reachable by its own index, while future Record/Follows for
	// this subscriber id resolve to the new InternalId.
	s.idMap[m.Span] = id

	s.spans = append(s.spans, SpanRecord{ID: id, NewSpan: m, ParentID: parentID})
	s.updated = true
}

func (s *Store) onRecord(m wire.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.idMap[m.Span]
	if !ok {
		panic(fmt.Sprintf("tracedeck: BUG: Record for unknown span %d", m.Span))
	}
	s.spans[id].Records = append(s.spans[id].Records, m)
	s.updated = true
}

func (s *Store) onFollows(m wire.Follows) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.idMap[m.Span]
	if !ok {
		panic(fmt.Sprintf("tracedeck: BUG: Follows for unknown span %d", m.Span))
	}
	s.spans[id].Follows = append(s.spans[id].Follows, m.Follows)
	s.updated = true
}

func (s *Store) onEvent(m wire.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var spanID *InternalId
	if m.Attributes.Parent != nil {
		id, ok := s.idMap[*m.Attributes.Parent]
		if !ok {
			panic(fmt.Sprintf("tracedeck: BUG: Event for unknown span %d", *m.Attributes.Parent))
		}
		spanID = &id
	}

	s.events = append(s.events, EventEntry{Span: spanID, Event: m})
	s.updated = true
}

// Events returns a snapshot of the event log in arrival order.
func (s *Store) Events() []EventEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventEntry, len(s.events))
	copy(out, s.events)
	return out
}

// Spans returns a snapshot of the span vector, indexed by InternalId.
func (s *Store) Spans() []SpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SpanRecord, len(s.spans))
	copy(out, s.spans)
	return out
}

// SpanByID returns the span at id, if any.
func (s *Store) SpanByID(id InternalId) (SpanRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(id) >= len(s.spans) {
		return SpanRecord{}, false
	}
	return s.spans[id], true
}

// Updated reports whether any Dispatch call has occurred since the last
// ClearUpdated — the UI poll's signal to rebuild its filtered view.
func (s *Store) Updated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated
}

// ClearUpdated resets the updated flag. The UI calls this after rebuilding
// its view for the current state.
func (s *Store) ClearUpdated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = false
}

// Clear empties the store. Per spec.md, store entries otherwise persist
// until console exit; this is an explicit operator action (e.g. a "clear"
// command), not part of the ingest path.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.spans = nil
	s.idMap = make(map[wire.SpanId]InternalId)
	s.updated = true
}
