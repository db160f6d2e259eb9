package query

import (
	"sort"

	"github.com/tracedeck/tracedeck/console"
	"github.com/tracedeck/tracedeck/wire"
)

// SpanCriterionKind selects what a DirectCriterion reads off a span.
type SpanCriterionKind int

const (
	CriterionField SpanCriterionKind = iota + 1
	CriterionId
)

// DirectCriterion names a value to read directly off a span: either a
// named field (its new_span attributes or any record, first match wins) or
// the span's own InternalId.
type DirectCriterion struct {
	Kind  SpanCriterionKind
	Field string // used when Kind == CriterionField
}

func (d DirectCriterion) resolve(span console.SpanRecord) (wire.Value, bool) {
	switch d.Kind {
	case CriterionId:
		return wire.Uint64Value("id", uint64(span.ID)), true
	case CriterionField:
		return span.FieldValue(d.Field)
	default:
		return wire.Value{}, false
	}
}

// ParentByName walks an entry's span's ancestor chain for the first span
// whose metadata name equals Name, then resolves Criterion against it.
type ParentByName struct {
	Name      string
	Criterion DirectCriterion
}

// SpanSelector is exactly one of Direct or ParentByName.
type SpanSelector struct {
	Direct       *DirectCriterion
	ParentByName *ParentByName
}

// GroupByKind tags which case of GroupBy is populated.
type GroupByKind int

const (
	GroupByFieldKind GroupByKind = iota + 1
	GroupBySpanKind
)

// GroupBy is the group-key selector for a query, per spec.md §4.4.3.
type GroupBy struct {
	Kind  GroupByKind
	Field string       // used when Kind == GroupByFieldKind
	Span  SpanSelector // used when Kind == GroupBySpanKind
}

// Key evaluates the group key for entry, returning ok=false when the entry
// has no key under this grouping (dropped from the grouped output, per
// spec.md §4.4.3 — a decided, not guessed, resolution: see DESIGN.md).
func (g GroupBy) Key(entry console.EventEntry, store *console.Store) (wire.Value, bool) {
	switch g.Kind {
	case GroupByFieldKind:
		return lookupEventField(entry, g.Field)
	case GroupBySpanKind:
		if entry.Span == nil {
			return wire.Value{}, false
		}
		span, ok := store.SpanByID(*entry.Span)
		if !ok {
			return wire.Value{}, false
		}
		return g.Span.resolve(span, store)
	default:
		return wire.Value{}, false
	}
}

func (s SpanSelector) resolve(span console.SpanRecord, store *console.Store) (wire.Value, bool) {
	if s.Direct != nil {
		return s.Direct.resolve(span)
	}
	if s.ParentByName != nil {
		return s.ParentByName.resolve(span, store)
	}
	return wire.Value{}, false
}

func (p ParentByName) resolve(span console.SpanRecord, store *console.Store) (wire.Value, bool) {
	cur := span
	for cur.ParentID != nil {
		parent, ok := store.SpanByID(*cur.ParentID)
		if !ok {
			return wire.Value{}, false
		}
		if parent.NewSpan.Attributes.Metadata.Name == p.Name {
			return p.Criterion.resolve(parent)
		}
		cur = parent
	}
	return wire.Value{}, false
}

// groupEntries buckets matched by gb's key, dropping entries whose key is
// None, and returns groups sorted by key's stringified form (stable, so
// entries within a group keep their original arrival order) — spec.md
// §4.4.3.
func groupEntries(events []console.EventEntry, matched []EntryRef, gb GroupBy, store *console.Store) []Group {
	type bucket struct {
		key     wire.Value
		entries []EntryRef
	}
	buckets := make(map[string]*bucket)
	var order []string

	for _, ref := range matched {
		key, ok := gb.Key(events[ref.Index], store)
		if !ok {
			continue
		}
		k := key.String()
		b, exists := buckets[k]
		if !exists {
			b = &bucket{key: key}
			buckets[k] = b
			order = append(order, k)
		}
		b.entries = append(b.entries, ref)
	}

	sort.Strings(order)
	groups := make([]Group, 0, len(order))
	for _, k := range order {
		b := buckets[k]
		groups = append(groups, Group{Key: b.key, Entries: b.entries})
	}
	return groups
}
