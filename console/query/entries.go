package query

import (
	"github.com/tracedeck/tracedeck/console"
	"github.com/tracedeck/tracedeck/wire"
)

// EntryRef identifies one event in a console.Store's log, by its index in
// the slice returned from Store.Events.
type EntryRef struct {
	Index int
}

// Group is one bucket of a grouped view: a key and the entries that share
// it, in original arrival order.
type Group struct {
	Key     wire.Value
	Entries []EntryRef
}

// EntriesView is the result of evaluating a Filter against a Store: either
// a flat, filtered list (no group-by) or a single level of grouping.
// Nested grouping is not supported, per spec.md §4.4.3.
type EntriesView struct {
	Flat    []EntryRef
	Grouped []Group // nil unless the filter carries a GroupBy
}

// Evaluate filters store's event log through filter (nil means "accept
// everything, no grouping") and returns the resulting view.
func Evaluate(store *console.Store, filter *Filter) EntriesView {
	events := store.Events()

	matched := make([]EntryRef, 0, len(events))
	for i, e := range events {
		if filter == nil || filter.Accepts(e) {
			matched = append(matched, EntryRef{Index: i})
		}
	}

	if filter == nil || filter.GroupBy == nil {
		return EntriesView{Flat: matched}
	}

	return EntriesView{Grouped: groupEntries(events, matched, *filter.GroupBy, store)}
}
