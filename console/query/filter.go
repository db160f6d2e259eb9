// Package query implements the console's command grammar, filter
// evaluation, group-by evaluation, and the flat/grouped entries view over a
// console.Store.
//
// Grounded on the teacher's explain/ package: a small hand-written
// parser/formatter pair over a constrained textual grammar, here
// generalized from "explain a single CLI invocation" to "filter and group a
// live event stream."
package query

import (
	"regexp"
	"strings"

	"github.com/tracedeck/tracedeck/console"
	"github.com/tracedeck/tracedeck/wire"
)

// Operator is one of the four comparison operators a filter clause can use.
type Operator int

const (
	OpEquals Operator = iota + 1
	OpContains
	OpStartsWith
	OpMatches
)

func (o Operator) String() string {
	switch o {
	case OpEquals:
		return "=="
	case OpContains:
		return "contains"
	case OpStartsWith:
		return "starts_with"
	case OpMatches:
		return "matches"
	default:
		return "?"
	}
}

// Modifier is one filter clause: a named event field, a comparison
// operator, and the literal string to compare against.
type Modifier struct {
	Field string
	Op    Operator
	Value string
}

// Apply resolves Field against entry's own values and evaluates Op against
// its stringified form. The second return value is false when the field is
// absent ("Option<bool>"'s None case in spec.md §4.4.2) — callers must not
// read the first return value when it is false.
func (m Modifier) Apply(entry console.EventEntry) (bool, bool) {
	v, ok := lookupEventField(entry, m.Field)
	if !ok {
		return false, false
	}
	s := v.String()
	switch m.Op {
	case OpEquals:
		return s == m.Value, true
	case OpContains:
		return strings.Contains(s, m.Value), true
	case OpStartsWith:
		return strings.HasPrefix(s, m.Value), true
	case OpMatches:
		re, err := regexp.Compile(m.Value)
		if err != nil {
			return false, true
		}
		return re.MatchString(s), true
	default:
		return false, true
	}
}

func lookupEventField(entry console.EventEntry, field string) (wire.Value, bool) {
	for _, v := range entry.Event.Values {
		if v.Field == field {
			return v, true
		}
	}
	return wire.Value{}, false
}

// Filter is an ordered set of modifiers (keyed by field name) plus an
// optional group-by. A nil *GroupBy means "flat view."
type Filter struct {
	GroupBy   *GroupBy
	modifiers []Modifier
}

// NewFilter returns an empty filter: accepts everything, no grouping.
func NewFilter() *Filter {
	return &Filter{}
}

// AddModifier inserts m, replacing any existing modifier on the same field
// in place (most-recent-wins) so the first-occurrence insertion order of
// every other field is preserved — spec.md §4.4.2.
func (f *Filter) AddModifier(m Modifier) {
	for i, existing := range f.modifiers {
		if existing.Field == m.Field {
			f.modifiers[i] = m
			return
		}
	}
	f.modifiers = append(f.modifiers, m)
}

// Modifiers returns a copy of the filter's modifiers in insertion order.
func (f *Filter) Modifiers() []Modifier {
	out := make([]Modifier, len(f.modifiers))
	copy(out, f.modifiers)
	return out
}

// Accepts reports whether entry passes every modifier. A modifier that
// returns None (field absent) counts as false, per spec.md §4.4.2.
func (f *Filter) Accepts(entry console.EventEntry) bool {
	for _, m := range f.modifiers {
		ok, found := m.Apply(entry)
		if !found || !ok {
			return false
		}
	}
	return true
}
