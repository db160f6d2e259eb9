package query

import (
	"testing"

	"github.com/tracedeck/tracedeck/console"
	"github.com/tracedeck/tracedeck/wire"
)

func spanID(id wire.SpanId) *wire.SpanId { return &id }

// buildParentByNameFixture builds two "handler" spans, each with one child
// span carrying an event, and a route field recorded on the handler.
func buildParentByNameFixture(t *testing.T) *console.Store {
	t.Helper()
	s := console.NewStore()

	// handler span 1 (subscriber id 1), route "/a"
	s.Dispatch(wire.NewSpanVariant(wire.NewSpan{
		Span:       1,
		Attributes: wire.Attributes{Metadata: wire.Metadata{Name: "handler"}},
		Values:     []wire.Value{wire.StringValue("route", "/a")},
	}))
	// child span of handler 1 (subscriber id 2)
	s.Dispatch(wire.NewSpanVariant(wire.NewSpan{
		Span:       2,
		Attributes: wire.Attributes{Metadata: wire.Metadata{Name: "work"}, Parent: spanID(1)},
	}))
	s.Dispatch(wire.EventVariant(wire.Event{Attributes: wire.Attributes{Parent: spanID(2)}}))

	// handler span 2 (subscriber id 3), route "/b"
	s.Dispatch(wire.NewSpanVariant(wire.NewSpan{
		Span:       3,
		Attributes: wire.Attributes{Metadata: wire.Metadata{Name: "handler"}},
		Values:     []wire.Value{wire.StringValue("route", "/b")},
	}))
	// child span of handler 2 (subscriber id 4)
	s.Dispatch(wire.NewSpanVariant(wire.NewSpan{
		Span:       4,
		Attributes: wire.Attributes{Metadata: wire.Metadata{Name: "work"}, Parent: spanID(3)},
	}))
	s.Dispatch(wire.EventVariant(wire.Event{Attributes: wire.Attributes{Parent: spanID(4)}}))

	// an event with no owning span — must be dropped from the grouped view.
	s.Dispatch(wire.EventVariant(wire.Event{}))

	return s
}

// TestGroupBy_ScenarioParentByName exercises spec.md §8 scenario 5: group
// by the owning "handler" ancestor's route field, expecting two groups in
// key-sorted order, and the span-less event dropped.
func TestGroupBy_ScenarioParentByName(t *testing.T) {
	s := buildParentByNameFixture(t)

	gb := GroupBy{Kind: GroupBySpanKind, Span: SpanSelector{
		ParentByName: &ParentByName{Name: "handler", Criterion: DirectCriterion{Kind: CriterionField, Field: "route"}},
	}}
	f := NewFilter()
	f.GroupBy = &gb

	view := Evaluate(s, f)
	if view.Flat != nil {
		t.Fatal("expected a grouped view, not a flat one")
	}
	if len(view.Grouped) != 2 {
		t.Fatalf("len(Grouped) = %d, want 2", len(view.Grouped))
	}
	if view.Grouped[0].Key.String() != "/a" || view.Grouped[1].Key.String() != "/b" {
		t.Fatalf("group keys = %q, %q, want /a, /b in order", view.Grouped[0].Key, view.Grouped[1].Key)
	}
	if len(view.Grouped[0].Entries) != 1 || len(view.Grouped[1].Entries) != 1 {
		t.Fatal("expected exactly one entry per group")
	}
}

func TestGroupBy_DropsNoneKeyedEntries(t *testing.T) {
	s := console.NewStore()
	s.Dispatch(wire.EventVariant(wire.Event{Values: []wire.Value{wire.StringValue("x", "1")}}))
	s.Dispatch(wire.EventVariant(wire.Event{})) // no x field: dropped

	gb := GroupBy{Kind: GroupByFieldKind, Field: "x"}
	f := NewFilter()
	f.GroupBy = &gb

	view := Evaluate(s, f)
	total := 0
	for _, g := range view.Grouped {
		total += len(g.Entries)
	}
	if total != 1 {
		t.Fatalf("total grouped entries = %d, want 1", total)
	}
}

func TestGroupBy_SpanId(t *testing.T) {
	s := console.NewStore()
	s.Dispatch(wire.NewSpanVariant(wire.NewSpan{Span: 1}))
	s.Dispatch(wire.EventVariant(wire.Event{Attributes: wire.Attributes{Parent: spanID(1)}}))

	gb := GroupBy{Kind: GroupBySpanKind, Span: SpanSelector{Direct: &DirectCriterion{Kind: CriterionId}}}
	key, ok := gb.Key(s.Events()[0], s)
	if !ok {
		t.Fatal("expected a key")
	}
	if key.String() != "0" {
		t.Fatalf("key = %q, want 0 (InternalId)", key)
	}
}
