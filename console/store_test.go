package console

import (
	"testing"

	"github.com/tracedeck/tracedeck/wire"
)

func ptr(id wire.SpanId) *wire.SpanId { return &id }

func TestStore_ParentResolution(t *testing.T) {
	s := NewStore()

	s.Dispatch(wire.NewSpanVariant(wire.NewSpan{Span: 7, Attributes: wire.Attributes{}}))
	s.Dispatch(wire.NewSpanVariant(wire.NewSpan{Span: 9, Attributes: wire.Attributes{Parent: ptr(7)}}))

	spans := s.Spans()
	if len(spans) != 2 {
		t.Fatalf("len(spans) = %d, want 2", len(spans))
	}
	if spans[0].ParentID != nil {
		t.Fatalf("spans[0].ParentID = %v, want nil", spans[0].ParentID)
	}
	if spans[1].ParentID == nil || *spans[1].ParentID != 0 {
		t.Fatalf("spans[1].ParentID = %v, want &InternalId(0)", spans[1].ParentID)
	}
}

func TestStore_IdRemapPreservesHistory(t *testing.T) {
	s := NewStore()

	s.Dispatch(wire.NewSpanVariant(wire.NewSpan{Span: 7}))
	s.Dispatch(wire.EventVariant(wire.Event{Attributes: wire.Attributes{Parent: ptr(7)}, Values: []wire.Value{wire.StringValue("msg", "a")}}))
	s.Dispatch(wire.NewSpanVariant(wire.NewSpan{Span: 7})) // subscriber reused id 7
	s.Dispatch(wire.EventVariant(wire.Event{Attributes: wire.Attributes{Parent: ptr(7)}, Values: []wire.Value{wire.StringValue("msg", "b")}}))

	events := s.Events()
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Span == nil || *events[0].Span != 0 {
		t.Fatalf("events[0].Span = %v, want &InternalId(0)", events[0].Span)
	}
	if events[1].Span == nil || *events[1].Span != 1 {
		t.Fatalf("events[1].Span = %v, want &InternalId(1)", events[1].Span)
	}

	spans := s.Spans()
	if len(spans) != 2 {
		t.Fatalf("len(spans) = %d, want 2 (old history preserved)", len(spans))
	}
}

func TestStore_RecordAppendsToResolvedSpan(t *testing.T) {
	s := NewStore()
	s.Dispatch(wire.NewSpanVariant(wire.NewSpan{Span: 1}))
	s.Dispatch(wire.RecordVariant(wire.Record{Span: 1, Values: []wire.Value{wire.Int64Value("n", 42)}}))

	spans := s.Spans()
	if len(spans[0].Records) != 1 {
		t.Fatalf("len(Records) = %d, want 1", len(spans[0].Records))
	}
	v, ok := spans[0].FieldValue("n")
	if !ok || v.String() != "42" {
		t.Fatalf("FieldValue(n) = %v, %v", v, ok)
	}
}

func TestStore_RecordOnUnknownSpanPanics(t *testing.T) {
	s := NewStore()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for Record on unknown span")
		}
	}()
	s.Dispatch(wire.RecordVariant(wire.Record{Span: 99}))
}

func TestStore_UpdatedFlag(t *testing.T) {
	s := NewStore()
	if s.Updated() {
		t.Fatal("fresh store should not be updated")
	}
	s.Dispatch(wire.NewSpanVariant(wire.NewSpan{Span: 1}))
	if !s.Updated() {
		t.Fatal("store should be updated after dispatch")
	}
	s.ClearUpdated()
	if s.Updated() {
		t.Fatal("updated flag should clear")
	}
}
