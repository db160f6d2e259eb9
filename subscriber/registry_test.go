package subscriber

import (
	"testing"

	"github.com/tracedeck/tracedeck/wire"
)

func TestRegistry_RefcountRecycle(t *testing.T) {
	r := NewRegistry()

	id1 := r.NewSpan()
	if id1 != 1 {
		t.Fatalf("first NewSpan: got %d, want 1", id1)
	}
	id2 := r.NewSpan()
	if id2 != 2 {
		t.Fatalf("second NewSpan: got %d, want 2", id2)
	}

	r.Drop(id1)

	id3 := r.NewSpan()
	if id3 != 1 {
		t.Fatalf("NewSpan after drop(1): got %d, want 1 (LIFO free-list)", id3)
	}

	r.Drop(id2)
	r.Drop(id3)

	id4 := r.NewSpan()
	if id4 != 1 {
		t.Fatalf("NewSpan after draining both: got %d, want 1", id4)
	}
}

func TestRegistry_IdReuseContract(t *testing.T) {
	r := NewRegistry()

	id := r.NewSpan()
	r.Drop(id)
	id2 := r.NewSpan()

	if id2 != id {
		t.Fatalf("id2 = %d, want %d (free-list head reused)", id2, id)
	}
}

func TestRegistry_CloneIncrementsRefcount(t *testing.T) {
	r := NewRegistry()
	id := r.NewSpan()

	r.Clone(id)
	if got := r.Refcount(id); got != 2 {
		t.Fatalf("refcount after clone: got %d, want 2", got)
	}

	r.Drop(id)
	if !r.IsActive(id) {
		t.Fatalf("span should still be active after one of two drops")
	}
	if got := r.Refcount(id); got != 1 {
		t.Fatalf("refcount after first drop: got %d, want 1", got)
	}

	r.Drop(id)
	if r.IsActive(id) {
		t.Fatalf("span should be free after refcount reaches zero")
	}
}

func TestRegistry_DropClearsFollows(t *testing.T) {
	r := NewRegistry()
	id := r.NewSpan()
	other := r.NewSpan()

	r.RecordFollowsFrom(id, other)
	if got := r.Follows(id); len(got) != 1 || got[0] != other {
		t.Fatalf("follows before drop: got %v", got)
	}

	r.Drop(id)
	// Slot is now free; recycling it must start with an empty follows list.
	reused := r.NewSpan()
	if reused != id {
		t.Fatalf("expected slot %d to be reused, got %d", id, reused)
	}
	if got := r.Follows(reused); len(got) != 0 {
		t.Fatalf("follows after reuse: got %v, want empty", got)
	}
}

func TestRegistry_CloneOnFreeSlotPanics(t *testing.T) {
	r := NewRegistry()
	id := r.NewSpan()
	r.Drop(id)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic cloning a free slot")
		}
	}()
	r.Clone(id)
}

// TestRegistry_RoundTripInvariant exercises spec.md §8's property: for a
// sequence of new_span/clone/drop that brings every span's refcount back to
// zero, next_free's chain length equals the total spans ever created. It
// checks the slot count and the free-list chain length; the refcounts of
// Active slots are not inspected.
func TestRegistry_RoundTripInvariant(t *testing.T) {
	r := NewRegistry()

	var ids []wire.SpanId
	for i := 0; i < 5; i++ {
		id := r.NewSpan()
		ids = append(ids, id)
		r.Clone(id) // refcount 2
	}
	for _, id := range ids {
		r.Drop(id) // refcount 1
		r.Drop(id) // refcount 0 -> free
	}

	if r.Len() != 5 {
		t.Fatalf("Len: got %d, want 5", r.Len())
	}

	count := 0
	for next := r.NextFree(); next != 0; {
		count++
		id := r.NewSpan() // pops the free-list to walk it
		if id != next {
			t.Fatalf("free-list walk: expected %d, got %d", next, id)
		}
		next = r.NextFree()
	}
	if count != 5 {
		t.Fatalf("free-list chain length: got %d, want 5", count)
	}
}
