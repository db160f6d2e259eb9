package subscriber

import (
	"testing"
	"time"

	"github.com/tracedeck/tracedeck/wire"
)

func TestAggregator_BroadcastsToAllSubscribers(t *testing.T) {
	a := NewAggregator(nil)
	defer a.Close()

	_, ch1 := a.Subscribe()
	_, ch2 := a.Subscribe()

	a.Publish(wire.EventVariant(wire.Event{Attributes: wire.Attributes{Metadata: wire.Metadata{Name: "e1"}}}))

	for _, ch := range []<-chan wire.Variant{ch1, ch2} {
		select {
		case v := <-ch:
			if v.Kind != wire.KindEvent {
				t.Fatalf("got kind %v, want Event", v.Kind)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for broadcast message")
		}
	}
}

func TestAggregator_LaggingSubscriberDropped(t *testing.T) {
	a := NewAggregator(nil)
	defer a.Close()

	_, slow := a.Subscribe() // never read from
	_, fast := a.Subscribe()

	// Drain fast concurrently so it never blocks the test.
	received := make(chan int, 64)
	done := make(chan struct{})
	go func() {
		count := 0
		for range fast {
			count++
		}
		received <- count
		close(done)
	}()

	const n = 64 // well over subscriberBufferSize(8), so slow necessarily laggards
	for i := 0; i < n; i++ {
		a.Publish(wire.EventVariant(wire.Event{Attributes: wire.Attributes{Metadata: wire.Metadata{Name: "e"}}}))
	}

	// slow's channel must eventually be closed by the aggregator (lag drop).
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-slow:
			if !ok {
				goto slowClosed
			}
		case <-deadline:
			t.Fatal("slow subscriber was never dropped")
		}
	}
slowClosed:

	a.Close()
	<-done
	got := <-received
	if got != n {
		t.Fatalf("fast subscriber received %d messages, want %d", got, n)
	}
}

func TestAggregator_UnsubscribeClosesChannel(t *testing.T) {
	a := NewAggregator(nil)
	defer a.Close()

	id, ch := a.Subscribe()
	a.Unsubscribe(id)

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed after Unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
