package subscriber

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tracedeck/tracedeck/wire"
)

// subscriberBufferSize is the per-subscriber bounded channel capacity.
// spec.md §4.2 calls out 8 as the source's chosen capacity.
const subscriberBufferSize = 8

// ingressQueue is an unbounded queue fed by many producers (application
// goroutines emitting tracing callbacks) and drained by a single consumer
// (the aggregator's broadcast loop). Its close-and-replace notify channel
// mirrors the teacher's EventLog.Publish/Subscribe pattern in
// server/eventlog.go, adapted here for single-consumer ingestion instead of
// multi-reader polling.
type ingressQueue struct {
	mu     sync.Mutex
	items  []wire.Variant
	notify chan struct{}
}

func newIngressQueue() *ingressQueue {
	return &ingressQueue{notify: make(chan struct{})}
}

// push enqueues v and wakes the consumer. Never blocks — this is the
// "producers never blocked by the broadcast task" guarantee from spec.md §4.2.
func (q *ingressQueue) push(v wire.Variant) {
	q.mu.Lock()
	q.items = append(q.items, v)
	ch := q.notify
	q.notify = make(chan struct{})
	q.mu.Unlock()
	close(ch)
}

// drain removes and returns all currently queued items.
func (q *ingressQueue) drain() []wire.Variant {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	items := q.items
	q.items = nil
	return items
}

// wait returns the current notify channel, closed the next time push is called.
func (q *ingressQueue) wait() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.notify
}

type subEntry struct {
	id uint64
	ch chan wire.Variant
}

// Aggregator is the single-producer-per-callsite / multi-consumer broadcast
// fan-out described in spec.md §4.2: one background goroutine owns the
// ingress queue and the slice of attached subscriber channels, adds and
// removes subscribers dynamically, and drops subscribers that fall behind
// without ever blocking producers.
type Aggregator struct {
	logger *slog.Logger

	ingress    *ingressQueue
	register   chan subEntry
	unregister chan uint64
	closeCh    chan struct{}
	closeOnce  sync.Once

	nextID atomic.Uint64

	// subs is owned exclusively by the run goroutine.
	subs []subEntry
}

// NewAggregator starts the background broadcast loop and returns a handle to it.
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		logger:     logger,
		ingress:    newIngressQueue(),
		register:   make(chan subEntry),
		unregister: make(chan uint64),
		closeCh:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Publish enqueues v for delivery to every currently (and soon-to-be)
// attached subscriber. Fire-and-forget: never blocks, never returns an error.
func (a *Aggregator) Publish(v wire.Variant) {
	a.ingress.push(v)
}

// Subscribe attaches a new bounded-capacity receiver and returns its id
// (for Unsubscribe) and the receive side of its channel. The channel is
// closed by the aggregator, never by the caller, when the subscriber is
// detected as lagging (spec.md §4.2) or explicitly removed.
func (a *Aggregator) Subscribe() (id uint64, ch <-chan wire.Variant) {
	id = a.nextID.Add(1)
	raw := make(chan wire.Variant, subscriberBufferSize)
	select {
	case a.register <- subEntry{id: id, ch: raw}:
	case <-a.closeCh:
		close(raw)
	}
	return id, raw
}

// Unsubscribe detaches a subscriber explicitly (transport reset on the
// server side). It is a no-op if the id was already dropped for lagging.
func (a *Aggregator) Unsubscribe(id uint64) {
	select {
	case a.unregister <- id:
	case <-a.closeCh:
	}
}

// Close stops the broadcast loop. Any still-attached subscriber channels are
// closed. Close is idempotent.
func (a *Aggregator) Close() {
	a.closeOnce.Do(func() { close(a.closeCh) })
}

// run is the aggregator's single background goroutine. It never re-orders
// messages relative to ingress arrival order, and a panic here is allowed
// to crash the process — per spec.md §4.2, this task's failure is fatal and
// is not recovered.
func (a *Aggregator) run() {
	defer a.closeAllSubs()

	for {
		notify := a.ingress.wait()

		select {
		case e := <-a.register:
			a.subs = append(a.subs, e)
			continue
		case id := <-a.unregister:
			a.removeByID(id)
			continue
		case <-notify:
		case <-a.closeCh:
			return
		}

		batch := a.ingress.drain()
		for _, v := range batch {
			a.drainRegistrations()
			a.broadcast(v)
		}
	}
}

// drainRegistrations appends any queued new subscribers before each
// broadcast, per spec.md §4.2: "the task first drains the registration
// queue ... then forwards."
func (a *Aggregator) drainRegistrations() {
	for {
		select {
		case e := <-a.register:
			a.subs = append(a.subs, e)
		default:
			return
		}
	}
}

// broadcast attempts a single non-blocking send to every subscriber.
// Subscribers whose send fails (buffer full) are considered lagged and
// pruned after the pass, using reverse-index deletion so earlier indices
// stay valid while later ones are removed.
func (a *Aggregator) broadcast(v wire.Variant) {
	var dead []int
	for i, e := range a.subs {
		select {
		case e.ch <- v:
		default:
			dead = append(dead, i)
		}
	}
	for i := len(dead) - 1; i >= 0; i-- {
		idx := dead[i]
		a.logger.Warn("subscriber lagged, dropping", "sub_id", a.subs[idx].id)
		close(a.subs[idx].ch)
		a.subs = append(a.subs[:idx], a.subs[idx+1:]...)
	}
}

func (a *Aggregator) removeByID(id uint64) {
	for i, e := range a.subs {
		if e.id == id {
			close(e.ch)
			a.subs = append(a.subs[:i], a.subs[i+1:]...)
			return
		}
	}
}

func (a *Aggregator) closeAllSubs() {
	for _, e := range a.subs {
		close(e.ch)
	}
	a.subs = nil
}
