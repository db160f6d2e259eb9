package subscriber

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tracedeck/tracedeck/wire"
)

// Layer is the tracing callback contract consumed by instrumented
// application code (spec.md §6): StartSpan, Event, Enter/Exit on the Layer,
// and Record, AddFollows, Clone and End on the returned Span handle. It
// ties a Registry and an Aggregator together.
//
// Go has no per-OS-thread storage comparable to the source's thread-locals,
// and goroutines carry no stable identity of their own, so the "current
// span" stack travels explicitly through context.Context instead — the
// idiomatic Go substitute described in SPEC_FULL.md §5. A WorkerId is
// minted the first time a context with no existing stack enters a span,
// standing in for spec.md's "thread identifier" assigned on first
// observation of a new OS thread. Event returns no derived context, so an
// Event on a context that carries no worker id mints a fresh one each call.
type Layer struct {
	registry   *Registry
	aggregator *Aggregator

	nextWorker atomic.Uint64 // first assigned value is 1, per spec.md §9
}

// NewLayer builds a Layer over the given registry and aggregator.
func NewLayer(registry *Registry, aggregator *Aggregator) *Layer {
	return &Layer{registry: registry, aggregator: aggregator}
}

// Enabled always returns true, per spec.md §6.
func (l *Layer) Enabled(wire.Metadata) bool { return true }

type spanStackKey struct{}

type spanStack struct {
	worker wire.WorkerId
	stack  []wire.SpanId // innermost last
}

func currentStack(ctx context.Context) spanStack {
	if st, ok := ctx.Value(spanStackKey{}).(spanStack); ok {
		return st
	}
	return spanStack{}
}

// ensureWorker returns a context guaranteed to carry a worker id, minting
// one on first use.
func (l *Layer) ensureWorker(ctx context.Context) (context.Context, spanStack) {
	st := currentStack(ctx)
	if st.worker != 0 {
		return ctx, st
	}
	st.worker = wire.WorkerId(l.nextWorker.Add(1))
	return context.WithValue(ctx, spanStackKey{}, st), st
}

// CurrentSpan returns the innermost span id tagged onto ctx, if any.
func CurrentSpan(ctx context.Context) (wire.SpanId, bool) {
	st := currentStack(ctx)
	if len(st.stack) == 0 {
		return 0, false
	}
	return st.stack[len(st.stack)-1], true
}

// Enter pushes id onto ctx's span stack, returning the derived context.
// Used when re-entering a span handle obtained elsewhere (e.g. handed to
// another goroutine via Span.Clone).
func (l *Layer) Enter(ctx context.Context, id wire.SpanId) context.Context {
	ctx, st := l.ensureWorker(ctx)
	next := make([]wire.SpanId, len(st.stack)+1)
	copy(next, st.stack)
	next[len(st.stack)] = id
	return context.WithValue(ctx, spanStackKey{}, spanStack{worker: st.worker, stack: next})
}

// Exit pops the innermost span off ctx's stack, returning the derived context.
func (l *Layer) Exit(ctx context.Context) context.Context {
	st := currentStack(ctx)
	if len(st.stack) == 0 {
		return ctx
	}
	next := st.stack[:len(st.stack)-1]
	return context.WithValue(ctx, spanStackKey{}, spanStack{worker: st.worker, stack: next})
}

func (l *Layer) now() int64 { return time.Now().UnixNano() }

// SpanOption configures a span at creation time.
type SpanOption func(*wire.Attributes)

// WithParent sets an explicit parent, overriding the ambient context span.
func WithParent(id wire.SpanId) SpanOption {
	return func(a *wire.Attributes) { a.Parent = &id }
}

// AsRoot forces the span to have no parent, even inside a contextual span.
func AsRoot() SpanOption {
	return func(a *wire.Attributes) { a.Root = true }
}

// WithTarget sets the span's target (module path / subsystem name).
func WithTarget(target string) SpanOption {
	return func(a *wire.Attributes) { a.Metadata.Target = target }
}

// WithLevel sets the span's level.
func WithLevel(level string) SpanOption {
	return func(a *wire.Attributes) { a.Metadata.Level = level }
}

// Span is a live handle to an Active registry slot. It is the Go-idiomatic
// RAII-style stand-in for a tracing span guard: call End when the unit of
// work completes, mirroring the refcounted Drop in spec.md §4.1.
type Span struct {
	id    wire.SpanId
	layer *Layer
}

// ID returns the span's subscriber-assigned SpanId.
func (s *Span) ID() wire.SpanId { return s.id }

// StartSpan creates a new span, publishes its NewSpan message, and returns
// a derived context with the span pushed as current (this is Enter, folded
// into span creation since nearly every caller enters immediately).
func (l *Layer) StartSpan(ctx context.Context, name string, values []wire.Value, opts ...SpanOption) (context.Context, *Span) {
	attrs := wire.Attributes{Metadata: wire.Metadata{Name: name}, Contextual: true}
	for _, opt := range opts {
		opt(&attrs)
	}

	ctx, st := l.ensureWorker(ctx)
	if !attrs.Root && attrs.Parent == nil && attrs.Contextual && len(st.stack) > 0 {
		p := st.stack[len(st.stack)-1]
		attrs.Parent = &p
	}

	id := l.registry.NewSpan()
	l.aggregator.Publish(wire.NewSpanVariant(wire.NewSpan{
		Timestamp:  l.now(),
		Worker:     st.worker,
		Span:       id,
		Attributes: attrs,
		Values:     values,
	}))

	return l.Enter(ctx, id), &Span{id: id, layer: l}
}

// Record publishes field values for the span. Per spec.md's design note
// (iii), this does not mutate the registry slot — only the console-side
// store retains field history.
func (s *Span) Record(values ...wire.Value) {
	s.layer.aggregator.Publish(wire.RecordVariant(wire.Record{
		Timestamp: s.layer.now(),
		Span:      s.id,
		Values:    values,
	}))
}

// AddFollows records a follows-from relation to another span, both in the
// registry (for process-local bookkeeping) and on the wire.
func (s *Span) AddFollows(other *Span) {
	s.layer.registry.RecordFollowsFrom(s.id, other.id)
	s.layer.aggregator.Publish(wire.FollowsVariant(wire.Follows{
		Timestamp: s.layer.now(),
		Span:      s.id,
		Follows:   other.id,
	}))
}

// Clone increments the span's refcount and returns a new handle to the same
// span, safe to hand to another goroutine.
func (s *Span) Clone() *Span {
	s.layer.registry.Clone(s.id)
	return &Span{id: s.id, layer: s.layer}
}

// End decrements the span's refcount, recycling its slot if this was the
// last live handle.
func (s *Span) End() {
	s.layer.registry.Drop(s.id)
}

// Event publishes a point-in-time occurrence, tagged with ctx's innermost
// span if any.
func (l *Layer) Event(ctx context.Context, name string, values ...wire.Value) {
	_, st := l.ensureWorker(ctx)
	attrs := wire.Attributes{Metadata: wire.Metadata{Name: name}, Contextual: true}
	if len(st.stack) > 0 {
		p := st.stack[len(st.stack)-1]
		attrs.Parent = &p
	}
	l.aggregator.Publish(wire.EventVariant(wire.Event{
		Timestamp:  l.now(),
		Worker:     st.worker,
		Attributes: attrs,
		Values:     values,
	}))
}
