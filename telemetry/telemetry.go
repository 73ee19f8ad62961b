// Package telemetry implements the enable_telemetry surface named in
// spec.md §6: a named-event stream with a stdlib-log sink and a
// Prometheus sink, mirroring how the source framework treats telemetry as
// an opt-in side channel rather than a required dependency of the core.
package telemetry

// Event is one telemetry occurrence. Kind is one of the names spec.md §6
// calls out (metric.value, link.new, pipeline.init, pipeline.terminate,
// bin.init, bin.terminate, element.init, element.terminate) or a
// component-defined extension; Fields carries event-specific payload.
type Event struct {
	Kind    string
	Element string
	Ref     string
	Fields  map[string]any
}

// Sink receives telemetry events. Implementations must not block the
// caller for long; the element runtime emits synchronously from its
// dispatch loop.
type Sink interface {
	Emit(Event)
}

// Multi fans one event out to several sinks, in order.
type Multi []Sink

func (m Multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Nop discards every event; the zero value of Nop is ready to use and is
// the default Sink for a runtime that never sets one explicitly.
type Nop struct{}

func (Nop) Emit(Event) {}
