package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exposes telemetry as Prometheus counters and gauges. Every
// event kind gets a counter of occurrences; metric.value events also feed
// a gauge keyed by element+ref, since they carry a numeric sample rather
// than a bare occurrence.
type PromSink struct {
	events *prometheus.CounterVec
	values *prometheus.GaugeVec
}

// NewPromSink registers its collectors against reg and returns a ready sink.
func NewPromSink(reg prometheus.Registerer) *PromSink {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "corestream",
		Name:      "events_total",
		Help:      "Count of telemetry events emitted by element runtimes, by kind.",
	}, []string{"kind", "element"})
	values := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "corestream",
		Name:      "metric_value",
		Help:      "Last reported value for a metric.value telemetry event.",
	}, []string{"element", "ref"})
	reg.MustRegister(events, values)
	return &PromSink{events: events, values: values}
}

func (s *PromSink) Emit(e Event) {
	s.events.WithLabelValues(e.Kind, e.Element).Inc()
	if e.Kind != "metric.value" {
		return
	}
	v, ok := e.Fields["value"]
	if !ok {
		return
	}
	f, ok := toFloat(v)
	if !ok {
		return
	}
	s.values.WithLabelValues(e.Element, e.Ref).Set(f)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
