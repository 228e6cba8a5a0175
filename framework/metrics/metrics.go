// Package metrics exposes the application lifecycle as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/km-arc/go-uframework/framework/events"
	"github.com/km-arc/go-uframework/framework/foundation"
)

// NewRegistry creates a new registry.
// If collectProcessMetrics = true, then the Go and process collectors are registered.
func NewRegistry(collectProcessMetrics bool) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	if collectProcessMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return registry
}

// Lifecycle tracks lifecycle events raised by an Application.
type Lifecycle struct {
	events    *prometheus.CounterVec
	phase     prometheus.Gauge
	providers prometheus.Gauge
}

// NewLifecycle creates the lifecycle metrics under namespace.
func NewLifecycle(namespace string) *Lifecycle {
	return &Lifecycle{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "events_total",
			Help:      "Lifecycle events raised, by event name.",
		}, []string{"event"}),
		phase: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "phase",
			Help:      "Current StartProcess of the application (0=Construct ... 10=Terminated).",
		}),
		providers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "providers",
			Help:      "Number of registered service providers.",
		}),
	}
}

// Register adds the lifecycle collectors to r.
func (m *Lifecycle) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.events, m.phase, m.providers} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe listens to every lifecycle event raised on d.
func (m *Lifecycle) Subscribe(d events.Dispatcher) {
	d.Listen("app.*", m.Observe)
}

// Observe records one lifecycle event. Payloads that are not lifecycle
// events are ignored.
func (m *Lifecycle) Observe(_ any, payload any) {
	ev, ok := payload.(foundation.Event)
	if !ok {
		return
	}
	name, ok := ev.Kind().Name()
	if !ok {
		return
	}
	m.events.WithLabelValues(name).Inc()
	if app := ev.Application(); app != nil {
		m.phase.Set(float64(app.Process()))
		m.providers.Set(float64(len(app.Providers())))
	}
}

// Events returns the per-event counter.
func (m *Lifecycle) Events() *prometheus.CounterVec { return m.events }

// Phase returns the current phase gauge.
func (m *Lifecycle) Phase() prometheus.Gauge { return m.phase }

// Providers returns the registered providers gauge.
func (m *Lifecycle) Providers() prometheus.Gauge { return m.providers }
