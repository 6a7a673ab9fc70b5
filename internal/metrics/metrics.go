// Package metrics exports torch state to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/flashlight/internal/led"
)

// Metrics holds the torch collectors on a private registry.
type Metrics struct {
	registry   *prometheus.Registry
	sets       *prometheus.CounterVec
	brightness *prometheus.GaugeVec
	lineLevel  *prometheus.GaugeVec
	registered *prometheus.GaugeVec
}

// New creates the collectors, including the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flashlight",
			Name:      "brightness_sets_total",
			Help:      "Brightness changes applied, by tier.",
		}, []string{"led", "tier"}),
		brightness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "flashlight",
			Name:      "brightness",
			Help:      "Last brightness applied (0-255).",
		}, []string{"led"}),
		lineLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "flashlight",
			Name:      "line_level",
			Help:      "Logical level driven on each control line.",
		}, []string{"led", "line"}),
		registered: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "flashlight",
			Name:      "registered",
			Help:      "1 while the LED is registered.",
		}, []string{"led"}),
	}
	m.registry.MustRegister(
		m.sets, m.brightness, m.lineLevel, m.registered,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe records a registry event. Pass it to led.Registry.Observe.
func (m *Metrics) Observe(e led.Event) {
	switch e.Kind {
	case led.EventRegistered:
		m.registered.WithLabelValues(e.Name).Set(1)
	case led.EventDeregistered:
		m.registered.WithLabelValues(e.Name).Set(0)
	case led.EventBrightness:
		m.sets.WithLabelValues(e.Name, string(e.State.Step.Tier)).Inc()
	}
	p := e.State.Step.Pattern
	m.brightness.WithLabelValues(e.Name).Set(float64(e.State.Brightness))
	m.lineLevel.WithLabelValues(e.Name, "low").Set(float64(p.Low))
	m.lineLevel.WithLabelValues(e.Name, "high").Set(float64(p.High))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
