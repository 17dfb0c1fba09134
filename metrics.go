package ctsim

// file metrics.go holds the prometheus collectors the reader and the simulator update

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors of one simulator on a private registry,
// so several simulators (and tests) can live in one process
type Metrics struct {
	Registry *prometheus.Registry

	EntitiesParsed *prometheus.CounterVec
	LinksRealized  prometheus.Counter
	LinksDropped   *prometheus.CounterVec
	NodesPowered   *prometheus.CounterVec
	AppsStarted    *prometheus.CounterVec
	AppEvents      prometheus.Counter
	PhaseSeconds   *prometheus.GaugeVec
}

// NewMetrics is a constructor; every collector is registered on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		EntitiesParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctsim",
			Name:      "entities_parsed_total",
			Help:      "Declared entities parsed, by layer and validity",
		}, []string{"layer", "status"}),
		LinksRealized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ctsim",
			Name:      "links_realized_total",
			Help:      "Point-to-point links created",
		}),
		LinksDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctsim",
			Name:      "links_dropped_total",
			Help:      "Declared links not realized, by reason",
		}, []string{"reason"}),
		NodesPowered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctsim",
			Name:      "nodes_powered_total",
			Help:      "Nodes powered on during boot, by role",
		}, []string{"role"}),
		AppsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctsim",
			Name:      "apps_started_total",
			Help:      "Application start events handled, by role",
		}, []string{"role"}),
		AppEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ctsim",
			Name:      "app_events_total",
			Help:      "Application events handled by the event engine",
		}),
		PhaseSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ctsim",
			Name:      "phase_wall_seconds",
			Help:      "Wall-clock time spent in each simulator phase",
		}, []string{"phase"}),
	}

	m.Registry.MustRegister(m.EntitiesParsed, m.LinksRealized, m.LinksDropped,
		m.NodesPowered, m.AppsStarted, m.AppEvents, m.PhaseSeconds)
	return m
}

func (m *Metrics) entityParsed(layer Layer, status string) {
	m.EntitiesParsed.WithLabelValues(layer.String(), status).Inc()
}

func (m *Metrics) linkRealized() {
	m.LinksRealized.Inc()
}

func (m *Metrics) linkDropped(reason string) {
	m.LinksDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) nodePowered(role Role) {
	m.NodesPowered.WithLabelValues(role.String()).Inc()
}

func (m *Metrics) appStarted(role Role) {
	m.AppsStarted.WithLabelValues(role.String()).Inc()
}

func (m *Metrics) appEvent() {
	m.AppEvents.Inc()
}

func (m *Metrics) phaseDone(phase Phase, seconds float64) {
	m.PhaseSeconds.WithLabelValues(phase.String()).Set(seconds)
}

// WriteToTextfile writes the current values in the prometheus text format
func (m *Metrics) WriteToTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, m.Registry)
}
