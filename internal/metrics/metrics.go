// Package metrics counts generation stream activity on Prometheus counters
// and exposes the scrape handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements the stream observer on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	streamsOpened  *prometheus.CounterVec
	eventsDecoded  *prometheus.CounterVec
	streamsSettled *prometheus.CounterVec
}

// New registers the stream counters on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		streamsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "generation_streams_opened_total",
			Help: "Generation streams that answered OK and began producing bytes.",
		}, []string{"path"}),
		eventsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "generation_events_decoded_total",
			Help: "Decoded stream events by type.",
		}, []string{"path", "type"}),
		streamsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "generation_streams_settled_total",
			Help: "Settled generation streams by outcome.",
		}, []string{"path", "outcome"}),
	}
	m.registry.MustRegister(m.streamsOpened, m.eventsDecoded, m.streamsSettled)
	return m
}

// StreamOpened implements stream.Observer.
func (m *Metrics) StreamOpened(path string) {
	m.streamsOpened.WithLabelValues(path).Inc()
}

// EventDecoded implements stream.Observer.
func (m *Metrics) EventDecoded(path, eventType string) {
	m.eventsDecoded.WithLabelValues(path, eventType).Inc()
}

// StreamSettled implements stream.Observer.
func (m *Metrics) StreamSettled(path, outcome string) {
	m.streamsSettled.WithLabelValues(path, outcome).Inc()
}

// Handler returns the scrape endpoint for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
