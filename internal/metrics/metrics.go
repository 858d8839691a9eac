// Package metrics exposes prometheus instrumentation for the reservation
// hot path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for the reservation engine.
type Metrics struct {
	registry *prometheus.Registry

	ReservationsTotal *prometheus.CounterVec
	QuantityConflicts prometheus.Counter
	ReserveDuration   prometheus.Histogram
	AvailabilityPolls prometheus.Counter
	SweptReservations prometheus.Counter
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ReservationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "giftwish_reservations_total",
			Help: "Reservations committed to the ledger, by resulting status.",
		}, []string{"status"}),
		QuantityConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "giftwish_quantity_conflicts_total",
			Help: "Reservation attempts rejected because the requested quantity exceeded availability.",
		}),
		ReserveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "giftwish_reserve_transaction_seconds",
			Help:    "Duration of reservation ledger transactions.",
			Buckets: prometheus.DefBuckets,
		}),
		AvailabilityPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "giftwish_availability_polls_total",
			Help: "Availability and quantity endpoint requests.",
		}),
		SweptReservations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "giftwish_swept_pending_reservations_total",
			Help: "Expired pending reservations removed by the sweeper.",
		}),
	}

	registry.MustRegister(
		m.ReservationsTotal,
		m.QuantityConflicts,
		m.ReserveDuration,
		m.AvailabilityPolls,
		m.SweptReservations,
	)

	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
