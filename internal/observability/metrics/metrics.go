// Package metrics exposes Prometheus instrumentation for the booking
// assistant.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics counts dialog turns and booking outcomes.
type ConversationMetrics struct {
	turnsTotal         *prometheus.CounterVec
	bookingsTotal      prometheus.Counter
	conflictsTotal     prometheus.Counter
	cancellationsTotal prometheus.Counter
	turnLatency        prometheus.Histogram
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orassistant",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total processed dialog turns",
		}, []string{"outcome"}),
		bookingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orassistant",
			Subsystem: "conversation",
			Name:      "bookings_total",
			Help:      "Total confirmed reservations",
		}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orassistant",
			Subsystem: "conversation",
			Name:      "booking_conflicts_total",
			Help:      "Total reservation attempts rejected as conflicts",
		}),
		cancellationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orassistant",
			Subsystem: "conversation",
			Name:      "cancellations_total",
			Help:      "Total cancelled reservations",
		}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "orassistant",
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "Latency of dialog turn processing",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.bookingsTotal, m.conflictsTotal, m.cancellationsTotal, m.turnLatency)
	return m
}

func (m *ConversationMetrics) ObserveTurn(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
	m.turnLatency.Observe(seconds)
}

func (m *ConversationMetrics) BookingConfirmed() {
	if m == nil {
		return
	}
	m.bookingsTotal.Inc()
}

func (m *ConversationMetrics) BookingConflict() {
	if m == nil {
		return
	}
	m.conflictsTotal.Inc()
}

func (m *ConversationMetrics) ReservationCancelled() {
	if m == nil {
		return
	}
	m.cancellationsTotal.Inc()
}
