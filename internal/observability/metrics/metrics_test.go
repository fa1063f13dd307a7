package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestConversationMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConversationMetrics(reg)
	m.ObserveTurn("ok", 0.2)
	m.BookingConfirmed()
	m.BookingConflict()
	m.ReservationCancelled()
}

func TestConversationMetricsNilSafe(t *testing.T) {
	var m *ConversationMetrics
	m.ObserveTurn("ok", 0.1)
	m.BookingConfirmed()
	m.BookingConflict()
	m.ReservationCancelled()
}
