package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for booking saga flows.
type BookingMetrics struct {
	operationsTotal  *prometheus.CounterVec
	guardRejections  prometheus.Counter
	calendarFailures *prometheus.CounterVec
	partialFailures  prometheus.Counter
	sagaDuration     *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atu",
			Subsystem: "booking",
			Name:      "operations_total",
			Help:      "Booking saga operations by kind and outcome",
		}, []string{"operation", "outcome"}),
		guardRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "atu",
			Subsystem: "booking",
			Name:      "guard_rejections_total",
			Help:      "Bookings rejected by the duplicate-slot guard",
		}),
		calendarFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atu",
			Subsystem: "booking",
			Name:      "calendar_failures_total",
			Help:      "Failed Google Calendar calls by call type",
		}, []string{"call"}),
		partialFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "atu",
			Subsystem: "booking",
			Name:      "partial_failures_total",
			Help:      "Sagas that left a calendar event without full local state",
		}),
		sagaDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "atu",
			Subsystem: "booking",
			Name:      "saga_duration_seconds",
			Help:      "Wall time of booking saga operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.guardRejections, m.calendarFailures, m.partialFailures, m.sagaDuration)
	return m
}

func (m *BookingMetrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *BookingMetrics) ObserveGuardRejection() {
	if m == nil {
		return
	}
	m.guardRejections.Inc()
}

func (m *BookingMetrics) ObserveCalendarFailure(call string) {
	if m == nil {
		return
	}
	m.calendarFailures.WithLabelValues(call).Inc()
}

func (m *BookingMetrics) ObservePartialFailure() {
	if m == nil {
		return
	}
	m.partialFailures.Inc()
}

func (m *BookingMetrics) ObserveSagaDuration(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.sagaDuration.WithLabelValues(operation).Observe(seconds)
}
