package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBookingMetricsRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveOperation("create", "ok")
	m.ObserveOperation("create", "ok")
	m.ObserveGuardRejection()
	m.ObserveCalendarFailure("insert")
	m.ObservePartialFailure()
	m.ObserveSagaDuration("create", 0.25)

	if got := testutil.ToFloat64(m.operationsTotal.WithLabelValues("create", "ok")); got != 2 {
		t.Errorf("operations_total: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.guardRejections); got != 1 {
		t.Errorf("guard_rejections_total: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.calendarFailures.WithLabelValues("insert")); got != 1 {
		t.Errorf("calendar_failures_total: got %v, want 1", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveOperation("create", "ok")
	m.ObserveGuardRejection()
	m.ObserveCalendarFailure("insert")
	m.ObservePartialFailure()
	m.ObserveSagaDuration("create", 0.1)
}
