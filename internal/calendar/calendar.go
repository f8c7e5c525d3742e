// Package calendar adapts the Google Calendar API to the narrow surface the
// booking engine needs: event writes per provider calendar and free/busy
// reads for availability.
package calendar

import (
	"context"
	"time"
)

// Event is the provider-calendar projection of a booking.
type Event struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	// AllDay marks lab-type services booked without an explicit time; they
	// land on the calendar as date events instead of timed events.
	AllDay bool
}

// BusyBlock is an opaque busy interval from free/busy. It may or may not have
// originated from this system.
type BusyBlock struct {
	Start time.Time
	End   time.Time
}

// Service is the calendar dependency consumed by the availability resolver
// and the booking saga. Implementations must treat every call as an
// independent network operation that can fail on its own.
type Service interface {
	// InsertEvent creates the event and returns the calendar-assigned event
	// id, which the engine adopts as the booking correlation id.
	InsertEvent(ctx context.Context, calendarID string, ev Event) (string, error)
	// PatchEvent updates an existing event in place, preserving its id.
	PatchEvent(ctx context.Context, calendarID, eventID string, ev Event) error
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	// FreeBusy returns busy intervals per calendar id for [timeMin, timeMax).
	FreeBusy(ctx context.Context, calendarIDs []string, timeMin, timeMax time.Time) (map[string][]BusyBlock, error)
}
