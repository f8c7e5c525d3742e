// Package slots owns the local appointment-slot ledger. Each row is one
// 30-minute unit of a booking; multi-slot bookings share a correlation id.
package slots

import (
	"time"

	"github.com/google/uuid"
)

// ContinuationSuffix marks the second and later blocks of a multi-slot
// booking; only the first block carries the human-readable title.
const ContinuationSuffix = " (continuación)"

// Record is one 30-minute unit of a booking.
type Record struct {
	ID            uuid.UUID
	ProviderID    string
	Day           time.Time // date only, local clinic day
	SlotTime      string    // HH:MM, 30-minute aligned
	PatientName   string
	PatientID     string // optional internal patient id
	PatientPhone  string
	Title         string
	CorrelationID string // external calendar event id grouping the booking
	CreatedBy     string
	Confirmed     bool
	CreatedAt     time.Time
}
