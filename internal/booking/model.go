// Package booking orchestrates create/reschedule/cancel sagas across the
// provider calendar, the local slot ledger and the financial ledger, with
// optional inventory depletion.
package booking

import "time"

// Patient identifies who the booking is for.
type Patient struct {
	Name  string
	ID    string // optional internal patient id
	Phone string
}

// CreateRequest carries everything needed to book a service.
type CreateRequest struct {
	ProviderID string
	Day        time.Time
	// Time is the HH:MM start slot. Lab-type services may leave it empty;
	// the calendar event becomes all-day and slots anchor at opening.
	Time            string
	DurationMinutes int // 0 means use the catalog duration
	Patient         Patient
	ServiceCode     string

	OriginalPriceCents int64
	DiscountLabel      string
	FinalPriceCents    int64

	CreatedBy string
}

// RescheduleRequest moves an existing booking, possibly to another provider.
type RescheduleRequest struct {
	CorrelationID  string
	OldProviderID  string
	OldServiceDate time.Time
	// New holds the full parameters of the regenerated booking; its
	// ProviderID decides the patch-vs-recreate calendar branch.
	New CreateRequest
}

// CancelRequest removes a booking entirely.
type CancelRequest struct {
	CorrelationID string
	ProviderID    string
	PatientID     string
	ServiceDate   time.Time
}

// Booking is the result of a successful (possibly partially successful)
// create or reschedule.
type Booking struct {
	CorrelationID string
	Folio         string
	ProviderID    string
	Day           time.Time
	SlotTimes     []string
	// Warnings lists non-fatal steps that failed after the calendar write;
	// the appointment exists but needs follow-up.
	Warnings []string
}
