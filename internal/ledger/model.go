// Package ledger persists the financial record of booked services: what each
// booking costs, what discount applied, and whether it has been paid.
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Payment statuses for a ledger entry.
const (
	StatusPending      = "pending"
	StatusPaid         = "paid"
	StatusPaidCourtesy = "paid_courtesy"
)

// Entry is one financial operation tied to a booked service.
type Entry struct {
	ID                 uuid.UUID
	PatientID          string
	PatientName        string
	ProviderID         string
	ServiceDate        time.Time
	Concept            string
	OriginalPriceCents int64
	DiscountLabel      string
	FinalPriceCents    int64
	Status             string
	Method             string // empty until paid
	PartialPaidCents   int64
	CreatedAt          time.Time
	PaidAt             *time.Time
}

// Regenerable reports whether the booking lifecycle may delete and recreate
// this entry. Entries with recorded partial payments are never regenerable;
// deleting them would orphan money already collected.
func (e *Entry) Regenerable() bool {
	if e.PartialPaidCents > 0 {
		return false
	}
	return e.Status == StatusPending || e.Status == StatusPaidCourtesy
}
