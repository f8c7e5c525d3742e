package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotUnavailable is returned when the duplicate guard or the slot
	// ledger's unique constraint rejects the target slots. The caller must
	// pick another time; the engine never substitutes one.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrExternalService is returned when a calendar call fails before any
	// local state was written. The whole operation aborted.
	ErrExternalService = errors.New("external calendar service failed")

	// ErrPartialPaymentConflict is returned when a reschedule targets a
	// booking whose ledger entry carries partial payments. The operation is
	// refused with every store untouched; payment state must be resolved
	// manually first.
	ErrPartialPaymentConflict = errors.New("ledger entry has partial payments")
)

// PartialFailureError reports a saga that created (or kept) a calendar event
// but failed to complete local state afterwards. The event is deliberately
// not rolled back: it is the source of truth that the appointment exists,
// and deleting it would notify the patient of a cancellation that did not
// happen. Local records are repairable; see the intent reconciler.
type PartialFailureError struct {
	EventID string
	Step    string
	Err     error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("booking partially failed at %s (calendar event %s kept): %v", e.Step, e.EventID, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}
