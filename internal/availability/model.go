// Package availability computes the per-provider, per-day slot view the UI
// books against: working hours from schedule rules merged with local slot
// occupancy and external calendar busy blocks.
package availability

import "time"

// Status of one 30-minute slot.
type Status string

const (
	// StatusNonWorking means the provider's rules say they are off.
	StatusNonWorking Status = "non-working"
	// StatusFree means the slot is bookable.
	StatusFree Status = "free"
	// StatusBookedLocal means a slot record from this engine occupies it.
	StatusBookedLocal Status = "booked-local"
	// StatusBlockedExternal means the provider's calendar is busy with
	// something this engine does not own. The UI must not allow interaction.
	StatusBlockedExternal Status = "blocked-external"
)

// Slot is one grid entry of a provider's day sheet.
type Slot struct {
	Time   string `json:"time"`
	Status Status `json:"status"`
	// Occupant fields are set only for booked-local slots.
	PatientName      string `json:"patient_name,omitempty"`
	MessageSentToday bool   `json:"message_sent_today,omitempty"`
	Confirmed        bool   `json:"confirmed,omitempty"`
}

// DaySheet is the resolved availability view for one provider and day.
type DaySheet struct {
	ProviderID string    `json:"provider_id"`
	Day        time.Time `json:"day"`
	Slots      []Slot    `json:"slots"`
}
