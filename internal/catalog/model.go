// Package catalog holds provider and service configuration: schedule rules,
// calendar identities, durations, prices and stock requirements. Rows
// originate in a staff-edited spreadsheet and are normalized at this
// boundary.
package catalog

// Service kinds.
const (
	KindConsult   = "consult"
	KindLab       = "lab"
	KindProcedure = "procedure"
)

// Provider is a bookable clinician.
type Provider struct {
	ID          string
	DisplayName string
	Specialty   string
	Color       string
	// ScheduleRule is the weekly rule string, e.g. "1,3,5|09:00-13:00".
	ScheduleRule string
	// CalendarID is the provider's Google calendar identity. Empty means
	// the clinic-wide default calendar.
	CalendarID string
}

// Service is a bookable catalog item.
type Service struct {
	Code            string
	Name            string
	DurationMinutes int
	PriceCents      int64
	Kind            string
	TracksStock     bool
	SKU             string
}
