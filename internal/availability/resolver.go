package availability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/alemendez13/sistema-ATU-sub000/internal/calendar"
	"github.com/alemendez13/sistema-ATU-sub000/internal/catalog"
	"github.com/alemendez13/sistema-ATU-sub000/internal/schedule"
	"github.com/alemendez13/sistema-ATU-sub000/internal/slots"
	"github.com/alemendez13/sistema-ATU-sub000/pkg/logging"
)

var availabilityTracer = otel.Tracer("atu.internal.availability")

// providerSource supplies provider configuration.
type providerSource interface {
	GetProvider(ctx context.Context, id string) (*catalog.Provider, error)
	ListProviders(ctx context.Context) ([]catalog.Provider, error)
}

// slotSource supplies local slot occupancy.
type slotSource interface {
	ListForDay(ctx context.Context, providerID string, day time.Time) ([]slots.Record, error)
}

// messageSource answers same-day outbound-message lookups.
type messageSource interface {
	SentOn(ctx context.Context, patientName string, day time.Time) (bool, error)
}

// Resolver merges schedule rules, the slot ledger and calendar busy blocks
// into a day sheet.
type Resolver struct {
	providers  providerSource
	slots      slotSource
	messages   messageSource
	cal        calendar.Service
	defaultCal string
	loc        *time.Location
	logger     *logging.Logger
}

// NewResolver constructs a resolver. defaultCalendarID is used for providers
// without their own calendar identity; loc is the clinic timezone.
func NewResolver(providers providerSource, slotLedger slotSource, messages messageSource, cal calendar.Service, defaultCalendarID string, loc *time.Location, logger *logging.Logger) *Resolver {
	if providers == nil || slotLedger == nil {
		panic("availability: providers and slot ledger required")
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{
		providers:  providers,
		slots:      slotLedger,
		messages:   messages,
		cal:        cal,
		defaultCal: defaultCalendarID,
		loc:        loc,
		logger:     logger,
	}
}

// Resolve computes the day sheet for one provider and day. A calendar
// free/busy failure degrades to local-only statuses: availability derived
// from this engine's own bookings never depends on calendar uptime.
func (r *Resolver) Resolve(ctx context.Context, providerID string, day time.Time) (*DaySheet, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("atu.provider_id", providerID),
		attribute.String("atu.day", day.Format("2006-01-02")),
	)

	provider, err := r.providers.GetProvider(ctx, providerID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("availability: load provider: %w", err)
	}
	rules := schedule.ParseRule(provider.ScheduleRule)

	all, err := r.providers.ListProviders(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("availability: list providers: %w", err)
	}
	ruleStrings := make([]string, 0, len(all))
	for _, p := range all {
		ruleStrings = append(ruleStrings, p.ScheduleRule)
	}
	open, close := schedule.GlobalBounds(ruleStrings)
	grid := schedule.Grid(open, close)

	booked, err := r.slots.ListForDay(ctx, providerID, day)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("availability: list slots: %w", err)
	}
	bookedByTime := make(map[string]slots.Record, len(booked))
	for _, rec := range booked {
		bookedByTime[rec.SlotTime] = rec
	}

	busy := r.busyMarkers(ctx, provider, day)

	weekday := int(day.Weekday())
	sheet := &DaySheet{ProviderID: providerID, Day: day, Slots: make([]Slot, 0, len(grid))}
	for _, t := range grid {
		slot := Slot{Time: t}
		switch {
		case !schedule.WorksAt(rules, weekday, t):
			slot.Status = StatusNonWorking
		case hasRecord(bookedByTime, t):
			rec := bookedByTime[t]
			slot.Status = StatusBookedLocal
			slot.PatientName = rec.PatientName
			slot.Confirmed = rec.Confirmed
			slot.MessageSentToday = r.messagedToday(ctx, rec.PatientName)
		case inBusy(busy, t):
			slot.Status = StatusBlockedExternal
		default:
			slot.Status = StatusFree
		}
		sheet.Slots = append(sheet.Slots, slot)
	}
	return sheet, nil
}

// busyMarkers fetches and discretizes the provider's calendar busy blocks.
// Failures are logged and treated as "no external blocks".
func (r *Resolver) busyMarkers(ctx context.Context, provider *catalog.Provider, day time.Time) map[string]struct{} {
	if r.cal == nil {
		return nil
	}
	calID := provider.CalendarID
	if calID == "" {
		calID = r.defaultCal
	}
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, r.loc)
	blocks, err := r.cal.FreeBusy(ctx, []string{calID}, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		r.logger.Warn("freebusy read failed, serving local-only availability",
			"provider_id", provider.ID, "error", err)
		return nil
	}
	return calendar.DiscretizeBusy(blocks[calID], r.loc)
}

func (r *Resolver) messagedToday(ctx context.Context, patientName string) bool {
	if r.messages == nil || patientName == "" {
		return false
	}
	sent, err := r.messages.SentOn(ctx, patientName, time.Now().In(r.loc))
	if err != nil {
		r.logger.Warn("message log lookup failed", "patient", patientName, "error", err)
		return false
	}
	return sent
}

func hasRecord(m map[string]slots.Record, t string) bool {
	_, ok := m[t]
	return ok
}

func inBusy(busy map[string]struct{}, t string) bool {
	_, ok := busy[t]
	return ok
}
