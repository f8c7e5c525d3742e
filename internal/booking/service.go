package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/alemendez13/sistema-ATU-sub000/internal/calendar"
	"github.com/alemendez13/sistema-ATU-sub000/internal/catalog"
	"github.com/alemendez13/sistema-ATU-sub000/internal/inventory"
	"github.com/alemendez13/sistema-ATU-sub000/internal/ledger"
	"github.com/alemendez13/sistema-ATU-sub000/internal/observability/metrics"
	"github.com/alemendez13/sistema-ATU-sub000/internal/schedule"
	"github.com/alemendez13/sistema-ATU-sub000/internal/slots"
	"github.com/alemendez13/sistema-ATU-sub000/pkg/logging"
)

var bookingTracer = otel.Tracer("atu.internal.booking")

// slotLedger is the saga's view of the slot store.
type slotLedger interface {
	CreateBatch(ctx context.Context, records []slots.Record) error
	DeleteByCorrelation(ctx context.Context, correlationID string) (int64, error)
	CountOccupied(ctx context.Context, providerID string, day time.Time, slotTimes []string, excludeCorrelation string) (int, error)
}

// ledgerStore is the saga's view of the financial ledger.
type ledgerStore interface {
	Insert(ctx context.Context, e *ledger.Entry) error
	FindForBooking(ctx context.Context, patientID, providerID string, serviceDate time.Time) (*ledger.Entry, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeletePendingForBooking(ctx context.Context, patientID, providerID string, serviceDate time.Time) (int64, error)
}

// stockDepleter consumes stock for stock-tracked services.
type stockDepleter interface {
	Deplete(ctx context.Context, sku string, quantity int, traceTag string) ([]inventory.MovementLine, error)
}

// folioSource issues human-readable booking identifiers.
type folioSource interface {
	NextFolio(ctx context.Context, prefix string) (string, error)
}

// catalogSource supplies provider and service configuration.
type catalogSource interface {
	GetProvider(ctx context.Context, id string) (*catalog.Provider, error)
	GetService(ctx context.Context, code string) (*catalog.Service, error)
}

// intentLog records saga intents for the reconciler.
type intentLog interface {
	Insert(ctx context.Context, providerID, calendarID string, day time.Time, slotTime string, detail any) (uuid.UUID, error)
	SetCorrelation(ctx context.Context, id uuid.UUID, correlationID string) error
	MarkCommitted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

// Service executes booking sagas. Step ordering is load-bearing: the
// external calendar write gates everything (its failure aborts with no
// local writes), then slots, then the ledger, then inventory. Failures
// after the calendar write surface as warnings or PartialFailureError and
// never delete the event.
type Service struct {
	slots   slotLedger
	ledger  ledgerStore
	stock   stockDepleter
	folio   folioSource
	catalog catalogSource
	cal     calendar.Service
	intents intentLog
	guard   *Guard
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
	loc     *time.Location
	defCal  string
	prefix  string
	now     func() time.Time
}

// Config wires a Service.
type Config struct {
	Slots       slotLedger
	Ledger      ledgerStore
	Stock       stockDepleter
	Folio       folioSource
	Catalog     catalogSource
	Calendar    calendar.Service
	Intents     intentLog
	Guard       *Guard
	Metrics     *metrics.BookingMetrics
	Logger      *logging.Logger
	Location    *time.Location
	DefaultCal  string
	FolioPrefix string
}

func NewService(cfg Config) *Service {
	if cfg.Slots == nil || cfg.Ledger == nil || cfg.Catalog == nil || cfg.Calendar == nil {
		panic("booking: slots, ledger, catalog and calendar required")
	}
	if cfg.Guard == nil {
		panic("booking: guard required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.FolioPrefix == "" {
		cfg.FolioPrefix = "ATU"
	}
	return &Service{
		slots:   cfg.Slots,
		ledger:  cfg.Ledger,
		stock:   cfg.Stock,
		folio:   cfg.Folio,
		catalog: cfg.Catalog,
		cal:     cfg.Calendar,
		intents: cfg.Intents,
		guard:   cfg.Guard,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		loc:     cfg.Location,
		defCal:  cfg.DefaultCal,
		prefix:  cfg.FolioPrefix,
		now:     time.Now,
	}
}

// CreateBooking books a service: guard, intent, calendar event, slot batch,
// ledger entry, optional stock depletion.
func (s *Service) CreateBooking(ctx context.Context, req CreateRequest) (*Booking, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("atu.provider_id", req.ProviderID),
		attribute.String("atu.service_code", req.ServiceCode),
	)
	started := s.now()
	defer func() { s.metrics.ObserveSagaDuration("create", s.now().Sub(started).Seconds()) }()

	provider, svc, err := s.lookup(ctx, req.ProviderID, req.ServiceCode)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = svc.DurationMinutes
	}
	blockCount := (duration + schedule.SlotMinutes - 1) / schedule.SlotMinutes
	if blockCount < 1 {
		blockCount = 1
	}

	// Lab orders may arrive with no explicit time; they block the opening
	// slot locally and land on the calendar as an all-day event.
	allDay := svc.Kind == catalog.KindLab && req.Time == ""
	startTime := req.Time
	if startTime == "" {
		startTime = schedule.DefaultOpen
	}

	ok, err := s.guard.SlotsAvailable(ctx, provider, req.Day, startTime, blockCount, "")
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking: guard check: %w", err)
	}
	if !ok {
		s.metrics.ObserveGuardRejection()
		s.metrics.ObserveOperation("create", "rejected")
		return nil, fmt.Errorf("booking: %s %s x%d: %w", req.Day.Format("2006-01-02"), startTime, blockCount, ErrSlotUnavailable)
	}

	calID := s.calendarID(provider)
	intentID := s.writeIntent(ctx, provider.ID, calID, req.Day, startTime, req)

	eventID, err := s.cal.InsertEvent(ctx, calID, s.buildEvent(svc, req.Patient, req.Day, startTime, duration, allDay))
	if err != nil {
		s.metrics.ObserveCalendarFailure("insert")
		s.metrics.ObserveOperation("create", "aborted")
		s.failIntent(ctx, intentID)
		span.RecordError(err)
		return nil, fmt.Errorf("booking: create aborted, no local state written: %w: %v", ErrExternalService, err)
	}
	s.correlateIntent(ctx, intentID, eventID)

	booking := &Booking{CorrelationID: eventID, ProviderID: provider.ID, Day: req.Day}

	if s.folio != nil {
		folio, err := s.folio.NextFolio(ctx, s.prefix)
		if err != nil {
			s.logger.Error("folio generation failed", "error", err)
			booking.Warnings = append(booking.Warnings, "folio assignment failed")
		} else {
			booking.Folio = folio
		}
	}

	records, times := s.buildSlotRecords(provider.ID, svc.Name, req, eventID, startTime, blockCount)
	booking.SlotTimes = times
	if err := s.slots.CreateBatch(ctx, records); err != nil {
		s.metrics.ObservePartialFailure()
		s.logger.Error("slot batch failed after calendar write, event kept",
			"event_id", eventID, "error", err)
		span.RecordError(err)
		if errors.Is(err, slots.ErrSlotTaken) {
			err = fmt.Errorf("%w: %v", ErrSlotUnavailable, err)
		}
		return booking, &PartialFailureError{EventID: eventID, Step: "slot ledger", Err: err}
	}

	if err := s.writeLedgerEntry(ctx, req, svc, provider.ID, startTime); err != nil {
		s.logger.Error("ledger entry failed after booking", "event_id", eventID, "error", err)
		booking.Warnings = append(booking.Warnings, "financial entry not recorded")
	}

	if svc.TracksStock && svc.SKU != "" && s.stock != nil {
		trace := fmt.Sprintf("%s / %s", booking.Folio, req.Patient.Name)
		if _, err := s.stock.Deplete(ctx, svc.SKU, 1, trace); err != nil {
			s.logger.Error("stock depletion failed after booking",
				"event_id", eventID, "sku", svc.SKU, "error", err)
			booking.Warnings = append(booking.Warnings, fmt.Sprintf("stock not depleted: %v", err))
		}
	}

	s.commitIntent(ctx, intentID)
	s.metrics.ObserveOperation("create", "ok")
	s.logger.Info("booking created",
		"provider_id", provider.ID,
		"day", req.Day.Format("2006-01-02"),
		"start", startTime,
		"blocks", blockCount,
		"correlation_id", eventID,
		"folio", booking.Folio,
	)
	return booking, nil
}

// RescheduleBooking moves a booking. The ledger is always rebuilt fresh;
// entries with partial payments refuse the whole move before anything is
// touched.
func (s *Service) RescheduleBooking(ctx context.Context, req RescheduleRequest) (*Booking, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("atu.correlation_id", req.CorrelationID))
	started := s.now()
	defer func() { s.metrics.ObserveSagaDuration("reschedule", s.now().Sub(started).Seconds()) }()

	oldProvider, err := s.catalog.GetProvider(ctx, req.OldProviderID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking: load old provider: %w", err)
	}
	newProvider, svc, err := s.lookup(ctx, req.New.ProviderID, req.New.ServiceCode)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// Partial-payment refusal comes before any mutation so every store is
	// left exactly as found.
	oldEntry, err := s.ledger.FindForBooking(ctx, req.New.Patient.ID, req.OldProviderID, req.OldServiceDate)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking: inspect ledger: %w", err)
	}
	if oldEntry != nil && oldEntry.PartialPaidCents > 0 {
		s.metrics.ObserveOperation("reschedule", "refused")
		return nil, fmt.Errorf("booking: entry %s holds %d cents collected: %w",
			oldEntry.ID, oldEntry.PartialPaidCents, ErrPartialPaymentConflict)
	}

	duration := req.New.DurationMinutes
	if duration <= 0 {
		duration = svc.DurationMinutes
	}
	blockCount := (duration + schedule.SlotMinutes - 1) / schedule.SlotMinutes
	if blockCount < 1 {
		blockCount = 1
	}
	allDay := svc.Kind == catalog.KindLab && req.New.Time == ""
	startTime := req.New.Time
	if startTime == "" {
		startTime = schedule.DefaultOpen
	}

	ok, err := s.guard.SlotsAvailable(ctx, newProvider, req.New.Day, startTime, blockCount, req.CorrelationID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking: guard check: %w", err)
	}
	if !ok {
		s.metrics.ObserveGuardRejection()
		s.metrics.ObserveOperation("reschedule", "rejected")
		return nil, fmt.Errorf("booking: target slots occupied: %w", ErrSlotUnavailable)
	}

	// Local ledger is rebuilt fresh on every reschedule.
	if _, err := s.slots.DeleteByCorrelation(ctx, req.CorrelationID); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking: clear old slots: %w", err)
	}
	if oldEntry != nil && oldEntry.Regenerable() {
		if err := s.ledger.Delete(ctx, oldEntry.ID); err != nil {
			s.logger.Error("old ledger entry delete failed", "entry_id", oldEntry.ID, "error", err)
		}
	}

	correlationID := req.CorrelationID
	intentID := s.writeIntent(ctx, newProvider.ID, s.calendarID(newProvider), req.New.Day, startTime, req)
	event := s.buildEvent(svc, req.New.Patient, req.New.Day, startTime, duration, allDay)
	if newProvider.ID == oldProvider.ID {
		// In-place patch keeps the event id, so reminders and other
		// external cross-references against it stay valid.
		if err := s.cal.PatchEvent(ctx, s.calendarID(oldProvider), correlationID, event); err != nil {
			s.metrics.ObserveCalendarFailure("patch")
			s.metrics.ObservePartialFailure()
			span.RecordError(err)
			s.failIntent(ctx, intentID)
			return nil, &PartialFailureError{EventID: correlationID, Step: "calendar patch", Err: err}
		}
	} else {
		// Calendars are scoped per provider identity; a cross-provider
		// move has to delete and recreate.
		if err := s.cal.DeleteEvent(ctx, s.calendarID(oldProvider), correlationID); err != nil {
			s.metrics.ObserveCalendarFailure("delete")
			s.logger.Error("old provider event delete failed, continuing",
				"event_id", correlationID, "error", err)
		}
		newID, err := s.cal.InsertEvent(ctx, s.calendarID(newProvider), event)
		if err != nil {
			s.metrics.ObserveCalendarFailure("insert")
			s.metrics.ObservePartialFailure()
			span.RecordError(err)
			s.failIntent(ctx, intentID)
			return nil, &PartialFailureError{EventID: correlationID, Step: "calendar recreate", Err: err}
		}
		correlationID = newID
	}
	s.correlateIntent(ctx, intentID, correlationID)

	booking := &Booking{CorrelationID: correlationID, ProviderID: newProvider.ID, Day: req.New.Day}
	if s.folio != nil {
		if folio, err := s.folio.NextFolio(ctx, s.prefix); err == nil {
			booking.Folio = folio
		} else {
			s.logger.Error("folio generation failed", "error", err)
			booking.Warnings = append(booking.Warnings, "folio assignment failed")
		}
	}

	records, times := s.buildSlotRecords(newProvider.ID, svc.Name, req.New, correlationID, startTime, blockCount)
	booking.SlotTimes = times
	if err := s.slots.CreateBatch(ctx, records); err != nil {
		// Intent stays pending so the reconciler can remove the
		// now-unbacked event on its next sweep.
		s.metrics.ObservePartialFailure()
		span.RecordError(err)
		return booking, &PartialFailureError{EventID: correlationID, Step: "slot ledger", Err: err}
	}
	if err := s.writeLedgerEntry(ctx, req.New, svc, newProvider.ID, startTime); err != nil {
		s.logger.Error("ledger entry failed after reschedule", "event_id", correlationID, "error", err)
		booking.Warnings = append(booking.Warnings, "financial entry not recorded")
	}

	s.commitIntent(ctx, intentID)
	s.metrics.ObserveOperation("reschedule", "ok")
	s.logger.Info("booking rescheduled",
		"old_provider", oldProvider.ID,
		"new_provider", newProvider.ID,
		"correlation_id", correlationID,
	)
	return booking, nil
}

// CancelBooking removes a booking: calendar first (best effort), then the
// pending ledger entry, then the local slots. Cancellation is unconditional
// once invoked.
func (s *Service) CancelBooking(ctx context.Context, req CancelRequest) error {
	ctx, span := bookingTracer.Start(ctx, "booking.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("atu.correlation_id", req.CorrelationID))
	started := s.now()
	defer func() { s.metrics.ObserveSagaDuration("cancel", s.now().Sub(started).Seconds()) }()

	calID := s.defCal
	if provider, err := s.catalog.GetProvider(ctx, req.ProviderID); err == nil {
		calID = s.calendarID(provider)
	} else {
		s.logger.Warn("provider lookup failed on cancel, using default calendar",
			"provider_id", req.ProviderID, "error", err)
	}

	// A calendar deletion failure must not trap money or slots in an
	// inconsistent state; log and keep going.
	if err := s.cal.DeleteEvent(ctx, calID, req.CorrelationID); err != nil {
		s.metrics.ObserveCalendarFailure("delete")
		s.logger.Error("calendar event delete failed, continuing local cleanup",
			"event_id", req.CorrelationID, "error", err)
	}

	if _, err := s.ledger.DeletePendingForBooking(ctx, req.PatientID, req.ProviderID, req.ServiceDate); err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: cancel ledger cleanup: %w", err)
	}
	if _, err := s.slots.DeleteByCorrelation(ctx, req.CorrelationID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: cancel slot cleanup: %w", err)
	}

	s.metrics.ObserveOperation("cancel", "ok")
	s.logger.Info("booking cancelled", "correlation_id", req.CorrelationID, "provider_id", req.ProviderID)
	return nil
}

func (s *Service) lookup(ctx context.Context, providerID, serviceCode string) (*catalog.Provider, *catalog.Service, error) {
	provider, err := s.catalog.GetProvider(ctx, providerID)
	if err != nil {
		return nil, nil, fmt.Errorf("booking: load provider: %w", err)
	}
	svc, err := s.catalog.GetService(ctx, serviceCode)
	if err != nil {
		return nil, nil, fmt.Errorf("booking: load service: %w", err)
	}
	return provider, svc, nil
}

func (s *Service) calendarID(p *catalog.Provider) string {
	if p.CalendarID != "" {
		return p.CalendarID
	}
	return s.defCal
}

func (s *Service) buildEvent(svc *catalog.Service, patient Patient, day time.Time, startTime string, durationMinutes int, allDay bool) calendar.Event {
	summary := fmt.Sprintf("%s / %s", svc.Name, patient.Name)
	if allDay {
		dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc)
		return calendar.Event{
			Summary:     summary,
			Description: patient.Phone,
			Start:       dayStart,
			End:         dayStart.AddDate(0, 0, 1),
			AllDay:      true,
		}
	}
	start := atTime(day, startTime, s.loc)
	return calendar.Event{
		Summary:     summary,
		Description: patient.Phone,
		Start:       start,
		End:         start.Add(time.Duration(durationMinutes) * time.Minute),
	}
}

func (s *Service) buildSlotRecords(providerID, serviceName string, req CreateRequest, correlationID, startTime string, blockCount int) ([]slots.Record, []string) {
	times, _ := schedule.ConsecutiveSlots(startTime, blockCount)
	records := make([]slots.Record, 0, len(times))
	for i, t := range times {
		title := serviceName
		if i > 0 {
			title += slots.ContinuationSuffix
		}
		records = append(records, slots.Record{
			ProviderID:    providerID,
			Day:           req.Day,
			SlotTime:      t,
			PatientName:   req.Patient.Name,
			PatientID:     req.Patient.ID,
			PatientPhone:  req.Patient.Phone,
			Title:         title,
			CorrelationID: correlationID,
			CreatedBy:     req.CreatedBy,
		})
	}
	return records, times
}

// writeLedgerEntry appends the financial record: pending normally, or
// paid_courtesy with the payment stamped at the appointment instant when
// the final price is zero.
func (s *Service) writeLedgerEntry(ctx context.Context, req CreateRequest, svc *catalog.Service, providerID, startTime string) error {
	entry := &ledger.Entry{
		PatientID:          req.Patient.ID,
		PatientName:        req.Patient.Name,
		ProviderID:         providerID,
		ServiceDate:        req.Day,
		Concept:            svc.Name,
		OriginalPriceCents: req.OriginalPriceCents,
		DiscountLabel:      req.DiscountLabel,
		FinalPriceCents:    req.FinalPriceCents,
		Status:             ledger.StatusPending,
	}
	if req.FinalPriceCents == 0 {
		appointmentAt := atTime(req.Day, startTime, s.loc)
		entry.Status = ledger.StatusPaidCourtesy
		entry.Method = "cortesía"
		entry.PaidAt = &appointmentAt
	}
	return s.ledger.Insert(ctx, entry)
}

// Intent bookkeeping never blocks the saga; a failed write only costs the
// reconciler its breadcrumb for this booking.
func (s *Service) writeIntent(ctx context.Context, providerID, calendarID string, day time.Time, slotTime string, detail any) uuid.UUID {
	if s.intents == nil {
		return uuid.Nil
	}
	id, err := s.intents.Insert(ctx, providerID, calendarID, day, slotTime, detail)
	if err != nil {
		s.logger.Error("intent insert failed", "provider_id", providerID, "error", err)
		return uuid.Nil
	}
	return id
}

func (s *Service) correlateIntent(ctx context.Context, id uuid.UUID, correlationID string) {
	if s.intents == nil || id == uuid.Nil {
		return
	}
	if err := s.intents.SetCorrelation(ctx, id, correlationID); err != nil {
		s.logger.Error("intent correlation update failed", "intent_id", id, "error", err)
	}
}

func (s *Service) commitIntent(ctx context.Context, id uuid.UUID) {
	if s.intents == nil || id == uuid.Nil {
		return
	}
	if err := s.intents.MarkCommitted(ctx, id); err != nil {
		s.logger.Error("intent commit failed", "intent_id", id, "error", err)
	}
}

func (s *Service) failIntent(ctx context.Context, id uuid.UUID) {
	if s.intents == nil || id == uuid.Nil {
		return
	}
	if err := s.intents.MarkFailed(ctx, id); err != nil {
		s.logger.Error("intent fail-mark failed", "intent_id", id, "error", err)
	}
}

func atTime(day time.Time, hhmm string, loc *time.Location) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}
