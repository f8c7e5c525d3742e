package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alemendez13/sistema-ATU-sub000/internal/calendar"
	"github.com/alemendez13/sistema-ATU-sub000/internal/catalog"
	"github.com/alemendez13/sistema-ATU-sub000/internal/inventory"
	"github.com/alemendez13/sistema-ATU-sub000/internal/ledger"
	"github.com/alemendez13/sistema-ATU-sub000/internal/slots"
)

type fakeSlots struct {
	created   []slots.Record
	deleted   []string
	batchErr  error
	occupied  int
	heldTimes []string // times the excluded booking already holds
}

func (f *fakeSlots) CreateBatch(_ context.Context, records []slots.Record) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	f.created = append(f.created, records...)
	return nil
}

func (f *fakeSlots) DeleteByCorrelation(_ context.Context, correlationID string) (int64, error) {
	f.deleted = append(f.deleted, correlationID)
	return 1, nil
}

func (f *fakeSlots) CountOccupied(_ context.Context, _ string, _ time.Time, _ []string, _ string) (int, error) {
	return f.occupied, nil
}

func (f *fakeSlots) TimesByCorrelation(_ context.Context, _ string, _ time.Time, _ string) ([]string, error) {
	return f.heldTimes, nil
}

type fakeLedger struct {
	inserted       []*ledger.Entry
	existing       *ledger.Entry
	deletedIDs     []uuid.UUID
	pendingDeleted int
	insertErr      error
}

func (f *fakeLedger) Insert(_ context.Context, e *ledger.Entry) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, e)
	return nil
}

func (f *fakeLedger) FindForBooking(_ context.Context, _, _ string, _ time.Time) (*ledger.Entry, error) {
	return f.existing, nil
}

func (f *fakeLedger) Delete(_ context.Context, id uuid.UUID) error {
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakeLedger) DeletePendingForBooking(_ context.Context, _, _ string, _ time.Time) (int64, error) {
	f.pendingDeleted++
	return 1, nil
}

type fakeStock struct {
	depletions []string
	traces     []string
	err        error
}

func (f *fakeStock) Deplete(_ context.Context, sku string, _ int, trace string) ([]inventory.MovementLine, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.depletions = append(f.depletions, sku)
	f.traces = append(f.traces, trace)
	return []inventory.MovementLine{{LotLabel: "L1", Taken: 1}}, nil
}

type fakeFolio struct {
	next string
	err  error
}

func (f *fakeFolio) NextFolio(_ context.Context, _ string) (string, error) {
	return f.next, f.err
}

type fakeCatalog struct {
	providers map[string]*catalog.Provider
	services  map[string]*catalog.Service
}

func (f *fakeCatalog) GetProvider(_ context.Context, id string) (*catalog.Provider, error) {
	p, ok := f.providers[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) GetService(_ context.Context, code string) (*catalog.Service, error) {
	s, ok := f.services[code]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return s, nil
}

type fakeCalendar struct {
	inserted  []calendar.Event
	insertCal []string
	patched   []string
	deleted   []string
	insertErr error
	patchErr  error
	deleteErr error
	nextID    string
}

func (f *fakeCalendar) InsertEvent(_ context.Context, calendarID string, ev calendar.Event) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.inserted = append(f.inserted, ev)
	f.insertCal = append(f.insertCal, calendarID)
	if f.nextID == "" {
		return "evt-1", nil
	}
	return f.nextID, nil
}

func (f *fakeCalendar) PatchEvent(_ context.Context, _, eventID string, _ calendar.Event) error {
	if f.patchErr != nil {
		return f.patchErr
	}
	f.patched = append(f.patched, eventID)
	return nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, _, eventID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

func (f *fakeCalendar) FreeBusy(_ context.Context, _ []string, _, _ time.Time) (map[string][]calendar.BusyBlock, error) {
	return map[string][]calendar.BusyBlock{}, nil
}

type fakeIntents struct {
	inserted     int
	correlations []string
	committed    []uuid.UUID
	failed       []uuid.UUID
}

func (f *fakeIntents) Insert(_ context.Context, _, _ string, _ time.Time, _ string, _ any) (uuid.UUID, error) {
	f.inserted++
	return uuid.New(), nil
}

func (f *fakeIntents) SetCorrelation(_ context.Context, _ uuid.UUID, correlationID string) error {
	f.correlations = append(f.correlations, correlationID)
	return nil
}

func (f *fakeIntents) MarkCommitted(_ context.Context, id uuid.UUID) error {
	f.committed = append(f.committed, id)
	return nil
}

func (f *fakeIntents) MarkFailed(_ context.Context, id uuid.UUID) error {
	f.failed = append(f.failed, id)
	return nil
}

type fixture struct {
	slots   *fakeSlots
	ledger  *fakeLedger
	stock   *fakeStock
	folio   *fakeFolio
	cal     *fakeCalendar
	intents *fakeIntents
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)

	f := &fixture{
		slots:   &fakeSlots{},
		ledger:  &fakeLedger{},
		stock:   &fakeStock{},
		folio:   &fakeFolio{next: "ATU-2025-0042"},
		cal:     &fakeCalendar{},
		intents: &fakeIntents{},
	}
	cat := &fakeCatalog{
		providers: map[string]*catalog.Provider{
			"dra-lopez":  {ID: "dra-lopez", DisplayName: "Dra. López", ScheduleRule: "1,2,3,4,5|09:00-18:00", CalendarID: "cal-lopez"},
			"dr-herrera": {ID: "dr-herrera", DisplayName: "Dr. Herrera", ScheduleRule: "1,3,5|09:00-14:00", CalendarID: "cal-herrera"},
		},
		services: map[string]*catalog.Service{
			"consulta": {Code: "consulta", Name: "Consulta general", DurationMinutes: 30, PriceCents: 80000, Kind: catalog.KindConsult},
			"peeling":  {Code: "peeling", Name: "Peeling químico", DurationMinutes: 90, PriceCents: 250000, Kind: catalog.KindProcedure, TracksStock: true, SKU: "PEEL-01"},
			"biometria": {
				Code: "biometria", Name: "Biometría hemática", DurationMinutes: 30,
				PriceCents: 45000, Kind: catalog.KindLab,
			},
		},
	}
	f.svc = NewService(Config{
		Slots:       f.slots,
		Ledger:      f.ledger,
		Stock:       f.stock,
		Folio:       f.folio,
		Catalog:     cat,
		Calendar:    f.cal,
		Intents:     f.intents,
		Guard:       NewGuard(f.slots, nil, "primary", loc, nil),
		Logger:      nil,
		Location:    loc,
		DefaultCal:  "primary",
		FolioPrefix: "ATU",
	})
	return f
}

func wednesday() time.Time {
	return time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
}

func TestCreateBookingMultiSlot(t *testing.T) {
	f := newFixture(t)

	booking, err := f.svc.CreateBooking(context.Background(), CreateRequest{
		ProviderID:         "dra-lopez",
		Day:                wednesday(),
		Time:               "10:00",
		Patient:            Patient{Name: "Ana Ruiz", ID: "p-77", Phone: "5512345678"},
		ServiceCode:        "peeling",
		OriginalPriceCents: 250000,
		FinalPriceCents:    250000,
		CreatedBy:          "front-desk",
	})
	require.NoError(t, err)
	require.NotNil(t, booking)

	assert.Equal(t, "evt-1", booking.CorrelationID)
	assert.Equal(t, "ATU-2025-0042", booking.Folio)
	assert.Equal(t, []string{"10:00", "10:30", "11:00"}, booking.SlotTimes)
	assert.Empty(t, booking.Warnings)

	require.Len(t, f.slots.created, 3)
	assert.Equal(t, "Peeling químico", f.slots.created[0].Title)
	assert.Equal(t, "Peeling químico (continuación)", f.slots.created[1].Title)
	assert.Equal(t, "Peeling químico (continuación)", f.slots.created[2].Title)
	for _, r := range f.slots.created {
		assert.Equal(t, "evt-1", r.CorrelationID)
		assert.Equal(t, "Ana Ruiz", r.PatientName)
	}

	require.Len(t, f.cal.inserted, 1)
	assert.Equal(t, "cal-lopez", f.cal.insertCal[0])
	assert.False(t, f.cal.inserted[0].AllDay)
	assert.Equal(t, 90*time.Minute, f.cal.inserted[0].End.Sub(f.cal.inserted[0].Start))

	require.Len(t, f.ledger.inserted, 1)
	assert.Equal(t, ledger.StatusPending, f.ledger.inserted[0].Status)
	assert.Equal(t, int64(250000), f.ledger.inserted[0].FinalPriceCents)

	assert.Equal(t, []string{"PEEL-01"}, f.stock.depletions)
	assert.Equal(t, []string{"ATU-2025-0042 / Ana Ruiz"}, f.stock.traces)
	assert.Len(t, f.intents.committed, 1)
	assert.Equal(t, []string{"evt-1"}, f.intents.correlations)
}

func TestCreateBookingCalendarFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.cal.insertErr = errors.New("googleapi: 503")

	booking, err := f.svc.CreateBooking(context.Background(), CreateRequest{
		ProviderID:  "dra-lopez",
		Day:         wednesday(),
		Time:        "10:00",
		Patient:     Patient{Name: "Ana Ruiz"},
		ServiceCode: "consulta",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExternalService)
	assert.Nil(t, booking)

	assert.Empty(t, f.slots.created)
	assert.Empty(t, f.ledger.inserted)
	assert.Empty(t, f.stock.depletions)
	assert.Len(t, f.intents.failed, 1)
}

func TestCreateBookingGuardRejectsOccupiedSlot(t *testing.T) {
	f := newFixture(t)
	f.slots.occupied = 1

	_, err := f.svc.CreateBooking(context.Background(), CreateRequest{
		ProviderID:  "dra-lopez",
		Day:         wednesday(),
		Time:        "10:00",
		Patient:     Patient{Name: "Ana Ruiz"},
		ServiceCode: "consulta",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Empty(t, f.cal.inserted)
	assert.Empty(t, f.slots.created)
}

func TestCreateBookingSlotConflictKeepsEvent(t *testing.T) {
	f := newFixture(t)
	f.slots.batchErr = slots.ErrSlotTaken

	booking, err := f.svc.CreateBooking(context.Background(), CreateRequest{
		ProviderID:  "dra-lopez",
		Day:         wednesday(),
		Time:        "10:00",
		Patient:     Patient{Name: "Ana Ruiz"},
		ServiceCode: "consulta",
	})
	require.Error(t, err)

	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "evt-1", partial.EventID)
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// The event stays on the calendar for the reconciler to resolve.
	assert.Empty(t, f.cal.deleted)
	require.NotNil(t, booking)
	assert.Equal(t, "evt-1", booking.CorrelationID)
	assert.Empty(t, f.intents.committed)
}

func TestCreateBookingZeroPriceCourtesy(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBooking(context.Background(), CreateRequest{
		ProviderID:         "dra-lopez",
		Day:                wednesday(),
		Time:               "16:00",
		Patient:            Patient{Name: "Ana Ruiz"},
		ServiceCode:        "consulta",
		OriginalPriceCents: 80000,
		DiscountLabel:      "Cortesía dirección",
		FinalPriceCents:    0,
	})
	require.NoError(t, err)

	require.Len(t, f.ledger.inserted, 1)
	entry := f.ledger.inserted[0]
	assert.Equal(t, ledger.StatusPaidCourtesy, entry.Status)
	assert.Equal(t, "cortesía", entry.Method)
	require.NotNil(t, entry.PaidAt)
	assert.Equal(t, 16, entry.PaidAt.Hour())
}

func TestCreateBookingLabWithoutTimeIsAllDay(t *testing.T) {
	f := newFixture(t)

	booking, err := f.svc.CreateBooking(context.Background(), CreateRequest{
		ProviderID:  "dra-lopez",
		Day:         wednesday(),
		Patient:     Patient{Name: "Ana Ruiz"},
		ServiceCode: "biometria",
	})
	require.NoError(t, err)

	require.Len(t, f.cal.inserted, 1)
	assert.True(t, f.cal.inserted[0].AllDay)
	assert.Equal(t, []string{"09:00"}, booking.SlotTimes)
}

func TestCreateBookingFolioFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.folio.next = ""
	f.folio.err = errors.New("folio: sequence contention")

	booking, err := f.svc.CreateBooking(context.Background(), CreateRequest{
		ProviderID:  "dra-lopez",
		Day:         wednesday(),
		Time:        "10:00",
		Patient:     Patient{Name: "Ana Ruiz"},
		ServiceCode: "consulta",
	})
	require.NoError(t, err)
	assert.Empty(t, booking.Folio)
	assert.Contains(t, booking.Warnings, "folio assignment failed")
	require.Len(t, f.slots.created, 1)
}

func TestRescheduleRefusedOnPartialPayment(t *testing.T) {
	f := newFixture(t)
	f.ledger.existing = &ledger.Entry{
		ID:               uuid.New(),
		Status:           ledger.StatusPending,
		PartialPaidCents: 50000,
	}

	_, err := f.svc.RescheduleBooking(context.Background(), RescheduleRequest{
		CorrelationID:  "evt-old",
		OldProviderID:  "dra-lopez",
		OldServiceDate: wednesday(),
		New: CreateRequest{
			ProviderID:  "dra-lopez",
			Day:         wednesday().AddDate(0, 0, 2),
			Time:        "11:00",
			Patient:     Patient{Name: "Ana Ruiz", ID: "p-77"},
			ServiceCode: "consulta",
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialPaymentConflict)

	// Every store untouched: no deletions, no calendar calls, no inserts.
	assert.Empty(t, f.slots.deleted)
	assert.Empty(t, f.slots.created)
	assert.Empty(t, f.ledger.deletedIDs)
	assert.Empty(t, f.ledger.inserted)
	assert.Empty(t, f.cal.patched)
	assert.Empty(t, f.cal.deleted)
	assert.Empty(t, f.cal.inserted)
	assert.Equal(t, 0, f.intents.inserted)
}

func TestRescheduleSameProviderPatchesEvent(t *testing.T) {
	f := newFixture(t)
	oldID := uuid.New()
	f.ledger.existing = &ledger.Entry{ID: oldID, Status: ledger.StatusPending}

	booking, err := f.svc.RescheduleBooking(context.Background(), RescheduleRequest{
		CorrelationID:  "evt-old",
		OldProviderID:  "dra-lopez",
		OldServiceDate: wednesday(),
		New: CreateRequest{
			ProviderID:      "dra-lopez",
			Day:             wednesday().AddDate(0, 0, 2),
			Time:            "11:00",
			Patient:         Patient{Name: "Ana Ruiz", ID: "p-77"},
			ServiceCode:     "consulta",
			FinalPriceCents: 80000,
		},
	})
	require.NoError(t, err)

	// Event id is preserved; no delete/insert pair.
	assert.Equal(t, "evt-old", booking.CorrelationID)
	assert.Equal(t, []string{"evt-old"}, f.cal.patched)
	assert.Empty(t, f.cal.inserted)
	assert.Empty(t, f.cal.deleted)

	assert.Equal(t, []string{"evt-old"}, f.slots.deleted)
	assert.Equal(t, []uuid.UUID{oldID}, f.ledger.deletedIDs)
	require.Len(t, f.slots.created, 1)
	assert.Equal(t, "evt-old", f.slots.created[0].CorrelationID)
	require.Len(t, f.ledger.inserted, 1)
	assert.Equal(t, ledger.StatusPending, f.ledger.inserted[0].Status)

	assert.Equal(t, 1, f.intents.inserted)
	assert.Equal(t, []string{"evt-old"}, f.intents.correlations)
	assert.Len(t, f.intents.committed, 1)
}

func TestRescheduleCrossProviderRecreatesEvent(t *testing.T) {
	f := newFixture(t)
	f.cal.nextID = "evt-new"

	booking, err := f.svc.RescheduleBooking(context.Background(), RescheduleRequest{
		CorrelationID:  "evt-old",
		OldProviderID:  "dra-lopez",
		OldServiceDate: wednesday(),
		New: CreateRequest{
			ProviderID:  "dr-herrera",
			Day:         wednesday().AddDate(0, 0, 2),
			Time:        "09:30",
			Patient:     Patient{Name: "Ana Ruiz", ID: "p-77"},
			ServiceCode: "consulta",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "evt-new", booking.CorrelationID)
	assert.Equal(t, []string{"evt-old"}, f.cal.deleted)
	assert.Equal(t, []string{"cal-herrera"}, f.cal.insertCal)
	assert.Empty(t, f.cal.patched)
	require.Len(t, f.slots.created, 1)
	assert.Equal(t, "evt-new", f.slots.created[0].CorrelationID)
	assert.Equal(t, "dr-herrera", f.slots.created[0].ProviderID)

	// The intent carries the recreated event's id, not the old one.
	assert.Equal(t, []string{"evt-new"}, f.intents.correlations)
	assert.Len(t, f.intents.committed, 1)
}

func TestRescheduleCalendarFailureFailsIntent(t *testing.T) {
	f := newFixture(t)
	f.cal.insertErr = errors.New("googleapi: 503")

	_, err := f.svc.RescheduleBooking(context.Background(), RescheduleRequest{
		CorrelationID:  "evt-old",
		OldProviderID:  "dra-lopez",
		OldServiceDate: wednesday(),
		New: CreateRequest{
			ProviderID:  "dr-herrera",
			Day:         wednesday().AddDate(0, 0, 2),
			Time:        "09:30",
			Patient:     Patient{Name: "Ana Ruiz", ID: "p-77"},
			ServiceCode: "consulta",
		},
	})
	require.Error(t, err)

	assert.Equal(t, 1, f.intents.inserted)
	assert.Len(t, f.intents.failed, 1)
	assert.Empty(t, f.intents.correlations)
	assert.Empty(t, f.intents.committed)
}

func TestRescheduleSlotConflictLeavesIntentPending(t *testing.T) {
	f := newFixture(t)
	f.cal.nextID = "evt-new"
	f.slots.batchErr = slots.ErrSlotTaken

	_, err := f.svc.RescheduleBooking(context.Background(), RescheduleRequest{
		CorrelationID:  "evt-old",
		OldProviderID:  "dra-lopez",
		OldServiceDate: wednesday(),
		New: CreateRequest{
			ProviderID:  "dr-herrera",
			Day:         wednesday().AddDate(0, 0, 2),
			Time:        "09:30",
			Patient:     Patient{Name: "Ana Ruiz", ID: "p-77"},
			ServiceCode: "consulta",
		},
	})
	var pf *PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, "evt-new", pf.EventID)

	// Neither committed nor failed: the reconciler owns the cleanup and
	// needs the correlation id to find the unbacked event.
	assert.Equal(t, 1, f.intents.inserted)
	assert.Equal(t, []string{"evt-new"}, f.intents.correlations)
	assert.Empty(t, f.intents.committed)
	assert.Empty(t, f.intents.failed)
}

func TestCancelBookingCleansAllStores(t *testing.T) {
	f := newFixture(t)

	err := f.svc.CancelBooking(context.Background(), CancelRequest{
		CorrelationID: "evt-1",
		ProviderID:    "dra-lopez",
		PatientID:     "p-77",
		ServiceDate:   wednesday(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"evt-1"}, f.cal.deleted)
	assert.Equal(t, 1, f.ledger.pendingDeleted)
	assert.Equal(t, []string{"evt-1"}, f.slots.deleted)
}

func TestCancelBookingCalendarFailureStillCleansLocal(t *testing.T) {
	f := newFixture(t)
	f.cal.deleteErr = errors.New("googleapi: 500")

	err := f.svc.CancelBooking(context.Background(), CancelRequest{
		CorrelationID: "evt-1",
		ProviderID:    "dra-lopez",
		PatientID:     "p-77",
		ServiceDate:   wednesday(),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, f.ledger.pendingDeleted)
	assert.Equal(t, []string{"evt-1"}, f.slots.deleted)
}
