package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCounter struct {
	counts map[string]int64
}

func (s *stubCounter) CountByCorrelation(_ context.Context, correlationID string) (int64, error) {
	return s.counts[correlationID], nil
}

func staleRows(intents ...Intent) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "correlation_id", "provider_id", "calendar_id",
		"day", "slot_time", "state", "detail", "created_at",
	})
	for _, it := range intents {
		rows.AddRow(it.ID, it.CorrelationID, it.ProviderID, it.CalendarID,
			it.Day, it.SlotTime, IntentPending, []byte(`{}`), it.CreatedAt)
	}
	return rows
}

func TestSweepDeletesOrphanedEvent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	intentID := uuid.New()
	day := wednesday()
	mock.ExpectQuery("SELECT id, COALESCE").
		WithArgs(IntentPending, (15 * time.Minute).Seconds(), int32(25)).
		WillReturnRows(staleRows(Intent{
			ID:            intentID,
			CorrelationID: "evt-orphan",
			ProviderID:    "dra-lopez",
			CalendarID:    "cal-lopez",
			Day:           day,
			SlotTime:      "10:00",
			CreatedAt:     time.Now().Add(-time.Hour),
		}))
	mock.ExpectExec("UPDATE booking_intents").
		WithArgs(intentID, IntentFailed, IntentPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	cal := &fakeCalendar{}
	r := NewReconciler(NewIntentStore(mock), &stubCounter{counts: map[string]int64{}}, cal, nil)

	require.NoError(t, r.Sweep(context.Background()))
	assert.Equal(t, []string{"evt-orphan"}, cal.deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepCommitsIntentWithLocalSlots(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	intentID := uuid.New()
	mock.ExpectQuery("SELECT id, COALESCE").
		WithArgs(IntentPending, (15 * time.Minute).Seconds(), int32(25)).
		WillReturnRows(staleRows(Intent{
			ID:            intentID,
			CorrelationID: "evt-1",
			ProviderID:    "dra-lopez",
			CalendarID:    "cal-lopez",
			Day:           wednesday(),
			SlotTime:      "10:00",
			CreatedAt:     time.Now().Add(-time.Hour),
		}))
	mock.ExpectExec("UPDATE booking_intents").
		WithArgs(intentID, IntentCommitted, IntentPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	cal := &fakeCalendar{}
	r := NewReconciler(NewIntentStore(mock), &stubCounter{counts: map[string]int64{"evt-1": 3}}, cal, nil)

	require.NoError(t, r.Sweep(context.Background()))
	assert.Empty(t, cal.deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepFailsIntentWithoutCorrelation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	intentID := uuid.New()
	mock.ExpectQuery("SELECT id, COALESCE").
		WithArgs(IntentPending, (15 * time.Minute).Seconds(), int32(25)).
		WillReturnRows(staleRows(Intent{
			ID:         intentID,
			ProviderID: "dra-lopez",
			CalendarID: "cal-lopez",
			Day:        wednesday(),
			SlotTime:   "10:00",
			CreatedAt:  time.Now().Add(-time.Hour),
		}))
	mock.ExpectExec("UPDATE booking_intents").
		WithArgs(intentID, IntentFailed, IntentPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	cal := &fakeCalendar{}
	r := NewReconciler(NewIntentStore(mock), &stubCounter{counts: map[string]int64{}}, cal, nil)

	require.NoError(t, r.Sweep(context.Background()))
	assert.Empty(t, cal.deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}
