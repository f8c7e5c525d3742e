package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Intent states.
const (
	IntentPending   = "pending"
	IntentCommitted = "committed"
	IntentFailed    = "failed"
)

// Intent is a durable record of a saga in flight, written before the
// external calendar call. A pending intent that never resolves marks a
// window where the calendar may hold an event with no local state behind
// it; the Reconciler sweeps those.
type Intent struct {
	ID            uuid.UUID
	CorrelationID string
	ProviderID    string
	CalendarID    string
	Day           time.Time
	SlotTime      string
	State         string
	Detail        json.RawMessage
	CreatedAt     time.Time
	ResolvedAt    *time.Time
}

type intentDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// IntentStore persists saga intents.
type IntentStore struct {
	db intentDB
}

func NewIntentStore(db intentDB) *IntentStore {
	if db == nil {
		panic("booking: db required")
	}
	return &IntentStore{db: db}
}

// Insert writes a pending intent and returns its id.
func (s *IntentStore) Insert(ctx context.Context, providerID, calendarID string, day time.Time, slotTime string, detail any) (uuid.UUID, error) {
	data, err := json.Marshal(detail)
	if err != nil {
		return uuid.Nil, fmt.Errorf("booking: marshal intent detail: %w", err)
	}
	id := uuid.New()
	query := `
		INSERT INTO booking_intents (id, provider_id, calendar_id, day, slot_time, state, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.db.Exec(ctx, query, id, providerID, calendarID, day, slotTime, IntentPending, data); err != nil {
		return uuid.Nil, fmt.Errorf("booking: insert intent: %w", err)
	}
	return id, nil
}

// SetCorrelation records the calendar event id once the external write
// succeeds.
func (s *IntentStore) SetCorrelation(ctx context.Context, id uuid.UUID, correlationID string) error {
	query := `UPDATE booking_intents SET correlation_id = $2 WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id, correlationID); err != nil {
		return fmt.Errorf("booking: set intent correlation: %w", err)
	}
	return nil
}

// MarkCommitted resolves an intent whose saga finished.
func (s *IntentStore) MarkCommitted(ctx context.Context, id uuid.UUID) error {
	return s.resolve(ctx, id, IntentCommitted)
}

// MarkFailed resolves an intent whose saga aborted before local writes.
func (s *IntentStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return s.resolve(ctx, id, IntentFailed)
}

func (s *IntentStore) resolve(ctx context.Context, id uuid.UUID, state string) error {
	query := `
		UPDATE booking_intents
		SET state = $2, resolved_at = now()
		WHERE id = $1 AND state = $3
	`
	if _, err := s.db.Exec(ctx, query, id, state, IntentPending); err != nil {
		return fmt.Errorf("booking: resolve intent %s: %w", state, err)
	}
	return nil
}

// FetchStale returns pending intents older than olderThan, oldest first.
func (s *IntentStore) FetchStale(ctx context.Context, olderThan time.Duration, limit int32) ([]Intent, error) {
	query := `
		SELECT id, COALESCE(correlation_id, ''), provider_id, calendar_id, day, slot_time, state, detail, created_at
		FROM booking_intents
		WHERE state = $1 AND created_at < now() - make_interval(secs => $2)
		ORDER BY created_at
		LIMIT $3
	`
	rows, err := s.db.Query(ctx, query, IntentPending, olderThan.Seconds(), limit)
	if err != nil {
		return nil, fmt.Errorf("booking: fetch stale intents: %w", err)
	}
	defer rows.Close()

	var out []Intent
	for rows.Next() {
		var it Intent
		var payload []byte
		if err := rows.Scan(&it.ID, &it.CorrelationID, &it.ProviderID, &it.CalendarID, &it.Day, &it.SlotTime, &it.State, &payload, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("booking: scan intent: %w", err)
		}
		it.Detail = append([]byte(nil), payload...)
		out = append(out, it)
	}
	return out, rows.Err()
}
