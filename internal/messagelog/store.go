// Package messagelog is a read model over the outbound-message log. The
// availability view uses it to badge booked slots whose patient was already
// messaged today; message delivery itself lives outside this engine.
package messagelog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads and appends outbound-message rows.
type Store struct {
	db db
}

func NewStore(db db) *Store {
	if db == nil {
		panic("messagelog: db required")
	}
	return &Store{db: db}
}

// Append records that a message went out to the given patient display name.
func (s *Store) Append(ctx context.Context, patientName, channel string, sentAt time.Time) error {
	query := `
		INSERT INTO outbound_messages (id, patient_name, channel, sent_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.Exec(ctx, query, uuid.New(), patientName, channel, sentAt); err != nil {
		return fmt.Errorf("messagelog: append: %w", err)
	}
	return nil
}

// SentOn reports whether any message went out to the patient display name on
// the given clinic day. Matching is by display name; that is how the source
// data keys its log.
func (s *Store) SentOn(ctx context.Context, patientName string, day time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM outbound_messages
			WHERE patient_name = $1 AND sent_at >= $2 AND sent_at < $3
		)
	`
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	var exists bool
	if err := s.db.QueryRow(ctx, query, patientName, dayStart, dayStart.AddDate(0, 0, 1)).Scan(&exists); err != nil {
		return false, fmt.Errorf("messagelog: sent on: %w", err)
	}
	return exists, nil
}
