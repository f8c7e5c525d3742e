package slots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrSlotTaken is returned when a conditional batch insert loses to an
// existing row on the (provider_id, day, slot_time) unique constraint.
var ErrSlotTaken = errors.New("slot already taken")

// db is the pgx surface the repository needs; pgxpool.Pool and pgxmock both
// satisfy it.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository persists slot records.
type Repository struct {
	db db
}

// NewRepository creates a repository backed by a pgx pool (or mock).
func NewRepository(db db) *Repository {
	if db == nil {
		panic("slots: db required")
	}
	return &Repository{db: db}
}

// CreateBatch inserts every record inside one transaction using conditional
// writes. If any target slot is already occupied the whole batch rolls back
// and ErrSlotTaken is returned; the unique constraint on
// (provider_id, day, slot_time) is the authority, not a prior read.
func (r *Repository) CreateBatch(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("slots: begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO slot_records
			(id, provider_id, day, slot_time, patient_name, patient_id, patient_phone,
			 title, correlation_id, created_by, confirmed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (provider_id, day, slot_time) DO NOTHING
	`
	for _, rec := range records {
		id := rec.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		ct, err := tx.Exec(ctx, query,
			id,
			rec.ProviderID,
			rec.Day,
			rec.SlotTime,
			rec.PatientName,
			rec.PatientID,
			rec.PatientPhone,
			rec.Title,
			rec.CorrelationID,
			rec.CreatedBy,
			rec.Confirmed,
		)
		if err != nil {
			return fmt.Errorf("slots: insert %s %s: %w", rec.Day.Format("2006-01-02"), rec.SlotTime, err)
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("slots: %s %s: %w", rec.Day.Format("2006-01-02"), rec.SlotTime, ErrSlotTaken)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("slots: commit batch: %w", err)
	}
	return nil
}

// DeleteByCorrelation removes every block of one logical booking.
func (r *Repository) DeleteByCorrelation(ctx context.Context, correlationID string) (int64, error) {
	ct, err := r.db.Exec(ctx, `DELETE FROM slot_records WHERE correlation_id = $1`, correlationID)
	if err != nil {
		return 0, fmt.Errorf("slots: delete by correlation: %w", err)
	}
	return ct.RowsAffected(), nil
}

// GetAt returns the record occupying (provider, day, time), or nil.
func (r *Repository) GetAt(ctx context.Context, providerID string, day time.Time, slotTime string) (*Record, error) {
	query := `
		SELECT id, provider_id, day, slot_time, patient_name, patient_id, patient_phone,
		       title, correlation_id, created_by, confirmed, created_at
		FROM slot_records
		WHERE provider_id = $1 AND day = $2 AND slot_time = $3
	`
	rec, err := scanRecord(r.db.QueryRow(ctx, query, providerID, day, slotTime))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("slots: select at: %w", err)
	}
	return rec, nil
}

// ListForDay returns all records for a provider's day, ordered by slot time.
func (r *Repository) ListForDay(ctx context.Context, providerID string, day time.Time) ([]Record, error) {
	query := `
		SELECT id, provider_id, day, slot_time, patient_name, patient_id, patient_phone,
		       title, correlation_id, created_by, confirmed, created_at
		FROM slot_records
		WHERE provider_id = $1 AND day = $2
		ORDER BY slot_time
	`
	rows, err := r.db.Query(ctx, query, providerID, day)
	if err != nil {
		return nil, fmt.Errorf("slots: list for day: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("slots: scan: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// CountByCorrelation counts how many blocks exist for one logical booking.
// The reconciler uses this to tell an orphaned calendar event from a saga
// that merely skipped its final bookkeeping.
func (r *Repository) CountByCorrelation(ctx context.Context, correlationID string) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM slot_records WHERE correlation_id = $1`, correlationID).Scan(&n); err != nil {
		return 0, fmt.Errorf("slots: count by correlation: %w", err)
	}
	return n, nil
}

// TimesByCorrelation returns the slot times one logical booking holds on the
// provider's day. The guard uses this to tell the booking's own busy window
// apart from foreign calendar blocks during a reschedule.
func (r *Repository) TimesByCorrelation(ctx context.Context, providerID string, day time.Time, correlationID string) ([]string, error) {
	query := `
		SELECT slot_time
		FROM slot_records
		WHERE provider_id = $1 AND day = $2 AND correlation_id = $3
		ORDER BY slot_time
	`
	rows, err := r.db.Query(ctx, query, providerID, day, correlationID)
	if err != nil {
		return nil, fmt.Errorf("slots: times by correlation: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("slots: scan slot time: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountOccupied counts how many of the given slot times are occupied for the
// provider's day, ignoring rows that belong to excludeCorrelation (so a
// booking may overlap itself during its own reschedule).
func (r *Repository) CountOccupied(ctx context.Context, providerID string, day time.Time, slotTimes []string, excludeCorrelation string) (int, error) {
	query := `
		SELECT count(*)
		FROM slot_records
		WHERE provider_id = $1 AND day = $2 AND slot_time = ANY($3)
		  AND ($4 = '' OR correlation_id <> $4)
	`
	var n int
	if err := r.db.QueryRow(ctx, query, providerID, day, slotTimes, excludeCorrelation).Scan(&n); err != nil {
		return 0, fmt.Errorf("slots: count occupied: %w", err)
	}
	return n, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	if err := row.Scan(
		&rec.ID,
		&rec.ProviderID,
		&rec.Day,
		&rec.SlotTime,
		&rec.PatientName,
		&rec.PatientID,
		&rec.PatientPhone,
		&rec.Title,
		&rec.CorrelationID,
		&rec.CreatedBy,
		&rec.Confirmed,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}
