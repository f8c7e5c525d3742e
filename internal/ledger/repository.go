package ledger

import (
	"context"
	"errors"
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

// Repository persists ledger entries.
type Repository struct {
	db db
}

func NewRepository(db db) *Repository {
	if db == nil {
		panic("ledger: db required")
	}
	return &Repository{db: db}
}

// Insert appends a new entry, assigning its id and creation timestamp.
func (r *Repository) Insert(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	query := `
		INSERT INTO ledger_entries
			(id, patient_id, patient_name, provider_id, service_date, concept,
			 original_price_cents, discount_label, final_price_cents, status,
			 method, partial_paid_cents, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query,
		e.ID,
		e.PatientID,
		e.PatientName,
		e.ProviderID,
		e.ServiceDate,
		e.Concept,
		e.OriginalPriceCents,
		e.DiscountLabel,
		e.FinalPriceCents,
		e.Status,
		e.Method,
		e.PartialPaidCents,
		e.PaidAt,
	).Scan(&e.CreatedAt); err != nil {
		return fmt.Errorf("ledger: insert: %w", err)
	}
	return nil
}

// FindForBooking locates the entry referencing a booking by patient id,
// provider id and service date. Returns nil when no entry exists.
func (r *Repository) FindForBooking(ctx context.Context, patientID, providerID string, serviceDate time.Time) (*Entry, error) {
	query := `
		SELECT id, patient_id, patient_name, provider_id, service_date, concept,
		       original_price_cents, discount_label, final_price_cents, status,
		       method, partial_paid_cents, created_at, paid_at
		FROM ledger_entries
		WHERE patient_id = $1 AND provider_id = $2 AND service_date = $3
	`
	var e Entry
	if err := r.db.QueryRow(ctx, query, patientID, providerID, serviceDate).Scan(
		&e.ID,
		&e.PatientID,
		&e.PatientName,
		&e.ProviderID,
		&e.ServiceDate,
		&e.Concept,
		&e.OriginalPriceCents,
		&e.DiscountLabel,
		&e.FinalPriceCents,
		&e.Status,
		&e.Method,
		&e.PartialPaidCents,
		&e.CreatedAt,
		&e.PaidAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: find for booking: %w", err)
	}
	return &e, nil
}

// Delete removes an entry by id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM ledger_entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("ledger: delete: %w", err)
	}
	return nil
}

// DeletePendingForBooking removes entries for a booking that are still
// pending. Money already collected (paid, paid_courtesy, or any partial
// payment) is never auto-deleted by a cancel.
func (r *Repository) DeletePendingForBooking(ctx context.Context, patientID, providerID string, serviceDate time.Time) (int64, error) {
	query := `
		DELETE FROM ledger_entries
		WHERE patient_id = $1 AND provider_id = $2 AND service_date = $3
		  AND status = $4 AND partial_paid_cents = 0
	`
	ct, err := r.db.Exec(ctx, query, patientID, providerID, serviceDate, StatusPending)
	if err != nil {
		return 0, fmt.Errorf("ledger: delete pending: %w", err)
	}
	return ct.RowsAffected(), nil
}

// MarkPaid records a completed payment. The booking lifecycle never calls
// this; payment-collection flows own the paid transition.
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID, method string, paidAt time.Time) error {
	query := `
		UPDATE ledger_entries
		SET status = $2, method = $3, paid_at = $4
		WHERE id = $1
	`
	ct, err := r.db.Exec(ctx, query, id, StatusPaid, method, paidAt)
	if err != nil {
		return fmt.Errorf("ledger: mark paid: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("ledger: mark paid: entry %s not found", id)
	}
	return nil
}
