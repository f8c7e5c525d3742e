package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a provider or service does not exist.
var ErrNotFound = errors.New("catalog: not found")

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the persisted catalog read/write layer.
type Repository struct {
	db db
}

func NewRepository(db db) *Repository {
	if db == nil {
		panic("catalog: db required")
	}
	return &Repository{db: db}
}

// GetProvider loads one provider by id.
func (r *Repository) GetProvider(ctx context.Context, id string) (*Provider, error) {
	query := `
		SELECT id, display_name, specialty, color, schedule_rule, calendar_id
		FROM providers
		WHERE id = $1
	`
	var p Provider
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.DisplayName, &p.Specialty, &p.Color, &p.ScheduleRule, &p.CalendarID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("provider %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("catalog: select provider: %w", err)
	}
	return &p, nil
}

// ListProviders returns every provider.
func (r *Repository) ListProviders(ctx context.Context) ([]Provider, error) {
	query := `
		SELECT id, display_name, specialty, color, schedule_rule, calendar_id
		FROM providers
		ORDER BY display_name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: list providers: %w", err)
	}
	defer rows.Close()

	var out []Provider
	for rows.Next() {
		var p Provider
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.Specialty, &p.Color, &p.ScheduleRule, &p.CalendarID); err != nil {
			return nil, fmt.Errorf("catalog: scan provider: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetService loads one catalog service by code.
func (r *Repository) GetService(ctx context.Context, code string) (*Service, error) {
	query := `
		SELECT code, name, duration_minutes, price_cents, kind, tracks_stock, sku
		FROM services
		WHERE code = $1
	`
	var s Service
	if err := r.db.QueryRow(ctx, query, code).Scan(
		&s.Code, &s.Name, &s.DurationMinutes, &s.PriceCents, &s.Kind, &s.TracksStock, &s.SKU,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("service %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("catalog: select service: %w", err)
	}
	return &s, nil
}

// UpsertProvider writes a decoded provider row; the spreadsheet importer
// calls this for every imported record.
func (r *Repository) UpsertProvider(ctx context.Context, p Provider) error {
	query := `
		INSERT INTO providers (id, display_name, specialty, color, schedule_rule, calendar_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			specialty = EXCLUDED.specialty,
			color = EXCLUDED.color,
			schedule_rule = EXCLUDED.schedule_rule,
			calendar_id = EXCLUDED.calendar_id
	`
	if _, err := r.db.Exec(ctx, query, p.ID, p.DisplayName, p.Specialty, p.Color, p.ScheduleRule, p.CalendarID); err != nil {
		return fmt.Errorf("catalog: upsert provider %s: %w", p.ID, err)
	}
	return nil
}

// UpsertService writes a decoded service row.
func (r *Repository) UpsertService(ctx context.Context, s Service) error {
	query := `
		INSERT INTO services (code, name, duration_minutes, price_cents, kind, tracks_stock, sku)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			duration_minutes = EXCLUDED.duration_minutes,
			price_cents = EXCLUDED.price_cents,
			kind = EXCLUDED.kind,
			tracks_stock = EXCLUDED.tracks_stock,
			sku = EXCLUDED.sku
	`
	if _, err := r.db.Exec(ctx, query, s.Code, s.Name, s.DurationMinutes, s.PriceCents, s.Kind, s.TracksStock, s.SKU); err != nil {
		return fmt.Errorf("catalog: upsert service %s: %w", s.Code, err)
	}
	return nil
}
