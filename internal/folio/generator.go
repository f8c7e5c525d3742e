// Package folio issues monotonic human-readable identifiers, e.g.
// ATU-2025-0042, backed by a per-sequence counter row.
package folio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/alemendez13/sistema-ATU-sub000/pkg/logging"
)

// ErrSequenceContention is returned when the serializable counter
// transaction keeps losing after maxAttempts tries. Safe to retry the whole
// folio request.
var ErrSequenceContention = errors.New("sequence contention")

const maxAttempts = 3

// serializationFailure is the Postgres SQLSTATE for serializable conflicts.
const serializationFailure = "40001"

type db interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Generator issues folios from named sequence counters.
type Generator struct {
	db     db
	logger *logging.Logger
	now    func() time.Time
}

func NewGenerator(db db, logger *logging.Logger) *Generator {
	if db == nil {
		panic("folio: db required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Generator{db: db, logger: logger, now: time.Now}
}

// NextFolio increments the counter named by prefix and returns
// `prefix-year-zeroPaddedSequence`. The read-modify-write runs as one
// serializable transaction; concurrent callers never observe the same
// sequence value.
func (g *Generator) NextFolio(ctx context.Context, prefix string) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		seq, err := g.nextValue(ctx, prefix)
		if err == nil {
			return fmt.Sprintf("%s-%d-%04d", prefix, g.now().Year(), seq), nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == serializationFailure {
			g.logger.Debug("folio sequence retry", "prefix", prefix, "attempt", attempt+1)
			continue
		}
		return "", err
	}
	return "", fmt.Errorf("folio: %s after %d attempts: %w", prefix, maxAttempts, ErrSequenceContention)
}

func (g *Generator) nextValue(ctx context.Context, prefix string) (int64, error) {
	tx, err := g.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return 0, fmt.Errorf("folio: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var seq int64
	err = tx.QueryRow(ctx, `
		INSERT INTO sequence_counters (name, value)
		VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequence_counters.value + 1
		RETURNING value
	`, prefix).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("folio: bump counter: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("folio: commit: %w", err)
	}
	return seq, nil
}
