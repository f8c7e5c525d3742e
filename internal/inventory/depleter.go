package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/alemendez13/sistema-ATU-sub000/pkg/logging"
)

// ErrInsufficientStock is returned when the SKU's lots cannot cover the
// requested quantity. Nothing is applied in that case.
var ErrInsufficientStock = errors.New("insufficient stock")

type db interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Depleter consumes stock oldest-expiration-first across a SKU's lots.
type Depleter struct {
	db     db
	logger *logging.Logger
}

func NewDepleter(db db, logger *logging.Logger) *Depleter {
	if db == nil {
		panic("inventory: db required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Depleter{db: db, logger: logger}
}

// Deplete consumes quantity units of sku from the soonest-expiring lots,
// breaking expiration ties toward the smallest remaining quantity so
// near-empty lots close out first. The lot decrements and the movement
// record commit in one serializable transaction: either every deduction
// lands together with its audit row, or none do.
func (d *Depleter) Deplete(ctx context.Context, sku string, quantity int, traceTag string) ([]MovementLine, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("inventory: quantity must be positive, got %d", quantity)
	}

	tx, err := d.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("inventory: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, lot_label, remaining
		FROM inventory_lots
		WHERE sku = $1 AND remaining > 0
		ORDER BY expires_on ASC, remaining ASC
		FOR UPDATE
	`, sku)
	if err != nil {
		return nil, fmt.Errorf("inventory: select lots: %w", err)
	}

	type lotRow struct {
		id        uuid.UUID
		label     string
		remaining int
	}
	var lots []lotRow
	for rows.Next() {
		var lot lotRow
		if err := rows.Scan(&lot.id, &lot.label, &lot.remaining); err != nil {
			rows.Close()
			return nil, fmt.Errorf("inventory: scan lot: %w", err)
		}
		lots = append(lots, lot)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inventory: read lots: %w", err)
	}

	left := quantity
	var lines []MovementLine
	for _, lot := range lots {
		if left == 0 {
			break
		}
		take := lot.remaining
		if take > left {
			take = left
		}
		ct, err := tx.Exec(ctx, `
			UPDATE inventory_lots
			SET remaining = remaining - $1
			WHERE id = $2 AND remaining >= $1
		`, take, lot.id)
		if err != nil {
			return nil, fmt.Errorf("inventory: deduct lot %s: %w", lot.label, err)
		}
		if ct.RowsAffected() == 0 {
			return nil, fmt.Errorf("inventory: lot %s changed underneath: %w", lot.label, ErrInsufficientStock)
		}
		lines = append(lines, MovementLine{LotID: lot.id, LotLabel: lot.label, Taken: take})
		left -= take
	}
	if left > 0 {
		// Rolls back via the deferred Rollback: no partial deduction survives.
		return nil, fmt.Errorf("inventory: sku %s short by %d: %w", sku, left, ErrInsufficientStock)
	}

	detail, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("inventory: marshal movement: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO inventory_movements (id, sku, quantity, trace_tag, detail)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), sku, quantity, traceTag, detail); err != nil {
		return nil, fmt.Errorf("inventory: insert movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("inventory: commit: %w", err)
	}
	d.logger.Info("stock depleted", "sku", sku, "quantity", quantity, "lots", len(lines), "trace", traceTag)
	return lines, nil
}
