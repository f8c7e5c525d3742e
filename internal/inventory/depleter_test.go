package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/alemendez13/sistema-ATU-sub000/pkg/logging"
)

func TestDepleteConsumesOldestExpirationFirst(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	depleter := NewDepleter(mock, logging.Default())

	// Two lots: 2 units expiring 2025-01-10, 5 units expiring 2025-02-01.
	// Depleting 3 must leave lot 1 at 0 and lot 2 at 4.
	lot1 := uuid.New()
	lot2 := uuid.New()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectQuery("SELECT id, lot_label, remaining").
		WithArgs("X").
		WillReturnRows(pgxmock.NewRows([]string{"id", "lot_label", "remaining"}).
			AddRow(lot1, "L-2025-01", 2).
			AddRow(lot2, "L-2025-02", 5))
	mock.ExpectExec("UPDATE inventory_lots").
		WithArgs(2, lot1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE inventory_lots").
		WithArgs(1, lot2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO inventory_movements").
		WithArgs(pgxmock.AnyArg(), "X", 3, "ATU-2025-0001 / Ana Ruiz", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	lines, err := depleter.Deplete(context.Background(), "X", 3, "ATU-2025-0001 / Ana Ruiz")
	if err != nil {
		t.Fatalf("Deplete returned error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 movement lines, got %d", len(lines))
	}
	if lines[0].Taken != 2 || lines[0].LotID != lot1 {
		t.Errorf("first line should drain lot 1 fully: %+v", lines[0])
	}
	if lines[1].Taken != 1 || lines[1].LotID != lot2 {
		t.Errorf("second line should take 1 from lot 2: %+v", lines[1])
	}
	total := 0
	for _, line := range lines {
		total += line.Taken
	}
	if total != 3 {
		t.Errorf("per-lot deductions sum to %d, want 3", total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDepleteInsufficientStockRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	depleter := NewDepleter(mock, logging.Default())
	lot1 := uuid.New()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectQuery("SELECT id, lot_label, remaining").
		WithArgs("X").
		WillReturnRows(pgxmock.NewRows([]string{"id", "lot_label", "remaining"}).
			AddRow(lot1, "L-2025-01", 2))
	mock.ExpectExec("UPDATE inventory_lots").
		WithArgs(2, lot1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectRollback()

	_, err = depleter.Deplete(context.Background(), "X", 5, "trace")
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDepleteRejectsNonPositiveQuantity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	depleter := NewDepleter(mock, logging.Default())

	if _, err := depleter.Deplete(context.Background(), "X", 0, "trace"); err == nil {
		t.Fatal("expected error for zero quantity")
	}
}
