package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	domain "github.com/pharmakart/pharmakart/internal/domain/medicine"
)

func getMySQLDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("MYSQL_DSN not set; skipping mysql repository tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := Open(ctx, dsn)
	if err != nil {
		t.Skipf("mysql not reachable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedMedicine(t *testing.T, db *sql.DB, id string, stock int) {
	t.Helper()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO medicines (id, name, brand, price, stock, description, category, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE stock = VALUES(stock)`,
		id, "Paracetamol 500mg", "Calpol", "25.50", stock, "", "analgesic", "seed")
	if err != nil {
		t.Fatalf("seed medicine: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), `DELETE FROM medicines WHERE id = ?`, id)
	})
}

func TestDecrementStockConditional(t *testing.T) {
	db := getMySQLDB(t)
	repo := NewMedicineRepository(db)
	ctx := context.Background()

	id := fmt.Sprintf("med-dec-%d", os.Getpid())
	seedMedicine(t, db, id, 3)

	if err := repo.DecrementStock(ctx, id, 2); err != nil {
		t.Fatalf("decrement 2 of 3: %v", err)
	}
	if err := repo.DecrementStock(ctx, id, 2); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	m, err := repo.FindByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if m.Stock != 1 {
		t.Fatalf("stock = %d, want 1", m.Stock)
	}
}

func TestDecrementStockUnknownMedicine(t *testing.T) {
	db := getMySQLDB(t)
	repo := NewMedicineRepository(db)

	err := repo.DecrementStock(context.Background(), "med-missing", 1)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestIncrementStockRestores(t *testing.T) {
	db := getMySQLDB(t)
	repo := NewMedicineRepository(db)
	ctx := context.Background()

	id := fmt.Sprintf("med-inc-%d", os.Getpid())
	seedMedicine(t, db, id, 1)

	if err := repo.DecrementStock(ctx, id, 1); err != nil {
		t.Fatal(err)
	}
	if err := repo.IncrementStock(ctx, id, 1); err != nil {
		t.Fatal(err)
	}

	m, err := repo.FindByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if m.Stock != 1 {
		t.Fatalf("stock = %d, want 1", m.Stock)
	}
}
