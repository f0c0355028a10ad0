package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/pharmakart/pharmakart/internal/domain/medicine"
)

type MedicineRepository struct {
	db *sql.DB
}

func NewMedicineRepository(db *sql.DB) *MedicineRepository {
	return &MedicineRepository{db: db}
}

func (r *MedicineRepository) FindByID(ctx context.Context, id string) (*domain.Medicine, error) {
	var m domain.Medicine
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, brand, price, stock, description, category, created_by
		FROM medicines WHERE id = ?`, id,
	).Scan(&m.ID, &m.Name, &m.Brand, &m.Price, &m.Stock, &m.Description, &m.Category, &m.CreatedBy)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query medicine: %w", err)
	}
	return &m, nil
}

func (r *MedicineRepository) Save(ctx context.Context, m *domain.Medicine) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medicines (id, name, brand, price, stock, description, category, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name), brand = VALUES(brand), price = VALUES(price),
			stock = VALUES(stock), description = VALUES(description),
			category = VALUES(category)`,
		m.ID, m.Name, m.Brand, m.Price, m.Stock, m.Description, m.Category, m.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("save medicine: %w", err)
	}
	return nil
}

// DecrementStock runs a conditional update so the check and the decrement
// are a single statement; the database serializes concurrent callers on the
// row. Zero rows affected means either missing row or not enough stock.
func (r *MedicineRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE medicines
		SET stock = stock - ?
		WHERE id = ? AND stock >= ?`,
		quantity, id, quantity,
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM medicines WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check medicine: %w", err)
	}
	return domain.ErrInsufficientStock
}

func (r *MedicineRepository) IncrementStock(ctx context.Context, id string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE medicines SET stock = stock + ? WHERE id = ?`,
		quantity, id,
	)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
