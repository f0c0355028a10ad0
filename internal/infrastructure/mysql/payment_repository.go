package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	domain "github.com/pharmakart/pharmakart/internal/domain/payment"
)

const mysqlErrDuplicateEntry = 1062

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Save(ctx context.Context, p *domain.Payment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (
			id, order_id, user_id, gateway_order_id, gateway_payment_id, signature,
			amount, currency, status, payment_method, created_at, updated_at,
			receipt, notes, error_code, error_description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OrderID, p.UserID, p.GatewayOrderID, p.GatewayPaymentID, p.Signature,
		p.Amount, p.Currency, p.Status, p.PaymentMethod, p.CreatedAt, p.UpdatedAt,
		p.Receipt, p.Notes, p.ErrorCode, p.ErrorDescription,
	)
	if err != nil {
		var me *mysql.MySQLError
		// gateway_order_id carries a unique index.
		if errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Payment, error) {
	return r.queryOne(ctx, `WHERE gateway_order_id = ?`, gatewayOrderID)
}

func (r *PaymentRepository) FindFirstByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	return r.queryOne(ctx, `WHERE order_id = ? ORDER BY created_at LIMIT 1`, orderID)
}

func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET user_id = ?, gateway_payment_id = ?, signature = ?, status = ?,
			payment_method = ?, updated_at = ?, error_code = ?, error_description = ?
		WHERE id = ?`,
		p.UserID, p.GatewayPaymentID, p.Signature, p.Status,
		p.PaymentMethod, p.UpdatedAt, p.ErrorCode, p.ErrorDescription, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		var exists int
		err = r.db.QueryRowContext(ctx, `SELECT 1 FROM payments WHERE id = ?`, p.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check payment: %w", err)
		}
	}
	return nil
}

func (r *PaymentRepository) queryOne(ctx context.Context, where string, args ...any) (*domain.Payment, error) {
	var p domain.Payment
	query := `
		SELECT id, order_id, user_id, gateway_order_id, gateway_payment_id, signature,
			amount, currency, status, payment_method, created_at, updated_at,
			receipt, notes, error_code, error_description
		FROM payments ` + where

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&p.ID, &p.OrderID, &p.UserID, &p.GatewayOrderID, &p.GatewayPaymentID, &p.Signature,
		&p.Amount, &p.Currency, &p.Status, &p.PaymentMethod, &p.CreatedAt, &p.UpdatedAt,
		&p.Receipt, &p.Notes, &p.ErrorCode, &p.ErrorDescription,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment: %w", err)
	}
	return &p, nil
}
