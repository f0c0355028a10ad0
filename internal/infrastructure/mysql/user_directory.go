package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/pharmakart/pharmakart/internal/domain/user"
)

type UserDirectory struct {
	db *sql.DB
}

func NewUserDirectory(db *sql.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := d.db.QueryRowContext(ctx, `
		SELECT id, email, name FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.Name)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}
