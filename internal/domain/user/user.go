package user

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("user: not found")

// User is the identity record orders and payments are attributed to. The
// authentication layer presents callers by email; ownership is always stored
// by the resolved internal ID.
type User struct {
	ID    string
	Email string
	Name  string
}

// Directory resolves externally-presented identities to internal users.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
}
