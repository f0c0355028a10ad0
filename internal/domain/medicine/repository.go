package medicine

import "context"

// Repository is the inventory ledger contract the order workflow depends on.
//
// DecrementStock must be atomic with respect to concurrent decrements on the
// same medicine: the check-and-decrement pair serializes per item so the sum
// of successful decrements never exceeds the available stock. It returns
// ErrInsufficientStock when the remaining stock does not cover quantity and
// ErrNotFound when the medicine does not exist.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Medicine, error)
	Save(ctx context.Context, m *Medicine) error
	DecrementStock(ctx context.Context, id string, quantity int) error
	IncrementStock(ctx context.Context, id string, quantity int) error
}
