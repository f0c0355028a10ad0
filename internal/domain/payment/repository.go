package payment

import "context"

// Repository stores payments keyed by internal id. At most one payment
// exists per gateway order id; Save returns ErrConflict on a duplicate.
type Repository interface {
	Save(ctx context.Context, p *Payment) error
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Payment, error)
	FindFirstByOrderID(ctx context.Context, orderID string) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
}
