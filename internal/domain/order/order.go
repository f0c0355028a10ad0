package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrNoItems         = errors.New("order: at least one item is required")
	ErrInvalidQuantity = errors.New("order: quantity must be greater than zero")
	ErrUnknownStatus   = errors.New("order: unknown status")
	ErrPendingReentry  = errors.New("order: cannot return to pending")
)

type Status string

const (
	StatusPending       Status = "PENDING"
	StatusProcessing    Status = "PROCESSING"
	StatusShipped       Status = "SHIPPED"
	StatusDelivered     Status = "DELIVERED"
	StatusCancelled     Status = "CANCELLED"
	StatusCompleted     Status = "COMPLETED"
	StatusPaymentFailed Status = "PAYMENT_FAILED"
)

// ParseStatus maps a client-supplied label to a known status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered,
		StatusCancelled, StatusCompleted, StatusPaymentFailed:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Item is a line snapshotted at order creation. Name and unit price are
// copied from the catalog at decrement time and never change afterwards.
type Item struct {
	MedicineID   string
	MedicineName string
	Quantity     int
	UnitPrice    decimal.Decimal
}

// Subtotal is quantity times the snapshotted unit price, decimal-exact.
func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID              string
	UserID          string
	Items           []Item
	TotalAmount     decimal.Decimal
	Status          Status
	OrderDate       time.Time
	ShippingAddress string
	PaymentMethod   string
}

// New builds a pending order from snapshotted line items. The total is the
// exact decimal sum of the line subtotals.
func New(id, userID string, items []Item, shippingAddress, paymentMethod string) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	total := decimal.Zero
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		total = total.Add(it.Subtotal())
	}

	return &Order{
		ID:              id,
		UserID:          userID,
		Items:           items,
		TotalAmount:     total,
		Status:          StatusPending,
		OrderDate:       time.Now().UTC(),
		ShippingAddress: shippingAddress,
		PaymentMethod:   paymentMethod,
	}, nil
}

// SetStatus overwrites the status. The only restriction is that an order
// never returns to PENDING once it has left it; shipment-tracking updates
// are otherwise unchecked.
func (o *Order) SetStatus(s Status) error {
	if s == StatusPending && o.Status != StatusPending {
		return ErrPendingReentry
	}
	o.Status = s
	return nil
}

func (o *Order) MarkCompleted()     { o.Status = StatusCompleted }
func (o *Order) MarkPaymentFailed() { o.Status = StatusPaymentFailed }
func (o *Order) MarkProcessing()    { o.Status = StatusProcessing }

// Clone returns a deep copy so repositories never hand out shared state.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = make([]Item, len(o.Items))
	copy(clone.Items, o.Items)
	return &clone
}
