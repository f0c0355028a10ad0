package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("payment: not found")
	ErrConflict          = errors.New("payment: gateway order already recorded")
	ErrInvalidTransition = errors.New("payment: invalid status transition")
)

// ErrorCodeInvalidSignature is recorded on a payment whose callback
// signature failed verification.
const ErrorCodeInvalidSignature = "INVALID_SIGNATURE"

type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// statusRank orders statuses along the lifecycle. Transitions only move
// forward; COMPLETED and FAILED are terminal.
var statusRank = map[Status]int{
	StatusCreated:    0,
	StatusProcessing: 1,
	StatusCompleted:  2,
	StatusFailed:     2,
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Payment ties an internal order to a gateway order. GatewayOrderID is the
// unique reconciliation key; GatewayPaymentID and Signature stay empty until
// the client submits the checkout callback.
type Payment struct {
	ID               string
	OrderID          string
	UserID           string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	Amount           decimal.Decimal
	Currency         string
	Status           Status
	PaymentMethod    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Receipt          string
	Notes            string
	ErrorCode        string
	ErrorDescription string
}

// New records a freshly created gateway order in CREATED state.
func New(id, orderID, userID, gatewayOrderID string, amount decimal.Decimal, currency, receipt, notes string) *Payment {
	now := time.Now().UTC()
	return &Payment{
		ID:             id,
		OrderID:        orderID,
		UserID:         userID,
		GatewayOrderID: gatewayOrderID,
		Amount:         amount,
		Currency:       currency,
		Status:         StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
		Receipt:        receipt,
		Notes:          notes,
	}
}

// TransitionTo enforces monotonic progress toward a terminal status.
func (p *Payment) TransitionTo(next Status) error {
	if p.Status.Terminal() && next != p.Status {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, p.Status)
	}
	if statusRank[next] < statusRank[p.Status] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, next)
	}
	p.Status = next
	p.touch()
	return nil
}

func (p *Payment) MarkCompleted() error {
	if err := p.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	p.ErrorCode = ""
	p.ErrorDescription = ""
	return nil
}

func (p *Payment) MarkProcessing() error {
	return p.TransitionTo(StatusProcessing)
}

func (p *Payment) MarkFailed(code, description string) error {
	if err := p.TransitionTo(StatusFailed); err != nil {
		return err
	}
	p.ErrorCode = code
	p.ErrorDescription = description
	return nil
}

func (p *Payment) touch() {
	p.UpdatedAt = time.Now().UTC()
}

// Clone returns a copy so repositories never hand out shared state.
func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
