package payment

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestPayment() *Payment {
	return New("pay-1", "ord-1", "usr-1", "order_gw1", decimal.NewFromInt(250), "INR", "rcpt-1", "")
}

func TestTransitionsMoveForwardOnly(t *testing.T) {
	p := newTestPayment()
	if p.Status != StatusCreated {
		t.Fatalf("status = %s, want %s", p.Status, StatusCreated)
	}

	if err := p.MarkProcessing(); err != nil {
		t.Fatalf("CREATED -> PROCESSING: %v", err)
	}
	if err := p.TransitionTo(StatusCreated); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("PROCESSING -> CREATED err = %v, want ErrInvalidTransition", err)
	}
	if err := p.MarkCompleted(); err != nil {
		t.Fatalf("PROCESSING -> COMPLETED: %v", err)
	}
}

func TestCreatedCanSettleDirectly(t *testing.T) {
	p := newTestPayment()
	if err := p.MarkCompleted(); err != nil {
		t.Fatalf("CREATED -> COMPLETED: %v", err)
	}
}

func TestTerminalStatusesAreFinal(t *testing.T) {
	completed := newTestPayment()
	if err := completed.MarkCompleted(); err != nil {
		t.Fatal(err)
	}
	if err := completed.MarkFailed("X", "y"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("COMPLETED -> FAILED err = %v, want ErrInvalidTransition", err)
	}

	failed := newTestPayment()
	if err := failed.MarkFailed(ErrorCodeInvalidSignature, "bad signature"); err != nil {
		t.Fatal(err)
	}
	if err := failed.MarkCompleted(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("FAILED -> COMPLETED err = %v, want ErrInvalidTransition", err)
	}

	// Re-asserting the same terminal status is a no-op, not an error.
	if err := failed.TransitionTo(StatusFailed); err != nil {
		t.Fatalf("FAILED -> FAILED: %v", err)
	}
}

func TestMarkFailedRecordsErrorDetail(t *testing.T) {
	p := newTestPayment()
	if err := p.MarkFailed(ErrorCodeInvalidSignature, "payment signature verification failed"); err != nil {
		t.Fatal(err)
	}
	if p.ErrorCode != ErrorCodeInvalidSignature {
		t.Fatalf("error code = %q", p.ErrorCode)
	}
	if p.ErrorDescription == "" {
		t.Fatal("error description not recorded")
	}
}
