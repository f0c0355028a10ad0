package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/pharmakart/pharmakart/internal/domain/payment"
)

func TestPaymentRepositoryRejectsDuplicateGatewayOrder(t *testing.T) {
	repo := NewPaymentRepository()
	ctx := context.Background()

	first := domain.New("pay-1", "ord-1", "usr-1", "order_gw1", decimal.NewFromInt(100), "INR", "", "")
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}

	dup := domain.New("pay-2", "ord-2", "usr-1", "order_gw1", decimal.NewFromInt(100), "INR", "", "")
	if err := repo.Save(ctx, dup); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	// Re-saving the same payment is not a conflict.
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("re-save: %v", err)
	}
}

func TestPaymentRepositoryFindFirstByOrderID(t *testing.T) {
	repo := NewPaymentRepository()
	ctx := context.Background()

	older := domain.New("pay-1", "ord-1", "usr-1", "order_gw1", decimal.NewFromInt(100), "INR", "", "")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := domain.New("pay-2", "ord-1", "usr-1", "order_gw2", decimal.NewFromInt(100), "INR", "", "")

	if err := repo.Save(ctx, newer); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, older); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FindFirstByOrderID(ctx, "ord-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "pay-1" {
		t.Fatalf("first payment = %s, want pay-1", got.ID)
	}

	if _, err := repo.FindFirstByOrderID(ctx, "ord-none"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPaymentRepositoryClonesOnReadAndWrite(t *testing.T) {
	repo := NewPaymentRepository()
	ctx := context.Background()

	p := domain.New("pay-1", "ord-1", "usr-1", "order_gw1", decimal.NewFromInt(100), "INR", "", "")
	if err := repo.Save(ctx, p); err != nil {
		t.Fatal(err)
	}

	p.Status = domain.StatusFailed

	got, err := repo.FindByGatewayOrderID(ctx, "order_gw1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusCreated {
		t.Fatalf("stored payment mutated through caller's pointer: %s", got.Status)
	}
}
