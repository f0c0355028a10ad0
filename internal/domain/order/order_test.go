package order

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func TestNewComputesExactTotal(t *testing.T) {
	items := []Item{
		{MedicineID: "med-1", MedicineName: "Paracetamol", Quantity: 3, UnitPrice: mustDecimal(t, "10.10")},
		{MedicineID: "med-2", MedicineName: "Cetirizine", Quantity: 2, UnitPrice: mustDecimal(t, "0.05")},
	}

	o, err := New("ord-1", "usr-1", items, "12 MG Road", "razorpay")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// 3*10.10 + 2*0.05 = 30.40, not 30.400000000000002
	want := mustDecimal(t, "30.40")
	if !o.TotalAmount.Equal(want) {
		t.Fatalf("total = %s, want %s", o.TotalAmount, want)
	}
	if o.Status != StatusPending {
		t.Fatalf("status = %s, want %s", o.Status, StatusPending)
	}
}

func TestNewRejectsEmptyAndNonPositive(t *testing.T) {
	if _, err := New("ord-1", "usr-1", nil, "", ""); !errors.Is(err, ErrNoItems) {
		t.Fatalf("err = %v, want ErrNoItems", err)
	}

	items := []Item{{MedicineID: "med-1", Quantity: 0, UnitPrice: decimal.NewFromInt(5)}}
	if _, err := New("ord-1", "usr-1", items, "", ""); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("err = %v, want ErrInvalidQuantity", err)
	}
}

func TestSetStatusNeverReturnsToPending(t *testing.T) {
	o := &Order{Status: StatusPending}

	if err := o.SetStatus(StatusShipped); err != nil {
		t.Fatalf("PENDING -> SHIPPED: %v", err)
	}
	if err := o.SetStatus(StatusPending); !errors.Is(err, ErrPendingReentry) {
		t.Fatalf("SHIPPED -> PENDING err = %v, want ErrPendingReentry", err)
	}

	// Shipment tracking may otherwise move freely, including backwards.
	if err := o.SetStatus(StatusDelivered); err != nil {
		t.Fatalf("SHIPPED -> DELIVERED: %v", err)
	}
	if err := o.SetStatus(StatusCancelled); err != nil {
		t.Fatalf("DELIVERED -> CANCELLED: %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("SHIPPED"); err != nil {
		t.Fatalf("SHIPPED: %v", err)
	}
	if _, err := ParseStatus("shipped"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("lowercase err = %v, want ErrUnknownStatus", err)
	}
	if _, err := ParseStatus("ON_HOLD"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("unknown err = %v, want ErrUnknownStatus", err)
	}
}
