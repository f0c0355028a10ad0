package order_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	apporder "github.com/pharmakart/pharmakart/internal/application/order"
	dommedicine "github.com/pharmakart/pharmakart/internal/domain/medicine"
	domorder "github.com/pharmakart/pharmakart/internal/domain/order"
	domuser "github.com/pharmakart/pharmakart/internal/domain/user"
	"github.com/pharmakart/pharmakart/internal/infrastructure/id"
	"github.com/pharmakart/pharmakart/internal/infrastructure/memory"
)

type fixture struct {
	orders    *memory.OrderRepository
	medicines *memory.MedicineRepository
	users     *memory.UserDirectory
	service   *apporder.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orders:    memory.NewOrderRepository(),
		medicines: memory.NewMedicineRepository(),
		users:     memory.NewUserDirectory(),
	}
	f.service = apporder.NewService(f.orders, f.medicines, f.users, id.NewUUIDGenerator())

	f.users.Add(&domuser.User{ID: "usr-1", Email: "asha@example.com", Name: "Asha"})
	return f
}

func (f *fixture) seedMedicine(t *testing.T, id, name, price string, stock int) {
	t.Helper()
	p, err := decimal.NewFromString(price)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.medicines.Save(context.Background(), &dommedicine.Medicine{
		ID: id, Name: name, Price: p, Stock: stock,
	}); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	m, err := f.medicines.FindByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return m.Stock
}

func TestCreateSnapshotsPricesAndComputesTotal(t *testing.T) {
	f := newFixture(t)
	f.seedMedicine(t, "med-1", "Paracetamol 500mg", "25.50", 10)
	f.seedMedicine(t, "med-2", "Cetirizine 10mg", "0.10", 10)

	view, err := f.service.Create(context.Background(), apporder.CreateOrderInput{
		RequestorEmail: "asha@example.com",
		Items: []apporder.ItemInput{
			{MedicineID: "med-1", Quantity: 2},
			{MedicineID: "med-2", Quantity: 3},
		},
		ShippingAddress: "12 MG Road",
		PaymentMethod:   "razorpay",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// 2*25.50 + 3*0.10 = 51.30 exactly
	want, _ := decimal.NewFromString("51.30")
	if !view.TotalAmount.Equal(want) {
		t.Fatalf("total = %s, want %s", view.TotalAmount, want)
	}
	if view.Status != domorder.StatusPending {
		t.Fatalf("status = %s, want PENDING", view.Status)
	}
	if view.UserID != "usr-1" {
		t.Fatalf("user id = %s, want usr-1", view.UserID)
	}
	if got := view.Items[0].MedicineName; got != "Paracetamol 500mg" {
		t.Fatalf("snapshotted name = %q", got)
	}

	if got := f.stock(t, "med-1"); got != 8 {
		t.Fatalf("med-1 stock = %d, want 8", got)
	}
	if got := f.stock(t, "med-2"); got != 7 {
		t.Fatalf("med-2 stock = %d, want 7", got)
	}

	stored, err := f.orders.FindByID(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("order not persisted: %v", err)
	}
	if !stored.TotalAmount.Equal(want) {
		t.Fatalf("persisted total = %s", stored.TotalAmount)
	}
}

func TestCreateIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.seedMedicine(t, "med-1", "Amoxicillin 250mg", "80.00", 5)
	f.seedMedicine(t, "med-2", "Ibuprofen 400mg", "30.00", 1)

	_, err := f.service.Create(context.Background(), apporder.CreateOrderInput{
		RequestorEmail: "asha@example.com",
		Items: []apporder.ItemInput{
			{MedicineID: "med-1", Quantity: 5},
			{MedicineID: "med-2", Quantity: 2},
		},
	})
	if !errors.Is(err, dommedicine.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if !strings.Contains(err.Error(), "Ibuprofen 400mg") {
		t.Fatalf("error does not name the short item: %v", err)
	}

	if got := f.stock(t, "med-1"); got != 5 {
		t.Fatalf("med-1 stock = %d, want 5 after rollback", got)
	}
	if got := f.stock(t, "med-2"); got != 1 {
		t.Fatalf("med-2 stock = %d, want 1", got)
	}

	orders, err := f.orders.FindAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 0 {
		t.Fatalf("persisted %d orders, want 0", len(orders))
	}
}

func TestCreateUnknownMedicineRollsBackEarlierLines(t *testing.T) {
	f := newFixture(t)
	f.seedMedicine(t, "med-1", "Paracetamol 500mg", "25.50", 10)

	_, err := f.service.Create(context.Background(), apporder.CreateOrderInput{
		RequestorEmail: "asha@example.com",
		Items: []apporder.ItemInput{
			{MedicineID: "med-1", Quantity: 4},
			{MedicineID: "missing", Quantity: 1},
		},
	})
	if !errors.Is(err, dommedicine.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if got := f.stock(t, "med-1"); got != 10 {
		t.Fatalf("med-1 stock = %d, want 10 after rollback", got)
	}
}

func TestCreateUnknownRequestor(t *testing.T) {
	f := newFixture(t)
	f.seedMedicine(t, "med-1", "Paracetamol 500mg", "25.50", 10)

	_, err := f.service.Create(context.Background(), apporder.CreateOrderInput{
		RequestorEmail: "nobody@example.com",
		Items:          []apporder.ItemInput{{MedicineID: "med-1", Quantity: 1}},
	})
	if !errors.Is(err, domuser.ErrNotFound) {
		t.Fatalf("err = %v, want user.ErrNotFound", err)
	}
	if got := f.stock(t, "med-1"); got != 10 {
		t.Fatalf("stock touched before identity resolution: %d", got)
	}
}

// failingOrderRepo rejects Save so the compensation path can be observed.
type failingOrderRepo struct {
	domorder.Repository
}

func (failingOrderRepo) Save(context.Context, *domorder.Order) error {
	return errors.New("disk full")
}

func TestCreateRestocksWhenSaveFails(t *testing.T) {
	f := newFixture(t)
	f.seedMedicine(t, "med-1", "Paracetamol 500mg", "25.50", 10)

	svc := apporder.NewService(failingOrderRepo{f.orders}, f.medicines, f.users, id.NewUUIDGenerator())
	_, err := svc.Create(context.Background(), apporder.CreateOrderInput{
		RequestorEmail: "asha@example.com",
		Items:          []apporder.ItemInput{{MedicineID: "med-1", Quantity: 3}},
	})
	if err == nil {
		t.Fatal("expected save failure")
	}
	if got := f.stock(t, "med-1"); got != 10 {
		t.Fatalf("stock = %d, want 10 after rollback", got)
	}
}

func TestStockExhaustion(t *testing.T) {
	f := newFixture(t)
	f.seedMedicine(t, "med-1", "Paracetamol 500mg", "25.50", 5)

	if _, err := f.service.Create(context.Background(), apporder.CreateOrderInput{
		RequestorEmail: "asha@example.com",
		Items:          []apporder.ItemInput{{MedicineID: "med-1", Quantity: 5}},
	}); err != nil {
		t.Fatalf("order for full stock: %v", err)
	}
	if got := f.stock(t, "med-1"); got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}

	_, err := f.service.Create(context.Background(), apporder.CreateOrderInput{
		RequestorEmail: "asha@example.com",
		Items:          []apporder.ItemInput{{MedicineID: "med-1", Quantity: 1}},
	})
	if !errors.Is(err, dommedicine.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	f := newFixture(t)
	f.seedMedicine(t, "med-1", "Paracetamol 500mg", "25.50", 5)

	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Create(context.Background(), apporder.CreateOrderInput{
				RequestorEmail: "asha@example.com",
				Items:          []apporder.ItemInput{{MedicineID: "med-1", Quantity: 1}},
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, dommedicine.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Fatalf("succeeded = %d, want 5", succeeded)
	}
	if got := f.stock(t, "med-1"); got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}
}

func TestListByUserUnknownEmailReturnsEmpty(t *testing.T) {
	f := newFixture(t)

	views, err := f.service.ListByUser(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("views = %d, want 0", len(views))
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	f.seedMedicine(t, "med-1", "Paracetamol 500mg", "25.50", 10)

	view, err := f.service.Create(context.Background(), apporder.CreateOrderInput{
		RequestorEmail: "asha@example.com",
		Items:          []apporder.ItemInput{{MedicineID: "med-1", Quantity: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := f.service.UpdateStatus(context.Background(), view.ID, "SHIPPED")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != domorder.StatusShipped {
		t.Fatalf("status = %s, want SHIPPED", updated.Status)
	}

	if _, err := f.service.UpdateStatus(context.Background(), view.ID, "PENDING"); !errors.Is(err, domorder.ErrPendingReentry) {
		t.Fatalf("err = %v, want ErrPendingReentry", err)
	}
	if _, err := f.service.UpdateStatus(context.Background(), view.ID, "LOST"); !errors.Is(err, domorder.ErrUnknownStatus) {
		t.Fatalf("err = %v, want ErrUnknownStatus", err)
	}
}
