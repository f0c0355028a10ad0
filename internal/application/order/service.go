package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	dommedicine "github.com/pharmakart/pharmakart/internal/domain/medicine"
	domain "github.com/pharmakart/pharmakart/internal/domain/order"
	domuser "github.com/pharmakart/pharmakart/internal/domain/user"
	"github.com/pharmakart/pharmakart/internal/infrastructure/id"
	"github.com/pharmakart/pharmakart/internal/pkg/logging"
)

// Service is the order workflow: it validates lines against the inventory
// ledger, decrements stock, snapshots prices and persists the order.
type Service struct {
	orders    domain.Repository
	medicines dommedicine.Repository
	users     domuser.Directory
	idGen     id.Generator
}

func NewService(orders domain.Repository, medicines dommedicine.Repository, users domuser.Directory, idGen id.Generator) *Service {
	return &Service{
		orders:    orders,
		medicines: medicines,
		users:     users,
		idGen:     idGen,
	}
}

type ItemInput struct {
	MedicineID string
	Quantity   int
}

type CreateOrderInput struct {
	RequestorEmail  string
	Items           []ItemInput
	ShippingAddress string
	PaymentMethod   string
}

type ItemView struct {
	MedicineID   string
	MedicineName string
	Quantity     int
	UnitPrice    decimal.Decimal
	Subtotal     decimal.Decimal
}

type View struct {
	ID              string
	UserID          string
	Items           []ItemView
	TotalAmount     decimal.Decimal
	Status          domain.Status
	OrderDate       string
	ShippingAddress string
	PaymentMethod   string
}

// Create places an order. The whole operation is all-or-nothing: when any
// line fails stock validation, decrements already applied within this
// request are reversed before the error surfaces.
func (s *Service) Create(ctx context.Context, in CreateOrderInput) (*View, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "order_service"))

	requestor, err := s.users.FindByEmail(ctx, in.RequestorEmail)
	if err != nil {
		if errors.Is(err, domuser.ErrNotFound) {
			logger.Warn("order_requestor_unresolved", zap.String("email", in.RequestorEmail))
		}
		return nil, err
	}

	if len(in.Items) == 0 {
		return nil, domain.ErrNoItems
	}

	items := make([]domain.Item, 0, len(in.Items))
	decremented := make([]ItemInput, 0, len(in.Items))
	for _, line := range in.Items {
		if line.Quantity <= 0 {
			s.compensate(ctx, logger, decremented)
			return nil, domain.ErrInvalidQuantity
		}

		med, err := s.medicines.FindByID(ctx, line.MedicineID)
		if err != nil {
			s.compensate(ctx, logger, decremented)
			return nil, fmt.Errorf("medicine %s: %w", line.MedicineID, err)
		}

		if err := s.medicines.DecrementStock(ctx, line.MedicineID, line.Quantity); err != nil {
			s.compensate(ctx, logger, decremented)
			if errors.Is(err, dommedicine.ErrInsufficientStock) {
				return nil, fmt.Errorf("%s: %w", med.Name, err)
			}
			return nil, fmt.Errorf("medicine %s: %w", line.MedicineID, err)
		}
		decremented = append(decremented, line)

		items = append(items, domain.Item{
			MedicineID:   med.ID,
			MedicineName: med.Name,
			Quantity:     line.Quantity,
			UnitPrice:    med.Price,
		})
	}

	entity, err := domain.New(s.idGen.NewID(), requestor.ID, items, in.ShippingAddress, in.PaymentMethod)
	if err != nil {
		s.compensate(ctx, logger, decremented)
		return nil, err
	}

	if err := s.orders.Save(ctx, entity); err != nil {
		s.compensate(ctx, logger, decremented)
		return nil, fmt.Errorf("save order: %w", err)
	}

	logger.Info("order_created",
		zap.String("order_id", entity.ID),
		zap.String("user_id", entity.UserID),
		zap.String("total", entity.TotalAmount.String()),
	)
	return toView(entity), nil
}

// compensate reverses stock decrements applied earlier in a failed request.
func (s *Service) compensate(ctx context.Context, logger *zap.Logger, applied []ItemInput) {
	for _, line := range applied {
		if err := s.medicines.IncrementStock(ctx, line.MedicineID, line.Quantity); err != nil {
			logger.Error("stock_rollback_failed",
				zap.String("medicine_id", line.MedicineID),
				zap.Int("quantity", line.Quantity),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) Get(ctx context.Context, orderID string) (*View, error) {
	entity, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toView(entity), nil
}

func (s *Service) List(ctx context.Context) ([]*View, error) {
	entities, err := s.orders.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return toViews(entities), nil
}

// ListByUser resolves the caller with the same identity mapping used at
// creation time. An unresolvable identity yields an empty result, not an
// error.
func (s *Service) ListByUser(ctx context.Context, email string) ([]*View, error) {
	requestor, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domuser.ErrNotFound) {
			logging.FromContext(ctx).Warn("order_list_user_unresolved", zap.String("email", email))
			return []*View{}, nil
		}
		return nil, err
	}

	entities, err := s.orders.FindByUserID(ctx, requestor.ID)
	if err != nil {
		return nil, err
	}
	return toViews(entities), nil
}

// UpdateStatus overwrites the order status for shipment tracking. The only
// rejected transitions are unknown labels and returns to PENDING.
func (s *Service) UpdateStatus(ctx context.Context, orderID, status string) (*View, error) {
	parsed, err := domain.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	entity, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := entity.SetStatus(parsed); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, entity); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order_status_updated",
		zap.String("order_id", orderID),
		zap.String("status", string(parsed)),
	)
	return toView(entity), nil
}

func toView(o *domain.Order) *View {
	items := make([]ItemView, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemView{
			MedicineID:   it.MedicineID,
			MedicineName: it.MedicineName,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			Subtotal:     it.Subtotal(),
		})
	}
	return &View{
		ID:              o.ID,
		UserID:          o.UserID,
		Items:           items,
		TotalAmount:     o.TotalAmount,
		Status:          o.Status,
		OrderDate:       o.OrderDate.Format(time.RFC3339),
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
	}
}

func toViews(orders []*domain.Order) []*View {
	views := make([]*View, 0, len(orders))
	for _, o := range orders {
		views = append(views, toView(o))
	}
	return views
}
