package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domorder "github.com/pharmakart/pharmakart/internal/domain/order"
	domain "github.com/pharmakart/pharmakart/internal/domain/payment"
	domuser "github.com/pharmakart/pharmakart/internal/domain/user"
	"github.com/pharmakart/pharmakart/internal/infrastructure/id"
	"github.com/pharmakart/pharmakart/internal/pkg/logging"
)

var (
	// ErrAmountMismatch rejects an intent whose amount differs from the
	// order total.
	ErrAmountMismatch = errors.New("payment: amount does not match order total")
	// ErrAmountNotRepresentable rejects amounts with sub-minor-unit
	// precision (e.g. fractional paise).
	ErrAmountNotRepresentable = errors.New("payment: amount not representable in minor units")
	// ErrGateway wraps a failed gateway call during intent creation.
	ErrGateway = errors.New("payment: gateway request failed")
)

const defaultCurrency = "INR"

var minorUnitFactor = decimal.NewFromInt(100)

// Service is the payment workflow: it creates gateway orders bound to
// internal orders and reconciles client-submitted checkout callbacks
// against gateway truth, keeping payment and order status consistent.
type Service struct {
	payments domain.Repository
	orders   domorder.Repository
	users    domuser.Directory
	gateway  Gateway
	verifier SignatureVerifier
	idGen    id.Generator

	// keyID is the gateway's public identifier, returned to clients so
	// they can open checkout.
	keyID string

	// reconciliations counts ownership reassignments; labelled by
	// operation.
	reconciliations *prometheus.CounterVec
}

func NewService(
	payments domain.Repository,
	orders domorder.Repository,
	users domuser.Directory,
	gateway Gateway,
	verifier SignatureVerifier,
	idGen id.Generator,
	keyID string,
	reconciliations *prometheus.CounterVec,
) *Service {
	return &Service{
		payments:        payments,
		orders:          orders,
		users:           users,
		gateway:         gateway,
		verifier:        verifier,
		idGen:           idGen,
		keyID:           keyID,
		reconciliations: reconciliations,
	}
}

type CreateIntentInput struct {
	OrderID        string
	Amount         decimal.Decimal
	Currency       string
	Receipt        string
	Notes          string
	RequestorEmail string
}

type IntentView struct {
	GatewayOrderID string
	Amount         decimal.Decimal
	Currency       string
	Receipt        string
	Status         string
	KeyID          string
}

type View struct {
	PaymentID        string
	OrderID          string
	GatewayOrderID   string
	GatewayPaymentID string
	Amount           decimal.Decimal
	Status           domain.Status
	PaymentMethod    string
	ErrorCode        string
	ErrorDescription string
}

// CreateIntent creates a gateway order for an internal order and records
// the payment in CREATED state.
func (s *Service) CreateIntent(ctx context.Context, in CreateIntentInput) (*IntentView, error) {
	logger := logging.FromContext(ctx).With(
		zap.String("component", "payment_service"),
		zap.String("order_id", in.OrderID),
	)

	requestor, err := s.users.FindByEmail(ctx, in.RequestorEmail)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}

	if !in.Amount.Equal(order.TotalAmount) {
		return nil, fmt.Errorf("%w: got %s, order total %s",
			ErrAmountMismatch, in.Amount.String(), order.TotalAmount.String())
	}

	// A mismatched owner is reassigned to the caller instead of rejected.
	// Logged and counted; see DESIGN.md before changing this policy.
	if order.UserID != requestor.ID {
		logger.Warn("ownership_reconciled",
			zap.String("event", "ownership_reconciled"),
			zap.String("operation", "create_intent"),
			zap.String("stored_user_id", order.UserID),
			zap.String("requestor_user_id", requestor.ID),
		)
		s.countReconciliation("create_intent")
		order.UserID = requestor.ID
		if err := s.orders.Update(ctx, order); err != nil {
			return nil, fmt.Errorf("reassign order owner: %w", err)
		}
	}

	currency := in.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	minor, err := toMinorUnits(in.Amount)
	if err != nil {
		return nil, err
	}

	gatewayOrderID, err := s.gateway.CreateOrder(ctx, GatewayOrderRequest{
		AmountMinorUnits: minor,
		Currency:         currency,
		Receipt:          in.Receipt,
		Notes:            in.Notes,
	})
	if err != nil {
		logger.Error("gateway_order_create_failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	entity := domain.New(s.idGen.NewID(), in.OrderID, requestor.ID, gatewayOrderID,
		in.Amount, currency, in.Receipt, in.Notes)
	if err := s.payments.Save(ctx, entity); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}

	logger.Info("payment_intent_created",
		zap.String("payment_id", entity.ID),
		zap.String("gateway_order_id", gatewayOrderID),
		zap.Int64("amount_minor_units", minor),
		zap.String("currency", currency),
	)

	return &IntentView{
		GatewayOrderID: gatewayOrderID,
		Amount:         in.Amount,
		Currency:       currency,
		Receipt:        in.Receipt,
		Status:         "created",
		KeyID:          s.keyID,
	}, nil
}

type VerifyInput struct {
	OrderID          string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	RequestorEmail   string
}

// Verify reconciles a client-submitted checkout callback. The payment is
// resolved by gateway order id, never by the client-supplied order id
// alone. The signature is checked first; the gateway's remote status is
// fetched best effort, falling back to signature-only inference when the
// gateway is unreachable.
func (s *Service) Verify(ctx context.Context, in VerifyInput) (*View, error) {
	logger := logging.FromContext(ctx).With(
		zap.String("component", "payment_service"),
		zap.String("gateway_order_id", in.GatewayOrderID),
	)

	requestor, err := s.users.FindByEmail(ctx, in.RequestorEmail)
	if err != nil {
		return nil, err
	}

	entity, err := s.payments.FindByGatewayOrderID(ctx, in.GatewayOrderID)
	if err != nil {
		return nil, err
	}

	// Replays of an already settled verification are answered from the
	// stored record; terminal statuses never move again.
	if entity.Status.Terminal() {
		logger.Info("payment_verify_replay",
			zap.String("payment_id", entity.ID),
			zap.String("status", string(entity.Status)),
		)
		return toView(entity), nil
	}

	if entity.UserID != requestor.ID {
		logger.Warn("ownership_reconciled",
			zap.String("event", "ownership_reconciled"),
			zap.String("operation", "verify"),
			zap.String("stored_user_id", entity.UserID),
			zap.String("requestor_user_id", requestor.ID),
		)
		s.countReconciliation("verify")
		entity.UserID = requestor.ID
	}

	signatureValid := s.verifier.Verify(in.GatewayOrderID, in.GatewayPaymentID, in.Signature)

	remoteStatus, fetchErr := s.gateway.FetchPayment(ctx, in.GatewayPaymentID)
	if fetchErr == nil {
		switch {
		case !signatureValid:
			err = entity.MarkFailed(domain.ErrorCodeInvalidSignature, "payment signature verification failed")
		case remoteStatus == GatewayStatusCaptured:
			err = entity.MarkCompleted()
		default:
			err = entity.MarkProcessing()
		}
	} else {
		// Degraded-trust fallback: the gateway could not confirm, so the
		// signature alone decides.
		logger.Warn("gateway_fetch_unavailable",
			zap.String("gateway_payment_id", in.GatewayPaymentID),
			zap.Error(fetchErr),
		)
		if !signatureValid {
			err = entity.MarkFailed(domain.ErrorCodeInvalidSignature, "payment signature verification failed")
		} else {
			err = entity.MarkCompleted()
		}
	}
	if err != nil {
		return nil, err
	}

	entity.GatewayPaymentID = in.GatewayPaymentID
	entity.Signature = in.Signature
	if err := s.payments.Update(ctx, entity); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	if err := s.reconcileOrder(ctx, entity); err != nil {
		return nil, err
	}

	logger.Info("payment_verified",
		zap.String("payment_id", entity.ID),
		zap.String("status", string(entity.Status)),
		zap.Bool("signature_valid", signatureValid),
		zap.Bool("gateway_confirmed", fetchErr == nil),
	)
	return toView(entity), nil
}

// reconcileOrder aligns the order's status with the payment outcome. The
// order is loaded by the payment's own order reference.
func (s *Service) reconcileOrder(ctx context.Context, p *domain.Payment) error {
	order, err := s.orders.FindByID(ctx, p.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", p.OrderID, err)
	}

	switch p.Status {
	case domain.StatusCompleted:
		order.MarkCompleted()
	case domain.StatusFailed:
		order.MarkPaymentFailed()
	default:
		order.MarkProcessing()
	}

	if err := s.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("update order %s: %w", order.ID, err)
	}
	return nil
}

// GetByOrder returns the first payment recorded for an order. A mismatched
// requestor is logged but does not block the read.
func (s *Service) GetByOrder(ctx context.Context, orderID, requestorEmail string) (*View, error) {
	entity, err := s.payments.FindFirstByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	requestor, err := s.users.FindByEmail(ctx, requestorEmail)
	if err == nil && requestor.ID != entity.UserID {
		logging.FromContext(ctx).Warn("payment_read_identity_mismatch",
			zap.String("payment_id", entity.ID),
			zap.String("stored_user_id", entity.UserID),
			zap.String("requestor_user_id", requestor.ID),
		)
	}

	return toView(entity), nil
}

func (s *Service) countReconciliation(operation string) {
	if s.reconciliations != nil {
		s.reconciliations.WithLabelValues(operation).Inc()
	}
}

// toMinorUnits converts a decimal amount to the gateway's integer minor
// units (paise for INR) without rounding.
func toMinorUnits(amount decimal.Decimal) (int64, error) {
	minor := amount.Mul(minorUnitFactor)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: %s", ErrAmountNotRepresentable, amount.String())
	}
	return minor.IntPart(), nil
}

func toView(p *domain.Payment) *View {
	return &View{
		PaymentID:        p.ID,
		OrderID:          p.OrderID,
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		Amount:           p.Amount,
		Status:           p.Status,
		PaymentMethod:    p.PaymentMethod,
		ErrorCode:        p.ErrorCode,
		ErrorDescription: p.ErrorDescription,
	}
}
