package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/pharmakart/pharmakart/internal/domain/payment"
)

type PaymentRepository struct {
	mu             sync.RWMutex
	payments       map[string]*domain.Payment
	byGatewayOrder map[string]string
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		payments:       make(map[string]*domain.Payment),
		byGatewayOrder: make(map[string]string),
	}
}

func (r *PaymentRepository) Save(ctx context.Context, p *domain.Payment) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("payment repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byGatewayOrder[p.GatewayOrderID]; ok && existing != p.ID {
		return domain.ErrConflict
	}
	r.payments[p.ID] = p.Clone()
	if p.GatewayOrderID != "" {
		r.byGatewayOrder[p.GatewayOrderID] = p.ID
	}
	return nil
}

func (r *PaymentRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Payment, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byGatewayOrder[gatewayOrderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p, ok := r.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *PaymentRepository) FindFirstByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var first *domain.Payment
	for _, p := range r.payments {
		if p.OrderID != orderID {
			continue
		}
		if first == nil || p.CreatedAt.Before(first.CreatedAt) {
			first = p
		}
	}
	if first == nil {
		return nil, domain.ErrNotFound
	}
	return first.Clone(), nil
}

func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("payment repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.payments[p.ID]; !exists {
		return domain.ErrNotFound
	}
	r.payments[p.ID] = p.Clone()
	if p.GatewayOrderID != "" {
		r.byGatewayOrder[p.GatewayOrderID] = p.ID
	}
	return nil
}
