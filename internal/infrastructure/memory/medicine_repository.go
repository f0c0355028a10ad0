package memory

import (
	"context"
	"sync"

	domain "github.com/pharmakart/pharmakart/internal/domain/medicine"
)

// MedicineRepository keeps the catalog in memory. The mutex serializes
// check-and-decrement so concurrent orders cannot oversell an item.
type MedicineRepository struct {
	mu        sync.RWMutex
	medicines map[string]*domain.Medicine
}

func NewMedicineRepository() *MedicineRepository {
	return &MedicineRepository{medicines: make(map[string]*domain.Medicine)}
}

func (r *MedicineRepository) FindByID(ctx context.Context, id string) (*domain.Medicine, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.medicines[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneMedicine(m), nil
}

func (r *MedicineRepository) Save(ctx context.Context, m *domain.Medicine) error {
	_ = ctx
	if m == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.medicines[m.ID] = cloneMedicine(m)
	return nil
}

func (r *MedicineRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.medicines[id]
	if !ok {
		return domain.ErrNotFound
	}
	return m.Deduct(quantity)
}

func (r *MedicineRepository) IncrementStock(ctx context.Context, id string, quantity int) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.medicines[id]
	if !ok {
		return domain.ErrNotFound
	}
	return m.Restock(quantity)
}

func cloneMedicine(m *domain.Medicine) *domain.Medicine {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}
