package medicine

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("medicine: not found")
	ErrInvalidQuantity   = errors.New("medicine: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("medicine: insufficient stock")
)

// Medicine is a catalog item. The order workflow only depends on its price
// snapshot and stock count; the rest of the fields belong to the catalog,
// which is managed elsewhere.
type Medicine struct {
	ID          string
	Name        string
	Brand       string
	Price       decimal.Decimal
	Stock       int
	Description string
	Category    string
	CreatedBy   string
}

// Deduct removes quantity units of stock. Stock never goes below zero.
func (m *Medicine) Deduct(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > m.Stock {
		return ErrInsufficientStock
	}
	m.Stock -= quantity
	return nil
}

// Restock adds quantity units back, used to compensate a failed multi-line
// order.
func (m *Medicine) Restock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	m.Stock += quantity
	return nil
}
