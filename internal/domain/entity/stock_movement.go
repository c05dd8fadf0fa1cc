package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
)

// StockMovement registro inmutable del kardex. Quantity lleva signo: positiva para entradas,
// negativa para salidas. La suma de los movimientos de un producto es su stock.
type StockMovement struct {
	ID        string
	ShopID    string
	ProductID string
	Type      MovementType
	Quantity  decimal.Decimal
	Reference string
	Notes     string
	CreatedBy string
	CreatedAt time.Time
}

// Validate revisa que el tipo sea conocido y que el signo de la cantidad corresponda al tipo.
func (m *StockMovement) Validate() error {
	if m.ShopID == "" || m.ProductID == "" {
		return fmt.Errorf("movimiento sin tienda o producto: %w", domain.ErrInvalidInput)
	}
	if !m.Type.IsValid() {
		return fmt.Errorf("tipo de movimiento %q: %w", m.Type, domain.ErrInvalidInput)
	}
	if m.Quantity.IsZero() {
		return domain.ErrInvalidQuantity
	}
	switch m.Type.Direction() {
	case DirectionIn:
		if m.Quantity.IsNegative() {
			return domain.ErrInvalidQuantity
		}
	case DirectionOut:
		if m.Quantity.IsPositive() {
			return domain.ErrInvalidQuantity
		}
	case DirectionBoth:
	}
	return nil
}
