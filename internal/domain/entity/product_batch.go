package entity

import (
	"time"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
)

// ProductBatch lote de un producto en una tienda. ExpirationDate nil significa "no vence"
// (esos lotes se consumen al final). Seq fija el orden de creación para desempatar FIFO.
type ProductBatch struct {
	ID                  string
	ShopID              string
	ProductID           string
	BatchNumber         string
	Quantity            Quantity
	UnitCost            Money
	ExpirationDate      *time.Time
	PurchaseOrderID     string
	PurchaseOrderLineID string
	IsActive            bool
	Seq                 int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Available reporta si el lote puede consumirse.
func (b *ProductBatch) Available() bool {
	return b.IsActive && b.Quantity.IsPositive()
}

// Take descuenta q del lote. Falla con ErrInsufficientStock si no alcanza.
func (b *ProductBatch) Take(q Quantity, now time.Time) error {
	if !b.IsActive {
		return domain.ErrInvalidState
	}
	rest, err := b.Quantity.Sub(q)
	if err != nil {
		return domain.ErrInsufficientStock
	}
	b.Quantity = rest
	b.UpdatedAt = now
	return nil
}

// Put suma q al lote.
func (b *ProductBatch) Put(q Quantity, now time.Time) {
	b.Quantity = b.Quantity.Add(q)
	b.UpdatedAt = now
}

// Deactivate da de baja el lote y devuelve la cantidad que tenía (para registrar la pérdida).
func (b *ProductBatch) Deactivate(now time.Time) (Quantity, error) {
	if !b.IsActive {
		return ZeroQuantity(), domain.ErrInvalidState
	}
	lost := b.Quantity
	b.Quantity = ZeroQuantity()
	b.IsActive = false
	b.UpdatedAt = now
	return lost, nil
}

// ExpiresBefore compara fechas de vencimiento para el orden FIFO: los lotes sin fecha van al final.
func (b *ProductBatch) ExpiresBefore(o *ProductBatch) bool {
	switch {
	case b.ExpirationDate == nil && o.ExpirationDate == nil:
		return b.Seq < o.Seq
	case b.ExpirationDate == nil:
		return false
	case o.ExpirationDate == nil:
		return true
	case b.ExpirationDate.Equal(*o.ExpirationDate):
		return b.Seq < o.Seq
	}
	return b.ExpirationDate.Before(*o.ExpirationDate)
}
