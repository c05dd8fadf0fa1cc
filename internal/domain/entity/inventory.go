package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
)

// InventoryStatus estado de un inventario físico. draft -> validated (terminal).
type InventoryStatus string

const (
	InventoryDraft     InventoryStatus = "draft"
	InventoryValidated InventoryStatus = "validated"
)

// Inventory conteo físico de una tienda. Al iniciarlo se congela el stock del sistema por producto.
type Inventory struct {
	ID          string
	ShopID      string
	Reference   string
	Status      InventoryStatus
	Notes       string
	CreatedBy   string
	ValidatedBy string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ValidatedAt *time.Time
	Items       []InventoryItem
}

// InventoryItem línea del conteo. CountedQuantity y Difference son nil hasta que se registra el conteo.
type InventoryItem struct {
	ID              string
	InventoryID     string
	ProductID       string
	SystemQuantity  Quantity
	CountedQuantity *Quantity
	Difference      *decimal.Decimal
	UpdatedAt       time.Time
}

// Counted reporta si la línea ya tiene conteo.
func (i *InventoryItem) Counted() bool { return i.CountedQuantity != nil }

// RecordCount fija el conteo y recalcula la diferencia (contado - sistema).
func (i *InventoryItem) RecordCount(q Quantity, now time.Time) {
	diff := q.Decimal().Sub(i.SystemQuantity.Decimal())
	i.CountedQuantity = &q
	i.Difference = &diff
	i.UpdatedAt = now
}

// EnsureDraft falla con ErrInvalidState si el inventario ya fue validado.
func (inv *Inventory) EnsureDraft() error {
	if inv.Status != InventoryDraft {
		return fmt.Errorf("inventario %s en estado %s: %w", inv.Reference, inv.Status, domain.ErrInvalidState)
	}
	return nil
}

// RecordCount registra el conteo de una línea del inventario.
func (inv *Inventory) RecordCount(itemID string, q Quantity, now time.Time) (*InventoryItem, error) {
	if err := inv.EnsureDraft(); err != nil {
		return nil, err
	}
	for k := range inv.Items {
		if inv.Items[k].ID == itemID {
			inv.Items[k].RecordCount(q, now)
			inv.UpdatedAt = now
			return &inv.Items[k], nil
		}
	}
	return nil, domain.ErrNotFound
}

// MarkValidated exige que todas las líneas tengan conteo.
func (inv *Inventory) MarkValidated(actor string, now time.Time) error {
	if err := inv.EnsureDraft(); err != nil {
		return err
	}
	for _, it := range inv.Items {
		if !it.Counted() {
			return fmt.Errorf("producto %s sin conteo: %w", it.ProductID, domain.ErrInvalidState)
		}
	}
	inv.Status = InventoryValidated
	inv.ValidatedBy = actor
	inv.ValidatedAt = &now
	inv.UpdatedAt = now
	return nil
}
