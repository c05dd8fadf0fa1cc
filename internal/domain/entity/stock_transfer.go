package entity

import (
	"fmt"
	"time"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
)

// TransferStatus estado de un traslado. draft -> validated | cancelled; los dos últimos son terminales.
type TransferStatus string

const (
	TransferDraft     TransferStatus = "draft"
	TransferValidated TransferStatus = "validated"
	TransferCancelled TransferStatus = "cancelled"
)

func (s TransferStatus) IsTerminal() bool {
	return s == TransferValidated || s == TransferCancelled
}

// StockTransfer traslado de mercancía entre dos tiendas de la misma farmacia.
type StockTransfer struct {
	ID          string
	PharmacyID  string
	Reference   string
	FromShopID  string
	ToShopID    string
	Status      TransferStatus
	Notes       string
	CreatedBy   string
	ValidatedBy string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ValidatedAt *time.Time
	CancelledAt *time.Time
	Items       []StockTransferItem
}

// StockTransferItem línea de un traslado. ProductID es el producto de la tienda origen.
type StockTransferItem struct {
	ID              string
	StockTransferID string
	ProductID       string
	Quantity        Quantity
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewStockTransfer crea un traslado en borrador.
func NewStockTransfer(id, pharmacyID, reference, fromShopID, toShopID, notes, createdBy string, now time.Time) (*StockTransfer, error) {
	if fromShopID == "" || toShopID == "" {
		return nil, fmt.Errorf("tiendas requeridas: %w", domain.ErrInvalidInput)
	}
	if fromShopID == toShopID {
		return nil, fmt.Errorf("origen y destino iguales: %w", domain.ErrInvalidInput)
	}
	return &StockTransfer{
		ID:         id,
		PharmacyID: pharmacyID,
		Reference:  reference,
		FromShopID: fromShopID,
		ToShopID:   toShopID,
		Status:     TransferDraft,
		Notes:      notes,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// EnsureDraft falla con ErrInvalidState si el traslado ya no es editable.
func (t *StockTransfer) EnsureDraft() error {
	if t.Status != TransferDraft {
		return fmt.Errorf("traslado %s en estado %s: %w", t.Reference, t.Status, domain.ErrInvalidState)
	}
	return nil
}

// FindItem busca una línea por id.
func (t *StockTransfer) FindItem(itemID string) (*StockTransferItem, bool) {
	for i := range t.Items {
		if t.Items[i].ID == itemID {
			return &t.Items[i], true
		}
	}
	return nil, false
}

// AddItem agrega una línea; un producto solo puede aparecer una vez.
func (t *StockTransfer) AddItem(item StockTransferItem) error {
	if err := t.EnsureDraft(); err != nil {
		return err
	}
	if !item.Quantity.IsPositive() {
		return domain.ErrInvalidQuantity
	}
	for _, it := range t.Items {
		if it.ProductID == item.ProductID {
			return domain.ErrDuplicateItem
		}
	}
	item.StockTransferID = t.ID
	t.Items = append(t.Items, item)
	t.UpdatedAt = item.CreatedAt
	return nil
}

// UpdateItem cambia la cantidad de una línea.
func (t *StockTransfer) UpdateItem(itemID string, q Quantity, now time.Time) (*StockTransferItem, error) {
	if err := t.EnsureDraft(); err != nil {
		return nil, err
	}
	if !q.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	it, ok := t.FindItem(itemID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	it.Quantity = q
	it.UpdatedAt = now
	t.UpdatedAt = now
	return it, nil
}

// RemoveItem elimina una línea.
func (t *StockTransfer) RemoveItem(itemID string, now time.Time) error {
	if err := t.EnsureDraft(); err != nil {
		return err
	}
	for i := range t.Items {
		if t.Items[i].ID == itemID {
			t.Items = append(t.Items[:i], t.Items[i+1:]...)
			t.UpdatedAt = now
			return nil
		}
	}
	return domain.ErrNotFound
}

// MarkValidated pasa a validated. Requiere borrador con al menos una línea.
func (t *StockTransfer) MarkValidated(actor string, now time.Time) error {
	if err := t.EnsureDraft(); err != nil {
		return err
	}
	if len(t.Items) == 0 {
		return fmt.Errorf("traslado sin líneas: %w", domain.ErrInvalidState)
	}
	t.Status = TransferValidated
	t.ValidatedBy = actor
	t.ValidatedAt = &now
	t.UpdatedAt = now
	return nil
}

// Cancel pasa a cancelled. Solo desde borrador; no toca stock.
func (t *StockTransfer) Cancel(now time.Time) error {
	if err := t.EnsureDraft(); err != nil {
		return err
	}
	t.Status = TransferCancelled
	t.CancelledAt = &now
	t.UpdatedAt = now
	return nil
}
