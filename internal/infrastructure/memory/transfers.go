package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

// TransferRepository traslados en memoria; las líneas se guardan aparte, como en la tabla de detalle.
type TransferRepository struct{ base }

func (r *TransferRepository) Create(_ context.Context, t *entity.StockTransfer) error {
	return r.write(func(st *state) error {
		if _, ok := st.transfers[t.ID]; ok {
			return fmt.Errorf("traslado %s: %w", t.ID, domain.ErrDuplicateItem)
		}
		for _, other := range st.transfers {
			if other.PharmacyID == t.PharmacyID && other.Reference == t.Reference {
				return fmt.Errorf("referencia %s en uso: %w", t.Reference, domain.ErrConcurrentModification)
			}
		}
		head := *t
		head.Items = nil
		st.transfers[t.ID] = head
		for i := range t.Items {
			it := t.Items[i]
			it.StockTransferID = t.ID
			st.transferItems[it.ID] = it
		}
		return nil
	})
}

func (r *TransferRepository) GetByID(_ context.Context, id string) (*entity.StockTransfer, error) {
	var out *entity.StockTransfer
	err := r.read(func(st *state) error {
		t, ok := st.transfers[id]
		if !ok {
			return fmt.Errorf("traslado %s: %w", id, domain.ErrNotFound)
		}
		t.Items = transferItems(st, id)
		out = &t
		return nil
	})
	return out, err
}

func (r *TransferRepository) GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.GetByID(ctx, id)
}

func (r *TransferRepository) TransferIDByItem(_ context.Context, itemID string) (string, error) {
	var id string
	err := r.read(func(st *state) error {
		it, ok := st.transferItems[itemID]
		if !ok {
			return fmt.Errorf("línea %s: %w", itemID, domain.ErrNotFound)
		}
		id = it.StockTransferID
		return nil
	})
	return id, err
}

func (r *TransferRepository) UpdateStatus(_ context.Context, t *entity.StockTransfer) error {
	return r.write(func(st *state) error {
		cur, ok := st.transfers[t.ID]
		if !ok {
			return fmt.Errorf("traslado %s: %w", t.ID, domain.ErrNotFound)
		}
		cur.Status = t.Status
		cur.ValidatedBy = t.ValidatedBy
		cur.ValidatedAt = t.ValidatedAt
		cur.CancelledAt = t.CancelledAt
		cur.UpdatedAt = t.UpdatedAt
		st.transfers[t.ID] = cur
		return nil
	})
}

func (r *TransferRepository) AddItem(_ context.Context, item *entity.StockTransferItem) error {
	return r.write(func(st *state) error {
		if _, ok := st.transfers[item.StockTransferID]; !ok {
			return fmt.Errorf("traslado %s: %w", item.StockTransferID, domain.ErrNotFound)
		}
		for _, other := range st.transferItems {
			if other.StockTransferID == item.StockTransferID && other.ProductID == item.ProductID {
				return domain.ErrDuplicateItem
			}
		}
		st.transferItems[item.ID] = *item
		return nil
	})
}

func (r *TransferRepository) UpdateItem(_ context.Context, item *entity.StockTransferItem) error {
	return r.write(func(st *state) error {
		cur, ok := st.transferItems[item.ID]
		if !ok {
			return fmt.Errorf("línea %s: %w", item.ID, domain.ErrNotFound)
		}
		cur.Quantity = item.Quantity
		cur.UpdatedAt = item.UpdatedAt
		st.transferItems[item.ID] = cur
		return nil
	})
}

func (r *TransferRepository) DeleteItem(_ context.Context, itemID string) error {
	return r.write(func(st *state) error {
		if _, ok := st.transferItems[itemID]; !ok {
			return fmt.Errorf("línea %s: %w", itemID, domain.ErrNotFound)
		}
		delete(st.transferItems, itemID)
		return nil
	})
}

// List más recientes primero.
func (r *TransferRepository) List(_ context.Context, f repository.TransferFilter) ([]*entity.StockTransfer, error) {
	out := []*entity.StockTransfer{}
	err := r.read(func(st *state) error {
		for _, t := range st.transfers {
			if f.PharmacyID != "" && t.PharmacyID != f.PharmacyID {
				continue
			}
			if f.ShopID != "" && t.FromShopID != f.ShopID && t.ToShopID != f.ShopID {
				continue
			}
			if f.Status != "" && t.Status != f.Status {
				continue
			}
			if f.FromDate != nil && t.CreatedAt.Before(*f.FromDate) {
				continue
			}
			if f.ToDate != nil && t.CreatedAt.After(*f.ToDate) {
				continue
			}
			t := t
			t.Items = transferItems(st, t.ID)
			out = append(out, &t)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Reference > out[j].Reference
	})
	return paginate(out, f.Page.Limit, f.Page.Offset), err
}

// transferItems líneas del traslado en orden de creación.
func transferItems(st *state, transferID string) []entity.StockTransferItem {
	items := []entity.StockTransferItem{}
	for _, it := range st.transferItems {
		if it.StockTransferID == transferID {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items
}
