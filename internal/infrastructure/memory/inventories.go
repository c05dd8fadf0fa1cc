package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

// InventoryRepository inventarios físicos en memoria.
type InventoryRepository struct{ base }

func (r *InventoryRepository) Create(_ context.Context, inv *entity.Inventory) error {
	return r.write(func(st *state) error {
		if _, ok := st.inventories[inv.ID]; ok {
			return fmt.Errorf("inventario %s: %w", inv.ID, domain.ErrDuplicateItem)
		}
		head := *inv
		head.Items = nil
		st.inventories[inv.ID] = head
		for i := range inv.Items {
			it := inv.Items[i]
			it.InventoryID = inv.ID
			st.inventoryItems[it.ID] = it
		}
		return nil
	})
}

func (r *InventoryRepository) GetByID(_ context.Context, id string) (*entity.Inventory, error) {
	var out *entity.Inventory
	err := r.read(func(st *state) error {
		inv, ok := st.inventories[id]
		if !ok {
			return fmt.Errorf("inventario %s: %w", id, domain.ErrNotFound)
		}
		inv.Items = inventoryItems(st, id)
		out = &inv
		return nil
	})
	return out, err
}

func (r *InventoryRepository) GetForUpdate(ctx context.Context, id string) (*entity.Inventory, error) {
	return r.GetByID(ctx, id)
}

func (r *InventoryRepository) InventoryIDByItem(_ context.Context, itemID string) (string, error) {
	var id string
	err := r.read(func(st *state) error {
		it, ok := st.inventoryItems[itemID]
		if !ok {
			return fmt.Errorf("línea %s: %w", itemID, domain.ErrNotFound)
		}
		id = it.InventoryID
		return nil
	})
	return id, err
}

func (r *InventoryRepository) UpdateItem(_ context.Context, item *entity.InventoryItem) error {
	return r.write(func(st *state) error {
		cur, ok := st.inventoryItems[item.ID]
		if !ok {
			return fmt.Errorf("línea %s: %w", item.ID, domain.ErrNotFound)
		}
		cur.CountedQuantity = item.CountedQuantity
		cur.Difference = item.Difference
		cur.UpdatedAt = item.UpdatedAt
		st.inventoryItems[item.ID] = cur
		return nil
	})
}

func (r *InventoryRepository) UpdateStatus(_ context.Context, inv *entity.Inventory) error {
	return r.write(func(st *state) error {
		cur, ok := st.inventories[inv.ID]
		if !ok {
			return fmt.Errorf("inventario %s: %w", inv.ID, domain.ErrNotFound)
		}
		cur.Status = inv.Status
		cur.ValidatedBy = inv.ValidatedBy
		cur.ValidatedAt = inv.ValidatedAt
		cur.UpdatedAt = inv.UpdatedAt
		st.inventories[inv.ID] = cur
		return nil
	})
}

// List más recientes primero.
func (r *InventoryRepository) List(_ context.Context, f repository.InventoryFilter) ([]*entity.Inventory, error) {
	out := []*entity.Inventory{}
	err := r.read(func(st *state) error {
		for _, inv := range st.inventories {
			if f.ShopID != "" && inv.ShopID != f.ShopID {
				continue
			}
			if f.Status != "" && inv.Status != f.Status {
				continue
			}
			if f.FromDate != nil && inv.CreatedAt.Before(*f.FromDate) {
				continue
			}
			if f.ToDate != nil && inv.CreatedAt.After(*f.ToDate) {
				continue
			}
			inv := inv
			inv.Items = inventoryItems(st, inv.ID)
			out = append(out, &inv)
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

func inventoryItems(st *state, inventoryID string) []entity.InventoryItem {
	items := []entity.InventoryItem{}
	for _, it := range st.inventoryItems {
		if it.InventoryID == inventoryID {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items
}
