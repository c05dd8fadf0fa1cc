package repository

import (
	"context"
	"time"

	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// InventoryFilter filtros de listado de inventarios físicos.
type InventoryFilter struct {
	ShopID   string
	Status   entity.InventoryStatus
	FromDate *time.Time
	ToDate   *time.Time
	Page     Page
}

// InventoryRepository puerto de persistencia de inventarios físicos. Create guarda también las líneas.
type InventoryRepository interface {
	Create(ctx context.Context, inventory *entity.Inventory) error
	GetByID(ctx context.Context, id string) (*entity.Inventory, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Inventory, error)
	InventoryIDByItem(ctx context.Context, itemID string) (string, error)
	UpdateItem(ctx context.Context, item *entity.InventoryItem) error
	UpdateStatus(ctx context.Context, inventory *entity.Inventory) error
	List(ctx context.Context, f InventoryFilter) ([]*entity.Inventory, error)
}
