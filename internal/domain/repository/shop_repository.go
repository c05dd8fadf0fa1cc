package repository

import (
	"context"

	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// ShopRepository define el puerto de persistencia para tiendas (DIP).
type ShopRepository interface {
	Create(ctx context.Context, shop *entity.Shop) error
	GetByID(ctx context.Context, id string) (*entity.Shop, error)
	ListByPharmacy(ctx context.Context, pharmacyID string) ([]*entity.Shop, error)
	ListActive(ctx context.Context) ([]*entity.Shop, error)
}
