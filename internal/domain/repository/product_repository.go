package repository

import (
	"context"

	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product.
// GetForUpdate bloquea la fila hasta el fin de la transacción en curso.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	GetByShopAndSKU(ctx context.Context, shopID, sku string) (*entity.Product, error)
	// UpdateStock persiste stock y costo promedio.
	UpdateStock(ctx context.Context, product *entity.Product) error
	ListActiveByShop(ctx context.Context, shopID string) ([]*entity.Product, error)
	ListBelowMinimum(ctx context.Context, shopID string) ([]*entity.Product, error)
}
