package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// MovementFilter filtros del kardex por tienda.
type MovementFilter struct {
	ShopID    string
	ProductID string
	Type      entity.MovementType
	Reference string
	FromDate  *time.Time
	ToDate    *time.Time
	Page      Page
}

// MovementRepository puerto del kardex. Solo inserción: no hay Update ni Delete.
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	ListByProduct(ctx context.Context, productID string, page Page) ([]*entity.StockMovement, error)
	Search(ctx context.Context, f MovementFilter) ([]*entity.StockMovement, error)
	// SumByProduct suma con signo de todos los movimientos del producto.
	SumByProduct(ctx context.Context, productID string) (decimal.Decimal, error)
}
