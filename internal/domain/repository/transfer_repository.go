package repository

import (
	"context"
	"time"

	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// TransferFilter filtros de listado de traslados. ShopID coincide con origen o destino.
type TransferFilter struct {
	PharmacyID string
	ShopID     string
	Status     entity.TransferStatus
	FromDate   *time.Time
	ToDate     *time.Time
	Page       Page
}

// TransferRepository puerto de persistencia de traslados. Los Get cargan las líneas.
type TransferRepository interface {
	Create(ctx context.Context, transfer *entity.StockTransfer) error
	GetByID(ctx context.Context, id string) (*entity.StockTransfer, error)
	GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error)
	// TransferIDByItem resuelve el traslado dueño de una línea.
	TransferIDByItem(ctx context.Context, itemID string) (string, error)
	// UpdateStatus persiste estado, validated_by/at, cancelled_at y updated_at.
	UpdateStatus(ctx context.Context, transfer *entity.StockTransfer) error
	AddItem(ctx context.Context, item *entity.StockTransferItem) error
	UpdateItem(ctx context.Context, item *entity.StockTransferItem) error
	DeleteItem(ctx context.Context, itemID string) error
	List(ctx context.Context, f TransferFilter) ([]*entity.StockTransfer, error)
}
