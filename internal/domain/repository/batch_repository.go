package repository

import (
	"context"
	"time"

	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// BatchFilter filtros de búsqueda de lotes. Los campos vacíos no filtran.
// Fechas de vencimiento: ExpiresAfter es exclusivo, ExpiresOnOrBefore inclusivo; los lotes sin
// vencimiento solo aparecen si IncludeNoExpiry es true y no hay cota superior.
type BatchFilter struct {
	ShopID            string
	ProductID         string
	Search            string // número de lote o nombre de producto
	ExpiresAfter      *time.Time
	ExpiresOnOrBefore *time.Time
	IncludeNoExpiry   bool
	OnlyAvailable     bool // activos con cantidad > 0
	IncludeInactive   bool
	Page              Page
}

// BatchRepository define el puerto de persistencia para ProductBatch.
type BatchRepository interface {
	Create(ctx context.Context, batch *entity.ProductBatch) error
	// Update persiste cantidad, estado activo y updated_at.
	Update(ctx context.Context, batch *entity.ProductBatch) error
	GetByID(ctx context.Context, id string) (*entity.ProductBatch, error)
	GetForUpdate(ctx context.Context, id string) (*entity.ProductBatch, error)
	// GetActiveByNumber busca el lote activo con ese número para el producto (ErrNotFound si no existe).
	GetActiveByNumber(ctx context.Context, productID, batchNumber string) (*entity.ProductBatch, error)
	// ListActiveForUpdate devuelve y bloquea los lotes activos del producto en orden FIFO.
	ListActiveForUpdate(ctx context.Context, productID string) ([]*entity.ProductBatch, error)
	Search(ctx context.Context, f BatchFilter) ([]*entity.ProductBatch, error)
}
