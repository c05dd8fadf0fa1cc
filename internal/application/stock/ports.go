package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

// Repos agrupa los repositorios del motor de inventario. Fuera de una transacción se usan para lecturas;
// dentro de TxRunner.Run vienen atados a la transacción.
type Repos struct {
	Shops       repository.ShopRepository
	Products    repository.ProductRepository
	Batches     repository.BatchRepository
	Movements   repository.MovementRepository
	Transfers   repository.TransferRepository
	Inventories repository.InventoryRepository
}

// TxRunner ejecuta fn dentro de una transacción, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback; si no, Commit. Un conflicto de concurrencia del almacenamiento
// se devuelve como domain.ErrConcurrentModification.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos Repos) error) error
}

// Clock fuente de la hora actual (inyectable en pruebas).
type Clock interface {
	Now() time.Time
}

// SystemClock reloj real en UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ReferenceGenerator genera referencias legibles únicas por tenant: PREFIJO-YYYYMMDD-NNNNNN.
type ReferenceGenerator interface {
	Next(ctx context.Context, scope, prefix string, at time.Time) (string, error)
}

// ExpiryCache caché del reporte de vencimientos por tienda.
type ExpiryCache interface {
	Get(ctx context.Context, shopID string, asOf time.Time) (*ExpiryReport, bool, error)
	Set(ctx context.Context, report *ExpiryReport, ttl time.Duration) error
	Invalidate(ctx context.Context, shopID string) error
}

// Prefijos de referencia de documentos.
const (
	TransferRefPrefix  = "TRF"
	InventoryRefPrefix = "INV"
)

// FormatReference arma la referencia a partir del consecutivo del día.
func FormatReference(prefix string, at time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%06d", prefix, at.UTC().Format("20060102"), seq)
}
