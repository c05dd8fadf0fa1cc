package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

// MovementLedger kardex de solo inserción. Record debe llamarse una vez por cambio de cantidad,
// con el repositorio de la misma transacción que modifica stock y lotes.
type MovementLedger struct {
	movements repository.MovementRepository
	clock     Clock
}

// NewMovementLedger construye el ledger; movements se usa para las consultas.
func NewMovementLedger(movements repository.MovementRepository, clock Clock) *MovementLedger {
	return &MovementLedger{movements: movements, clock: clock}
}

// RecordInput datos de un movimiento. Quantity lleva el signo del cambio.
type RecordInput struct {
	ShopID    string
	ProductID string
	Type      entity.MovementType
	Quantity  decimal.Decimal
	Reference string
	Notes     string
	ActorID   string
}

// Record agrega un movimiento usando repo (el de la transacción en curso).
func (l *MovementLedger) Record(ctx context.Context, repo repository.MovementRepository, in RecordInput) (*entity.StockMovement, error) {
	m := &entity.StockMovement{
		ID:        uuid.NewString(),
		ShopID:    in.ShopID,
		ProductID: in.ProductID,
		Type:      in.Type,
		Quantity:  in.Quantity,
		Reference: in.Reference,
		Notes:     in.Notes,
		CreatedBy: in.ActorID,
		CreatedAt: l.clock.Now(),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("registrar movimiento %s: %w", m.Type, err)
	}
	return m, nil
}

// FindByProduct kardex de un producto, más reciente primero.
func (l *MovementLedger) FindByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.StockMovement, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	return l.movements.ListByProduct(ctx, productID, repository.NewPage(limit, offset))
}

// MovementQuery filtros externos (strings sin validar) de búsqueda en el kardex de una tienda.
type MovementQuery struct {
	ShopID    string
	ProductID string
	Type      string
	Reference string
	FromDate  *time.Time
	ToDate    *time.Time
	Limit     int
	Offset    int
}

// FindByShopFiltered búsqueda paginada del kardex de una tienda.
func (l *MovementLedger) FindByShopFiltered(ctx context.Context, q MovementQuery) ([]*entity.StockMovement, error) {
	if q.ShopID == "" {
		return nil, domain.ErrInvalidInput
	}
	if q.FromDate != nil && q.ToDate != nil && q.ToDate.Before(*q.FromDate) {
		return nil, fmt.Errorf("rango de fechas: %w", domain.ErrInvalidInput)
	}
	f := repository.MovementFilter{
		ShopID:    q.ShopID,
		ProductID: q.ProductID,
		Reference: q.Reference,
		FromDate:  q.FromDate,
		ToDate:    q.ToDate,
		Page:      repository.NewPage(q.Limit, q.Offset),
	}
	if q.Type != "" {
		t, err := entity.ParseMovementType(q.Type)
		if err != nil {
			return nil, err
		}
		f.Type = t
	}
	return l.movements.Search(ctx, f)
}

// Balance suma con signo de los movimientos del producto (reconstrucción del stock).
func (l *MovementLedger) Balance(ctx context.Context, productID string) (decimal.Decimal, error) {
	return l.movements.SumByProduct(ctx, productID)
}
