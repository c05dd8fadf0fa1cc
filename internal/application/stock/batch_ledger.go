package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/inventory"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

// BatchLedger administra los lotes: altas, consumo FIFO por vencimiento y consultas de vencimiento.
// Los métodos que reciben Repos operan dentro de la transacción del llamador y no tocan Product.Stock;
// eso lo hace StockService.
type BatchLedger struct {
	repos        Repos
	clock        Clock
	expiringDays int
	cache        ExpiryCache
	cacheTTL     time.Duration
	log          zerolog.Logger
}

// BatchLedgerOption configura el ledger.
type BatchLedgerOption func(*BatchLedger)

// WithExpiringDays ventana por defecto de "próximo a vencer".
func WithExpiringDays(days int) BatchLedgerOption {
	return func(l *BatchLedger) {
		if days > 0 {
			l.expiringDays = days
		}
	}
}

// WithExpiryCache habilita caché del reporte de vencimientos.
func WithExpiryCache(cache ExpiryCache, ttl time.Duration) BatchLedgerOption {
	return func(l *BatchLedger) {
		l.cache = cache
		l.cacheTTL = ttl
	}
}

// WithLogger logger del ledger.
func WithLogger(log zerolog.Logger) BatchLedgerOption {
	return func(l *BatchLedger) { l.log = log }
}

// NewBatchLedger construye el ledger de lotes.
func NewBatchLedger(repos Repos, clock Clock, opts ...BatchLedgerOption) *BatchLedger {
	l := &BatchLedger{
		repos:        repos,
		clock:        clock,
		expiringDays: inventory.DefaultExpiringDays,
		log:          zerolog.Nop(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// ExpiringDays ventana configurada.
func (l *BatchLedger) ExpiringDays() int { return l.expiringDays }

// LotInput datos de un lote que entra.
type LotInput struct {
	BatchNumber         string
	Quantity            entity.Quantity
	ExpirationDate      *time.Time
	UnitCost            *entity.Money
	PurchaseOrderID     string
	PurchaseOrderLineID string
}

// AddStock crea el lote o, si ya existe uno activo con ese número para el producto, suma la cantidad.
// Un reingreso con otra fecha de vencimiento que la del lote activo se rechaza.
func (l *BatchLedger) AddStock(ctx context.Context, r Repos, product *entity.Product, in LotInput) (*entity.ProductBatch, error) {
	if !in.Quantity.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	number := strings.TrimSpace(in.BatchNumber)
	if number == "" {
		return nil, fmt.Errorf("número de lote requerido: %w", domain.ErrInvalidInput)
	}
	now := l.clock.Now()

	existing, err := r.Batches.GetActiveByNumber(ctx, product.ID, number)
	switch {
	case err == nil:
		if in.ExpirationDate != nil && existing.ExpirationDate != nil &&
			!startOfDay(*in.ExpirationDate).Equal(startOfDay(*existing.ExpirationDate)) {
			return nil, fmt.Errorf("lote %s vence el %s, no el %s: %w", number,
				existing.ExpirationDate.Format("2006-01-02"), in.ExpirationDate.Format("2006-01-02"), domain.ErrInvalidInput)
		}
		existing.Put(in.Quantity, now)
		if err := r.Batches.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("actualizar lote %s: %w", number, err)
		}
		return existing, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	unitCost := product.Cost
	if in.UnitCost != nil {
		unitCost = *in.UnitCost
	}
	b := &entity.ProductBatch{
		ID:                  uuid.NewString(),
		ShopID:              product.ShopID,
		ProductID:           product.ID,
		BatchNumber:         number,
		Quantity:            in.Quantity,
		UnitCost:            unitCost,
		ExpirationDate:      normalizeDate(in.ExpirationDate),
		PurchaseOrderID:     in.PurchaseOrderID,
		PurchaseOrderLineID: in.PurchaseOrderLineID,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := r.Batches.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("crear lote %s: %w", number, err)
	}
	return b, nil
}

// Consumption cantidad tomada de un lote.
type Consumption struct {
	BatchID        string
	BatchNumber    string
	ExpirationDate *time.Time
	UnitCost       entity.Money
	Quantity       entity.Quantity
}

// Consume toma q de los lotes activos del producto en orden FIFO (vence primero, sale primero).
// Todo o nada: si no alcanza devuelve ErrInsufficientStock sin modificar ningún lote.
func (l *BatchLedger) Consume(ctx context.Context, r Repos, productID, shopID string, q entity.Quantity) ([]Consumption, error) {
	batches, err := r.Batches.ListActiveForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	batches = filterShop(batches, shopID)
	allocs, err := inventory.AllocateFIFO(batches, q)
	if err != nil {
		return nil, err
	}
	now := l.clock.Now()
	out := make([]Consumption, 0, len(allocs))
	for _, a := range allocs {
		if err := a.Batch.Take(a.Quantity, now); err != nil {
			return nil, err
		}
		if err := r.Batches.Update(ctx, a.Batch); err != nil {
			return nil, fmt.Errorf("actualizar lote %s: %w", a.Batch.BatchNumber, err)
		}
		out = append(out, Consumption{
			BatchID:        a.Batch.ID,
			BatchNumber:    a.Batch.BatchNumber,
			ExpirationDate: a.Batch.ExpirationDate,
			UnitCost:       a.Batch.UnitCost,
			Quantity:       a.Quantity,
		})
	}
	return out, nil
}

// AvailableInTx cantidad disponible en lotes activos (bloqueándolos).
func (l *BatchLedger) AvailableInTx(ctx context.Context, r Repos, productID, shopID string) (entity.Quantity, error) {
	batches, err := r.Batches.ListActiveForUpdate(ctx, productID)
	if err != nil {
		return entity.Quantity{}, err
	}
	return inventory.Available(filterShop(batches, shopID)), nil
}

// Deactivate da de baja un lote y devuelve la cantidad que tenía.
func (l *BatchLedger) Deactivate(ctx context.Context, r Repos, batchID string) (*entity.ProductBatch, entity.Quantity, error) {
	b, err := r.Batches.GetForUpdate(ctx, batchID)
	if err != nil {
		return nil, entity.Quantity{}, err
	}
	lost, err := b.Deactivate(l.clock.Now())
	if err != nil {
		return nil, entity.Quantity{}, err
	}
	if err := r.Batches.Update(ctx, b); err != nil {
		return nil, entity.Quantity{}, err
	}
	return b, lost, nil
}

// lastToExpire lote activo que vence más tarde (destino de entradas sin lote explícito).
func (l *BatchLedger) lastToExpire(ctx context.Context, r Repos, productID, shopID string) (*entity.ProductBatch, error) {
	batches, err := r.Batches.ListActiveForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	batches = filterShop(batches, shopID)
	if len(batches) == 0 {
		return nil, domain.ErrNotFound
	}
	inventory.SortFIFO(batches)
	return batches[len(batches)-1], nil
}

// grow suma q a un lote existente.
func (l *BatchLedger) grow(ctx context.Context, r Repos, b *entity.ProductBatch, q entity.Quantity) error {
	b.Put(q, l.clock.Now())
	return r.Batches.Update(ctx, b)
}

// ── Consultas (sin bloqueo) ──────────────────────────────────────────────────

// GetByID lote por id.
func (l *BatchLedger) GetByID(ctx context.Context, id string) (*entity.ProductBatch, error) {
	return l.repos.Batches.GetByID(ctx, id)
}

// FindExpiring lotes con existencia que vencen en (hoy, hoy+withinDays].
func (l *BatchLedger) FindExpiring(ctx context.Context, shopID string, withinDays int) ([]*entity.ProductBatch, error) {
	if withinDays <= 0 {
		withinDays = l.expiringDays
	}
	from, to := inventory.ExpiringWindow(l.today(), withinDays)
	return l.searchAll(ctx, repository.BatchFilter{
		ShopID:            shopID,
		ExpiresAfter:      &from,
		ExpiresOnOrBefore: &to,
		OnlyAvailable:     true,
	})
}

// FindExpired lotes con existencia cuyo vencimiento es <= asOf. asOf cero significa hoy.
func (l *BatchLedger) FindExpired(ctx context.Context, shopID string, asOf time.Time) ([]*entity.ProductBatch, error) {
	if asOf.IsZero() {
		asOf = l.clock.Now()
	}
	asOf = startOfDay(asOf)
	return l.searchAll(ctx, repository.BatchFilter{
		ShopID:            shopID,
		ExpiresOnOrBefore: &asOf,
		OnlyAvailable:     true,
	})
}

// searchAll recorre todas las páginas del filtro.
func (l *BatchLedger) searchAll(ctx context.Context, f repository.BatchFilter) ([]*entity.ProductBatch, error) {
	out := make([]*entity.ProductBatch, 0)
	for offset := 0; ; offset += repository.MaxLimit {
		f.Page = repository.NewPage(repository.MaxLimit, offset)
		page, err := l.repos.Batches.Search(ctx, f)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < repository.MaxLimit {
			return out, nil
		}
	}
}

// BatchQuery filtros externos de búsqueda de lotes.
type BatchQuery struct {
	ShopID          string
	ProductID       string
	Status          string // expired | expiring_soon | ok
	Search          string
	IncludeInactive bool
	Limit           int
	Offset          int
}

// Search búsqueda paginada de lotes con filtro de estado de vencimiento.
func (l *BatchLedger) Search(ctx context.Context, q BatchQuery) ([]*entity.ProductBatch, error) {
	if q.ShopID == "" {
		return nil, domain.ErrInvalidInput
	}
	f := repository.BatchFilter{
		ShopID:          q.ShopID,
		ProductID:       q.ProductID,
		Search:          strings.TrimSpace(q.Search),
		IncludeInactive: q.IncludeInactive,
		Page:            repository.NewPage(q.Limit, q.Offset),
	}
	today := l.today()
	from, to := inventory.ExpiringWindow(today, l.expiringDays)
	switch inventory.ExpirationStatus(q.Status) {
	case "":
	case inventory.ExpirationExpired:
		f.ExpiresOnOrBefore = &today
	case inventory.ExpirationExpiringSoon:
		f.ExpiresAfter, f.ExpiresOnOrBefore = &from, &to
	case inventory.ExpirationOK:
		f.ExpiresAfter, f.IncludeNoExpiry = &to, true
	default:
		return nil, fmt.Errorf("estado de vencimiento %q: %w", q.Status, domain.ErrInvalidInput)
	}
	return l.repos.Batches.Search(ctx, f)
}

// Classify clasificación de un lote respecto a hoy.
func (l *BatchLedger) Classify(b *entity.ProductBatch) inventory.ExpirationStatus {
	return inventory.ClassifyBatch(b, l.today(), l.expiringDays)
}

func (l *BatchLedger) today() time.Time { return startOfDay(l.clock.Now()) }

func filterShop(batches []*entity.ProductBatch, shopID string) []*entity.ProductBatch {
	if shopID == "" {
		return batches
	}
	out := batches[:0:0]
	for _, b := range batches {
		if b.ShopID == shopID {
			out = append(out, b)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	d := startOfDay(*t)
	return &d
}
