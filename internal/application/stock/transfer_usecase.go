package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

// TransferUseCase flujo de traslados entre tiendas: borrador editable, validación atómica o cancelación.
type TransferUseCase struct {
	tx    TxRunner
	repos Repos
	stock *StockService
	refs  ReferenceGenerator
	clock Clock
	log   zerolog.Logger
}

// NewTransferUseCase construye el caso de uso de traslados.
func NewTransferUseCase(tx TxRunner, repos Repos, stock *StockService, refs ReferenceGenerator, clock Clock, log zerolog.Logger) *TransferUseCase {
	return &TransferUseCase{tx: tx, repos: repos, stock: stock, refs: refs, clock: clock, log: log}
}

// CreateTransferInput datos para abrir un traslado.
type CreateTransferInput struct {
	PharmacyID string
	FromShopID string
	ToShopID   string
	Notes      string
	ActorID    string
}

// Create abre un traslado en borrador con referencia TRF-YYYYMMDD-NNNNNN.
func (uc *TransferUseCase) Create(ctx context.Context, in CreateTransferInput) (*entity.StockTransfer, error) {
	if in.FromShopID == in.ToShopID {
		return nil, fmt.Errorf("origen y destino iguales: %w", domain.ErrInvalidInput)
	}
	for _, id := range []string{in.FromShopID, in.ToShopID} {
		shop, err := uc.repos.Shops.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if shop.PharmacyID != in.PharmacyID {
			return nil, domain.ErrForbidden
		}
		if !shop.IsActive {
			return nil, fmt.Errorf("tienda %s inactiva: %w", shop.Name, domain.ErrInvalidState)
		}
	}
	now := uc.clock.Now()
	ref, err := uc.refs.Next(ctx, in.PharmacyID, TransferRefPrefix, now)
	if err != nil {
		return nil, fmt.Errorf("generar referencia: %w", err)
	}
	t, err := entity.NewStockTransfer(uuid.NewString(), in.PharmacyID, ref, in.FromShopID, in.ToShopID, in.Notes, in.ActorID, now)
	if err != nil {
		return nil, err
	}
	if err := uc.tx.Run(ctx, func(r Repos) error {
		return r.Transfers.Create(ctx, t)
	}); err != nil {
		return nil, err
	}
	return t, nil
}

// AddItem agrega un producto de la tienda origen. Falla con ErrDuplicateItem si ya está.
func (uc *TransferUseCase) AddItem(ctx context.Context, pharmacyID, transferID, productID string, q entity.Quantity) (*entity.StockTransferItem, error) {
	if !q.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	var item *entity.StockTransferItem
	err := uc.tx.Run(ctx, func(r Repos) error {
		t, err := lockTransfer(ctx, r, pharmacyID, transferID)
		if err != nil {
			return err
		}
		if err := t.EnsureDraft(); err != nil {
			return err
		}
		p, err := r.Products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if p.ShopID != t.FromShopID {
			return fmt.Errorf("producto %s no pertenece a la tienda origen: %w", productID, domain.ErrInvalidInput)
		}
		now := uc.clock.Now()
		it := entity.StockTransferItem{
			ID:        uuid.NewString(),
			ProductID: productID,
			Quantity:  q,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := t.AddItem(it); err != nil {
			return err
		}
		item = &t.Items[len(t.Items)-1]
		return r.Transfers.AddItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem cambia la cantidad de una línea (solo en borrador).
func (uc *TransferUseCase) UpdateItem(ctx context.Context, pharmacyID, itemID string, q entity.Quantity) (*entity.StockTransferItem, error) {
	if !q.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	var item *entity.StockTransferItem
	err := uc.tx.Run(ctx, func(r Repos) error {
		t, err := lockTransferByItem(ctx, r, pharmacyID, itemID)
		if err != nil {
			return err
		}
		item, err = t.UpdateItem(itemID, q, uc.clock.Now())
		if err != nil {
			return err
		}
		return r.Transfers.UpdateItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem elimina una línea (solo en borrador).
func (uc *TransferUseCase) RemoveItem(ctx context.Context, pharmacyID, itemID string) error {
	return uc.tx.Run(ctx, func(r Repos) error {
		t, err := lockTransferByItem(ctx, r, pharmacyID, itemID)
		if err != nil {
			return err
		}
		if err := t.RemoveItem(itemID, uc.clock.Now()); err != nil {
			return err
		}
		return r.Transfers.DeleteItem(ctx, itemID)
	})
}

// Cancel cancela un borrador. No hay efectos de stock que revertir.
func (uc *TransferUseCase) Cancel(ctx context.Context, pharmacyID, transferID string) (*entity.StockTransfer, error) {
	var t *entity.StockTransfer
	err := uc.tx.Run(ctx, func(r Repos) error {
		var err error
		t, err = lockTransfer(ctx, r, pharmacyID, transferID)
		if err != nil {
			return err
		}
		if err := t.Cancel(uc.clock.Now()); err != nil {
			return err
		}
		return r.Transfers.UpdateStatus(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("transfer_id", t.ID).Str("reference", t.Reference).Msg("traslado cancelado")
	return t, nil
}

// transferLine línea resuelta: producto origen y producto destino (existente o nuevo).
type transferLine struct {
	item   entity.StockTransferItem
	source *entity.Product
	dest   *entity.Product
}

// Validate aplica el traslado en una sola transacción: bloquea el traslado y los productos de ambas
// tiendas en orden (tienda, producto), verifica disponibilidad de TODAS las líneas y solo entonces
// descuenta FIFO en origen (transfer_out) y recrea los lotes en destino (transfer_in).
func (uc *TransferUseCase) Validate(ctx context.Context, pharmacyID, transferID, actorID string) (*entity.StockTransfer, error) {
	var t *entity.StockTransfer
	var movements []*entity.StockMovement
	err := uc.tx.Run(ctx, func(r Repos) error {
		movements = movements[:0]
		var err error
		t, err = lockTransfer(ctx, r, pharmacyID, transferID)
		if err != nil {
			return err
		}
		if err := t.EnsureDraft(); err != nil {
			return err
		}
		if len(t.Items) == 0 {
			return fmt.Errorf("traslado %s sin líneas: %w", t.Reference, domain.ErrInvalidState)
		}

		lines, err := uc.resolveLines(ctx, r, t)
		if err != nil {
			return err
		}
		if err := lockLines(ctx, r, lines); err != nil {
			return err
		}

		// disponibilidad de todas las líneas antes de mover nada
		for _, ln := range lines {
			avail, err := uc.stock.batches.AvailableInTx(ctx, r, ln.source.ID, t.FromShopID)
			if err != nil {
				return err
			}
			if avail.LessThan(ln.item.Quantity) {
				return fmt.Errorf("%s: disponible %s, solicitado %s: %w",
					ln.source.SKU, avail, ln.item.Quantity, domain.ErrInsufficientStock)
			}
		}

		for _, ln := range lines {
			out, err := uc.stock.issue(ctx, r, ln.source, ln.item.Quantity, entity.MovementTransferOut, t.Reference, actorID)
			if err != nil {
				return err
			}
			in, err := uc.stock.receiveLots(ctx, r, ln.dest, out.Consumptions, entity.MovementTransferIn, t.Reference, actorID)
			if err != nil {
				return err
			}
			movements = append(movements, out.Movement, in.Movement)
		}

		if err := t.MarkValidated(actorID, uc.clock.Now()); err != nil {
			return err
		}
		return r.Transfers.UpdateStatus(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	for _, m := range movements {
		logMovement(uc.log, m)
	}
	uc.stock.batches.invalidateReports(ctx, t.FromShopID, t.ToShopID)
	uc.log.Info().Str("transfer_id", t.ID).Str("reference", t.Reference).Int("items", len(t.Items)).Msg("traslado validado")
	return t, nil
}

// resolveLines carga el producto origen de cada línea y su contraparte por SKU en la tienda destino,
// creándola con stock cero si no existe.
func (uc *TransferUseCase) resolveLines(ctx context.Context, r Repos, t *entity.StockTransfer) ([]*transferLine, error) {
	lines := make([]*transferLine, 0, len(t.Items))
	for _, it := range t.Items {
		src, err := r.Products.GetByID(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if src.ShopID != t.FromShopID {
			return nil, fmt.Errorf("producto %s fuera de la tienda origen: %w", src.SKU, domain.ErrInvalidState)
		}
		ln := &transferLine{item: it, source: src}
		dst, err := r.Products.GetByShopAndSKU(ctx, t.ToShopID, src.SKU)
		switch {
		case err == nil:
			ln.dest = dst
		case errors.Is(err, domain.ErrNotFound):
			ln.dest = src.CloneForShop(uuid.NewString(), t.ToShopID, uc.clock.Now())
			if err := r.Products.Create(ctx, ln.dest); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
		lines = append(lines, ln)
	}
	return lines, nil
}

type lockKey struct {
	shopID    string
	productID string
	target    **entity.Product
}

// lockLines bloquea todos los productos involucrados ordenados por (tienda, producto) para evitar
// interbloqueos entre traslados en sentidos opuestos, y refresca los punteros con la versión bloqueada.
func lockLines(ctx context.Context, r Repos, lines []*transferLine) error {
	keys := make([]lockKey, 0, len(lines)*2)
	for _, ln := range lines {
		keys = append(keys, lockKey{ln.source.ShopID, ln.source.ID, &ln.source})
		keys = append(keys, lockKey{ln.dest.ShopID, ln.dest.ID, &ln.dest})
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].shopID != keys[j].shopID {
			return keys[i].shopID < keys[j].shopID
		}
		return keys[i].productID < keys[j].productID
	})
	for _, k := range keys {
		p, err := lockProduct(ctx, r, k.productID, k.shopID)
		if err != nil {
			return err
		}
		*k.target = p
	}
	return nil
}

// Get traslado con sus líneas.
func (uc *TransferUseCase) Get(ctx context.Context, pharmacyID, transferID string) (*entity.StockTransfer, error) {
	t, err := uc.repos.Transfers.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if t.PharmacyID != pharmacyID {
		return nil, domain.ErrForbidden
	}
	return t, nil
}

// GetByItem traslado dueño de la línea indicada.
func (uc *TransferUseCase) GetByItem(ctx context.Context, pharmacyID, itemID string) (*entity.StockTransfer, error) {
	id, err := uc.repos.Transfers.TransferIDByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return uc.Get(ctx, pharmacyID, id)
}

// TransferQuery filtros externos del listado de traslados.
type TransferQuery struct {
	PharmacyID string
	ShopID     string
	Status     string
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

// List traslados de la farmacia, más recientes primero.
func (uc *TransferUseCase) List(ctx context.Context, q TransferQuery) ([]*entity.StockTransfer, error) {
	f := repository.TransferFilter{
		PharmacyID: q.PharmacyID,
		ShopID:     q.ShopID,
		FromDate:   q.FromDate,
		ToDate:     q.ToDate,
		Page:       repository.NewPage(q.Limit, q.Offset),
	}
	switch s := entity.TransferStatus(q.Status); s {
	case "":
	case entity.TransferDraft, entity.TransferValidated, entity.TransferCancelled:
		f.Status = s
	default:
		return nil, fmt.Errorf("estado %q: %w", q.Status, domain.ErrInvalidInput)
	}
	return uc.repos.Transfers.List(ctx, f)
}

func lockTransfer(ctx context.Context, r Repos, pharmacyID, transferID string) (*entity.StockTransfer, error) {
	t, err := r.Transfers.GetForUpdate(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if t.PharmacyID != pharmacyID {
		return nil, domain.ErrForbidden
	}
	return t, nil
}

func lockTransferByItem(ctx context.Context, r Repos, pharmacyID, itemID string) (*entity.StockTransfer, error) {
	id, err := r.Transfers.TransferIDByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return lockTransfer(ctx, r, pharmacyID, id)
}
