package stock

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

// InventoryUseCase conteo físico: se abre congelando el stock del sistema, se registran conteos
// y al validar se generan los ajustes "inventory_adjustment" por las diferencias.
type InventoryUseCase struct {
	tx    TxRunner
	repos Repos
	stock *StockService
	refs  ReferenceGenerator
	clock Clock
	log   zerolog.Logger
}

// NewInventoryUseCase construye el caso de uso de inventario físico.
func NewInventoryUseCase(tx TxRunner, repos Repos, stock *StockService, refs ReferenceGenerator, clock Clock, log zerolog.Logger) *InventoryUseCase {
	return &InventoryUseCase{tx: tx, repos: repos, stock: stock, refs: refs, clock: clock, log: log}
}

// StartInventoryInput datos para abrir un conteo.
type StartInventoryInput struct {
	PharmacyID string
	ShopID     string
	Notes      string
	ActorID    string
}

// Start abre un inventario con una línea por producto activo de la tienda (cantidad del sistema congelada).
// Solo puede haber un inventario abierto por tienda.
func (uc *InventoryUseCase) Start(ctx context.Context, in StartInventoryInput) (*entity.Inventory, error) {
	shop, err := uc.repos.Shops.GetByID(ctx, in.ShopID)
	if err != nil {
		return nil, err
	}
	if shop.PharmacyID != in.PharmacyID {
		return nil, domain.ErrForbidden
	}
	now := uc.clock.Now()
	ref, err := uc.refs.Next(ctx, in.PharmacyID, InventoryRefPrefix, now)
	if err != nil {
		return nil, fmt.Errorf("generar referencia: %w", err)
	}

	inv := &entity.Inventory{
		ID:        uuid.NewString(),
		ShopID:    in.ShopID,
		Reference: ref,
		Status:    entity.InventoryDraft,
		Notes:     in.Notes,
		CreatedBy: in.ActorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = uc.tx.Run(ctx, func(r Repos) error {
		open, err := r.Inventories.List(ctx, repository.InventoryFilter{
			ShopID: in.ShopID,
			Status: entity.InventoryDraft,
			Page:   repository.NewPage(1, 0),
		})
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return fmt.Errorf("la tienda ya tiene el inventario %s abierto: %w", open[0].Reference, domain.ErrInvalidState)
		}
		products, err := r.Products.ListActiveByShop(ctx, in.ShopID)
		if err != nil {
			return err
		}
		inv.Items = make([]entity.InventoryItem, 0, len(products))
		for _, p := range products {
			inv.Items = append(inv.Items, entity.InventoryItem{
				ID:             uuid.NewString(),
				InventoryID:    inv.ID,
				ProductID:      p.ID,
				SystemQuantity: p.Stock,
				UpdatedAt:      now,
			})
		}
		return r.Inventories.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("inventory_id", inv.ID).Str("reference", inv.Reference).Int("items", len(inv.Items)).Msg("inventario iniciado")
	return inv, nil
}

// RecordCount registra la cantidad contada de una línea y recalcula la diferencia.
func (uc *InventoryUseCase) RecordCount(ctx context.Context, pharmacyID, itemID string, counted entity.Quantity) (*entity.InventoryItem, error) {
	var item *entity.InventoryItem
	err := uc.tx.Run(ctx, func(r Repos) error {
		id, err := r.Inventories.InventoryIDByItem(ctx, itemID)
		if err != nil {
			return err
		}
		inv, err := uc.lock(ctx, r, pharmacyID, id)
		if err != nil {
			return err
		}
		item, err = inv.RecordCount(itemID, counted, uc.clock.Now())
		if err != nil {
			return err
		}
		return r.Inventories.UpdateItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Validate cierra el inventario. Todo corre en una transacción con el inventario bloqueado:
// si algo falla no queda ningún ajuste aplicado y puede reintentarse; una vez validado,
// reintentar devuelve ErrInvalidState.
func (uc *InventoryUseCase) Validate(ctx context.Context, pharmacyID, inventoryID, actorID string) (*entity.Inventory, error) {
	var inv *entity.Inventory
	var movements []*entity.StockMovement
	err := uc.tx.Run(ctx, func(r Repos) error {
		movements = movements[:0]
		var err error
		inv, err = uc.lock(ctx, r, pharmacyID, inventoryID)
		if err != nil {
			return err
		}
		if err := inv.MarkValidated(actorID, uc.clock.Now()); err != nil {
			return err
		}

		items := make([]entity.InventoryItem, len(inv.Items))
		copy(items, inv.Items)
		sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
		for _, it := range items {
			if it.Difference == nil || it.Difference.IsZero() {
				continue
			}
			res, err := uc.stock.AdjustInTx(ctx, r, AdjustInput{
				ShopID:    inv.ShopID,
				ProductID: it.ProductID,
				Delta:     *it.Difference,
				Type:      entity.MovementInventoryAdjustment,
				Reference: inv.Reference,
				ActorID:   actorID,
			})
			if err != nil {
				return fmt.Errorf("ajuste de %s: %w", it.ProductID, err)
			}
			movements = append(movements, res.Movement)
		}
		return r.Inventories.UpdateStatus(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	for _, m := range movements {
		logMovement(uc.log, m)
	}
	uc.stock.batches.invalidateReports(ctx, inv.ShopID)
	uc.log.Info().Str("inventory_id", inv.ID).Str("reference", inv.Reference).Int("adjustments", len(movements)).Msg("inventario validado")
	return inv, nil
}

// Get inventario con sus líneas.
func (uc *InventoryUseCase) Get(ctx context.Context, pharmacyID, inventoryID string) (*entity.Inventory, error) {
	inv, err := uc.repos.Inventories.GetByID(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	if err := checkShopScope(ctx, uc.repos, inv.ShopID, pharmacyID); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetByItem inventario dueño de la línea indicada.
func (uc *InventoryUseCase) GetByItem(ctx context.Context, pharmacyID, itemID string) (*entity.Inventory, error) {
	id, err := uc.repos.Inventories.InventoryIDByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return uc.Get(ctx, pharmacyID, id)
}

// InventoryQuery filtros externos del listado de inventarios.
type InventoryQuery struct {
	PharmacyID string
	ShopID     string
	Status     string
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

// List inventarios de una tienda, más recientes primero.
func (uc *InventoryUseCase) List(ctx context.Context, q InventoryQuery) ([]*entity.Inventory, error) {
	if q.ShopID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := checkShopScope(ctx, uc.repos, q.ShopID, q.PharmacyID); err != nil {
		return nil, err
	}
	f := repository.InventoryFilter{
		ShopID:   q.ShopID,
		FromDate: q.FromDate,
		ToDate:   q.ToDate,
		Page:     repository.NewPage(q.Limit, q.Offset),
	}
	switch s := entity.InventoryStatus(q.Status); s {
	case "":
	case entity.InventoryDraft, entity.InventoryValidated:
		f.Status = s
	default:
		return nil, fmt.Errorf("estado %q: %w", q.Status, domain.ErrInvalidInput)
	}
	return uc.repos.Inventories.List(ctx, f)
}

func (uc *InventoryUseCase) lock(ctx context.Context, r Repos, pharmacyID, inventoryID string) (*entity.Inventory, error) {
	inv, err := r.Inventories.GetForUpdate(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	if err := checkShopScope(ctx, r, inv.ShopID, pharmacyID); err != nil {
		return nil, err
	}
	return inv, nil
}
