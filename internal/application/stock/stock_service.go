package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/inventory"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

// StockService es el único camino para modificar Product.Stock y las cantidades de lote.
// Cada operación hace, en una sola transacción, el cambio de lotes, el del agregado y el movimiento del kardex.
// Las variantes *InTx permiten componer la operación dentro de una transacción del llamador.
type StockService struct {
	tx        TxRunner
	repos     Repos
	batches   *BatchLedger
	movements *MovementLedger
	clock     Clock
	log       zerolog.Logger
}

// NewStockService construye el servicio de stock.
func NewStockService(tx TxRunner, repos Repos, batches *BatchLedger, movements *MovementLedger, clock Clock, log zerolog.Logger) *StockService {
	return &StockService{
		tx:        tx,
		repos:     repos,
		batches:   batches,
		movements: movements,
		clock:     clock,
		log:       log,
	}
}

// MutationResult estado resultante de una mutación confirmada.
type MutationResult struct {
	Product      *entity.Product
	Movement     *entity.StockMovement
	Batch        *entity.ProductBatch // lote creado/incrementado/dado de baja
	Consumptions []Consumption        // lotes consumidos (salidas)
}

// ReceiveInput recepción de mercancía (compra).
type ReceiveInput struct {
	PharmacyID string // si viene, la tienda debe pertenecer a esta farmacia
	ShopID     string
	ProductID  string
	Lot        LotInput
	Reference  string
	ActorID    string
}

// SellInput salida por venta.
type SellInput struct {
	PharmacyID string
	ShopID     string
	ProductID  string
	Quantity   entity.Quantity
	Reference  string
	ActorID    string
}

// AdjustInput corrección con signo del stock. Type debe ser adjustment o inventory_adjustment.
type AdjustInput struct {
	PharmacyID string
	ShopID     string
	ProductID  string
	Delta      decimal.Decimal
	Type       entity.MovementType
	Reference  string
	Notes      string
	ActorID    string
}

// ReturnInput devolución de cliente. BatchNumber vacío devuelve al lote que vence más tarde.
type ReturnInput struct {
	PharmacyID  string
	ShopID      string
	ProductID   string
	BatchNumber string
	Quantity    entity.Quantity
	Reference   string
	ActorID     string
}

// WriteOffInput baja de un lote (vencido, dañado).
type WriteOffInput struct {
	PharmacyID string
	ShopID     string
	BatchID    string
	Reference  string
	Notes      string
	ActorID    string
}

// ── Operaciones transaccionales ──────────────────────────────────────────────

// Receive crea o incrementa el lote, suma al stock, recalcula costo promedio y registra "purchase".
func (s *StockService) Receive(ctx context.Context, in ReceiveInput) (*MutationResult, error) {
	return s.run(ctx, func(r Repos) (*MutationResult, error) { return s.ReceiveInTx(ctx, r, in) })
}

// ReceiveInTx igual que Receive dentro de la transacción del llamador.
func (s *StockService) ReceiveInTx(ctx context.Context, r Repos, in ReceiveInput) (*MutationResult, error) {
	if !in.Lot.Quantity.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	if err := checkShopScope(ctx, r, in.ShopID, in.PharmacyID); err != nil {
		return nil, err
	}
	p, err := lockProduct(ctx, r, in.ProductID, in.ShopID)
	if err != nil {
		return nil, err
	}
	batch, err := s.batches.AddStock(ctx, r, p, in.Lot)
	if err != nil {
		return nil, err
	}
	if err := s.increase(ctx, r, p, in.Lot.Quantity, in.Lot.UnitCost); err != nil {
		return nil, err
	}
	mov, err := s.movements.Record(ctx, r.Movements, RecordInput{
		ShopID:    p.ShopID,
		ProductID: p.ID,
		Type:      entity.MovementPurchase,
		Quantity:  in.Lot.Quantity.Decimal(),
		Reference: in.Reference,
		ActorID:   in.ActorID,
	})
	if err != nil {
		return nil, err
	}
	return &MutationResult{Product: p, Movement: mov, Batch: batch}, nil
}

// Sell consume FIFO, descuenta del stock y registra "sale". Si no alcanza: ErrInsufficientStock y nada cambia.
func (s *StockService) Sell(ctx context.Context, in SellInput) (*MutationResult, error) {
	return s.run(ctx, func(r Repos) (*MutationResult, error) { return s.SellInTx(ctx, r, in) })
}

// SellInTx igual que Sell dentro de la transacción del llamador (ej: facturación).
func (s *StockService) SellInTx(ctx context.Context, r Repos, in SellInput) (*MutationResult, error) {
	if !in.Quantity.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	if err := checkShopScope(ctx, r, in.ShopID, in.PharmacyID); err != nil {
		return nil, err
	}
	p, err := lockProduct(ctx, r, in.ProductID, in.ShopID)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, r, p, in.Quantity, entity.MovementSale, in.Reference, in.ActorID)
}

// Adjust aplica un delta con signo. Negativo consume FIFO; positivo crece el lote que vence más tarde
// (o crea un lote de ajuste sin vencimiento). Nunca deja stock negativo: eso es ErrInvalidState.
func (s *StockService) Adjust(ctx context.Context, in AdjustInput) (*MutationResult, error) {
	return s.run(ctx, func(r Repos) (*MutationResult, error) { return s.AdjustInTx(ctx, r, in) })
}

// AdjustInTx igual que Adjust dentro de la transacción del llamador.
func (s *StockService) AdjustInTx(ctx context.Context, r Repos, in AdjustInput) (*MutationResult, error) {
	switch in.Type {
	case entity.MovementInventoryAdjustment, entity.MovementAdjustment:
	case entity.MovementPurchase, entity.MovementSale, entity.MovementTransferIn,
		entity.MovementTransferOut, entity.MovementReturn, entity.MovementLoss:
		return nil, fmt.Errorf("%s no es un tipo de ajuste: %w", in.Type, domain.ErrInvalidInput)
	default:
		return nil, fmt.Errorf("tipo de movimiento %q: %w", in.Type, domain.ErrInvalidInput)
	}
	if in.Delta.IsZero() {
		return nil, domain.ErrInvalidQuantity
	}
	if err := checkShopScope(ctx, r, in.ShopID, in.PharmacyID); err != nil {
		return nil, err
	}
	p, err := lockProduct(ctx, r, in.ProductID, in.ShopID)
	if err != nil {
		return nil, err
	}
	newStock, err := p.Stock.ApplyDelta(in.Delta)
	if err != nil {
		return nil, fmt.Errorf("ajuste %s deja stock negativo en %s: %w", in.Delta, p.SKU, domain.ErrInvalidState)
	}

	res := &MutationResult{Product: p}
	abs, _ := entity.NewQuantity(in.Delta.Abs())
	if in.Delta.IsNegative() {
		cons, err := s.batches.Consume(ctx, r, p.ID, p.ShopID, abs)
		if errors.Is(err, domain.ErrInsufficientStock) {
			return nil, fmt.Errorf("lotes no cubren el stock de %s: %w", p.SKU, domain.ErrInvalidState)
		}
		if err != nil {
			return nil, err
		}
		res.Consumptions = cons
	} else {
		b, err := s.putBack(ctx, r, p, "", abs, "AJU", in.Reference)
		if err != nil {
			return nil, err
		}
		res.Batch = b
	}

	p.Stock = newStock
	p.UpdatedAt = s.clock.Now()
	if err := r.Products.UpdateStock(ctx, p); err != nil {
		return nil, err
	}
	res.Movement, err = s.movements.Record(ctx, r.Movements, RecordInput{
		ShopID:    p.ShopID,
		ProductID: p.ID,
		Type:      in.Type,
		Quantity:  in.Delta,
		Reference: in.Reference,
		Notes:     in.Notes,
		ActorID:   in.ActorID,
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Return devuelve unidades a un lote y registra "return".
func (s *StockService) Return(ctx context.Context, in ReturnInput) (*MutationResult, error) {
	return s.run(ctx, func(r Repos) (*MutationResult, error) { return s.ReturnInTx(ctx, r, in) })
}

// ReturnInTx igual que Return dentro de la transacción del llamador.
func (s *StockService) ReturnInTx(ctx context.Context, r Repos, in ReturnInput) (*MutationResult, error) {
	if !in.Quantity.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	if err := checkShopScope(ctx, r, in.ShopID, in.PharmacyID); err != nil {
		return nil, err
	}
	p, err := lockProduct(ctx, r, in.ProductID, in.ShopID)
	if err != nil {
		return nil, err
	}
	b, err := s.putBack(ctx, r, p, in.BatchNumber, in.Quantity, "DEV", in.Reference)
	if err != nil {
		return nil, err
	}
	if err := s.increase(ctx, r, p, in.Quantity, nil); err != nil {
		return nil, err
	}
	mov, err := s.movements.Record(ctx, r.Movements, RecordInput{
		ShopID:    p.ShopID,
		ProductID: p.ID,
		Type:      entity.MovementReturn,
		Quantity:  in.Quantity.Decimal(),
		Reference: in.Reference,
		ActorID:   in.ActorID,
	})
	if err != nil {
		return nil, err
	}
	return &MutationResult{Product: p, Movement: mov, Batch: b}, nil
}

// WriteOffBatch desactiva un lote; si aún tenía existencia la descuenta del stock con un movimiento "loss".
func (s *StockService) WriteOffBatch(ctx context.Context, in WriteOffInput) (*MutationResult, error) {
	return s.run(ctx, func(r Repos) (*MutationResult, error) {
		if err := checkShopScope(ctx, r, in.ShopID, in.PharmacyID); err != nil {
			return nil, err
		}
		current, err := r.Batches.GetByID(ctx, in.BatchID)
		if err != nil {
			return nil, err
		}
		if current.ShopID != in.ShopID {
			return nil, fmt.Errorf("lote %s: %w", in.BatchID, domain.ErrNotFound)
		}
		// producto antes que lote: mismo orden de bloqueo que el resto de operaciones
		p, err := lockProduct(ctx, r, current.ProductID, in.ShopID)
		if err != nil {
			return nil, err
		}
		b, lost, err := s.batches.Deactivate(ctx, r, in.BatchID)
		if err != nil {
			return nil, err
		}
		res := &MutationResult{Product: p, Batch: b}
		if lost.IsZero() {
			return res, nil
		}
		newStock, err := p.Stock.Sub(lost)
		if err != nil {
			return nil, fmt.Errorf("baja de lote %s: %w", b.BatchNumber, domain.ErrInvalidState)
		}
		p.Stock = newStock
		p.UpdatedAt = s.clock.Now()
		if err := r.Products.UpdateStock(ctx, p); err != nil {
			return nil, err
		}
		ref := in.Reference
		if ref == "" {
			ref = b.BatchNumber
		}
		res.Movement, err = s.movements.Record(ctx, r.Movements, RecordInput{
			ShopID:    p.ShopID,
			ProductID: p.ID,
			Type:      entity.MovementLoss,
			Quantity:  lost.Decimal().Neg(),
			Reference: ref,
			Notes:     in.Notes,
			ActorID:   in.ActorID,
		})
		if err != nil {
			return nil, err
		}
		return res, nil
	})
}

// ── Consultas ────────────────────────────────────────────────────────────────

// Product producto por id, validando que pertenezca a la tienda.
func (s *StockService) Product(ctx context.Context, shopID, productID string) (*entity.Product, error) {
	p, err := s.repos.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if shopID != "" && p.ShopID != shopID {
		return nil, fmt.Errorf("producto %s: %w", productID, domain.ErrNotFound)
	}
	return p, nil
}

// AuthorizeShop valida que la tienda exista y pertenezca a la farmacia del llamador (lecturas por tienda).
func (s *StockService) AuthorizeShop(ctx context.Context, pharmacyID, shopID string) error {
	if shopID == "" {
		return domain.ErrInvalidInput
	}
	return checkShopScope(ctx, s.repos, shopID, pharmacyID)
}

// StockCheck compara las tres representaciones del stock de un producto.
type StockCheck struct {
	ProductID   string
	Stock       decimal.Decimal
	BatchTotal  decimal.Decimal
	LedgerTotal decimal.Decimal
}

// Consistent reporta si stock, lotes y kardex coinciden.
func (c StockCheck) Consistent() bool {
	return c.Stock.Equal(c.BatchTotal) && c.Stock.Equal(c.LedgerTotal)
}

// Check lectura sin bloqueo de stock, suma de lotes activos y suma del kardex.
func (s *StockService) Check(ctx context.Context, shopID, productID string) (*StockCheck, error) {
	p, err := s.Product(ctx, shopID, productID)
	if err != nil {
		return nil, err
	}
	batchTotal := decimal.Zero
	for offset := 0; ; offset += repository.MaxLimit {
		page, err := s.repos.Batches.Search(ctx, repository.BatchFilter{
			ShopID:    p.ShopID,
			ProductID: p.ID,
			Page:      repository.NewPage(repository.MaxLimit, offset),
		})
		if err != nil {
			return nil, err
		}
		for _, b := range page {
			if b.IsActive {
				batchTotal = batchTotal.Add(b.Quantity.Decimal())
			}
		}
		if len(page) < repository.MaxLimit {
			break
		}
	}
	ledger, err := s.movements.Balance(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &StockCheck{ProductID: p.ID, Stock: p.Stock.Decimal(), BatchTotal: batchTotal, LedgerTotal: ledger}, nil
}

// ── internos ─────────────────────────────────────────────────────────────────

// run ejecuta fn en una transacción y, confirmada, registra el movimiento en el log e invalida caché.
func (s *StockService) run(ctx context.Context, fn func(r Repos) (*MutationResult, error)) (*MutationResult, error) {
	var res *MutationResult
	err := s.tx.Run(ctx, func(r Repos) error {
		var err error
		res, err = fn(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Movement != nil {
		logMovement(s.log, res.Movement)
	}
	s.batches.invalidateReports(ctx, res.Product.ShopID)
	return res, nil
}

// issue salida FIFO del producto ya bloqueado (venta o traslado).
func (s *StockService) issue(ctx context.Context, r Repos, p *entity.Product, q entity.Quantity, t entity.MovementType, ref, actor string) (*MutationResult, error) {
	cons, err := s.batches.Consume(ctx, r, p.ID, p.ShopID, q)
	if err != nil {
		return nil, err
	}
	newStock, err := p.Stock.Sub(q)
	if err != nil {
		return nil, fmt.Errorf("stock de %s menor que sus lotes: %w", p.SKU, domain.ErrInvalidState)
	}
	p.Stock = newStock
	p.UpdatedAt = s.clock.Now()
	if err := r.Products.UpdateStock(ctx, p); err != nil {
		return nil, err
	}
	mov, err := s.movements.Record(ctx, r.Movements, RecordInput{
		ShopID:    p.ShopID,
		ProductID: p.ID,
		Type:      t,
		Quantity:  q.Decimal().Neg(),
		Reference: ref,
		ActorID:   actor,
	})
	if err != nil {
		return nil, err
	}
	return &MutationResult{Product: p, Movement: mov, Consumptions: cons}, nil
}

// receiveLots entrada de varios lotes (traslado) con un solo movimiento por el total.
func (s *StockService) receiveLots(ctx context.Context, r Repos, p *entity.Product, lots []Consumption, t entity.MovementType, ref, actor string) (*MutationResult, error) {
	total := entity.ZeroQuantity()
	for _, c := range lots {
		cost := c.UnitCost
		var costPtr *entity.Money
		if cost.Currency() != "" {
			costPtr = &cost
		}
		if _, err := s.batches.AddStock(ctx, r, p, LotInput{
			BatchNumber:    c.BatchNumber,
			Quantity:       c.Quantity,
			ExpirationDate: c.ExpirationDate,
			UnitCost:       costPtr,
		}); err != nil {
			return nil, err
		}
		if err := s.increase(ctx, r, p, c.Quantity, costPtr); err != nil {
			return nil, err
		}
		total = total.Add(c.Quantity)
	}
	mov, err := s.movements.Record(ctx, r.Movements, RecordInput{
		ShopID:    p.ShopID,
		ProductID: p.ID,
		Type:      t,
		Quantity:  total.Decimal(),
		Reference: ref,
		ActorID:   actor,
	})
	if err != nil {
		return nil, err
	}
	return &MutationResult{Product: p, Movement: mov}, nil
}

// increase suma q al stock y, si viene costo, recalcula el costo promedio ponderado.
func (s *StockService) increase(ctx context.Context, r Repos, p *entity.Product, q entity.Quantity, unitCost *entity.Money) error {
	if unitCost != nil {
		cost, err := inventory.CalculateWeightedAverageCost(p.Stock, p.Cost, q, *unitCost)
		if err != nil {
			return err
		}
		p.Cost = cost
	}
	p.Stock = p.Stock.Add(q)
	p.UpdatedAt = s.clock.Now()
	return r.Products.UpdateStock(ctx, p)
}

// putBack suma q al lote indicado por número o, si no hay número, al activo que vence más tarde.
// Sin lotes activos crea uno sin vencimiento con el prefijo dado.
func (s *StockService) putBack(ctx context.Context, r Repos, p *entity.Product, batchNumber string, q entity.Quantity, prefix, ref string) (*entity.ProductBatch, error) {
	if batchNumber != "" {
		b, err := r.Batches.GetActiveByNumber(ctx, p.ID, batchNumber)
		if err != nil {
			return nil, err
		}
		if err := s.batches.grow(ctx, r, b, q); err != nil {
			return nil, err
		}
		return b, nil
	}
	b, err := s.batches.lastToExpire(ctx, r, p.ID, p.ShopID)
	switch {
	case err == nil:
		if err := s.batches.grow(ctx, r, b, q); err != nil {
			return nil, err
		}
		return b, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	number := prefix + "-" + ref
	if ref == "" {
		number = prefix + "-" + s.clock.Now().Format("20060102")
	}
	return s.batches.AddStock(ctx, r, p, LotInput{BatchNumber: number, Quantity: q})
}

// lockProduct bloquea el producto y valida que pertenezca a la tienda y esté activo.
func lockProduct(ctx context.Context, r Repos, productID, shopID string) (*entity.Product, error) {
	if productID == "" || shopID == "" {
		return nil, domain.ErrInvalidInput
	}
	p, err := r.Products.GetForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.ShopID != shopID {
		return nil, fmt.Errorf("producto %s en tienda %s: %w", productID, shopID, domain.ErrNotFound)
	}
	if !p.IsActive {
		return nil, fmt.Errorf("producto %s inactivo: %w", p.SKU, domain.ErrInvalidState)
	}
	return p, nil
}

// checkShopScope valida que la tienda exista y pertenezca a la farmacia (si se indicó una).
func checkShopScope(ctx context.Context, r Repos, shopID, pharmacyID string) error {
	if pharmacyID == "" {
		return nil
	}
	shop, err := r.Shops.GetByID(ctx, shopID)
	if err != nil {
		return err
	}
	if shop.PharmacyID != pharmacyID {
		return domain.ErrForbidden
	}
	return nil
}

func logMovement(log zerolog.Logger, m *entity.StockMovement) {
	log.Info().
		Str("shop_id", m.ShopID).
		Str("product_id", m.ProductID).
		Str("movement_type", string(m.Type)).
		Str("reference", m.Reference).
		Str("quantity", m.Quantity.String()).
		Msg("movimiento de stock")
}
