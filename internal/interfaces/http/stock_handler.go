package http

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-pos-api/internal/application/dto"
	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// StockHandler operaciones de stock por tienda: recepción, venta, ajuste, devolución y consultas.
type StockHandler struct {
	svc       *stock.StockService
	batches   *stock.BatchLedger
	movements *stock.MovementLedger
	currency  string
	retry     retrier
	log       zerolog.Logger
}

// NewStockHandler construye el handler. currency es la moneda por defecto de los costos recibidos.
func NewStockHandler(svc *stock.StockService, batches *stock.BatchLedger, movements *stock.MovementLedger, currency string, retries int, log zerolog.Logger) *StockHandler {
	return &StockHandler{svc: svc, batches: batches, movements: movements, currency: currency, retry: newRetrier(retries), log: log}
}

// authorizeShop la tienda debe estar permitida por el token y pertenecer a su farmacia.
func authorizeShop(c *fiber.Ctx, svc *stock.StockService) (string, error) {
	shopID, err := pathID(c, "shop_id")
	if err != nil {
		return "", err
	}
	claims := GetClaims(c)
	if claims == nil || !claims.CanAccessShop(shopID) {
		return "", domain.ErrForbidden
	}
	if err := svc.AuthorizeShop(c.Context(), claims.PharmacyID, shopID); err != nil {
		return "", err
	}
	return shopID, nil
}

// Receive godoc
// @Summary  Recepción de mercancía (crea o incrementa un lote)
// @Tags     stock
// @Router   /api/shops/{shop_id}/stock/receive [post]
func (h *StockHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	q, err := positiveQuantity(in.Quantity)
	if err != nil {
		return writeError(c, h.log, err)
	}
	exp, err := expirationDate(in.ExpirationDate)
	if err != nil {
		return writeError(c, h.log, err)
	}
	lot := stock.LotInput{
		BatchNumber:         in.BatchNumber,
		Quantity:            q,
		ExpirationDate:      exp,
		PurchaseOrderID:     in.PurchaseOrderID,
		PurchaseOrderLineID: in.PurchaseOrderLineID,
	}
	if in.UnitCost != nil {
		currency := in.Currency
		if currency == "" {
			currency = h.currency
		}
		cost, err := entity.NewMoney(*in.UnitCost, currency)
		if err != nil {
			return writeError(c, h.log, err)
		}
		lot.UnitCost = &cost
	}
	return h.mutate(c, fiber.StatusCreated, func(ctx context.Context, shopID string) (*stock.MutationResult, error) {
		return h.svc.Receive(ctx, stock.ReceiveInput{
			PharmacyID: GetPharmacyID(c),
			ShopID:     shopID,
			ProductID:  in.ProductID,
			Lot:        lot,
			Reference:  in.Reference,
			ActorID:    GetUserID(c),
		})
	})
}

// Sell godoc
// @Summary  Venta: consume lotes en orden FIFO por vencimiento
// @Tags     stock
// @Router   /api/shops/{shop_id}/stock/sell [post]
func (h *StockHandler) Sell(c *fiber.Ctx) error {
	var in dto.SellRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	q, err := positiveQuantity(in.Quantity)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return h.mutate(c, fiber.StatusOK, func(ctx context.Context, shopID string) (*stock.MutationResult, error) {
		return h.svc.Sell(ctx, stock.SellInput{
			PharmacyID: GetPharmacyID(c),
			ShopID:     shopID,
			ProductID:  in.ProductID,
			Quantity:   q,
			Reference:  in.Reference,
			ActorID:    GetUserID(c),
		})
	})
}

// Adjust ajuste manual con delta con signo (por defecto tipo "adjustment").
func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	t := entity.MovementAdjustment
	if in.Type != "" {
		parsed, err := entity.ParseMovementType(in.Type)
		if err != nil {
			return writeError(c, h.log, err)
		}
		t = parsed
	}
	return h.mutate(c, fiber.StatusOK, func(ctx context.Context, shopID string) (*stock.MutationResult, error) {
		return h.svc.Adjust(ctx, stock.AdjustInput{
			PharmacyID: GetPharmacyID(c),
			ShopID:     shopID,
			ProductID:  in.ProductID,
			Delta:      in.Delta,
			Type:       t,
			Reference:  in.Reference,
			Notes:      in.Notes,
			ActorID:    GetUserID(c),
		})
	})
}

// Return devolución de cliente al lote indicado (o al de vencimiento más lejano).
func (h *StockHandler) Return(c *fiber.Ctx) error {
	var in dto.ReturnRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	q, err := positiveQuantity(in.Quantity)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return h.mutate(c, fiber.StatusOK, func(ctx context.Context, shopID string) (*stock.MutationResult, error) {
		return h.svc.Return(ctx, stock.ReturnInput{
			PharmacyID:  GetPharmacyID(c),
			ShopID:      shopID,
			ProductID:   in.ProductID,
			BatchNumber: in.BatchNumber,
			Quantity:    q,
			Reference:   in.Reference,
			ActorID:     GetUserID(c),
		})
	})
}

// WriteOff baja de un lote; su existencia sale del stock como pérdida.
func (h *StockHandler) WriteOff(c *fiber.Ctx) error {
	batchID, err := pathID(c, "batch_id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var in dto.WriteOffRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "INVALID_BODY", "cuerpo inválido")
		}
	}
	return h.mutate(c, fiber.StatusOK, func(ctx context.Context, shopID string) (*stock.MutationResult, error) {
		return h.svc.WriteOffBatch(ctx, stock.WriteOffInput{
			PharmacyID: GetPharmacyID(c),
			ShopID:     shopID,
			BatchID:    batchID,
			Reference:  in.Reference,
			Notes:      in.Notes,
			ActorID:    GetUserID(c),
		})
	})
}

// mutate autoriza la tienda, ejecuta la mutación con reintentos y responde el resultado.
func (h *StockHandler) mutate(c *fiber.Ctx, status int, op func(ctx context.Context, shopID string) (*stock.MutationResult, error)) error {
	shopID, err := authorizeShop(c, h.svc)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var res *stock.MutationResult
	err = h.retry.do(c.Context(), func() error {
		var err error
		res, err = op(c.Context(), shopID)
		return err
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(status).JSON(h.mutationResponse(res))
}

func (h *StockHandler) mutationResponse(res *stock.MutationResult) dto.StockMutationResponse {
	out := dto.StockMutationResponse{Product: dto.ToProductStockResponse(res.Product)}
	if res.Movement != nil {
		m := dto.ToMovementResponse(res.Movement)
		out.Movement = &m
	}
	if res.Batch != nil {
		b := dto.ToBatchResponse(res.Batch, string(h.batches.Classify(res.Batch)))
		out.Batch = &b
	}
	for _, cons := range res.Consumptions {
		out.Consumptions = append(out.Consumptions, dto.ConsumptionResponse{
			BatchID:     cons.BatchID,
			BatchNumber: cons.BatchNumber,
			Quantity:    cons.Quantity.Decimal(),
		})
	}
	return out
}

// ── Consultas ────────────────────────────────────────────────────────────────

// GetProduct stock y costo promedio de un producto de la tienda.
func (h *StockHandler) GetProduct(c *fiber.Ctx) error {
	shopID, productID, err := h.productPath(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	p, err := h.svc.Product(c.Context(), shopID, productID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToProductStockResponse(p))
}

// Check compara stock, suma de lotes activos y suma del kardex.
func (h *StockHandler) Check(c *fiber.Ctx) error {
	shopID, productID, err := h.productPath(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	check, err := h.svc.Check(c.Context(), shopID, productID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.StockCheckResponse{
		ProductID:   check.ProductID,
		Stock:       check.Stock,
		BatchTotal:  check.BatchTotal,
		LedgerTotal: check.LedgerTotal,
		Consistent:  check.Consistent(),
	})
}

// ProductMovements kardex de un producto, del más reciente al más antiguo.
func (h *StockHandler) ProductMovements(c *fiber.Ctx) error {
	shopID, productID, err := h.productPath(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if _, err := h.svc.Product(c.Context(), shopID, productID); err != nil {
		return writeError(c, h.log, err)
	}
	limit, offset := page(c)
	list, err := h.movements.FindByProduct(c.Context(), productID, limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"total": len(list), "movements": dto.ToMovementResponses(list)})
}

// Movements kardex de la tienda con filtros type, product_id, reference, from, to.
func (h *StockHandler) Movements(c *fiber.Ctx) error {
	shopID, err := authorizeShop(c, h.svc)
	if err != nil {
		return writeError(c, h.log, err)
	}
	from, err := queryDate(c, "from", false)
	if err != nil {
		return writeError(c, h.log, err)
	}
	to, err := queryDate(c, "to", true)
	if err != nil {
		return writeError(c, h.log, err)
	}
	limit, offset := page(c)
	list, err := h.movements.FindByShopFiltered(c.Context(), stock.MovementQuery{
		ShopID:    shopID,
		ProductID: c.Query("product_id"),
		Type:      c.Query("type"),
		Reference: c.Query("reference"),
		FromDate:  from,
		ToDate:    to,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"total": len(list), "movements": dto.ToMovementResponses(list)})
}

func (h *StockHandler) productPath(c *fiber.Ctx) (string, string, error) {
	shopID, err := authorizeShop(c, h.svc)
	if err != nil {
		return "", "", err
	}
	productID, err := pathID(c, "product_id")
	if err != nil {
		return "", "", err
	}
	return shopID, productID, nil
}

// ── Lotes y vencimientos ─────────────────────────────────────────────────────

// Batches búsqueda de lotes: status (expired|expiring_soon|ok), search, product_id, include_inactive.
func (h *StockHandler) Batches(c *fiber.Ctx) error {
	shopID, err := authorizeShop(c, h.svc)
	if err != nil {
		return writeError(c, h.log, err)
	}
	limit, offset := page(c)
	list, err := h.batches.Search(c.Context(), stock.BatchQuery{
		ShopID:          shopID,
		ProductID:       c.Query("product_id"),
		Status:          c.Query("status"),
		Search:          c.Query("search"),
		IncludeInactive: c.QueryBool("include_inactive", false),
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"total": len(list), "batches": h.batchResponses(list)})
}

// Batch detalle de un lote de la tienda.
func (h *StockHandler) Batch(c *fiber.Ctx) error {
	shopID, err := authorizeShop(c, h.svc)
	if err != nil {
		return writeError(c, h.log, err)
	}
	batchID, err := pathID(c, "batch_id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	b, err := h.batches.GetByID(c.Context(), batchID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if b.ShopID != shopID {
		return writeError(c, h.log, fmt.Errorf("lote %s: %w", batchID, domain.ErrNotFound))
	}
	return c.JSON(dto.ToBatchResponse(b, string(h.batches.Classify(b))))
}

// Expiring lotes con existencia que vencen en los próximos ?days días (por defecto la ventana configurada).
func (h *StockHandler) Expiring(c *fiber.Ctx) error {
	shopID, err := authorizeShop(c, h.svc)
	if err != nil {
		return writeError(c, h.log, err)
	}
	days := c.QueryInt("days", 0)
	if days < 0 {
		return writeError(c, h.log, fmt.Errorf("days negativo: %w", domain.ErrInvalidInput))
	}
	list, err := h.batches.FindExpiring(c.Context(), shopID, days)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"total": len(list), "batches": h.batchResponses(list)})
}

// Expired lotes vencidos con existencia a la fecha ?as_of (por defecto hoy).
func (h *StockHandler) Expired(c *fiber.Ctx) error {
	shopID, err := authorizeShop(c, h.svc)
	if err != nil {
		return writeError(c, h.log, err)
	}
	asOf, err := queryDate(c, "as_of", false)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var at time.Time
	if asOf != nil {
		at = *asOf
	}
	list, err := h.batches.FindExpired(c.Context(), shopID, at)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"total": len(list), "batches": h.batchResponses(list)})
}

// ExpiryReport resumen por estado de vencimiento (servido desde caché cuando está disponible).
func (h *StockHandler) ExpiryReport(c *fiber.Ctx) error {
	shopID, err := authorizeShop(c, h.svc)
	if err != nil {
		return writeError(c, h.log, err)
	}
	report, err := h.batches.ExpiryReport(c.Context(), shopID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(report)
}

func (h *StockHandler) batchResponses(list []*entity.ProductBatch) []dto.BatchResponse {
	out := make([]dto.BatchResponse, 0, len(list))
	for _, b := range list {
		out = append(out, dto.ToBatchResponse(b, string(h.batches.Classify(b))))
	}
	return out
}
