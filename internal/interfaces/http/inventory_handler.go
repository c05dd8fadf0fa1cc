package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-pos-api/internal/application/dto"
	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// InventoryHandler inventarios físicos (conteo y ajuste) y lista de reposición (protegido).
type InventoryHandler struct {
	uc            *stock.InventoryUseCase
	replenishment *stock.ReplenishmentUseCase
	svc           *stock.StockService
	retry         retrier
	log           zerolog.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(uc *stock.InventoryUseCase, replenishment *stock.ReplenishmentUseCase, svc *stock.StockService, retries int, log zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{uc: uc, replenishment: replenishment, svc: svc, retry: newRetrier(retries), log: log}
}

// Start godoc
// @Summary  Abrir inventario: toma la foto del stock de cada producto activo de la tienda
// @Tags     inventories
// @Router   /api/inventories [post]
func (h *InventoryHandler) Start(c *fiber.Ctx) error {
	var in dto.StartInventoryRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if !canAccessShop(c, in.ShopID) {
		return writeError(c, h.log, domain.ErrForbidden)
	}
	var inv *entity.Inventory
	err := h.retry.do(c.Context(), func() error {
		var err error
		inv, err = h.uc.Start(c.Context(), stock.StartInventoryInput{
			PharmacyID: GetPharmacyID(c),
			ShopID:     in.ShopID,
			Notes:      in.Notes,
			ActorID:    GetUserID(c),
		})
		return err
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToInventoryResponse(inv))
}

func (h *InventoryHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	inv, err := h.uc.Get(c.Context(), GetPharmacyID(c), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !canAccessShop(c, inv.ShopID) {
		return writeError(c, h.log, domain.ErrForbidden)
	}
	return c.JSON(dto.ToInventoryResponse(inv))
}

// List filtros: shop_id, status, from, to, limit, offset.
func (h *InventoryHandler) List(c *fiber.Ctx) error {
	from, err := queryDate(c, "from", false)
	if err != nil {
		return writeError(c, h.log, err)
	}
	to, err := queryDate(c, "to", true)
	if err != nil {
		return writeError(c, h.log, err)
	}
	shopID, err := scopedShop(c, c.Query("shop_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	limit, offset := page(c)
	list, err := h.uc.List(c.Context(), stock.InventoryQuery{
		PharmacyID: GetPharmacyID(c),
		ShopID:     shopID,
		Status:     c.Query("status"),
		FromDate:   from,
		ToDate:     to,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.InventoryResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, dto.ToInventoryResponse(inv))
	}
	return c.JSON(fiber.Map{"total": len(out), "inventories": out})
}

// RecordCount registra la cantidad contada de una línea; la diferencia se recalcula.
func (h *InventoryHandler) RecordCount(c *fiber.Ctx) error {
	itemID, err := pathID(c, "item_id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var in dto.QuantityRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	counted, err := entity.NewQuantity(in.Quantity)
	if err != nil {
		return writeError(c, h.log, domain.ErrInvalidQuantity)
	}
	owner, err := h.uc.GetByItem(c.Context(), GetPharmacyID(c), itemID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !canAccessShop(c, owner.ShopID) {
		return writeError(c, h.log, domain.ErrForbidden)
	}
	var item *entity.InventoryItem
	err = h.retry.do(c.Context(), func() error {
		var err error
		item, err = h.uc.RecordCount(c.Context(), GetPharmacyID(c), itemID, counted)
		return err
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToInventoryItemResponse(item))
}

// Validate aplica todas las diferencias como ajustes de inventario en una sola transacción.
func (h *InventoryHandler) Validate(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	current, err := h.uc.Get(c.Context(), GetPharmacyID(c), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !canAccessShop(c, current.ShopID) {
		return writeError(c, h.log, domain.ErrForbidden)
	}
	var inv *entity.Inventory
	err = h.retry.do(c.Context(), func() error {
		var err error
		inv, err = h.uc.Validate(c.Context(), GetPharmacyID(c), id, GetUserID(c))
		return err
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToInventoryResponse(inv))
}

// GetReplenishmentList godoc
// @Summary      Lista de reposición
// @Description  Productos de la tienda por debajo de su stock mínimo con la cantidad sugerida de pedido,
//
//	ordenados por déficit.
//
// @Tags         inventory
// @Router       /api/shops/{shop_id}/replenishment [get]
func (h *InventoryHandler) GetReplenishmentList(c *fiber.Ctx) error {
	shopID, err := authorizeShop(c, h.svc)
	if err != nil {
		return writeError(c, h.log, err)
	}
	list, err := h.replenishment.GenerateReplenishmentList(c.Context(), GetPharmacyID(c), shopID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"total":          len(list),
		"replenishments": list,
	})
}
