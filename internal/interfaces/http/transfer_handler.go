package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-pos-api/internal/application/dto"
	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// TransferHandler traslados entre tiendas de la misma farmacia.
type TransferHandler struct {
	uc    *stock.TransferUseCase
	retry retrier
	log   zerolog.Logger
}

// NewTransferHandler construye el handler.
func NewTransferHandler(uc *stock.TransferUseCase, retries int, log zerolog.Logger) *TransferHandler {
	return &TransferHandler{uc: uc, retry: newRetrier(retries), log: log}
}

// Create godoc
// @Summary  Crear traslado en borrador
// @Tags     transfers
// @Router   /api/transfers [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if !canAccessShop(c, in.FromShopID) {
		return writeError(c, h.log, domain.ErrForbidden)
	}
	var t *entity.StockTransfer
	err := h.retry.do(c.Context(), func() error {
		var err error
		t, err = h.uc.Create(c.Context(), stock.CreateTransferInput{
			PharmacyID: GetPharmacyID(c),
			FromShopID: in.FromShopID,
			ToShopID:   in.ToShopID,
			Notes:      in.Notes,
			ActorID:    GetUserID(c),
		})
		return err
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToTransferResponse(t))
}

func (h *TransferHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	t, err := h.uc.Get(c.Context(), GetPharmacyID(c), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !canAccessShop(c, t.FromShopID, t.ToShopID) {
		return writeError(c, h.log, domain.ErrForbidden)
	}
	return c.JSON(dto.ToTransferResponse(t))
}

// List filtros: shop_id (origen o destino), status, from, to, limit, offset.
func (h *TransferHandler) List(c *fiber.Ctx) error {
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
	list, err := h.uc.List(c.Context(), stock.TransferQuery{
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
	out := make([]dto.TransferResponse, 0, len(list))
	for _, t := range list {
		out = append(out, dto.ToTransferResponse(t))
	}
	return c.JSON(fiber.Map{"total": len(out), "transfers": out})
}

func (h *TransferHandler) AddItem(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var in dto.TransferItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	q, err := positiveQuantity(in.Quantity)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if err := h.authorizeOrigin(c, id); err != nil {
		return writeError(c, h.log, err)
	}
	var item *entity.StockTransferItem
	err = h.retry.do(c.Context(), func() error {
		var err error
		item, err = h.uc.AddItem(c.Context(), GetPharmacyID(c), id, in.ProductID, q)
		return err
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferItemResponse{ID: item.ID, ProductID: item.ProductID, Quantity: item.Quantity.Decimal()})
}

func (h *TransferHandler) UpdateItem(c *fiber.Ctx) error {
	itemID, err := pathID(c, "item_id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var in dto.QuantityRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	q, err := positiveQuantity(in.Quantity)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if err := h.authorizeItemOrigin(c, itemID); err != nil {
		return writeError(c, h.log, err)
	}
	var item *entity.StockTransferItem
	err = h.retry.do(c.Context(), func() error {
		var err error
		item, err = h.uc.UpdateItem(c.Context(), GetPharmacyID(c), itemID, q)
		return err
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.TransferItemResponse{ID: item.ID, ProductID: item.ProductID, Quantity: item.Quantity.Decimal()})
}

func (h *TransferHandler) RemoveItem(c *fiber.Ctx) error {
	itemID, err := pathID(c, "item_id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	if err := h.authorizeItemOrigin(c, itemID); err != nil {
		return writeError(c, h.log, err)
	}
	err = h.retry.do(c.Context(), func() error {
		return h.uc.RemoveItem(c.Context(), GetPharmacyID(c), itemID)
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Validate godoc
// @Summary  Validar traslado: descuenta FIFO en origen y crea los lotes en destino (todo o nada)
// @Tags     transfers
// @Router   /api/transfers/{id}/validate [post]
func (h *TransferHandler) Validate(c *fiber.Ctx) error {
	return h.transition(c, func(id string) (*entity.StockTransfer, error) {
		return h.uc.Validate(c.Context(), GetPharmacyID(c), id, GetUserID(c))
	})
}

func (h *TransferHandler) Cancel(c *fiber.Ctx) error {
	return h.transition(c, func(id string) (*entity.StockTransfer, error) {
		return h.uc.Cancel(c.Context(), GetPharmacyID(c), id)
	})
}

func (h *TransferHandler) transition(c *fiber.Ctx, op func(id string) (*entity.StockTransfer, error)) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	if err := h.authorizeOrigin(c, id); err != nil {
		return writeError(c, h.log, err)
	}
	var t *entity.StockTransfer
	err = h.retry.do(c.Context(), func() error {
		var err error
		t, err = op(id)
		return err
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToTransferResponse(t))
}

// authorizeOrigin las modificaciones de un traslado requieren acceso a la tienda de origen.
func (h *TransferHandler) authorizeOrigin(c *fiber.Ctx, transferID string) error {
	t, err := h.uc.Get(c.Context(), GetPharmacyID(c), transferID)
	if err != nil {
		return err
	}
	if !canAccessShop(c, t.FromShopID) {
		return domain.ErrForbidden
	}
	return nil
}

func (h *TransferHandler) authorizeItemOrigin(c *fiber.Ctx, itemID string) error {
	t, err := h.uc.GetByItem(c.Context(), GetPharmacyID(c), itemID)
	if err != nil {
		return err
	}
	if !canAccessShop(c, t.FromShopID) {
		return domain.ErrForbidden
	}
	return nil
}
