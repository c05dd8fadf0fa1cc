package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/application/dto"
	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// pathID lee un parámetro de ruta que debe ser UUID.
func pathID(c *fiber.Ctx, name string) (string, error) {
	v := c.Params(name)
	if _, err := uuid.Parse(v); err != nil {
		return "", fmt.Errorf("%s %q no es un UUID: %w", name, v, domain.ErrInvalidInput)
	}
	return v, nil
}

func positiveQuantity(d decimal.Decimal) (entity.Quantity, error) {
	return entity.NewPositiveQuantity(d)
}

// queryDate acepta YYYY-MM-DD o RFC3339. Con endOfDay, una fecha simple cubre el día completo.
func queryDate(c *fiber.Ctx, name string, endOfDay bool) (*time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(dto.DateLayout, v)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", name, v, domain.ErrInvalidInput)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// expirationDate fecha de vencimiento opcional del body.
func expirationDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dto.DateLayout, v)
	if err != nil {
		return nil, fmt.Errorf("expiration_date %q: %w", v, domain.ErrInvalidInput)
	}
	return &t, nil
}

// page limit/offset de la query; los topes los aplica la capa de repositorio.
func page(c *fiber.Ctx) (int, int) {
	return c.QueryInt("limit", 0), c.QueryInt("offset", 0)
}

// canAccessShop reporta si el token alcanza alguna de las tiendas indicadas.
func canAccessShop(c *fiber.Ctx, shopIDs ...string) bool {
	claims := GetClaims(c)
	if claims == nil {
		return false
	}
	for _, id := range shopIDs {
		if claims.CanAccessShop(id) {
			return true
		}
	}
	return false
}

// scopedShop filtro de tienda de un listado. Un token limitado a una sede solo lista esa sede.
func scopedShop(c *fiber.Ctx, requested string) (string, error) {
	claims := GetClaims(c)
	if claims == nil {
		return "", domain.ErrForbidden
	}
	if claims.ShopID == "" {
		return requested, nil
	}
	if requested != "" && requested != claims.ShopID {
		return "", domain.ErrForbidden
	}
	return claims.ShopID, nil
}
