package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-pos-api/internal/application/dto"
	"github.com/jhoicas/farmacia-pos-api/internal/domain"
)

// errorStatus traduce errores del dominio a status HTTP y código estable para el cliente.
func errorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return fiber.StatusBadRequest, "INVALID_QUANTITY", "cantidad inválida"
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION", "datos inválidos"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND", "recurso no encontrado"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN", "acceso denegado al recurso"
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, "INSUFFICIENT_STOCK", "stock insuficiente"
	case errors.Is(err, domain.ErrInvalidState):
		return fiber.StatusConflict, "INVALID_STATE", "el documento no admite esta operación en su estado actual"
	case errors.Is(err, domain.ErrDuplicateItem):
		return fiber.StatusConflict, "DUPLICATE_ITEM", "el registro ya existe"
	case errors.Is(err, domain.ErrConcurrentModification):
		return fiber.StatusServiceUnavailable, "CONCURRENT_MODIFICATION", "operación en conflicto con otra, intente de nuevo"
	}
	return fiber.StatusInternalServerError, "INTERNAL", "error interno"
}

// writeError responde con dto.ErrorResponse. Los 4xx llevan el detalle del error; los 5xx se registran.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	status, code, msg := errorStatus(err)
	switch {
	case status == fiber.StatusServiceUnavailable:
		c.Set(fiber.HeaderRetryAfter, "1")
		log.Warn().Err(err).Str("path", c.Path()).Msg("conflicto de concurrencia tras reintentos")
	case status >= fiber.StatusInternalServerError:
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
	default:
		msg = err.Error()
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
