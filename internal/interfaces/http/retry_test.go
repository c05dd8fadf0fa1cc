package http

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	pkgjwt "github.com/jhoicas/farmacia-pos-api/pkg/jwt"
)

func fastRetrier(attempts uint64) retrier {
	return retrier{attempts: attempts, initial: time.Millisecond}
}

func TestRetrier_ReintentaConflictoHastaAgotar(t *testing.T) {
	calls := 0
	err := fastRetrier(2).do(context.Background(), func() error {
		calls++
		return fmt.Errorf("lote: %w", domain.ErrConcurrentModification)
	})
	require.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.Equal(t, 3, calls, "intento inicial más dos reintentos")
}

func TestRetrier_ConflictoResueltoEnSegundoIntento(t *testing.T) {
	calls := 0
	err := fastRetrier(3).do(context.Background(), func() error {
		calls++
		if calls == 1 {
			return domain.ErrConcurrentModification
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetrier_ErrorDeNegocioNoSeReintenta(t *testing.T) {
	calls := 0
	err := fastRetrier(5).do(context.Background(), func() error {
		calls++
		return domain.ErrInsufficientStock
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 1, calls)
}

func TestRetrier_SinReintentos(t *testing.T) {
	calls := 0
	err := newRetrier(-1).do(context.Background(), func() error {
		calls++
		return domain.ErrConcurrentModification
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

// ── errorStatus ──────────────────────────────────────────────────────────────

func TestErrorStatus_Mapeo(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrInvalidQuantity, fiber.StatusBadRequest, "INVALID_QUANTITY"},
		{fmt.Errorf("x: %w", domain.ErrInvalidInput), fiber.StatusBadRequest, "VALIDATION"},
		{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
		{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
		{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
		{domain.ErrInvalidState, fiber.StatusConflict, "INVALID_STATE"},
		{domain.ErrDuplicateItem, fiber.StatusConflict, "DUPLICATE_ITEM"},
		{domain.ErrConcurrentModification, fiber.StatusServiceUnavailable, "CONCURRENT_MODIFICATION"},
		{fmt.Errorf("driver caído"), fiber.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		status, code, _ := errorStatus(tc.err)
		assert.Equal(t, tc.status, status, tc.code)
		assert.Equal(t, tc.code, code)
	}
}

// ── RateLimit ────────────────────────────────────────────────────────────────

func TestRateLimit_CortaPorFarmacia(t *testing.T) {
	app := fiber.New()
	app.Get("/x", func(c *fiber.Ctx) error {
		c.Locals(LocalClaims, &pkgjwt.Claims{PharmacyID: c.Query("ph"), Role: pkgjwt.RoleAdmin})
		return c.Next()
	}, RateLimit(2), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	status := func(ph string) int {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/x?ph="+ph, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, fiber.StatusOK, status("a"))
	assert.Equal(t, fiber.StatusOK, status("a"))
	assert.Equal(t, fiber.StatusTooManyRequests, status("a"))
	// otra farmacia tiene su propio cupo
	assert.Equal(t, fiber.StatusOK, status("b"))
}

func TestRateLimit_CeroDeshabilita(t *testing.T) {
	app := fiber.New()
	app.Get("/x", RateLimit(0), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	for i := 0; i < 5; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/x", nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}
