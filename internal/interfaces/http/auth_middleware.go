package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/farmacia-pos-api/internal/application/dto"
	"github.com/jhoicas/farmacia-pos-api/pkg/jwt"
)

// LocalClaims clave de Fiber Locals con los claims del token.
const LocalClaims = "claims"

// AuthMiddleware valida el Bearer Token JWT y deja los claims (usuario, farmacia, tienda, rol) en c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		claims, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalClaims, claims)
		return c.Next()
	}
}

// RequireRole deja pasar solo a los roles indicados. Debe ir después de AuthMiddleware.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		claims := GetClaims(c)
		if claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token requerido"})
		}
		if claims.Role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "el token no incluye rol"})
		}
		if _, ok := allowed[claims.Role]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "rol sin permiso para esta operación"})
		}
		return c.Next()
	}
}

// GetClaims claims del contexto (nil si la ruta no pasó por AuthMiddleware).
func GetClaims(c *fiber.Ctx) *jwt.Claims {
	claims, _ := c.Locals(LocalClaims).(*jwt.Claims)
	return claims
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	if claims := GetClaims(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// GetPharmacyID farmacia (tenant) del token.
func GetPharmacyID(c *fiber.Ctx) string {
	if claims := GetClaims(c); claims != nil {
		return claims.PharmacyID
	}
	return ""
}

// GetRole rol del token.
func GetRole(c *fiber.Ctx) string {
	if claims := GetClaims(c); claims != nil {
		return claims.Role
	}
	return ""
}
