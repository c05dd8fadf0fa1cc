package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles reconocidos por el middleware RBAC.
const (
	RoleAdmin       = "admin"
	RoleRegente     = "regente"     // responsable técnico de la farmacia
	RoleAuxiliar    = "auxiliar"    // vendedor de mostrador
	RoleInventarios = "inventarios" // bodega y conteos
)

// ErrInvalidToken token mal formado, expirado o con firma incorrecta.
var ErrInvalidToken = errors.New("jwt: token inválido")

// Claims incluye los claims estándar JWT más el alcance del usuario.
// PharmacyID delimita el tenant; ShopID vacío significa acceso a todas las sedes de la farmacia.
type Claims struct {
	jwt.RegisteredClaims
	UserID     string `json:"user_id"`
	PharmacyID string `json:"pharmacy_id"`
	ShopID     string `json:"shop_id,omitempty"`
	Role       string `json:"role"`
}

// CanAccessShop reporta si el token permite operar sobre la sede indicada.
func (c *Claims) CanAccessShop(shopID string) bool {
	return c.ShopID == "" || c.ShopID == shopID
}

// Generate firma un token HS256 con los claims dados. Subject, IssuedAt y ExpiresAt se completan aquí.
func Generate(secret string, c Claims, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	now := time.Now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   c.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString([]byte(secret))
}

// Parse valida el token y devuelve sus claims.
func Parse(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.PharmacyID == "" {
		return nil, fmt.Errorf("%w: faltan user_id o pharmacy_id", ErrInvalidToken)
	}
	return claims, nil
}
