package repository

// Límites de paginación aplicados por todas las búsquedas de listados.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Page limit/offset normalizados.
type Page struct {
	Limit  int
	Offset int
}

// NewPage aplica el límite por defecto y el máximo; offset negativo se trata como 0.
func NewPage(limit, offset int) Page {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}
