package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// Todos son fallas síncronas devueltas al llamador inmediato; el núcleo nunca reintenta.
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrInvalidQuantity   = errors.New("cantidad inválida")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrInvalidState      = errors.New("operación no permitida en el estado actual")
	ErrDuplicateItem     = errors.New("el producto ya está en el documento")
	ErrForbidden         = errors.New("acceso denegado")

	// ErrConcurrentModification indica que la transacción de almacenamiento abortó por conflicto
	// de concurrencia (serialización, deadlock o lock no disponible). Es el único error reintentable.
	ErrConcurrentModification = errors.New("modificación concurrente, reintente")
)

// IsRetryable reporta si el error puede reintentarse por el colaborador (handler HTTP, worker).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
