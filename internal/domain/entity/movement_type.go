package entity

import (
	"fmt"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
)

// MovementType tipo cerrado de movimiento de stock. Los valores válidos son exactamente las constantes
// de abajo; los switch sobre MovementType deben cubrirlas todas y rechazar cualquier otro valor.
type MovementType string

const (
	MovementPurchase            MovementType = "purchase"             // recepción de compra
	MovementSale                MovementType = "sale"                 // venta (consumo FIFO)
	MovementTransferIn          MovementType = "transfer_in"          // entrada por traslado
	MovementTransferOut         MovementType = "transfer_out"         // salida por traslado
	MovementInventoryAdjustment MovementType = "inventory_adjustment" // diferencia de conteo físico
	MovementReturn              MovementType = "return"               // devolución de cliente
	MovementAdjustment          MovementType = "adjustment"           // corrección manual
	MovementLoss                MovementType = "loss"                 // baja de lote (vencido, dañado)
)

// Direction sentido permitido para el signo de la cantidad de un tipo de movimiento.
type Direction int

const (
	DirectionIn   Direction = 1
	DirectionOut  Direction = -1
	DirectionBoth Direction = 0
)

// AllMovementTypes lista completa, en orden estable.
func AllMovementTypes() []MovementType {
	return []MovementType{
		MovementPurchase, MovementSale, MovementTransferIn, MovementTransferOut,
		MovementInventoryAdjustment, MovementReturn, MovementAdjustment, MovementLoss,
	}
}

// ParseMovementType convierte un string externo (filtros, payloads) al tipo cerrado.
func ParseMovementType(s string) (MovementType, error) {
	t := MovementType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("tipo de movimiento %q: %w", s, domain.ErrInvalidInput)
	}
	return t, nil
}

// IsValid reporta si t es uno de los tipos conocidos.
func (t MovementType) IsValid() bool {
	switch t {
	case MovementPurchase, MovementSale, MovementTransferIn, MovementTransferOut,
		MovementInventoryAdjustment, MovementReturn, MovementAdjustment, MovementLoss:
		return true
	}
	return false
}

// Direction devuelve el signo esperado de la cantidad registrada para este tipo.
func (t MovementType) Direction() Direction {
	switch t {
	case MovementPurchase, MovementTransferIn, MovementReturn:
		return DirectionIn
	case MovementSale, MovementTransferOut, MovementLoss:
		return DirectionOut
	case MovementInventoryAdjustment, MovementAdjustment:
		return DirectionBoth
	}
	return DirectionBoth
}

// IsAdjustment reporta si el tipo es aceptado por StockService.Adjust.
func (t MovementType) IsAdjustment() bool {
	return t == MovementInventoryAdjustment || t == MovementAdjustment
}
