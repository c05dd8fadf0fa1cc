package inventory

import (
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// CalculateWeightedAverageCost calcula el nuevo costo promedio ponderado tras una recepción.
// Fórmula: ((stockActual * costoActual) + (cantidadEntrada * costoEntrada)) / (stockActual + cantidadEntrada).
// Si la suma de cantidades es cero devuelve el costo de entrada.
func CalculateWeightedAverageCost(currentStock entity.Quantity, currentCost entity.Money, qtyIn entity.Quantity, costIn entity.Money) (entity.Money, error) {
	if currentStock.IsZero() || currentCost.Currency() == "" {
		return costIn, nil
	}
	totalQty := currentStock.Add(qtyIn)
	if totalQty.IsZero() {
		return costIn, nil
	}
	totalValue, err := currentCost.Times(currentStock).Add(costIn.Times(qtyIn))
	if err != nil {
		return entity.Money{}, err
	}
	return totalValue.DivideBy(totalQty), nil
}
