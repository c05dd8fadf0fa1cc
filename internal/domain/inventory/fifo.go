package inventory

import (
	"sort"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// Allocation cantidad tomada de un lote concreto.
type Allocation struct {
	Batch    *entity.ProductBatch
	Quantity entity.Quantity
}

// SortFIFO ordena los lotes por vencimiento ascendente (sin vencimiento al final) y luego por orden de creación.
func SortFIFO(batches []*entity.ProductBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].ExpiresBefore(batches[j])
	})
}

// AllocateFIFO reparte q entre los lotes disponibles en orden FIFO sin modificarlos.
// Si el total disponible no alcanza devuelve ErrInsufficientStock y ninguna asignación.
func AllocateFIFO(batches []*entity.ProductBatch, q entity.Quantity) ([]Allocation, error) {
	if !q.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	candidates := make([]*entity.ProductBatch, 0, len(batches))
	for _, b := range batches {
		if b.Available() {
			candidates = append(candidates, b)
		}
	}
	SortFIFO(candidates)

	remaining := q
	allocs := make([]Allocation, 0, len(candidates))
	for _, b := range candidates {
		if remaining.IsZero() {
			break
		}
		take := b.Quantity.Min(remaining)
		allocs = append(allocs, Allocation{Batch: b, Quantity: take})
		remaining, _ = remaining.Sub(take)
	}
	if remaining.IsPositive() {
		return nil, domain.ErrInsufficientStock
	}
	return allocs, nil
}

// Available total disponible en los lotes activos.
func Available(batches []*entity.ProductBatch) entity.Quantity {
	total := entity.ZeroQuantity()
	for _, b := range batches {
		if b.Available() {
			total = total.Add(b.Quantity)
		}
	}
	return total
}
