package entity

import (
	"time"
)

// Product producto de catálogo en una tienda. Stock es el agregado cacheado y debe coincidir con la
// suma de los lotes activos y con la suma de los movimientos del producto en la tienda.
type Product struct {
	ID           string
	ShopID       string
	SKU          string
	Name         string
	Description  string
	UnitMeasure  string
	Stock        Quantity
	MinimumStock Quantity
	Price        Money
	Cost         Money // costo promedio ponderado
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BelowMinimum reporta si el stock actual está por debajo del mínimo configurado.
func (p *Product) BelowMinimum() bool {
	return p.MinimumStock.IsPositive() && p.Stock.LessThan(p.MinimumStock)
}

// CloneForShop copia los datos de catálogo a otra tienda con stock cero (destino de traslados).
func (p *Product) CloneForShop(id, shopID string, now time.Time) *Product {
	return &Product{
		ID:           id,
		ShopID:       shopID,
		SKU:          p.SKU,
		Name:         p.Name,
		Description:  p.Description,
		UnitMeasure:  p.UnitMeasure,
		Stock:        ZeroQuantity(),
		MinimumStock: p.MinimumStock,
		Price:        p.Price,
		Cost:         p.Cost,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
