package entity

import "time"

// Shop punto de venta de una farmacia. Cada tienda lleva su propio inventario;
// varias tiendas comparten PharmacyID (tenant).
type Shop struct {
	ID         string
	PharmacyID string
	Name       string
	Address    string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
