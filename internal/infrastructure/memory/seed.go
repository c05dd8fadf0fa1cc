package memory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// Identificadores fijos del catálogo de demostración.
const (
	DemoPharmacyID = "00000000-0000-0000-0000-0000000000f1"
	DemoShopCentro = "00000000-0000-0000-0000-0000000000a1"
	DemoShopNorte  = "00000000-0000-0000-0000-0000000000a2"
)

// SeedDemo carga una farmacia con dos tiendas y productos sin stock (modo desarrollo y pruebas).
// El stock entra luego por recepciones para que lotes y kardex cuadren desde el inicio.
// Acepta cualquier juego de repositorios: también siembra la base PostgreSQL de integración.
func SeedDemo(ctx context.Context, repos stock.Repos, now time.Time, currency string) error {
	shops := []entity.Shop{
		{ID: DemoShopCentro, PharmacyID: DemoPharmacyID, Name: "Droguería Centro", Address: "Cra 7 # 12-30", IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: DemoShopNorte, PharmacyID: DemoPharmacyID, Name: "Droguería Norte", Address: "Cl 140 # 19-45", IsActive: true, CreatedAt: now, UpdatedAt: now},
	}
	for i := range shops {
		if err := repos.Shops.Create(ctx, &shops[i]); err != nil {
			return err
		}
	}
	catalog := []struct {
		id, sku, name, unit string
		minimum             int64
		price, cost         int64
	}{
		{"00000000-0000-0000-0000-0000000000b1", "ACE-500", "Acetaminofén 500 mg x 10", "caja", 20, 4500, 2800},
		{"00000000-0000-0000-0000-0000000000b2", "IBU-400", "Ibuprofeno 400 mg x 10", "caja", 15, 6200, 3900},
		{"00000000-0000-0000-0000-0000000000b3", "SUE-ORA", "Suero oral 500 ml", "unidad", 10, 5800, 3100},
	}
	for _, c := range catalog {
		price, err := entity.NewMoney(decimal.NewFromInt(c.price), currency)
		if err != nil {
			return err
		}
		cost, err := entity.NewMoney(decimal.NewFromInt(c.cost), currency)
		if err != nil {
			return err
		}
		p := &entity.Product{
			ID:           c.id,
			ShopID:       DemoShopCentro,
			SKU:          c.sku,
			Name:         c.name,
			UnitMeasure:  c.unit,
			Stock:        entity.ZeroQuantity(),
			MinimumStock: entity.QuantityFromInt(c.minimum),
			Price:        price,
			Cost:         cost,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := repos.Products.Create(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
