package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, shop_id, sku, name, description, unit_measure, stock, minimum_stock,
	price, cost, currency, is_active, created_at, updated_at`

// Create persiste un producto. Un SKU repetido en la tienda indica que otra transacción
// creó el mismo producto (clon de traslado) y se reporta como conflicto reintentable.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.ID, p.ShopID, p.SKU, p.Name, p.Description, p.UnitMeasure,
		p.Stock.Decimal(), p.MinimumStock.Decimal(), p.Price.Amount(), p.Cost.Amount(), productCurrency(p),
		p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sku %s en tienda %s: %w", p.SKU, p.ShopID, domain.ErrConcurrentModification)
		}
		return wrap("insert product", err)
	}
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get product", err)
	}
	return p, nil
}

// GetForUpdate bloquea la fila del producto: serializa toda mutación de stock del producto.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, wrap("get product for update", err)
	}
	return p, nil
}

func (r *ProductRepo) GetByShopAndSKU(ctx context.Context, shopID, sku string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE shop_id = $1 AND sku = $2`, shopID, sku))
	if err != nil {
		return nil, wrap("get product by sku", err)
	}
	return p, nil
}

func (r *ProductRepo) UpdateStock(ctx context.Context, p *entity.Product) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE products SET stock = $2, cost = $3, updated_at = $4 WHERE id = $1`,
		p.ID, p.Stock.Decimal(), p.Cost.Amount(), p.UpdatedAt)
	if err != nil {
		return wrap("update product stock", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("producto %s: %w", p.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *ProductRepo) ListActiveByShop(ctx context.Context, shopID string) ([]*entity.Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products
		WHERE shop_id = $1 AND is_active ORDER BY sku`, shopID)
}

func (r *ProductRepo) ListBelowMinimum(ctx context.Context, shopID string) ([]*entity.Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products
		WHERE shop_id = $1 AND is_active AND minimum_stock > 0 AND stock < minimum_stock ORDER BY sku`, shopID)
}

func (r *ProductRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list products", err)
	}
	defer rows.Close()
	out := []*entity.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrap("scan product", err)
		}
		out = append(out, p)
	}
	return out, wrap("list products", rows.Err())
}

func scanProduct(row scanner) (*entity.Product, error) {
	var (
		p                           entity.Product
		stock, minimum, price, cost decimal.Decimal
		currency                    string
	)
	err := row.Scan(&p.ID, &p.ShopID, &p.SKU, &p.Name, &p.Description, &p.UnitMeasure,
		&stock, &minimum, &price, &cost, &currency, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Stock = quantity(stock)
	p.MinimumStock = quantity(minimum)
	p.Price = money(price, currency)
	p.Cost = money(cost, currency)
	return &p, nil
}

func productCurrency(p *entity.Product) string {
	if c := p.Price.Currency(); c != "" {
		return c
	}
	return p.Cost.Currency()
}
