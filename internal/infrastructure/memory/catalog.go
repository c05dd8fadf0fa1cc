package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// ShopRepository tiendas en memoria.
type ShopRepository struct{ base }

func (r *ShopRepository) Create(_ context.Context, shop *entity.Shop) error {
	return r.write(func(st *state) error {
		if _, ok := st.shops[shop.ID]; ok {
			return fmt.Errorf("tienda %s: %w", shop.ID, domain.ErrDuplicateItem)
		}
		st.shops[shop.ID] = *shop
		return nil
	})
}

func (r *ShopRepository) GetByID(_ context.Context, id string) (*entity.Shop, error) {
	var out *entity.Shop
	err := r.read(func(st *state) error {
		s, ok := st.shops[id]
		if !ok {
			return fmt.Errorf("tienda %s: %w", id, domain.ErrNotFound)
		}
		out = &s
		return nil
	})
	return out, err
}

func (r *ShopRepository) ListByPharmacy(_ context.Context, pharmacyID string) ([]*entity.Shop, error) {
	return r.list(func(s entity.Shop) bool { return s.PharmacyID == pharmacyID })
}

func (r *ShopRepository) ListActive(_ context.Context) ([]*entity.Shop, error) {
	return r.list(func(s entity.Shop) bool { return s.IsActive })
}

func (r *ShopRepository) list(keep func(entity.Shop) bool) ([]*entity.Shop, error) {
	out := []*entity.Shop{}
	err := r.read(func(st *state) error {
		for _, s := range st.shops {
			if keep(s) {
				s := s
				out = append(out, &s)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

// ProductRepository productos en memoria. GetForUpdate no necesita bloqueo adicional:
// la transacción ya tiene el almacén en exclusiva.
type ProductRepository struct{ base }

func (r *ProductRepository) Create(_ context.Context, p *entity.Product) error {
	return r.write(func(st *state) error {
		if _, ok := st.products[p.ID]; ok {
			return fmt.Errorf("producto %s: %w", p.ID, domain.ErrDuplicateItem)
		}
		for _, other := range st.products {
			if other.ShopID == p.ShopID && other.SKU == p.SKU {
				return fmt.Errorf("sku %s en tienda %s: %w", p.SKU, p.ShopID, domain.ErrDuplicateItem)
			}
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	err := r.read(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return fmt.Errorf("producto %s: %w", id, domain.ErrNotFound)
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *ProductRepository) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *ProductRepository) GetByShopAndSKU(_ context.Context, shopID, sku string) (*entity.Product, error) {
	var out *entity.Product
	err := r.read(func(st *state) error {
		for _, p := range st.products {
			if p.ShopID == shopID && p.SKU == sku {
				p := p
				out = &p
				return nil
			}
		}
		return fmt.Errorf("sku %s en tienda %s: %w", sku, shopID, domain.ErrNotFound)
	})
	return out, err
}

func (r *ProductRepository) UpdateStock(_ context.Context, p *entity.Product) error {
	return r.write(func(st *state) error {
		cur, ok := st.products[p.ID]
		if !ok {
			return fmt.Errorf("producto %s: %w", p.ID, domain.ErrNotFound)
		}
		cur.Stock = p.Stock
		cur.Cost = p.Cost
		cur.UpdatedAt = p.UpdatedAt
		st.products[p.ID] = cur
		return nil
	})
}

func (r *ProductRepository) ListActiveByShop(_ context.Context, shopID string) ([]*entity.Product, error) {
	return r.list(func(p entity.Product) bool { return p.ShopID == shopID && p.IsActive })
}

func (r *ProductRepository) ListBelowMinimum(_ context.Context, shopID string) ([]*entity.Product, error) {
	return r.list(func(p entity.Product) bool { return p.ShopID == shopID && p.IsActive && p.BelowMinimum() })
}

func (r *ProductRepository) list(keep func(entity.Product) bool) ([]*entity.Product, error) {
	out := []*entity.Product{}
	err := r.read(func(st *state) error {
		for _, p := range st.products {
			if keep(p) {
				p := p
				out = append(out, &p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, err
}
