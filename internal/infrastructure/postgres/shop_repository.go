package postgres

import (
	"context"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

var _ repository.ShopRepository = (*ShopRepo)(nil)

// ShopRepo implementación de ShopRepository sobre PostgreSQL (usable con pool o tx).
type ShopRepo struct {
	q Querier
}

// NewShopRepository construye el adaptador. Pasar pool o tx (Querier).
func NewShopRepository(q Querier) *ShopRepo {
	return &ShopRepo{q: q}
}

const shopColumns = `id, pharmacy_id, name, address, is_active, created_at, updated_at`

func (r *ShopRepo) Create(ctx context.Context, s *entity.Shop) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO shops (`+shopColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.PharmacyID, s.Name, s.Address, s.IsActive, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateItem
		}
		return wrap("insert shop", err)
	}
	return nil
}

func (r *ShopRepo) GetByID(ctx context.Context, id string) (*entity.Shop, error) {
	row := r.q.QueryRow(ctx, `SELECT `+shopColumns+` FROM shops WHERE id = $1`, id)
	s, err := scanShop(row)
	if err != nil {
		return nil, wrap("get shop", err)
	}
	return s, nil
}

func (r *ShopRepo) ListByPharmacy(ctx context.Context, pharmacyID string) ([]*entity.Shop, error) {
	return r.list(ctx, `SELECT `+shopColumns+` FROM shops WHERE pharmacy_id = $1 ORDER BY name`, pharmacyID)
}

func (r *ShopRepo) ListActive(ctx context.Context) ([]*entity.Shop, error) {
	return r.list(ctx, `SELECT `+shopColumns+` FROM shops WHERE is_active ORDER BY name`)
}

func (r *ShopRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Shop, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list shops", err)
	}
	defer rows.Close()
	out := []*entity.Shop{}
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, wrap("scan shop", err)
		}
		out = append(out, s)
	}
	return out, wrap("list shops", rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShop(row scanner) (*entity.Shop, error) {
	var s entity.Shop
	err := row.Scan(&s.ID, &s.PharmacyID, &s.Name, &s.Address, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
