package memory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

// MovementRepository kardex en memoria: slice de solo inserción.
type MovementRepository struct{ base }

func (r *MovementRepository) Create(_ context.Context, m *entity.StockMovement) error {
	return r.write(func(st *state) error {
		for i := range st.movements {
			if st.movements[i].ID == m.ID {
				return fmt.Errorf("movimiento %s: %w", m.ID, domain.ErrDuplicateItem)
			}
		}
		st.movements = append(st.movements, *m)
		return nil
	})
}

func (r *MovementRepository) ListByProduct(ctx context.Context, productID string, page repository.Page) ([]*entity.StockMovement, error) {
	return r.Search(ctx, repository.MovementFilter{ProductID: productID, Page: page})
}

// Search recorre del más reciente al más antiguo.
func (r *MovementRepository) Search(_ context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	out := []*entity.StockMovement{}
	err := r.read(func(st *state) error {
		for i := len(st.movements) - 1; i >= 0; i-- {
			m := st.movements[i]
			if f.ShopID != "" && m.ShopID != f.ShopID {
				continue
			}
			if f.ProductID != "" && m.ProductID != f.ProductID {
				continue
			}
			if f.Type != "" && m.Type != f.Type {
				continue
			}
			if f.Reference != "" && m.Reference != f.Reference {
				continue
			}
			if f.FromDate != nil && m.CreatedAt.Before(*f.FromDate) {
				continue
			}
			if f.ToDate != nil && m.CreatedAt.After(*f.ToDate) {
				continue
			}
			out = append(out, &m)
		}
		return nil
	})
	return paginate(out, f.Page.Limit, f.Page.Offset), err
}

func (r *MovementRepository) SumByProduct(_ context.Context, productID string) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.read(func(st *state) error {
		for _, m := range st.movements {
			if m.ProductID == productID {
				total = total.Add(m.Quantity)
			}
		}
		return nil
	})
	return total, err
}
