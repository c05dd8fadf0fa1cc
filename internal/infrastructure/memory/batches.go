package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

// BatchRepository lotes en memoria.
type BatchRepository struct{ base }

func (r *BatchRepository) Create(_ context.Context, b *entity.ProductBatch) error {
	return r.write(func(st *state) error {
		for _, other := range st.batches {
			if other.IsActive && other.ProductID == b.ProductID && other.BatchNumber == b.BatchNumber {
				return fmt.Errorf("lote %s: %w", b.BatchNumber, domain.ErrDuplicateItem)
			}
		}
		st.batchSeq++
		b.Seq = st.batchSeq
		st.batches[b.ID] = *b
		return nil
	})
}

func (r *BatchRepository) Update(_ context.Context, b *entity.ProductBatch) error {
	return r.write(func(st *state) error {
		cur, ok := st.batches[b.ID]
		if !ok {
			return fmt.Errorf("lote %s: %w", b.ID, domain.ErrNotFound)
		}
		cur.Quantity = b.Quantity
		cur.IsActive = b.IsActive
		cur.UpdatedAt = b.UpdatedAt
		st.batches[b.ID] = cur
		return nil
	})
}

func (r *BatchRepository) GetByID(_ context.Context, id string) (*entity.ProductBatch, error) {
	var out *entity.ProductBatch
	err := r.read(func(st *state) error {
		b, ok := st.batches[id]
		if !ok {
			return fmt.Errorf("lote %s: %w", id, domain.ErrNotFound)
		}
		out = &b
		return nil
	})
	return out, err
}

func (r *BatchRepository) GetForUpdate(ctx context.Context, id string) (*entity.ProductBatch, error) {
	return r.GetByID(ctx, id)
}

func (r *BatchRepository) GetActiveByNumber(_ context.Context, productID, batchNumber string) (*entity.ProductBatch, error) {
	var out *entity.ProductBatch
	err := r.read(func(st *state) error {
		for _, b := range st.batches {
			if b.IsActive && b.ProductID == productID && b.BatchNumber == batchNumber {
				b := b
				out = &b
				return nil
			}
		}
		return fmt.Errorf("lote %s: %w", batchNumber, domain.ErrNotFound)
	})
	return out, err
}

func (r *BatchRepository) ListActiveForUpdate(_ context.Context, productID string) ([]*entity.ProductBatch, error) {
	out := []*entity.ProductBatch{}
	err := r.read(func(st *state) error {
		for _, b := range st.batches {
			if b.IsActive && b.ProductID == productID {
				b := b
				out = append(out, &b)
			}
		}
		return nil
	})
	sortFIFO(out)
	return out, err
}

func (r *BatchRepository) Search(_ context.Context, f repository.BatchFilter) ([]*entity.ProductBatch, error) {
	out := []*entity.ProductBatch{}
	err := r.read(func(st *state) error {
		for _, b := range st.batches {
			if matchBatch(st, b, f) {
				b := b
				out = append(out, &b)
			}
		}
		return nil
	})
	sortFIFO(out)
	return paginate(out, f.Page.Limit, f.Page.Offset), err
}

func matchBatch(st *state, b entity.ProductBatch, f repository.BatchFilter) bool {
	if f.ShopID != "" && b.ShopID != f.ShopID {
		return false
	}
	if f.ProductID != "" && b.ProductID != f.ProductID {
		return false
	}
	if !b.IsActive && !f.IncludeInactive {
		return false
	}
	if f.OnlyAvailable && !b.Available() {
		return false
	}
	exp := b.ExpirationDate
	if f.ExpiresOnOrBefore != nil && (exp == nil || exp.After(*f.ExpiresOnOrBefore)) {
		return false
	}
	if f.ExpiresAfter != nil {
		if exp == nil {
			if !f.IncludeNoExpiry || f.ExpiresOnOrBefore != nil {
				return false
			}
		} else if !exp.After(*f.ExpiresAfter) {
			return false
		}
	}
	if f.Search != "" {
		name := st.products[b.ProductID].Name
		if !containsFolded(b.BatchNumber, f.Search) && !containsFolded(name, f.Search) {
			return false
		}
	}
	return true
}

// sortFIFO vencimiento ascendente, sin vencimiento al final, luego orden de creación.
func sortFIFO(bs []*entity.ProductBatch) {
	sort.SliceStable(bs, func(i, j int) bool { return bs[i].ExpiresBefore(bs[j]) })
}
