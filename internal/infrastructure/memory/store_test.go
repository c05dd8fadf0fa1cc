package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

var now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	require.NoError(t, SeedDemo(context.Background(), s.Repos(), now, "COP"))
	return s
}

func TestStore_RunRollbackDescartaCambios(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Run(ctx, func(r stock.Repos) error {
		p, err := r.Products.GetForUpdate(ctx, "00000000-0000-0000-0000-0000000000b1")
		require.NoError(t, err)
		p.Stock = entity.QuantityFromInt(99)
		require.NoError(t, r.Products.UpdateStock(ctx, p))
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, err := s.Repos().Products.GetByID(ctx, "00000000-0000-0000-0000-0000000000b1")
	require.NoError(t, err)
	assert.True(t, p.Stock.IsZero())
}

func TestStore_RunCommitPublicaCambios(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	err := s.Run(ctx, func(r stock.Repos) error {
		return r.Batches.Create(ctx, &entity.ProductBatch{
			ID: "b1", ShopID: DemoShopCentro, ProductID: "00000000-0000-0000-0000-0000000000b1",
			BatchNumber: "L-1", Quantity: entity.QuantityFromInt(5), IsActive: true,
		})
	})
	require.NoError(t, err)

	b, err := s.Repos().Batches.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.Seq)
}

func TestStore_GetInexistenteDevuelveNotFound(t *testing.T) {
	s := NewStore()
	_, err := s.Repos().Transfers.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBatchSearch_SinTildesNiMayusculas(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	require.NoError(t, s.Repos().Batches.Create(ctx, &entity.ProductBatch{
		ID: "b1", ShopID: DemoShopCentro, ProductID: "00000000-0000-0000-0000-0000000000b1",
		BatchNumber: "L-1", Quantity: entity.QuantityFromInt(5), IsActive: true,
	}))

	got, err := s.Repos().Batches.Search(ctx, repository.BatchFilter{
		ShopID: DemoShopCentro,
		Search: "ACETAMINOFEN",
		Page:   repository.NewPage(10, 0),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].ID)
}

func TestReferenceSequence_ConsecutivoPorDia(t *testing.T) {
	seq := NewReferenceSequence()
	ctx := context.Background()

	a, _ := seq.Next(ctx, "ph", "TRF", now)
	b, _ := seq.Next(ctx, "ph", "TRF", now)
	c, _ := seq.Next(ctx, "ph", "TRF", now.AddDate(0, 0, 1))

	assert.Equal(t, "TRF-20250601-000001", a)
	assert.Equal(t, "TRF-20250601-000002", b)
	assert.Equal(t, "TRF-20250602-000001", c)
}
