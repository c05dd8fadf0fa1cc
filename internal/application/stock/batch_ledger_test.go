package stock_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/inventory"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

type mockExpiryCache struct{ mock.Mock }

func (m *mockExpiryCache) Get(ctx context.Context, shopID string, asOf time.Time) (*stock.ExpiryReport, bool, error) {
	args := m.Called(ctx, shopID, asOf)
	r, _ := args.Get(0).(*stock.ExpiryReport)
	return r, args.Bool(1), args.Error(2)
}

func (m *mockExpiryCache) Set(ctx context.Context, report *stock.ExpiryReport, ttl time.Duration) error {
	return m.Called(ctx, report, ttl).Error(0)
}

func (m *mockExpiryCache) Invalidate(ctx context.Context, shopID string) error {
	return m.Called(ctx, shopID).Error(0)
}

// lotes respecto a hoy (2025-06-01): vencido, vence hoy, próximo (+30), fuera de ventana (+31), sin fecha
func (e *env) receiveExpiryMix(t *testing.T) {
	t.Helper()
	e.receive(t, aceID, "VENCIDO", 1, day(2025, 5, 1))
	e.receive(t, aceID, "HOY", 2, day(2025, 6, 1))
	e.receive(t, aceID, "BORDE", 3, day(2025, 7, 1))
	e.receive(t, aceID, "LEJOS", 4, day(2025, 7, 2))
	e.receive(t, aceID, "SINFECHA", 5, nil)
}

func TestBatchLedger_FindExpiredIncluyeElDiaDeCorte(t *testing.T) {
	e := newEnv(t)
	e.receiveExpiryMix(t)

	expired, err := e.batches.FindExpired(e.ctx, centro, today)
	require.NoError(t, err)

	require.Len(t, expired, 2)
	assert.Equal(t, "VENCIDO", expired[0].BatchNumber)
	assert.Equal(t, "HOY", expired[1].BatchNumber)
}

func TestBatchLedger_FindExpiredSinFechaUsaElReloj(t *testing.T) {
	e := newEnv(t)
	e.receiveExpiryMix(t)

	expired, err := e.batches.FindExpired(e.ctx, centro, time.Time{})
	require.NoError(t, err)
	assert.Len(t, expired, 2)
}

func TestBatchLedger_FindExpiredRecorreTodasLasPaginas(t *testing.T) {
	e := newEnv(t)
	batches := e.store.Repos().Batches
	seed := func(prefix string, n int, exp *time.Time) {
		for i := 0; i < n; i++ {
			require.NoError(t, batches.Create(e.ctx, &entity.ProductBatch{
				ID:             fmt.Sprintf("%s-%04d", prefix, i),
				ShopID:         centro,
				ProductID:      aceID,
				BatchNumber:    fmt.Sprintf("%s-%04d", prefix, i),
				Quantity:       qty(1),
				UnitCost:       entity.ZeroMoney("COP"),
				ExpirationDate: exp,
				IsActive:       true,
				CreatedAt:      today,
				UpdatedAt:      today,
			}))
		}
	}
	seed("V", repository.MaxLimit+20, day(2025, 5, 1))
	seed("P", repository.MaxLimit+5, day(2025, 6, 10))

	expired, err := e.batches.FindExpired(e.ctx, centro, today)
	require.NoError(t, err)
	assert.Len(t, expired, repository.MaxLimit+20)

	expiring, err := e.batches.FindExpiring(e.ctx, centro, 30)
	require.NoError(t, err)
	assert.Len(t, expiring, repository.MaxLimit+5)
}

func TestBatchLedger_FindExpiringVentanaInclusiva(t *testing.T) {
	e := newEnv(t)
	e.receiveExpiryMix(t)

	soon, err := e.batches.FindExpiring(e.ctx, centro, 30)
	require.NoError(t, err)

	require.Len(t, soon, 1)
	assert.Equal(t, "BORDE", soon[0].BatchNumber)
	assert.Equal(t, inventory.ExpirationExpiringSoon, e.batches.Classify(soon[0]))
}

func TestBatchLedger_ReingresoConOtroVencimientoSeRechaza(t *testing.T) {
	e := newEnv(t)
	e.receive(t, aceID, "L-1", 5, day(2026, 1, 31))

	_, err := e.svc.Receive(e.ctx, stock.ReceiveInput{
		PharmacyID: pharmacy,
		ShopID:     centro,
		ProductID:  aceID,
		Lot:        stock.LotInput{BatchNumber: "L-1", Quantity: qty(3), ExpirationDate: day(2026, 2, 28)},
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	requireQty(t, 5, e.product(t, aceID).Stock)

	// misma fecha, o sin fecha, suma al lote existente
	sameDay := time.Date(2026, 1, 31, 15, 0, 0, 0, time.UTC)
	e.receive(t, aceID, "L-1", 3, &sameDay)
	e.receive(t, aceID, "L-1", 2, nil)

	b := e.batch(t, aceID, "L-1")
	requireQty(t, 10, b.Quantity)
	assert.True(t, b.ExpirationDate.Equal(*day(2026, 1, 31)))
	e.requireConsistent(t, centro, aceID)
}

func TestBatchLedger_SearchPorEstado(t *testing.T) {
	e := newEnv(t)
	e.receiveExpiryMix(t)

	ok, err := e.batches.Search(e.ctx, stock.BatchQuery{ShopID: centro, Status: "ok"})
	require.NoError(t, err)
	require.Len(t, ok, 2)
	assert.Equal(t, "LEJOS", ok[0].BatchNumber)
	assert.Equal(t, "SINFECHA", ok[1].BatchNumber)

	all, err := e.batches.Search(e.ctx, stock.BatchQuery{ShopID: centro, Search: "acetaminofen", Limit: 3})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = e.batches.Search(e.ctx, stock.BatchQuery{ShopID: centro, Status: "caducado"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBatchLedger_ExpiryReportSeCacheaEInvalida(t *testing.T) {
	cache := &mockExpiryCache{}
	e := newEnv(t, stock.WithExpiryCache(cache, 5*time.Minute))
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	cache.On("Invalidate", mock.Anything, centro).Return(nil)
	e.receiveExpiryMix(t)

	cache.On("Get", mock.Anything, centro, asOf).Return(nil, false, nil).Once()
	cache.On("Set", mock.Anything, mock.AnythingOfType("*stock.ExpiryReport"), 5*time.Minute).Return(nil).Once()

	report, err := e.batches.ExpiryReport(e.ctx, centro)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Expired.Batches)
	requireQty(t, 3, qtyOf(t, report.Expired))
	assert.Equal(t, 1, report.ExpiringSoon.Batches)
	assert.Equal(t, 2, report.OK.Batches)
	requireQty(t, 9, qtyOf(t, report.OK))
	assert.Equal(t, asOf, report.AsOf)

	cache.On("Get", mock.Anything, centro, asOf).Return(report, true, nil).Once()
	again, err := e.batches.ExpiryReport(e.ctx, centro)
	require.NoError(t, err)
	assert.Same(t, report, again)

	cache.AssertExpectations(t)
	cache.AssertNumberOfCalls(t, "Invalidate", 5)
}

func TestReplenishment_OrdenaPorDeficit(t *testing.T) {
	e := newEnv(t)
	e.receive(t, aceID, "A1", 18, nil) // mínimo 20 -> déficit 2
	e.receive(t, ibuID, "I1", 3, nil)  // mínimo 15 -> déficit 12
	e.receive(t, sueID, "S1", 50, nil) // sobre el mínimo

	uc := stock.NewReplenishmentUseCase(e.store.Repos())
	list, err := uc.GenerateReplenishmentList(e.ctx, pharmacy, centro)
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, "IBU-400", list[0].SKU)
	assert.Equal(t, 1, list[0].Priority)
	assert.Equal(t, "19.5", list[0].SuggestedOrderQty.String()) // 15*1.5 - 3
	assert.Equal(t, "ACE-500", list[1].SKU)
	assert.Equal(t, 2, list[1].Priority)
}

func qtyOf(t *testing.T, b stock.ExpiryBucket) entity.Quantity {
	t.Helper()
	q, err := entity.NewQuantity(b.Quantity)
	require.NoError(t, err)
	return q
}
