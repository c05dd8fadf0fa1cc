package stock_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/infrastructure/memory"
)

const (
	pharmacy = memory.DemoPharmacyID
	centro   = memory.DemoShopCentro
	norte    = memory.DemoShopNorte
	aceID    = "00000000-0000-0000-0000-0000000000b1" // ACE-500, mínimo 20
	ibuID    = "00000000-0000-0000-0000-0000000000b2" // IBU-400, mínimo 15
	sueID    = "00000000-0000-0000-0000-0000000000b3" // SUE-ORA, mínimo 10
	actor    = "user-1"
)

var today = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

type env struct {
	ctx         context.Context
	store       *memory.Store
	clock       *fixedClock
	batches     *stock.BatchLedger
	movements   *stock.MovementLedger
	svc         *stock.StockService
	transfers   *stock.TransferUseCase
	inventories *stock.InventoryUseCase
}

func newEnv(t *testing.T, opts ...stock.BatchLedgerOption) *env {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	clock := &fixedClock{t: today}
	require.NoError(t, memory.SeedDemo(ctx, store.Repos(), today, "COP"))

	repos := store.Repos()
	log := zerolog.Nop()
	refs := memory.NewReferenceSequence()
	batches := stock.NewBatchLedger(repos, clock, opts...)
	movements := stock.NewMovementLedger(repos.Movements, clock)
	svc := stock.NewStockService(store, repos, batches, movements, clock, log)
	return &env{
		ctx:         ctx,
		store:       store,
		clock:       clock,
		batches:     batches,
		movements:   movements,
		svc:         svc,
		transfers:   stock.NewTransferUseCase(store, repos, svc, refs, clock, log),
		inventories: stock.NewInventoryUseCase(store, repos, svc, refs, clock, log),
	}
}

func qty(n int64) entity.Quantity { return entity.QuantityFromInt(n) }

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func cop(t *testing.T, n int64) *entity.Money {
	t.Helper()
	m, err := entity.NewMoney(decimal.NewFromInt(n), "COP")
	require.NoError(t, err)
	return &m
}

// receive recepción directa en la tienda centro.
func (e *env) receive(t *testing.T, productID, batch string, n int64, exp *time.Time) *stock.MutationResult {
	t.Helper()
	res, err := e.svc.Receive(e.ctx, stock.ReceiveInput{
		PharmacyID: pharmacy,
		ShopID:     centro,
		ProductID:  productID,
		Lot:        stock.LotInput{BatchNumber: batch, Quantity: qty(n), ExpirationDate: exp},
		Reference:  "OC-" + batch,
		ActorID:    actor,
	})
	require.NoError(t, err)
	return res
}

func (e *env) product(t *testing.T, id string) *entity.Product {
	t.Helper()
	p, err := e.store.Repos().Products.GetByID(e.ctx, id)
	require.NoError(t, err)
	return p
}

func (e *env) batch(t *testing.T, productID, number string) *entity.ProductBatch {
	t.Helper()
	b, err := e.store.Repos().Batches.GetActiveByNumber(e.ctx, productID, number)
	require.NoError(t, err)
	return b
}

// requireConsistent stock == suma de lotes activos == suma del kardex.
func (e *env) requireConsistent(t *testing.T, shopID, productID string) {
	t.Helper()
	check, err := e.svc.Check(e.ctx, shopID, productID)
	require.NoError(t, err)
	require.True(t, check.Consistent(), "stock=%s lotes=%s kardex=%s", check.Stock, check.BatchTotal, check.LedgerTotal)
}

func requireQty(t *testing.T, want int64, got entity.Quantity) {
	t.Helper()
	require.True(t, got.Equal(qty(want)), "esperado %d, obtenido %s", want, got)
}
