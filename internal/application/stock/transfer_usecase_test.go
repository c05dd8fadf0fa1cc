package stock_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/infrastructure/memory"
)

func (e *env) draftTransfer(t *testing.T) *entity.StockTransfer {
	t.Helper()
	tr, err := e.transfers.Create(e.ctx, stock.CreateTransferInput{
		PharmacyID: pharmacy, FromShopID: centro, ToShopID: norte, Notes: "reposición", ActorID: actor,
	})
	require.NoError(t, err)
	return tr
}

// ── Create ───────────────────────────────────────────────────────────────────

func TestTransferCreate_BorradorConReferencia(t *testing.T) {
	e := newEnv(t)

	tr := e.draftTransfer(t)

	assert.Equal(t, entity.TransferDraft, tr.Status)
	assert.Equal(t, "TRF-20250601-000001", tr.Reference)
	assert.Equal(t, actor, tr.CreatedBy)
}

func TestTransferCreate_ReferenciaRepetidaTrasReinicio(t *testing.T) {
	e := newEnv(t)
	first := e.draftTransfer(t)
	require.Equal(t, "TRF-20250601-000001", first.Reference)

	// un proceso nuevo arranca su consecutivo en 1 sobre los mismos datos
	restarted := stock.NewTransferUseCase(e.store, e.store.Repos(), e.svc, memory.NewReferenceSequence(), e.clock, zerolog.Nop())
	in := stock.CreateTransferInput{PharmacyID: pharmacy, FromShopID: centro, ToShopID: norte, ActorID: actor}

	_, err := restarted.Create(e.ctx, in)
	require.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.True(t, domain.IsRetryable(err))

	second, err := restarted.Create(e.ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "TRF-20250601-000002", second.Reference)
}

func TestTransferCreate_MismaTiendaInvalido(t *testing.T) {
	e := newEnv(t)
	_, err := e.transfers.Create(e.ctx, stock.CreateTransferInput{PharmacyID: pharmacy, FromShopID: centro, ToShopID: centro})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransferCreate_TiendaDeOtraFarmacia(t *testing.T) {
	e := newEnv(t)
	_, err := e.transfers.Create(e.ctx, stock.CreateTransferInput{PharmacyID: "otra", FromShopID: centro, ToShopID: norte})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// ── Líneas ───────────────────────────────────────────────────────────────────

func TestTransferItems_DuplicadoYEdicion(t *testing.T) {
	e := newEnv(t)
	tr := e.draftTransfer(t)

	item, err := e.transfers.AddItem(e.ctx, pharmacy, tr.ID, aceID, qty(3))
	require.NoError(t, err)

	_, err = e.transfers.AddItem(e.ctx, pharmacy, tr.ID, aceID, qty(1))
	assert.ErrorIs(t, err, domain.ErrDuplicateItem)

	updated, err := e.transfers.UpdateItem(e.ctx, pharmacy, item.ID, qty(8))
	require.NoError(t, err)
	requireQty(t, 8, updated.Quantity)

	_, err = e.transfers.UpdateItem(e.ctx, pharmacy, item.ID, entity.ZeroQuantity())
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	require.NoError(t, e.transfers.RemoveItem(e.ctx, pharmacy, item.ID))
	got, err := e.transfers.Get(e.ctx, pharmacy, tr.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestTransferItems_ProductoFueraDeTiendaOrigen(t *testing.T) {
	e := newEnv(t)
	tr, err := e.transfers.Create(e.ctx, stock.CreateTransferInput{PharmacyID: pharmacy, FromShopID: norte, ToShopID: centro})
	require.NoError(t, err)

	_, err = e.transfers.AddItem(e.ctx, pharmacy, tr.ID, aceID, qty(1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ── Validate ─────────────────────────────────────────────────────────────────

func TestTransferValidate_EscenarioS1aS2(t *testing.T) {
	e := newEnv(t)
	e.receive(t, aceID, "L-2025", 20, day(2025, 1, 1))
	tr := e.draftTransfer(t)
	_, err := e.transfers.AddItem(e.ctx, pharmacy, tr.ID, aceID, qty(5))
	require.NoError(t, err)

	validated, err := e.transfers.Validate(e.ctx, pharmacy, tr.ID, "supervisor")
	require.NoError(t, err)

	assert.Equal(t, entity.TransferValidated, validated.Status)
	assert.Equal(t, "supervisor", validated.ValidatedBy)
	require.NotNil(t, validated.ValidatedAt)

	requireQty(t, 15, e.product(t, aceID).Stock)
	dest, err := e.store.Repos().Products.GetByShopAndSKU(e.ctx, norte, "ACE-500")
	require.NoError(t, err)
	requireQty(t, 5, dest.Stock)

	// el lote se recrea en destino con el mismo número y vencimiento
	destBatch := e.batch(t, dest.ID, "L-2025")
	requireQty(t, 5, destBatch.Quantity)
	require.NotNil(t, destBatch.ExpirationDate)
	assert.True(t, destBatch.ExpirationDate.Equal(*day(2025, 1, 1)))

	out, err := e.movements.FindByShopFiltered(e.ctx, stock.MovementQuery{ShopID: centro, Reference: tr.Reference})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, entity.MovementTransferOut, out[0].Type)
	assert.True(t, out[0].Quantity.Equal(decimal.NewFromInt(-5)))

	in, err := e.movements.FindByShopFiltered(e.ctx, stock.MovementQuery{ShopID: norte, Reference: tr.Reference})
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, entity.MovementTransferIn, in[0].Type)
	assert.True(t, in[0].Quantity.Equal(decimal.NewFromInt(5)))

	e.requireConsistent(t, centro, aceID)
	e.requireConsistent(t, norte, dest.ID)
}

func TestTransferValidate_TodoONada(t *testing.T) {
	e := newEnv(t)
	e.receive(t, aceID, "A1", 10, day(2026, 1, 1))
	e.receive(t, ibuID, "I1", 4, day(2026, 1, 1))
	tr := e.draftTransfer(t)
	_, err := e.transfers.AddItem(e.ctx, pharmacy, tr.ID, aceID, qty(10))
	require.NoError(t, err)
	_, err = e.transfers.AddItem(e.ctx, pharmacy, tr.ID, ibuID, qty(999999))
	require.NoError(t, err)

	_, err = e.transfers.Validate(e.ctx, pharmacy, tr.ID, actor)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	requireQty(t, 10, e.product(t, aceID).Stock)
	requireQty(t, 10, e.batch(t, aceID, "A1").Quantity)
	_, err = e.store.Repos().Products.GetByShopAndSKU(e.ctx, norte, "ACE-500")
	assert.ErrorIs(t, err, domain.ErrNotFound, "el producto destino no debe quedar creado")

	got, err := e.transfers.Get(e.ctx, pharmacy, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferDraft, got.Status)
}

func TestTransferValidate_SinLineas(t *testing.T) {
	e := newEnv(t)
	tr := e.draftTransfer(t)
	_, err := e.transfers.Validate(e.ctx, pharmacy, tr.ID, actor)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestTransferValidate_DestinoExistenteSeIncrementa(t *testing.T) {
	e := newEnv(t)
	e.receive(t, aceID, "A1", 10, day(2026, 1, 1))

	for i := 0; i < 2; i++ {
		tr := e.draftTransfer(t)
		_, err := e.transfers.AddItem(e.ctx, pharmacy, tr.ID, aceID, qty(3))
		require.NoError(t, err)
		_, err = e.transfers.Validate(e.ctx, pharmacy, tr.ID, actor)
		require.NoError(t, err)
	}

	dest, err := e.store.Repos().Products.GetByShopAndSKU(e.ctx, norte, "ACE-500")
	require.NoError(t, err)
	requireQty(t, 6, dest.Stock)
	requireQty(t, 6, e.batch(t, dest.ID, "A1").Quantity)
	e.requireConsistent(t, norte, dest.ID)
}

// ── Estados terminales ───────────────────────────────────────────────────────

func TestTransfer_EstadosTerminalesCerrados(t *testing.T) {
	e := newEnv(t)
	e.receive(t, aceID, "A1", 10, day(2026, 1, 1))

	validated := e.draftTransfer(t)
	item, err := e.transfers.AddItem(e.ctx, pharmacy, validated.ID, aceID, qty(1))
	require.NoError(t, err)
	_, err = e.transfers.Validate(e.ctx, pharmacy, validated.ID, actor)
	require.NoError(t, err)

	cancelled := e.draftTransfer(t)
	cItem, err := e.transfers.AddItem(e.ctx, pharmacy, cancelled.ID, aceID, qty(1))
	require.NoError(t, err)
	_, err = e.transfers.Cancel(e.ctx, pharmacy, cancelled.ID)
	require.NoError(t, err)

	cases := []struct {
		name   string
		id     string
		itemID string
	}{
		{"validado", validated.ID, item.ID},
		{"cancelado", cancelled.ID, cItem.ID},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := e.transfers.AddItem(e.ctx, pharmacy, c.id, ibuID, qty(1))
			assert.ErrorIs(t, err, domain.ErrInvalidState)
			_, err = e.transfers.UpdateItem(e.ctx, pharmacy, c.itemID, qty(2))
			assert.ErrorIs(t, err, domain.ErrInvalidState)
			assert.ErrorIs(t, e.transfers.RemoveItem(e.ctx, pharmacy, c.itemID), domain.ErrInvalidState)
			_, err = e.transfers.Validate(e.ctx, pharmacy, c.id, actor)
			assert.ErrorIs(t, err, domain.ErrInvalidState)
			_, err = e.transfers.Cancel(e.ctx, pharmacy, c.id)
			assert.ErrorIs(t, err, domain.ErrInvalidState)
		})
	}
	// validado una sola vez
	requireQty(t, 9, e.product(t, aceID).Stock)
}

func TestTransferList_FiltraPorEstado(t *testing.T) {
	e := newEnv(t)
	e.draftTransfer(t)
	c := e.draftTransfer(t)
	_, err := e.transfers.Cancel(e.ctx, pharmacy, c.ID)
	require.NoError(t, err)

	drafts, err := e.transfers.List(e.ctx, stock.TransferQuery{PharmacyID: pharmacy, Status: "draft"})
	require.NoError(t, err)
	assert.Len(t, drafts, 1)

	_, err = e.transfers.List(e.ctx, stock.TransferQuery{PharmacyID: pharmacy, Status: "approved"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransferGet_OtraFarmacia(t *testing.T) {
	e := newEnv(t)
	tr := e.draftTransfer(t)
	_, err := e.transfers.Get(e.ctx, "otra", tr.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
