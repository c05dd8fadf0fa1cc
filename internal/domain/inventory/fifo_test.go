package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func batch(id string, qty int64, exp *time.Time, seq int64) *entity.ProductBatch {
	return &entity.ProductBatch{
		ID:             id,
		BatchNumber:    id,
		Quantity:       entity.QuantityFromInt(qty),
		ExpirationDate: exp,
		IsActive:       true,
		Seq:            seq,
	}
}

// ── AllocateFIFO ─────────────────────────────────────────────────────────────

func TestAllocateFIFO_ConsumePrimeroElQueVenceAntes(t *testing.T) {
	b1 := batch("B1", 5, date(2025, 1, 1), 2)
	b2 := batch("B2", 5, date(2025, 2, 1), 1)

	allocs, err := AllocateFIFO([]*entity.ProductBatch{b2, b1}, entity.QuantityFromInt(7))

	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, "B1", allocs[0].Batch.ID)
	assert.True(t, allocs[0].Quantity.Equal(entity.QuantityFromInt(5)))
	assert.Equal(t, "B2", allocs[1].Batch.ID)
	assert.True(t, allocs[1].Quantity.Equal(entity.QuantityFromInt(2)))
	// no modifica los lotes
	assert.True(t, b1.Quantity.Equal(entity.QuantityFromInt(5)))
}

func TestAllocateFIFO_InsuficienteNoAsignaNada(t *testing.T) {
	b1 := batch("B1", 3, date(2025, 1, 1), 1)

	allocs, err := AllocateFIFO([]*entity.ProductBatch{b1}, entity.QuantityFromInt(5))

	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Nil(t, allocs)
}

func TestAllocateFIFO_LotesSinVencimientoAlFinal(t *testing.T) {
	sinFecha := batch("NOEXP", 10, nil, 1)
	conFecha := batch("EXP", 2, date(2030, 1, 1), 2)

	allocs, err := AllocateFIFO([]*entity.ProductBatch{sinFecha, conFecha}, entity.QuantityFromInt(3))

	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, "EXP", allocs[0].Batch.ID)
	assert.Equal(t, "NOEXP", allocs[1].Batch.ID)
}

func TestAllocateFIFO_EmpateDeFechaUsaOrdenDeCreacion(t *testing.T) {
	a := batch("A", 1, date(2025, 1, 1), 7)
	b := batch("B", 1, date(2025, 1, 1), 3)

	allocs, err := AllocateFIFO([]*entity.ProductBatch{a, b}, entity.QuantityFromInt(1))

	require.NoError(t, err)
	assert.Equal(t, "B", allocs[0].Batch.ID)
}

func TestAllocateFIFO_IgnoraInactivosYVacios(t *testing.T) {
	inactivo := batch("OFF", 10, date(2024, 1, 1), 1)
	inactivo.IsActive = false
	vacio := batch("EMPTY", 0, date(2024, 2, 1), 2)
	ok := batch("OK", 4, date(2025, 1, 1), 3)

	allocs, err := AllocateFIFO([]*entity.ProductBatch{inactivo, vacio, ok}, entity.QuantityFromInt(4))

	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, "OK", allocs[0].Batch.ID)
	assert.True(t, Available([]*entity.ProductBatch{inactivo, vacio, ok}).Equal(entity.QuantityFromInt(4)))
}

func TestAllocateFIFO_CantidadCeroInvalida(t *testing.T) {
	_, err := AllocateFIFO(nil, entity.ZeroQuantity())
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}
