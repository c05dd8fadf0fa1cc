package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
)

var _ stock.ReferenceGenerator = (*ReferenceSequence)(nil)

// ReferenceSequence consecutivos diarios en la tabla reference_sequences.
// El upsert toma el lock de la fila, así que réplicas y reinicios nunca repiten un número.
// Corre sobre el pool, fuera de la transacción del documento: un rollback deja un hueco, no un duplicado.
type ReferenceSequence struct {
	q Querier
}

// NewReferenceSequence construye el generador.
func NewReferenceSequence(q Querier) *ReferenceSequence {
	return &ReferenceSequence{q: q}
}

// Next devuelve PREFIJO-YYYYMMDD-NNNNNN.
func (s *ReferenceSequence) Next(ctx context.Context, scope, prefix string, at time.Time) (string, error) {
	day := at.UTC()
	var n int64
	err := s.q.QueryRow(ctx, `
		INSERT INTO reference_sequences (prefix, scope, day, last_value)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (prefix, scope, day) DO UPDATE SET last_value = reference_sequences.last_value + 1
		RETURNING last_value`,
		prefix, scope, dateOnly(&day)).Scan(&n)
	if err != nil {
		return "", wrap(fmt.Sprintf("consecutivo %s", prefix), err)
	}
	return stock.FormatReference(prefix, at, n), nil
}
