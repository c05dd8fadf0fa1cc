package postgres

import (
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// psql builder de squirrel con placeholders $n.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Códigos SQLSTATE que se traducen a errores de dominio.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

// isConcurrencyFailure conflictos de serialización, deadlocks o lock no disponible.
func isConcurrencyFailure(err error) bool {
	switch pgCode(err) {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}
	return false
}

// wrap traduce errores de pgx a los sentinelas del dominio conservando el contexto.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case isConcurrencyFailure(err):
		return fmt.Errorf("%s: %w", op, domain.ErrConcurrentModification)
	case pgCode(err) == codeCheckViolation:
		return fmt.Errorf("%s: %w", op, domain.ErrInvalidQuantity)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func quantity(d decimal.Decimal) entity.Quantity {
	q, err := entity.NewQuantity(d)
	if err != nil {
		// la columna tiene CHECK >= 0; un valor negativo indica datos corruptos
		return entity.ZeroQuantity()
	}
	return q
}

func money(d decimal.Decimal, currency string) entity.Money {
	m, err := entity.NewMoney(d, currency)
	if err != nil {
		return entity.ZeroMoney(currency)
	}
	return m
}

func nullableQuantity(d *decimal.Decimal) *entity.Quantity {
	if d == nil {
		return nil
	}
	q := quantity(*d)
	return &q
}

func quantityPtr(q *entity.Quantity) *decimal.Decimal {
	if q == nil {
		return nil
	}
	d := q.Decimal()
	return &d
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// dateOnly normaliza fechas de vencimiento a medianoche UTC (columna DATE).
func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}
