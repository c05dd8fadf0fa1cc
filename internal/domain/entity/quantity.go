package entity

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
)

// Quantity cantidad física de un producto (en su unidad de medida). Inmutable y nunca negativa:
// toda operación devuelve un valor nuevo y las restas que quedarían bajo cero fallan.
type Quantity struct {
	value decimal.Decimal
}

// NewQuantity valida que v no sea negativa.
func NewQuantity(v decimal.Decimal) (Quantity, error) {
	if v.IsNegative() {
		return Quantity{}, domain.ErrInvalidQuantity
	}
	return Quantity{value: v}, nil
}

// NewPositiveQuantity valida que v sea estrictamente mayor que cero (entradas de usuario).
func NewPositiveQuantity(v decimal.Decimal) (Quantity, error) {
	if !v.IsPositive() {
		return Quantity{}, domain.ErrInvalidQuantity
	}
	return Quantity{value: v}, nil
}

// QuantityFromInt atajo para constantes y pruebas; panics si n < 0.
func QuantityFromInt(n int64) Quantity {
	q, err := NewQuantity(decimal.NewFromInt(n))
	if err != nil {
		panic(err)
	}
	return q
}

// ZeroQuantity cantidad cero.
func ZeroQuantity() Quantity { return Quantity{} }

func (q Quantity) Decimal() decimal.Decimal { return q.value }
func (q Quantity) IsZero() bool             { return q.value.IsZero() }
func (q Quantity) IsPositive() bool         { return q.value.IsPositive() }
func (q Quantity) String() string           { return q.value.String() }

func (q Quantity) Equal(o Quantity) bool       { return q.value.Equal(o.value) }
func (q Quantity) LessThan(o Quantity) bool    { return q.value.LessThan(o.value) }
func (q Quantity) GreaterThan(o Quantity) bool { return q.value.GreaterThan(o.value) }

// Add suma dos cantidades.
func (q Quantity) Add(o Quantity) Quantity {
	return Quantity{value: q.value.Add(o.value)}
}

// Sub resta o de q. Devuelve ErrInvalidQuantity si el resultado sería negativo.
func (q Quantity) Sub(o Quantity) (Quantity, error) {
	return NewQuantity(q.value.Sub(o.value))
}

// Min devuelve la menor de las dos cantidades.
func (q Quantity) Min(o Quantity) Quantity {
	if o.value.LessThan(q.value) {
		return o
	}
	return q
}

// ApplyDelta aplica un delta con signo (ajustes). Falla con ErrInvalidQuantity si queda negativo.
func (q Quantity) ApplyDelta(delta decimal.Decimal) (Quantity, error) {
	return NewQuantity(q.value.Add(delta))
}

// MarshalJSON serializa como string decimal (mismo formato que decimal.Decimal).
func (q Quantity) MarshalJSON() ([]byte, error) {
	return q.value.MarshalJSON()
}

// UnmarshalJSON rechaza valores negativos.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return domain.ErrInvalidQuantity
	}
	v, err := NewQuantity(d)
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// SumQuantities suma una lista de cantidades.
func SumQuantities(qs ...Quantity) Quantity {
	total := ZeroQuantity()
	for _, q := range qs {
		total = total.Add(q)
	}
	return total
}
