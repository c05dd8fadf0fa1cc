package entity

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
)

// Money monto no negativo con moneda ISO 4217. Inmutable.
// Las operaciones entre monedas distintas fallan con ErrInvalidInput (no hay conversión).
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney valida monto >= 0 y moneda de 3 letras.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, fmt.Errorf("moneda %q: %w", currency, domain.ErrInvalidInput)
	}
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("monto negativo: %w", domain.ErrInvalidInput)
	}
	return Money{amount: amount, currency: currency}, nil
}

// ZeroMoney monto cero en la moneda dada.
func ZeroMoney(currency string) Money {
	return Money{amount: decimal.Zero, currency: strings.ToUpper(currency)}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }

func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + m.currency
}

func (m Money) sameCurrency(o Money) error {
	if m.currency != o.currency {
		return fmt.Errorf("monedas distintas %s/%s: %w", m.currency, o.currency, domain.ErrInvalidInput)
	}
	return nil
}

// Add suma montos de la misma moneda.
func (m Money) Add(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(o.amount), currency: m.currency}, nil
}

// Sub resta montos de la misma moneda; falla si el resultado es negativo.
func (m Money) Sub(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return NewMoney(m.amount.Sub(o.amount), m.currency)
}

// Times multiplica por una cantidad (ej: costo unitario * unidades).
func (m Money) Times(q Quantity) Money {
	return Money{amount: m.amount.Mul(q.Decimal()), currency: m.currency}
}

// DivideBy divide por una cantidad positiva. Dividir por cero devuelve cero.
func (m Money) DivideBy(q Quantity) Money {
	if q.IsZero() {
		return ZeroMoney(m.currency)
	}
	return Money{amount: m.amount.Div(q.Decimal()), currency: m.currency}
}
