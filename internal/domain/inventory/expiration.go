package inventory

import (
	"time"

	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
)

// ExpirationStatus clasificación de un lote según su fecha de vencimiento.
type ExpirationStatus string

const (
	ExpirationOK           ExpirationStatus = "ok"
	ExpirationExpiringSoon ExpirationStatus = "expiring_soon"
	ExpirationExpired      ExpirationStatus = "expired"
)

// DefaultExpiringDays ventana por defecto para "próximo a vencer".
const DefaultExpiringDays = 30

// Classify clasifica una fecha de vencimiento respecto a asOf.
// Vencido: exp <= asOf. Próximo a vencer: asOf < exp <= asOf + days. Sin fecha: ok.
func Classify(exp *time.Time, asOf time.Time, days int) ExpirationStatus {
	if exp == nil {
		return ExpirationOK
	}
	if !exp.After(asOf) {
		return ExpirationExpired
	}
	if !exp.After(asOf.AddDate(0, 0, days)) {
		return ExpirationExpiringSoon
	}
	return ExpirationOK
}

// ClassifyBatch atajo sobre el lote.
func ClassifyBatch(b *entity.ProductBatch, asOf time.Time, days int) ExpirationStatus {
	return Classify(b.ExpirationDate, asOf, days)
}

// ExpiringWindow devuelve los límites (asOf, asOf+days] usados por las consultas de lotes.
func ExpiringWindow(asOf time.Time, days int) (from, to time.Time) {
	return asOf, asOf.AddDate(0, 0, days)
}
