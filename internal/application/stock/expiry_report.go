package stock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/inventory"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

// ExpiryBucket cantidad de lotes y unidades en un estado de vencimiento.
type ExpiryBucket struct {
	Batches  int             `json:"batches"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ExpiryReport resumen de vencimientos de una tienda (solo lotes activos con existencia).
type ExpiryReport struct {
	ShopID       string       `json:"shop_id"`
	AsOf         time.Time    `json:"as_of"`
	ExpiringDays int          `json:"expiring_days"`
	Expired      ExpiryBucket `json:"expired"`
	ExpiringSoon ExpiryBucket `json:"expiring_soon"`
	OK           ExpiryBucket `json:"ok"`
	GeneratedAt  time.Time    `json:"generated_at"`
}

func (b *ExpiryBucket) add(q decimal.Decimal) {
	b.Batches++
	b.Quantity = b.Quantity.Add(q)
}

// ExpiryReport calcula (o toma de caché) el resumen de vencimientos de la tienda para hoy.
func (l *BatchLedger) ExpiryReport(ctx context.Context, shopID string) (*ExpiryReport, error) {
	if shopID == "" {
		return nil, domain.ErrInvalidInput
	}
	today := l.today()
	if l.cache != nil {
		cached, ok, err := l.cache.Get(ctx, shopID, today)
		if err != nil {
			l.log.Warn().Err(err).Str("shop_id", shopID).Msg("caché de vencimientos no disponible")
		} else if ok {
			return cached, nil
		}
	}

	report := &ExpiryReport{
		ShopID:       shopID,
		AsOf:         today,
		ExpiringDays: l.expiringDays,
		GeneratedAt:  l.clock.Now(),
	}
	for offset := 0; ; offset += repository.MaxLimit {
		page, err := l.repos.Batches.Search(ctx, repository.BatchFilter{
			ShopID:        shopID,
			OnlyAvailable: true,
			Page:          repository.NewPage(repository.MaxLimit, offset),
		})
		if err != nil {
			return nil, err
		}
		for _, b := range page {
			q := b.Quantity.Decimal()
			switch inventory.ClassifyBatch(b, today, l.expiringDays) {
			case inventory.ExpirationExpired:
				report.Expired.add(q)
			case inventory.ExpirationExpiringSoon:
				report.ExpiringSoon.add(q)
			case inventory.ExpirationOK:
				report.OK.add(q)
			}
		}
		if len(page) < repository.MaxLimit {
			break
		}
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, report, l.cacheTTL); err != nil {
			l.log.Warn().Err(err).Str("shop_id", shopID).Msg("no se pudo guardar reporte de vencimientos")
		}
	}
	return report, nil
}

// invalidateReports descarta el reporte cacheado de las tiendas tocadas por una mutación confirmada.
func (l *BatchLedger) invalidateReports(ctx context.Context, shopIDs ...string) {
	if l.cache == nil {
		return
	}
	for _, id := range shopIDs {
		if err := l.cache.Invalidate(ctx, id); err != nil {
			l.log.Warn().Err(err).Str("shop_id", id).Msg("no se pudo invalidar reporte de vencimientos")
		}
	}
}
