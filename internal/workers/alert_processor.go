package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

// AlertKind clase de alerta de stock.
type AlertKind string

const (
	AlertExpired  AlertKind = "expired"
	AlertExpiring AlertKind = "expiring"
	AlertLowStock AlertKind = "low_stock"
)

// Alert hallazgo de una revisión periódica.
type Alert struct {
	Kind           AlertKind
	ShopID         string
	ProductID      string
	BatchID        string
	BatchNumber    string
	Quantity       decimal.Decimal
	MinimumStock   decimal.Decimal
	ExpirationDate *time.Time
}

// AlertProcessor revisa vencimientos y mínimos de las tiendas y registra cada alerta.
type AlertProcessor struct {
	shops    repository.ShopRepository
	products repository.ProductRepository
	batches  *stock.BatchLedger
	log      zerolog.Logger
}

// NewAlertProcessor construye el procesador sobre los repositorios de lectura.
func NewAlertProcessor(repos stock.Repos, batches *stock.BatchLedger, log zerolog.Logger) *AlertProcessor {
	return &AlertProcessor{
		shops:    repos.Shops,
		products: repos.Products,
		batches:  batches,
		log:      log.With().Str("processor", "alerts").Logger(),
	}
}

// Register asocia los tipos de tarea a sus handlers.
func (p *AlertProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeExpiryAlert, p.ProcessExpiry)
	mux.HandleFunc(TypeLowStockAlert, p.ProcessLowStock)
}

// ProcessExpiry handler asynq de TypeExpiryAlert.
func (p *AlertProcessor) ProcessExpiry(ctx context.Context, t *asynq.Task) error {
	payload, err := parsePayload(t)
	if err != nil {
		return err
	}
	return p.forShops(ctx, payload.ShopID, p.ExpiryAlerts)
}

// ProcessLowStock handler asynq de TypeLowStockAlert.
func (p *AlertProcessor) ProcessLowStock(ctx context.Context, t *asynq.Task) error {
	payload, err := parsePayload(t)
	if err != nil {
		return err
	}
	return p.forShops(ctx, payload.ShopID, p.LowStockAlerts)
}

// ExpiryAlerts lotes con existencia vencidos o dentro de la ventana de vencimiento de la tienda.
func (p *AlertProcessor) ExpiryAlerts(ctx context.Context, shopID string) ([]Alert, error) {
	expired, err := p.batches.FindExpired(ctx, shopID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("lotes vencidos de %s: %w", shopID, err)
	}
	expiring, err := p.batches.FindExpiring(ctx, shopID, 0)
	if err != nil {
		return nil, fmt.Errorf("lotes por vencer de %s: %w", shopID, err)
	}
	alerts := make([]Alert, 0, len(expired)+len(expiring))
	for _, b := range expired {
		alerts = append(alerts, batchAlert(AlertExpired, b))
	}
	for _, b := range expiring {
		alerts = append(alerts, batchAlert(AlertExpiring, b))
	}
	return alerts, nil
}

// LowStockAlerts productos activos de la tienda por debajo de su mínimo.
func (p *AlertProcessor) LowStockAlerts(ctx context.Context, shopID string) ([]Alert, error) {
	products, err := p.products.ListBelowMinimum(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("productos bajo mínimo de %s: %w", shopID, err)
	}
	alerts := make([]Alert, 0, len(products))
	for _, pr := range products {
		alerts = append(alerts, Alert{
			Kind:         AlertLowStock,
			ShopID:       pr.ShopID,
			ProductID:    pr.ID,
			Quantity:     pr.Stock.Decimal(),
			MinimumStock: pr.MinimumStock.Decimal(),
		})
	}
	return alerts, nil
}

func (p *AlertProcessor) forShops(ctx context.Context, shopID string, scan func(context.Context, string) ([]Alert, error)) error {
	ids := []string{shopID}
	if shopID == "" {
		shops, err := p.shops.ListActive(ctx)
		if err != nil {
			return fmt.Errorf("listar tiendas: %w", err)
		}
		ids = ids[:0]
		for _, s := range shops {
			ids = append(ids, s.ID)
		}
	}
	total := 0
	for _, id := range ids {
		alerts, err := scan(ctx, id)
		if err != nil {
			return err
		}
		for _, a := range alerts {
			p.logAlert(a)
		}
		total += len(alerts)
	}
	p.log.Info().Int("shops", len(ids)).Int("alerts", total).Msg("revisión de alertas terminada")
	return nil
}

func (p *AlertProcessor) logAlert(a Alert) {
	ev := p.log.Warn().
		Str("alert", string(a.Kind)).
		Str("shop_id", a.ShopID).
		Str("product_id", a.ProductID).
		Str("quantity", a.Quantity.String())
	if a.BatchID != "" {
		ev = ev.Str("batch_id", a.BatchID).Str("batch_number", a.BatchNumber)
	}
	if a.ExpirationDate != nil {
		ev = ev.Str("expiration_date", a.ExpirationDate.Format("2006-01-02"))
	}
	if a.Kind == AlertLowStock {
		ev = ev.Str("minimum_stock", a.MinimumStock.String())
	}
	ev.Msg("alerta de stock")
}

func batchAlert(kind AlertKind, b *entity.ProductBatch) Alert {
	return Alert{
		Kind:           kind,
		ShopID:         b.ShopID,
		ProductID:      b.ProductID,
		BatchID:        b.ID,
		BatchNumber:    b.BatchNumber,
		Quantity:       b.Quantity.Decimal(),
		ExpirationDate: b.ExpirationDate,
	}
}
