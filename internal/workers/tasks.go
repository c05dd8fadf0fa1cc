package workers

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Tipos de tarea encolados en asynq.
const (
	TypeExpiryAlert   = "stock:expiry_alert"
	TypeLowStockAlert = "stock:low_stock_alert"
)

// AlertPayload tienda a revisar; vacío revisa todas las tiendas activas.
type AlertPayload struct {
	ShopID string `json:"shop_id,omitempty"`
}

// NewExpiryAlertTask tarea de alertas de lotes vencidos y por vencer.
func NewExpiryAlertTask(shopID string) (*asynq.Task, error) {
	return newAlertTask(TypeExpiryAlert, shopID)
}

// NewLowStockAlertTask tarea de alertas de productos bajo su stock mínimo.
func NewLowStockAlertTask(shopID string) (*asynq.Task, error) {
	return newAlertTask(TypeLowStockAlert, shopID)
}

func newAlertTask(typ, shopID string) (*asynq.Task, error) {
	b, err := json.Marshal(AlertPayload{ShopID: shopID})
	if err != nil {
		return nil, fmt.Errorf("payload %s: %w", typ, err)
	}
	return asynq.NewTask(typ, b, asynq.MaxRetry(3), asynq.Queue("alerts")), nil
}

func parsePayload(t *asynq.Task) (AlertPayload, error) {
	var p AlertPayload
	if len(t.Payload()) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		// un payload corrupto no mejora reintentando
		return p, fmt.Errorf("payload %s inválido: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return p, nil
}
