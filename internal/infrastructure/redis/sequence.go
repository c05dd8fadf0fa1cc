package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
)

var _ stock.ReferenceGenerator = (*ReferenceSequence)(nil)

// sequenceTTL el contador del día se conserva un poco más de 24 h por desfases de zona horaria.
const sequenceTTL = 48 * time.Hour

// ReferenceSequence consecutivos diarios por (prefijo, tenant) con INCR atómico,
// compartidos entre todas las réplicas de la API.
type ReferenceSequence struct {
	client *goredis.Client
}

// NewReferenceSequence construye el generador.
func NewReferenceSequence(client *goredis.Client) *ReferenceSequence {
	return &ReferenceSequence{client: client}
}

// Next devuelve PREFIJO-YYYYMMDD-NNNNNN.
func (s *ReferenceSequence) Next(ctx context.Context, scope, prefix string, at time.Time) (string, error) {
	key := fmt.Sprintf("stock:ref:%s:%s:%s", prefix, scope, at.UTC().Format("20060102"))

	var incr *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.Expire(ctx, key, sequenceTTL)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("incr %s: %w", key, err)
	}
	return stock.FormatReference(prefix, at, incr.Val()), nil
}
