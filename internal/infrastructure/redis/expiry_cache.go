package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
)

var _ stock.ExpiryCache = (*ExpiryCache)(nil)

// ExpiryCache guarda el reporte de vencimientos por tienda y día en JSON.
// Las claves de una tienda comparten prefijo para invalidarlas juntas.
type ExpiryCache struct {
	client *goredis.Client
	log    zerolog.Logger
}

// NewExpiryCache construye la caché.
func NewExpiryCache(client *goredis.Client, log zerolog.Logger) *ExpiryCache {
	return &ExpiryCache{client: client, log: log.With().Str("component", "expiry_cache").Logger()}
}

func expiryKey(shopID string, asOf time.Time) string {
	return fmt.Sprintf("stock:expiry:%s:%s", shopID, asOf.UTC().Format("20060102"))
}

// Get un fallo de caché no es error: devuelve (nil, false, nil).
func (c *ExpiryCache) Get(ctx context.Context, shopID string, asOf time.Time) (*stock.ExpiryReport, bool, error) {
	data, err := c.client.Get(ctx, expiryKey(shopID, asOf)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var report stock.ExpiryReport
	if err := json.Unmarshal(data, &report); err != nil {
		// entrada corrupta: se descarta y se recalcula
		c.log.Warn().Err(err).Str("shop_id", shopID).Msg("reporte de vencimientos ilegible en caché")
		return nil, false, nil
	}
	return &report, true, nil
}

func (c *ExpiryCache) Set(ctx context.Context, report *stock.ExpiryReport, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal expiry report: %w", err)
	}
	key := expiryKey(report.ShopID, report.AsOf)
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	c.log.Debug().Str("key", key).Dur("ttl", ttl).Msg("reporte de vencimientos en caché")
	return nil
}

// Invalidate borra todos los reportes de la tienda (cualquier fecha).
func (c *ExpiryCache) Invalidate(ctx context.Context, shopID string) error {
	pattern := fmt.Sprintf("stock:expiry:%s:*", shopID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
