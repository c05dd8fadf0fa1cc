// Package bootstrap arma el almacenamiento y los casos de uso de stock a partir de la configuración.
// Lo comparten la API y el worker.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
	"github.com/jhoicas/farmacia-pos-api/internal/infrastructure/memory"
	"github.com/jhoicas/farmacia-pos-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/farmacia-pos-api/internal/infrastructure/redis"
	"github.com/jhoicas/farmacia-pos-api/pkg/config"
)

// Backend almacenamiento elegido por STORE_DRIVER más los servicios opcionales de Redis.
type Backend struct {
	Tx     stock.TxRunner
	Repos  stock.Repos
	Refs   stock.ReferenceGenerator
	Cache  stock.ExpiryCache // nil sin Redis
	Health map[string]func(ctx context.Context) error

	closers []func()
}

// Open conecta el driver configurado. Con postgres aplica migraciones si DB_RUN_MIGRATIONS;
// con memory siembra el catálogo demo. Con postgres los consecutivos viven en la base; con memory
// salen de Redis si REDIS_ADDR está definido y si no, del propio proceso.
func Open(ctx context.Context, cfg *config.Config, clock stock.Clock, log zerolog.Logger) (*Backend, error) {
	b := &Backend{Health: map[string]func(ctx context.Context) error{}}

	switch cfg.App.StoreDriver {
	case "postgres":
		if cfg.DB.RunMigrations {
			if err := migrateUp(cfg.DB.ConnectionString(), log); err != nil {
				return nil, err
			}
		}
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		b.Tx = postgres.NewTxRunner(pool)
		b.Repos = postgres.Repos(pool)
		b.Refs = postgres.NewReferenceSequence(pool)
		b.Health["postgres"] = pool.Ping
	default:
		store := memory.NewStore()
		if err := memory.SeedDemo(ctx, store.Repos(), clock.Now(), cfg.Stock.DefaultCurrency); err != nil {
			return nil, fmt.Errorf("sembrar catálogo demo: %w", err)
		}
		b.Tx = store
		b.Repos = store.Repos()
		log.Warn().Str("pharmacy_id", memory.DemoPharmacyID).Msg("almacén en memoria con catálogo demo; los datos se pierden al reiniciar")
	}

	if !cfg.Redis.Enabled() {
		if b.Refs == nil {
			b.Refs = memory.NewReferenceSequence()
		}
		return b, nil
	}
	client, err := infraredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("conexión a Redis: %w", err)
	}
	b.closers = append(b.closers, func() { _ = client.Close() })
	if b.Refs == nil {
		b.Refs = infraredis.NewReferenceSequence(client)
	}
	b.Cache = infraredis.NewExpiryCache(client, log)
	b.Health["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return b, nil
}

// Close libera conexiones en orden inverso de apertura.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

func migrateUp(dsn string, log zerolog.Logger) error {
	mg, err := postgres.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer mg.Close()
	if err := mg.Up(); err != nil {
		return fmt.Errorf("aplicar migraciones: %w", err)
	}
	if v, dirty, err := mg.Version(); err == nil {
		log.Info().Uint("version", v).Bool("dirty", dirty).Msg("migraciones aplicadas")
	}
	return nil
}
