package postgres

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/farmacia-pos-api/pkg/config"
)

const (
	defaultMaxConns = 25
	dialTimeout     = 10 * time.Second
)

// NewPool crea el pool de conexiones y verifica que la base responda.
func NewPool(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolConfig, err := newPoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}
	return pool, nil
}

// newPoolConfig traduce DBConfig a la configuración de pgxpool.
// Las columnas NUMERIC (cantidades, costos) se leen como decimal.Decimal en todas las conexiones.
func newPoolConfig(cfg config.DBConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	maxConns := int32(cfg.MaxConns)
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	pc.MaxConns = maxConns
	if cfg.MinConns > 0 {
		pc.MinConns = min(int32(cfg.MinConns), maxConns)
	}
	pc.MaxConnLifetime = time.Hour
	pc.MaxConnIdleTime = 30 * time.Minute
	pc.HealthCheckPeriod = time.Minute

	// un SELECT ... FOR UPDATE que espera más de lock_timeout aborta con 55P03 (ErrConcurrentModification)
	if cfg.LockTimeout > 0 {
		pc.ConnConfig.RuntimeParams["lock_timeout"] = strconv.FormatInt(cfg.LockTimeout.Milliseconds(), 10)
	}

	if cfg.ForceIPv4 {
		pc.ConnConfig.DialFunc = dialIPv4
	}

	pc.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	return pc, nil
}

// dialIPv4 conexiones TCP solo por IPv4 (redes de contenedores sin IPv6). Los sockets unix pasan igual.
func dialIPv4(ctx context.Context, network, addr string) (net.Conn, error) {
	if network == "tcp" || network == "tcp6" {
		network = "tcp4"
	}
	d := net.Dialer{Timeout: dialTimeout, KeepAlive: 5 * time.Minute}
	return d.DialContext(ctx, network, addr)
}
