package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
	"github.com/jhoicas/farmacia-pos-api/internal/domain"
)

var _ stock.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL (READ COMMITTED + SELECT FOR UPDATE).
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Repos repositorios atados al pool, para lecturas fuera de transacción.
func Repos(pool *pgxpool.Pool) stock.Repos {
	return reposFor(pool)
}

func reposFor(q Querier) stock.Repos {
	return stock.Repos{
		Shops:       NewShopRepository(q),
		Products:    NewProductRepository(q),
		Batches:     NewBatchRepository(q),
		Movements:   NewMovementRepository(q),
		Transfers:   NewTransferRepository(q),
		Inventories: NewInventoryRepository(q),
	}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los conflictos de concurrencia (serialización, deadlock, lock_timeout) salen como ErrConcurrentModification.
func (r *TxRunner) Run(ctx context.Context, fn func(repos stock.Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SET LOCAL lock_timeout = '5s'"); err != nil {
		return fmt.Errorf("lock_timeout: %w", err)
	}

	if err := fn(reposFor(tx)); err != nil {
		if isConcurrencyFailure(err) {
			return fmt.Errorf("%v: %w", err, domain.ErrConcurrentModification)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isConcurrencyFailure(err) {
			return fmt.Errorf("commit transaction: %w", domain.ErrConcurrentModification)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
