package http

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
)

// retrier reintenta operaciones que fallan por modificación concurrente con backoff exponencial.
// Cualquier otro error se devuelve en el primer intento.
type retrier struct {
	attempts uint64
	initial  time.Duration
}

func newRetrier(attempts int) retrier {
	if attempts < 0 {
		attempts = 0
	}
	return retrier{attempts: uint64(attempts), initial: 50 * time.Millisecond}
}

func (r retrier) do(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxInterval = time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(b, r.attempts), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err != nil && !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
