package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nexasphere/internal/domain"
)

const (
	readAttempts  = 3
	retryInterval = 50 * time.Millisecond
)

// withReadRetry retries an idempotent read a bounded number of times.
// Writes are never routed through here: a retried write could duplicate a
// message, while a retried read at worst repeats work.
func withReadRetry[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var (
		res T
		err error
	)
	for attempt := 1; attempt <= readAttempts; attempt++ {
		res, err = fn(ctx)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, domain.ErrNotFound) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return res, err
		}
		if attempt < readAttempts {
			select {
			case <-time.After(retryInterval * time.Duration(attempt)):
			case <-ctx.Done():
				return res, ctx.Err()
			}
		}
	}
	return res, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
}
