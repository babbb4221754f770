package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Do runs op up to attempts times with a fixed delay between failures.
// This is the intra-step retry scope: small, bounded, per unit of
// sub-work. Execution-level retry is owned by the pipeline executor and
// must not be routed through here.
func Do[T any](ctx context.Context, attempts int, delay time.Duration, op func() (T, error)) (T, error) {
	if attempts < 1 {
		attempts = 1
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(delay)),
		backoff.WithMaxTries(uint(attempts)),
	)
}

// Permanent marks err as not worth retrying; Do returns it immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
