package repository

import (
	"context"
	"errors"
)

// MaxAttempts bounds read-modify-write retries after a lost race.
const MaxAttempts = 3

// RetryStale runs fn again while it fails with ErrStaleWrite, up to
// MaxAttempts times. fn must re-read whatever it validates.
func RetryStale(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(); !errors.Is(err, ErrStaleWrite) {
			return err
		}
	}
	return err
}
