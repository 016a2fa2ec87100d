package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oggyb/qmatch/internal/repository"
)

func TestRetryStale(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := repository.RetryStale(ctx, func() error {
		calls++
		if calls < 2 {
			return repository.ErrStaleWrite
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = repository.RetryStale(ctx, func() error {
		calls++
		return repository.ErrStaleWrite
	})
	assert.ErrorIs(t, err, repository.ErrStaleWrite)
	assert.Equal(t, repository.MaxAttempts, calls)

	boom := errors.New("boom")
	calls = 0
	err = repository.RetryStale(ctx, func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "other errors are not retried")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, repository.RetryStale(cancelled, func() error { return nil }), context.Canceled)
}
