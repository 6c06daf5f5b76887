package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}

func TestWithRetry_RetriesSerializationFailure(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), testDelays, func() error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_GivesUpAfterAllDelays(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), testDelays, func() error {
		calls++
		return &pgconn.PgError{Code: pgerrcode.DeadlockDetected}
	})

	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, len(testDelays)+1, calls)
}

func TestWithRetry_DoesNotRetryBusinessErrors(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), testDelays, func() error {
		calls++
		return ErrOrderNotFound
	})

	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := withRetry(ctx, []time.Duration{time.Hour}, func() error {
		calls++
		return errors.New("connection refused")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, isConnectionError(errors.New("dial tcp: connection refused")))
	assert.True(t, isConnectionError(errors.New("write: broken pipe")))
	assert.False(t, isConnectionError(errors.New("syntax error")))
}
