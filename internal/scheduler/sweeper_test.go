package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubTarget struct {
	mu    sync.Mutex
	calls []time.Time
	n     int
	err   error
}

func (s *stubTarget) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, now)
	return s.n, s.err
}

func (s *stubTarget) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestNewSweeperSchedule(t *testing.T) {
	s, err := NewSweeper("", &stubTarget{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule, s.spec)

	_, err = NewSweeper("*/5 * * * *", &stubTarget{}, zap.NewNop())
	require.NoError(t, err)

	_, err = NewSweeper("every day", &stubTarget{}, zap.NewNop())
	require.Error(t, err)
}

func TestSweepPassesUTCNow(t *testing.T) {
	target := &stubTarget{n: 3}
	loc := time.FixedZone("UZT", 5*60*60)
	fixed := time.Date(2026, 5, 1, 5, 0, 0, 0, loc)

	s, err := NewSweeper(DefaultSchedule, target, zap.NewNop(), WithNow(func() time.Time { return fixed }))
	require.NoError(t, err)

	s.sweep(context.Background())

	require.Len(t, target.calls, 1)
	assert.Equal(t, time.UTC, target.calls[0].Location())
	assert.True(t, fixed.Equal(target.calls[0]))
}

func TestSweepErrorDoesNotPanic(t *testing.T) {
	target := &stubTarget{err: errors.New("db unavailable")}
	s, err := NewSweeper(DefaultSchedule, target, zap.NewNop())
	require.NoError(t, err)

	s.sweep(context.Background())
	assert.Equal(t, 1, target.count())
}

func TestSweepSkippedAfterCancel(t *testing.T) {
	target := &stubTarget{}
	s, err := NewSweeper(DefaultSchedule, target, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.sweep(ctx)

	assert.Zero(t, target.count())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	target := &stubTarget{}
	s, err := NewSweeper(DefaultSchedule, target, zap.NewNop(), WithRunOnStart())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return target.count() == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
