package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) Sweep(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return 2, c.err
}

func TestSessionSweeperRunsOnSchedule(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewSessionSweeper(sweeper, "@every 1s", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSessionSweeperRejectsBadSchedule(t *testing.T) {
	s := NewSessionSweeper(&countingSweeper{}, "not a schedule", nil)
	err := s.Run(context.Background())
	assert.Error(t, err)
}

func TestSessionSweeperRunOnceToleratesErrors(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("boom")}
	s := NewSessionSweeper(sweeper, "", nil)
	s.runOnce(context.Background())
	assert.EqualValues(t, 1, sweeper.calls.Load())
}
