package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingSyncer struct {
	calls atomic.Int32
	block chan struct{}
	err   error
}

func (c *countingSyncer) SyncCurrentDays(ctx context.Context) (int, error) {
	c.calls.Add(1)
	if c.block != nil {
		<-c.block
	}
	return 2, c.err
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("every now and then", &countingSyncer{}, zap.NewNop())
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	syncer := &countingSyncer{err: errors.New("mongo down")}
	s, err := New("@every 1h", syncer, zap.NewNop())
	require.NoError(t, err)

	n, err := s.RunOnce(context.Background())
	assert.Equal(t, 2, n)
	assert.EqualError(t, err, "mongo down")
	assert.Equal(t, int32(1), syncer.calls.Load())
}

func TestTickSkipsOverlap(t *testing.T) {
	syncer := &countingSyncer{block: make(chan struct{})}
	s, err := New("@every 1h", syncer, zap.NewNop())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.tick()
		close(done)
	}()
	require.Eventually(t, func() bool { return syncer.calls.Load() == 1 }, time.Second, time.Millisecond)

	s.tick()
	assert.Equal(t, int32(1), syncer.calls.Load())

	close(syncer.block)
	<-done
}

func TestScheduleRuns(t *testing.T) {
	syncer := &countingSyncer{}
	s, err := New("@every 1s", syncer, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return syncer.calls.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
	s.Stop()
}
