package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type loopWorker struct {
	*BaseWorker
	started atomic.Bool
}

func (w *loopWorker) Start(ctx context.Context) error {
	w.started.Store(true)
	select {
	case <-w.StopChan():
	case <-ctx.Done():
	}
	return nil
}

func TestWorkerManager_StartStop(t *testing.T) {
	m := NewWorkerManager(zap.NewNop(), time.Second)
	w := &loopWorker{BaseWorker: NewBaseWorker("loop", "group", zap.NewNop())}
	m.Register(w)

	require.NoError(t, m.Start(context.Background()))
	assert.Eventually(t, w.started.Load, time.Second, 10*time.Millisecond)

	require.NoError(t, m.Stop())
	assert.True(t, w.IsStopped())

	// second stop is a no-op
	assert.NoError(t, w.Stop())
}

func TestWorkerManager_NoWorkers(t *testing.T) {
	err := NewWorkerManager(zap.NewNop(), time.Second).Start(context.Background())
	assert.Error(t, err)
}

type stuckWorker struct {
	*BaseWorker
	release chan struct{}
}

func (w *stuckWorker) Start(context.Context) error {
	<-w.release
	return nil
}

func TestWorkerManager_StopTimesOut(t *testing.T) {
	m := NewWorkerManager(zap.NewNop(), 50*time.Millisecond)
	w := &stuckWorker{BaseWorker: NewBaseWorker("stuck", "group", zap.NewNop()), release: make(chan struct{})}
	defer close(w.release)
	m.Register(w)

	require.NoError(t, m.Start(context.Background()))

	err := m.Stop()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}
