package worker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	idleBackoff  = 100 * time.Millisecond
	errorBackoff = time.Second
)

// PollFunc handles one round of stream work and reports how many messages it
// took. Loop backs off when it took none or failed.
type PollFunc func(ctx context.Context) (int, error)

// BaseWorker carries the consumer identity and the stop signal shared by
// stream workers. Stop cancels the context Loop hands to the poll function,
// so a job in flight sees the shutdown.
type BaseWorker struct {
	name          string
	consumerGroup string
	consumerName  string
	logger        *zap.Logger

	mu       sync.Mutex
	stopped  bool
	stopChan chan struct{}
}

// NewBaseWorker names the consumer after the host and process, so every
// worker process reads as its own consumer within consumerGroup.
func NewBaseWorker(name, consumerGroup string, logger *zap.Logger) *BaseWorker {
	hostname, _ := os.Hostname()
	return &BaseWorker{
		name:          name,
		consumerGroup: consumerGroup,
		consumerName:  fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		logger:        logger.With(zap.String("worker", name)),
		stopChan:      make(chan struct{}),
	}
}

func (w *BaseWorker) Name() string {
	return w.name
}

func (w *BaseWorker) ConsumerGroup() string {
	return w.consumerGroup
}

func (w *BaseWorker) ConsumerName() string {
	return w.consumerName
}

func (w *BaseWorker) Logger() *zap.Logger {
	return w.logger
}

// Stop signals the worker to exit. It is safe to call more than once.
func (w *BaseWorker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}

	w.logger.Info("Stopping worker")
	close(w.stopChan)
	w.stopped = true

	return nil
}

func (w *BaseWorker) IsStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

// StopChan is closed by Stop.
func (w *BaseWorker) StopChan() <-chan struct{} {
	return w.stopChan
}

// Context derives a context from ctx that Stop also cancels.
func (w *BaseWorker) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Loop calls poll until Stop is called or ctx ends. It returns nil after Stop
// and ctx's error when the parent context was cancelled.
func (w *BaseWorker) Loop(ctx context.Context, poll PollFunc) error {
	runCtx, cancel := w.Context(ctx)
	defer cancel()

	for {
		if runCtx.Err() != nil {
			if w.IsStopped() {
				w.logger.Info("Worker stopped")
				return nil
			}
			w.logger.Info("Context cancelled")
			return ctx.Err()
		}

		n, err := poll(runCtx)
		switch {
		case err != nil:
			if runCtx.Err() == nil {
				w.logger.Error("Poll failed", zap.Error(err))
				Sleep(runCtx, errorBackoff)
			}
		case n == 0:
			Sleep(runCtx, idleBackoff)
		}
	}
}

// Sleep waits for d and reports false if ctx ended first.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
