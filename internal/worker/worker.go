package worker

import (
	"context"
)

// Worker is a long running stream consumer
type Worker interface {
	// Start blocks until the worker is stopped or ctx is cancelled
	Start(ctx context.Context) error

	Stop() error

	Name() string
}
