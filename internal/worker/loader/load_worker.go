// Package loader runs queued forest density loads.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/forest-density-service/internal/domain"
	"github.com/forest-density-service/internal/domain/repository"
	"github.com/forest-density-service/internal/usecase"
	"github.com/forest-density-service/internal/worker"
	"go.uber.org/zap"
)

const (
	jobsPerRead = 1 // loads are long running, take one job at a time

	// DefaultClaimMinIdle is how long a job must sit unacknowledged before
	// another worker takes it over. Running jobs refresh their claim at a
	// third of it.
	DefaultClaimMinIdle = 5 * time.Minute

	finishTimeout = 5 * time.Second
)

// Loader is implemented by usecase.LoadUseCase.
type Loader interface {
	Load(ctx context.Context, opts domain.LoadOptions, progress usecase.ProgressFunc) (*domain.LoadSummary, error)
}

// LoadWorker consumes LoadJobEvents and runs them through the loader. Jobs
// left pending by a worker that died or was stopped are claimed again once
// they have been idle for claimMinIdle.
type LoadWorker struct {
	*worker.BaseWorker
	streamRepo   repository.StreamRepository
	loader       Loader
	maxRetries   int
	retryDelay   time.Duration
	claimMinIdle time.Duration
}

func NewLoadWorker(
	streamRepo repository.StreamRepository,
	loader Loader,
	consumerGroup string,
	maxRetries int,
	claimMinIdle time.Duration,
	logger *zap.Logger,
) *LoadWorker {
	if claimMinIdle <= 0 {
		claimMinIdle = DefaultClaimMinIdle
	}
	return &LoadWorker{
		BaseWorker:   worker.NewBaseWorker("forest-density-load", consumerGroup, logger),
		streamRepo:   streamRepo,
		loader:       loader,
		maxRetries:   maxRetries,
		retryDelay:   time.Second,
		claimMinIdle: claimMinIdle,
	}
}

// Start consumes jobs until Stop is called or ctx is cancelled. Stop cancels
// the load in flight.
func (w *LoadWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting LoadWorker",
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.ConsumerName()),
		zap.Duration("claim_min_idle", w.claimMinIdle))

	if err := w.streamRepo.CreateConsumerGroup(ctx, domain.StreamForestDensityLoad, w.ConsumerGroup()); err != nil {
		logger.Error("Failed to create consumer group", zap.Error(err))
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	return w.Loop(ctx, w.processBatch)
}

// processBatch runs one job, preferring abandoned pending jobs over new ones,
// and returns how many messages it consumed.
func (w *LoadWorker) processBatch(ctx context.Context) (int, error) {
	messages, err := w.streamRepo.ClaimPending(
		ctx,
		domain.StreamForestDensityLoad,
		w.ConsumerGroup(),
		w.ConsumerName(),
		w.claimMinIdle,
		jobsPerRead,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(messages) == 0 {
		messages, err = w.streamRepo.ConsumeBatch(
			ctx,
			domain.StreamForestDensityLoad,
			w.ConsumerGroup(),
			w.ConsumerName(),
			jobsPerRead,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to consume jobs: %w", err)
		}
	}

	for _, msg := range messages {
		w.handleMessage(ctx, msg)
	}
	return len(messages), nil
}

func (w *LoadWorker) handleMessage(ctx context.Context, msg domain.StreamMessage) {
	logger := w.Logger().With(zap.String("message_id", msg.ID))

	event, err := parseMessage(msg)
	if err != nil {
		logger.Warn("Failed to parse message, skipping", zap.Error(err))
		w.ack(ctx, msg.ID)
		return
	}
	logger = logger.With(zap.String("job_id", event.JobID.String()))

	release := w.holdClaim(ctx, msg.ID)
	summary, err := w.runWithRetry(ctx, event, logger)
	release()

	if err != nil && ctx.Err() != nil {
		if resumable(event.Options, summary) {
			// left pending for ClaimPending
			logger.Warn("Load interrupted by shutdown, job stays queued", zap.Error(err))
			return
		}
		logger.Warn("Load interrupted after rows were committed, job cannot be rerun", zap.Error(err))
	}

	// the outcome is recorded even when ctx was cancelled by Stop
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	done := buildDoneEvent(event, summary, err)
	if err := w.streamRepo.PublishToStream(finishCtx, domain.StreamForestDensityLoadDone, done); err != nil {
		logger.Error("Failed to publish done event", zap.Error(err))
	}
	w.ack(finishCtx, msg.ID)

	if done.Succeeded() {
		logger.Info("Load job finished",
			zap.Int64("inserted", done.Inserted),
			zap.Int64("deleted", done.Deleted),
			zap.Int64("skipped", done.Skipped))
	} else {
		logger.Error("Load job failed", zap.String("error", done.Error))
	}
}

// holdClaim refreshes the claim on id until the returned func is called.
func (w *LoadWorker) holdClaim(ctx context.Context, id string) func() {
	ctx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(w.claimMinIdle / 3)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := w.streamRepo.ExtendClaim(ctx, domain.StreamForestDensityLoad, w.ConsumerGroup(), w.ConsumerName(), []string{id})
				if err != nil && ctx.Err() == nil {
					w.Logger().Warn("Failed to extend job claim", zap.String("message_id", id), zap.Error(err))
				}
			}
		}
	}()

	return func() {
		cancel()
		<-stopped
	}
}

// runWithRetry retries transient failures as long as a rerun cannot
// duplicate rows: either nothing was committed yet or the job replaces its
// source anyway.
func (w *LoadWorker) runWithRetry(ctx context.Context, event *domain.LoadJobEvent, logger *zap.Logger) (*domain.LoadSummary, error) {
	progress := func(inserted int64) {
		logger.Debug("Load progress", zap.Int64("inserted", inserted))
	}

	var (
		summary *domain.LoadSummary
		err     error
	)
	for attempt := 1; ; attempt++ {
		summary, err = w.loader.Load(ctx, event.Options, progress)
		if err == nil || attempt > w.maxRetries || !retryable(err, event.Options, summary) {
			return summary, err
		}

		logger.Warn("Load failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", w.maxRetries),
			zap.Error(err))
		if !worker.Sleep(ctx, w.retryDelay*time.Duration(attempt)) {
			return summary, ctx.Err()
		}
	}
}

func (w *LoadWorker) ack(ctx context.Context, id string) {
	if err := w.streamRepo.AckMessage(ctx, domain.StreamForestDensityLoad, w.ConsumerGroup(), id); err != nil {
		w.Logger().Error("Failed to ack message", zap.String("message_id", id), zap.Error(err))
	}
}

func retryable(err error, opts domain.LoadOptions, summary *domain.LoadSummary) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var (
		cfgErr      *domain.ConfigurationError
		notFoundErr *domain.InputNotFoundError
		malformed   *domain.MalformedInputError
		geomErr     *domain.GeometryError
	)
	if errors.As(err, &cfgErr) || errors.As(err, &notFoundErr) ||
		errors.As(err, &malformed) || errors.As(err, &geomErr) {
		return false
	}

	return resumable(opts, summary)
}

// resumable reports whether running the job again cannot duplicate rows.
func resumable(opts domain.LoadOptions, summary *domain.LoadSummary) bool {
	return opts.Replace || summary == nil || summary.Inserted == 0
}

func parseMessage(msg domain.StreamMessage) (*domain.LoadJobEvent, error) {
	if msg.Data == "" {
		return nil, fmt.Errorf("missing or invalid 'data' field")
	}

	var event domain.LoadJobEvent
	if err := json.Unmarshal([]byte(msg.Data), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.Options.Path == "" {
		return nil, fmt.Errorf("job %s has no input path", event.JobID)
	}
	return &event, nil
}

func buildDoneEvent(event *domain.LoadJobEvent, summary *domain.LoadSummary, err error) *domain.LoadDoneEvent {
	done := &domain.LoadDoneEvent{JobID: event.JobID}
	if summary != nil {
		done.Inserted = summary.Inserted
		done.Deleted = summary.Deleted
		done.Skipped = summary.Skipped
	}
	if err != nil {
		done.Error = err.Error()
	}
	return done
}
