package usecase

import (
	"context"
	"fmt"

	"github.com/forest-density-service/internal/domain"
	"github.com/forest-density-service/internal/domain/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoadJobUseCase queues loads for the worker. Input paths are confined to root.
type LoadJobUseCase struct {
	loader     *LoadUseCase
	streamRepo repository.StreamRepository
	root       string
	logger     *zap.Logger
}

func NewLoadJobUseCase(loader *LoadUseCase, streamRepo repository.StreamRepository, root string, logger *zap.Logger) *LoadJobUseCase {
	return &LoadJobUseCase{
		loader:     loader,
		streamRepo: streamRepo,
		root:       root,
		logger:     logger,
	}
}

// Enqueue validates opts like a direct load would and publishes a job. The
// input file itself is only opened by the worker.
func (uc *LoadJobUseCase) Enqueue(ctx context.Context, opts domain.LoadOptions) (uuid.UUID, error) {
	if opts.Path != "" {
		path, err := domain.ResolveInputPath(uc.root, opts.Path)
		if err != nil {
			return uuid.Nil, err
		}
		opts.Path = path
	}

	opts, err := uc.loader.Prepare(opts)
	if err != nil {
		return uuid.Nil, err
	}

	event := domain.LoadJobEvent{
		JobID:   uuid.New(),
		Options: opts,
	}
	if err := uc.streamRepo.PublishToStream(ctx, domain.StreamForestDensityLoad, event); err != nil {
		return uuid.Nil, fmt.Errorf("enqueue load: %w", err)
	}

	uc.logger.Info("Load job queued",
		zap.String("job_id", event.JobID.String()),
		zap.String("file", opts.Path),
		zap.String("source", opts.Source),
	)
	return event.JobID, nil
}
