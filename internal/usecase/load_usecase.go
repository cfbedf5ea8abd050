package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/forest-density-service/internal/domain"
	"github.com/forest-density-service/internal/domain/repository"
	"github.com/forest-density-service/internal/ingest"
	"go.uber.org/zap"
)

// ProgressFunc receives the cumulative number of inserted rows after each
// committed batch.
type ProgressFunc func(inserted int64)

// LoadUseCase streams an input file into the cell store in batches.
type LoadUseCase struct {
	repo      repository.ForestDensityRepository
	cacheRepo repository.CacheRepository
	logger    *zap.Logger
	defaults  domain.LoadOptions
}

// NewLoadUseCase creates the loader. defaults fill the optional fields of
// every load (batch size, mode, SRID, default source). cacheRepo may be nil.
func NewLoadUseCase(
	repo repository.ForestDensityRepository,
	cacheRepo repository.CacheRepository,
	logger *zap.Logger,
	defaults domain.LoadOptions,
) *LoadUseCase {
	return &LoadUseCase{
		repo:      repo,
		cacheRepo: cacheRepo,
		logger:    logger,
		defaults:  defaults,
	}
}

// Prepare applies the loader defaults to opts and runs the pre-flight checks.
func (uc *LoadUseCase) Prepare(opts domain.LoadOptions) (domain.LoadOptions, error) {
	if opts.BatchSize == 0 {
		opts.BatchSize = uc.defaults.BatchSize
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = domain.DefaultBatchSize
	}
	if opts.Mode == "" {
		opts.Mode = uc.defaults.Mode
	}
	if opts.SRID == 0 {
		opts.SRID = uc.defaults.SRID
	}
	if opts.DefaultSource == "" {
		opts.DefaultSource = uc.defaults.DefaultSource
	}
	opts = opts.WithDefaults()

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// Load ingests opts.Path. Each batch is committed on its own, so on error the
// returned summary still describes the batches that were kept.
func (uc *LoadUseCase) Load(ctx context.Context, opts domain.LoadOptions, progress ProgressFunc) (*domain.LoadSummary, error) {
	start := time.Now()
	summary := &domain.LoadSummary{}

	opts, err := uc.Prepare(opts)
	if err != nil {
		return summary, err
	}

	reader, err := ingest.Open(opts.Path)
	if err != nil {
		return summary, err
	}
	defer reader.Close()

	log := uc.logger.With(
		zap.String("file", opts.Path),
		zap.String("source", opts.Source),
		zap.String("mode", string(opts.Mode)),
	)
	log.Info("Load started", zap.Int("batch_size", opts.BatchSize), zap.Bool("replace", opts.Replace))

	if opts.Replace {
		deleted, err := uc.repo.DeleteBySource(ctx, opts.Source)
		if err != nil {
			return summary, fmt.Errorf("replace source %q: %w", opts.Source, err)
		}
		summary.Deleted = deleted
		uc.invalidate(ctx)
		log.Info("Existing rows removed", zap.Int64("deleted", deleted))
	}

	conv := ingest.NewConverter(opts)
	batch := make([]*domain.ForestDensityCell, 0, opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := uc.repo.InsertBatch(ctx, batch, opts.IgnoreConflicts)
		if err != nil {
			return fmt.Errorf("insert batch %d: %w", summary.Batches+1, err)
		}

		summary.Inserted += n
		summary.Batches++
		batch = batch[:0]
		uc.invalidate(ctx)

		log.Info("Batch committed",
			zap.Int("batch", summary.Batches),
			zap.Int64("inserted", summary.Inserted),
		)
		if progress != nil {
			progress(summary.Inserted)
		}
		return nil
	}

	fail := func(err error) (*domain.LoadSummary, error) {
		summary.Duration = time.Since(start)
		log.Error("Load failed",
			zap.Int64("inserted", summary.Inserted),
			zap.Int64("skipped", summary.Skipped),
			zap.Error(err),
		)
		return summary, err
	}

	for {
		raw, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		var cell *domain.ForestDensityCell
		if err == nil {
			cell, err = conv.Convert(raw)
		}
		if err != nil {
			if opts.Mode == domain.LoadModeLenient && domain.IsSkippable(err) {
				summary.Skipped++
				log.Warn("Skipping feature", zap.Error(err))
				continue
			}
			return fail(err)
		}

		batch = append(batch, cell)
		if len(batch) >= opts.BatchSize {
			if err := flush(); err != nil {
				return fail(err)
			}
		}
	}

	if err := flush(); err != nil {
		return fail(err)
	}

	summary.Duration = time.Since(start)
	log.Info("Load finished",
		zap.Int64("inserted", summary.Inserted),
		zap.Int64("deleted", summary.Deleted),
		zap.Int64("skipped", summary.Skipped),
		zap.Int("batches", summary.Batches),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// invalidate orphans cached stats after the store changed.
func (uc *LoadUseCase) invalidate(ctx context.Context) {
	if uc.cacheRepo == nil {
		return
	}
	if _, err := uc.cacheRepo.BumpGeneration(ctx); err != nil {
		uc.logger.Warn("Failed to invalidate stats cache", zap.Error(err))
	}
}
