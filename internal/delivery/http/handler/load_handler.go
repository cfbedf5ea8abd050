package handler

import (
	"context"
	"errors"

	"github.com/forest-density-service/internal/domain"
	apperrors "github.com/forest-density-service/internal/pkg/errors"
	"github.com/forest-density-service/internal/pkg/utils"
	"github.com/forest-density-service/internal/pkg/validator"
	"github.com/forest-density-service/internal/usecase/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoadJobService is implemented by usecase.LoadJobUseCase.
type LoadJobService interface {
	Enqueue(ctx context.Context, opts domain.LoadOptions) (uuid.UUID, error)
}

// LoadHandler queues ingestion jobs for the worker
type LoadHandler struct {
	jobUC  LoadJobService
	logger *zap.Logger
}

func NewLoadHandler(jobUC LoadJobService, logger *zap.Logger) *LoadHandler {
	return &LoadHandler{
		jobUC:  jobUC,
		logger: logger,
	}
}

// EnqueueLoad godoc
// @Summary Queue a forest density load
// @Description Validates the load options and publishes a job for the worker.
// @Description The file path is resolved on the worker host and must lie
// @Description inside INGEST_ROOT; relative paths are taken from there.
// @Tags Forest Density
// @Accept json
// @Produce json
// @Param request body dto.LoadRequest true "Load options"
// @Success 202 {object} utils.SuccessResponse{data=dto.LoadJobResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/forest-density/loads [post]
func (h *LoadHandler) EnqueueLoad(c *fiber.Ctx) error {
	var req dto.LoadRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, apperrors.ErrInvalidRequest.WithMessage("Request body must be a JSON object."))
	}

	if err := validator.Validate(&req); err != nil {
		if fields := validator.FieldMessages(err); fields != nil {
			return utils.SendError(c, apperrors.FieldErrors(fields))
		}
		return utils.SendError(c, apperrors.ErrValidation)
	}

	jobID, err := h.jobUC.Enqueue(c.UserContext(), req.ToOptions())
	if err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			return utils.SendError(c, apperrors.FieldErrors(map[string][]string{cfgErr.Field: {cfgErr.Reason}}))
		}
		h.logger.Error("Failed to enqueue load job", zap.Error(err))
		return utils.SendError(c, apperrors.ErrQueueError)
	}

	return utils.SendAccepted(c, dto.LoadJobResponse{
		JobID:  jobID,
		Stream: domain.StreamForestDensityLoad,
	})
}
