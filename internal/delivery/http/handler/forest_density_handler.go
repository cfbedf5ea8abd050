package handler

import (
	"context"
	"errors"
	"time"

	"github.com/forest-density-service/internal/domain"
	apperrors "github.com/forest-density-service/internal/pkg/errors"
	"github.com/forest-density-service/internal/pkg/utils"
	"github.com/forest-density-service/internal/usecase/dto"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// StatsService is implemented by usecase.ForestDensityUseCase.
type StatsService interface {
	ComputeStats(ctx context.Context, q domain.StatsQuery) (*domain.StatsResult, error)
	GetLegend() domain.Legend
}

// ForestDensityHandler serves the canopy statistics and legend endpoints
type ForestDensityHandler struct {
	statsUC StatsService
	logger  *zap.Logger
}

func NewForestDensityHandler(statsUC StatsService, logger *zap.Logger) *ForestDensityHandler {
	return &ForestDensityHandler{
		statsUC: statsUC,
		logger:  logger,
	}
}

// Stats godoc
// @Summary Canopy statistics for a polygon
// @Description Intersects the polygon with the stored forest density cells and returns
// @Description mean canopy, area above the threshold and area per canopy class (square metres).
// @Tags Forest Density
// @Accept json
// @Produce json
// @Param request body dto.StatsRequest true "Query polygon, threshold and bin edges"
// @Success 200 {object} utils.SuccessResponse{data=domain.StatsResult}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/forest-density/stats [post]
func (h *ForestDensityHandler) Stats(c *fiber.Ctx) error {
	start := time.Now()

	var req dto.StatsRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("Invalid stats request body", zap.Error(err))
		return utils.SendError(c, apperrors.ErrInvalidRequest.WithMessage("Request body must be a JSON object."))
	}

	query, err := req.ToQuery()
	if err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.statsUC.ComputeStats(c.UserContext(), query)
	if err != nil {
		if appErr := statsValidationError(err); appErr != nil {
			return utils.SendError(c, appErr)
		}
		if errors.Is(err, domain.ErrQueryGeometry) {
			return utils.SendError(c, apperrors.ErrInvalidGeometry)
		}
		h.logger.Error("Failed to compute forest density stats", zap.Error(err))
		return utils.SendError(c, apperrors.ErrDatabaseError)
	}

	return utils.SendSuccess(c, result, &utils.Meta{
		TimeMSec: float64(time.Since(start).Microseconds()) / 1000,
	})
}

// Legend godoc
// @Summary Forest density legend
// @Description Bin edges, colours and labels used to render the layer
// @Tags Forest Density
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=domain.Legend}
// @Router /api/v1/forest-density/legend [get]
func (h *ForestDensityHandler) Legend(c *fiber.Ctx) error {
	return utils.SendSuccess(c, h.statsUC.GetLegend(), nil)
}

// statsValidationError maps domain validation errors that slipped past the
// request checks onto field errors.
func statsValidationError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, domain.ErrThresholdOutOfRange):
		return apperrors.FieldErrors(map[string][]string{"threshold": {"Ensure this value is between 0 and 100."}})
	case errors.Is(err, domain.ErrTooFewBinEdges),
		errors.Is(err, domain.ErrBinsNotAscending),
		errors.Is(err, domain.ErrBinsBounds),
		errors.Is(err, domain.ErrBinEdgeOutOfRange):
		return apperrors.FieldErrors(map[string][]string{"bins": {err.Error()}})
	}
	return nil
}
