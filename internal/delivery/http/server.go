package http

import (
	"context"
	"time"

	"github.com/forest-density-service/internal/config"
	"github.com/forest-density-service/internal/delivery/http/handler"
	"github.com/forest-density-service/internal/delivery/http/middleware"
	"github.com/forest-density-service/internal/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"
)

// Server - HTTP server on top of Fiber
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	// Handlers
	forestDensityHandler *handler.ForestDensityHandler
	loadHandler          *handler.LoadHandler
	healthHandler        *handler.HealthHandler
}

// NewServer builds the server. loadHandler may be nil when queued loads are
// disabled; the route is then not registered.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	forestDensityHandler *handler.ForestDensityHandler,
	loadHandler *handler.LoadHandler,
	healthHandler *handler.HealthHandler,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Forest Density Service",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    8 * 1024 * 1024,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:                  app,
		config:               cfg,
		logger:               logger,
		forestDensityHandler: forestDensityHandler,
		loadHandler:          loadHandler,
		healthHandler:        healthHandler,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS(s.config.Server.CORSOrigins))
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

func (s *Server) setupRoutes() {
	// Swagger documentation route
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)

	api := s.app.Group("/api/v1")

	api.Get("/health", s.healthHandler.Health)

	forest := api.Group("/forest-density")
	forest.Post("/stats", s.forestDensityHandler.Stats)
	forest.Get("/legend", s.forestDensityHandler.Legend)
	if s.loadHandler != nil {
		forest.Post("/loads", s.loadHandler.EnqueueLoad)
	}
}

// App exposes the fiber app for in-process tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start - starts the HTTP server
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown - graceful shutdown of the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler answers errors that escaped the handlers (unknown routes,
// oversized bodies) with the usual error envelope.
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		if code >= fiber.StatusInternalServerError {
			logger.Error("HTTP Error",
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err),
			)
		}

		return utils.SendError(c, err)
	}
}
