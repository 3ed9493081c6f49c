package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/dinahmaccodes/stellar-insights/internal/anchors"
	"github.com/dinahmaccodes/stellar-insights/internal/corridors"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/observability"
)

// AnchorLister serves the anchor metrics listing.
// Interfaces defined where they're consumed (Dependency Inversion Principle)
type AnchorLister interface {
	List(ctx context.Context, limit, offset int) (anchors.ListResponse, error)
}

// CorridorLister serves the corridor metrics listing.
type CorridorLister interface {
	List(ctx context.Context, limit, offset int, filter corridors.Filter) ([]corridors.Corridor, error)
}

// Server exposes the metrics API over HTTP.
type Server struct {
	app          *fiber.App
	anchors      AnchorLister
	corridors    CorridorLister
	logger       *observability.Logger
	metrics      *observability.Metrics
	defaultLimit int
	maxLimit     int
}

// ServerConfig holds server dependencies.
type ServerConfig struct {
	Anchors      AnchorLister
	Corridors    CorridorLister
	Logger       *observability.Logger
	Metrics      *observability.Metrics
	DefaultLimit int
	MaxLimit     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewServer creates the API server and registers its routes.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Anchors == nil {
		return nil, errors.New("anchor lister is required")
	}
	if cfg.Corridors == nil {
		return nil, errors.New("corridor lister is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Metrics == nil {
		return nil, errors.New("metrics are required")
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 200
	}

	s := &Server{
		anchors:      cfg.Anchors,
		corridors:    cfg.Corridors,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "stellar-insights",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: s.errorHandler,
	})

	s.app.Use(s.requestMetrics)

	group := s.app.Group("/api")
	group.Get("/anchors", s.handleListAnchors)
	group.Get("/corridors", s.handleListCorridors)
	group.Get("/corridors/:corridorKey", s.handleCorridorDetail)

	return s, nil
}

// Listen blocks serving requests until the listener fails or the
// server is shut down.
func (s *Server) Listen(addr string) error {
	s.logger.Info("API server listening", "address", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// errorHandler renders every handler error as the {"error": message}
// body with the mapped status code.
func (s *Server) errorHandler(c fiber.Ctx, err error) error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Status).JSON(apiErr)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	s.logger.LogError(c.RequestCtx(), "Unhandled request error", err, "path", c.Path())
	s.metrics.RecordError(c.RequestCtx(), "http_unhandled")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// requestMetrics records duration and status per route. Errors are
// measured by their mapped status since the error handler writes the
// response after this middleware returns.
func (s *Server) requestMetrics(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		var apiErr *Error
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &apiErr):
			status = apiErr.Status
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
		default:
			status = fiber.StatusInternalServerError
		}
	}

	s.metrics.RecordHTTPRequest(c.RequestCtx(), c.Route().Path, status, time.Since(start))
	return err
}
