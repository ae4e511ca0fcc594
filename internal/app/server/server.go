package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/LinkLedger/config"
	"github.com/sifan077/LinkLedger/internal/app/service"
	"github.com/sifan077/LinkLedger/internal/http/handler"
	"github.com/sifan077/LinkLedger/internal/http/middleware"
	"go.uber.org/zap"
)

const appName = "LinkLedger"

// Dependencies bundles what the HTTP server needs. Postgres, Redis and
// Metrics are optional.
type Dependencies struct {
	Logger    *zap.Logger
	Server    config.ServerConfig
	RateLimit config.RateLimitConfig
	Postgres  *pgxpool.Pool
	Redis     *redis.Client
	Metrics   middleware.HTTPRecorder

	Links   service.LinkService
	Logs    service.DownloadLogService
	Reports service.ReportService
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates the HTTP server with all routes registered.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	cfg := fiber.Config{
		AppName:               appName,
		DisableStartupMessage: deps.Server.IsProduction(),
		ErrorHandler:          errorHandler(deps.Logger),
	}
	if deps.Server.BodyLimit > 0 {
		cfg.BodyLimit = deps.Server.BodyLimit
	}

	s := &Server{
		app:  fiber.New(cfg),
		deps: deps,
	}
	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.deps.Logger))
	if s.deps.Metrics != nil {
		s.app.Use(middleware.Metrics(s.deps.Metrics))
	}
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.CORS())
}

func (s *Server) registerRoutes() {
	api := handler.NewAPIHandler(handler.APIDeps{
		Logger:      s.deps.Logger,
		LinkService: s.deps.Links,
		LogService:  s.deps.Logs,
		Reports:     s.deps.Reports,
	})
	api.Register(s.app)

	var limiter []fiber.Handler
	if s.deps.Redis != nil && s.deps.RateLimit.Enabled {
		limiter = append(limiter, middleware.RateLimit(s.deps.Redis, middleware.RateLimitConfig{
			MaxRequests: s.deps.RateLimit.MaxRequests,
			Window:      s.deps.RateLimit.Window,
		}, s.deps.Logger))
	}
	api.RegisterLimited(s.app, limiter...)

	handler.NewHealthHandler(s.deps.Logger, s.healthChecks()...).Register(s.app)
}

func (s *Server) healthChecks() []handler.Check {
	var checks []handler.Check
	if s.deps.Postgres != nil {
		checks = append(checks, handler.Check{Name: "postgres", Ping: s.deps.Postgres.Ping})
	}
	if s.deps.Redis != nil {
		checks = append(checks, handler.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return s.deps.Redis.Ping(ctx).Err()
		}})
	}
	return checks
}

// errorHandler renders errors that escape the handlers, such as unknown
// routes or oversized bodies, in the API's JSON error shape.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Internal Server Error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else {
			logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}
