package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const defaultHealthTimeout = 2 * time.Second

// Check probes one dependency.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler reports readiness of the configured dependencies.
type HealthHandler struct {
	logger  *zap.Logger
	checks  []Check
	timeout time.Duration
}

// NewHealthHandler returns a handler running checks on every request.
func NewHealthHandler(logger *zap.Logger, checks ...Check) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{logger: logger, checks: checks, timeout: defaultHealthTimeout}
}

// Register wires GET /health.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	status := fiber.StatusOK
	deps := make(fiber.Map, len(h.checks))
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("dependency", check.Name), zap.Error(err))
			deps[check.Name] = err.Error()
			status = fiber.StatusServiceUnavailable
			continue
		}
		deps[check.Name] = "ok"
	}

	body := fiber.Map{"status": "ok", "dependencies": deps}
	if status != fiber.StatusOK {
		body["status"] = "unavailable"
	}
	return c.Status(status).JSON(body)
}
