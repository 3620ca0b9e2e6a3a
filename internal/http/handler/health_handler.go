package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const healthPingTimeout = 2 * time.Second

// HealthDeps groups dependencies required by the health endpoint.
type HealthDeps struct {
	Logger   *zap.Logger
	Postgres *pgxpool.Pool
}

// HealthHandler reports service liveness and database reachability.
type HealthHandler struct {
	logger *zap.Logger
	pool   *pgxpool.Pool
}

// NewHealthHandler creates a health handler with the provided dependencies.
func NewHealthHandler(deps HealthDeps) *HealthHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{logger: logger, pool: deps.Postgres}
}

// Register wires health routes onto the provided router.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
}

// Health handles GET / and GET /health.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	status := "ok"
	if h.pool != nil {
		base := c.UserContext()
		if base == nil {
			base = context.Background()
		}
		ctx, cancel := context.WithTimeout(base, healthPingTimeout)
		defer cancel()
		if err := h.pool.Ping(ctx); err != nil {
			h.logger.Warn("health check database ping failed", zap.Error(err))
			status = "degraded"
		}
	}

	return c.JSON(fiber.Map{
		"service": "deferlink-devserver",
		"status":  status,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
