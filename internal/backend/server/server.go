package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/deferlink/deferlink-go/internal/backend/service"
	inthttp "github.com/deferlink/deferlink-go/internal/http/handler"
	"github.com/deferlink/deferlink-go/internal/http/middleware"
)

// Dependencies bundles infrastructure dependencies required by the HTTP server.
type Dependencies struct {
	Logger    *zap.Logger
	Postgres  *pgxpool.Pool
	Redis     *redis.Client
	NATS      *nats.Conn
	JetStream nats.JetStreamContext
	Links     service.LinkService
	Publisher *service.ResolutionPublisher
	APIKey    string
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	app := fiber.New()

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	logger := s.deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(logger))
	s.app.Use(middleware.Logger(logger))
	s.app.Use(middleware.CORS())
	if s.deps.Redis != nil {
		s.app.Use(middleware.RateLimit(s.deps.Redis, middleware.DefaultRateLimitConfig(), logger))
	}

	healthHandler := inthttp.NewHealthHandler(inthttp.HealthDeps{
		Logger:   logger,
		Postgres: s.deps.Postgres,
	})
	healthHandler.Register(s.app)

	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:      logger,
		LinkService: s.deps.Links,
		Publisher:   s.deps.Publisher,
		APIKey:      s.deps.APIKey,
	})
	apiHandler.Register(s.app)
}
