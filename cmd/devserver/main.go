package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/deferlink/deferlink-go/config"
	"github.com/deferlink/deferlink-go/internal/backend/model"
	"github.com/deferlink/deferlink-go/internal/backend/repository"
	"github.com/deferlink/deferlink-go/internal/backend/server"
	"github.com/deferlink/deferlink-go/internal/backend/service"
	"github.com/deferlink/deferlink-go/internal/infra/logger"
	infraNATS "github.com/deferlink/deferlink-go/internal/infra/nats"
	infraPostgres "github.com/deferlink/deferlink-go/internal/infra/postgres"
	infraPrometheus "github.com/deferlink/deferlink-go/internal/infra/prometheus"
	infraRedis "github.com/deferlink/deferlink-go/internal/infra/redis"
)

const eventRetention = 30 * 24 * time.Hour

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, &model.Link{}, &model.ResolutionEvent{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()

	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	linkRepo := repository.NewLinkRepository(gormDB)
	eventRepo := repository.NewResolutionEventRepository(gormDB)

	consumer := service.NewResolutionConsumer(js, log, eventRepo, linkRepo)
	if err := consumer.Start(); err != nil {
		log.Fatal("Failed to start resolution consumer", zap.Error(err))
	}

	pruner := service.NewEventPruner(log, eventRepo, eventRetention)
	pruner.Start()
	defer pruner.Stop()

	srv := server.New(server.Dependencies{
		Logger:    log,
		Postgres:  pool,
		Redis:     redisClient,
		NATS:      natsConn,
		JetStream: js,
		Links:     service.NewLinkService(linkRepo),
		Publisher: service.NewResolutionPublisher(js),
		APIKey:    cfg.SDK.APIKey,
	})

	if err := srv.Listen(":8080"); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
