package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/apiauth"
	"github.com/kaushik2901/async-endpoints/internal/apihandlers"
	"github.com/kaushik2901/async-endpoints/internal/clock"
	"github.com/kaushik2901/async-endpoints/internal/config"
	"github.com/kaushik2901/async-endpoints/internal/manager"
	"github.com/kaushik2901/async-endpoints/internal/observability"
	"github.com/kaushik2901/async-endpoints/internal/ratelimit"
	"github.com/kaushik2901/async-endpoints/internal/store"
	"github.com/kaushik2901/async-endpoints/internal/store/memstore"
	"github.com/kaushik2901/async-endpoints/internal/store/redisstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.GetLoggerFromEnv()
	defer logger.Sync()

	logger.Info("starting async-endpoints API server", zap.String("log_level", cfg.LogLevel))

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	shutdownOTel, err := observability.SetupOpenTelemetry("async-endpoints-api", reg, logger)
	if err != nil {
		logger.Fatal("failed to set up OpenTelemetry", zap.Error(err))
	}
	defer shutdownOTel()

	var rdb *redis.Client
	var st store.Store
	switch cfg.Store.Backend {
	case "redis":
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Store.RedisURL})
		st = redisstore.New(rdb, clock.Real())
	default:
		st = memstore.New(clock.Real())
	}

	mgr := manager.New(st, clock.Real(), logger, manager.Config{
		DefaultMaxRetries: cfg.Manager.DefaultMaxRetries,
		BaseDelaySeconds:  cfg.Manager.RetryDelayBaseSeconds,
	})

	verifier := apiauth.NewVerifier(cfg.APIKeyHash)

	var limiter *ratelimit.Limiter
	if rdb != nil {
		limiter = ratelimit.NewLimiter(rdb, cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	handlers := apihandlers.NewHandlers(mgr, metrics, logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			logger.Error("unhandled fiber error", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
		},
	})

	metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	apihandlers.SetupRoutes(app, logger, handlers, verifier, limiter, metricsHandler)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("async-endpoints API server started", zap.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down API server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("failed to shut down gracefully", zap.Error(err))
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("async-endpoints API server stopped")
}
