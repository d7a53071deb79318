package apihandlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/apiauth"
	"github.com/kaushik2901/async-endpoints/internal/ratelimit"
)

// SetupMiddleware installs the recover/requestid/cors/logging stack,
// following the teacher's internal/api/middleware.go ordering.
func SetupMiddleware(app *fiber.App, logger *zap.Logger) {
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-API-Key,Async-Job-Id",
	}))

	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Info("http_request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", c.Get("X-Request-Id")),
		)
		return err
	})
}

// RateLimitMiddleware rejects requests once the caller's token bucket is
// exhausted, keyed by the caller's API key (falling back to remote IP
// for unauthenticated callers rejected downstream anyway).
func RateLimitMiddleware(limiter *ratelimit.Limiter, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.Next()
		}

		identity := c.Get("X-API-Key")
		if identity == "" {
			identity = c.IP()
		}

		allowed, retryAfter, err := limiter.Allow(c.Context(), identity)
		if err != nil {
			logger.Error("rate limit check failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "rate limiting error"})
		}
		if !allowed {
			c.Set("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":               "rate limit exceeded",
				"retry_after_seconds": int(retryAfter.Seconds()),
			})
		}
		return c.Next()
	}
}
