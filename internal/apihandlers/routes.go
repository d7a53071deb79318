package apihandlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/apiauth"
	"github.com/kaushik2901/async-endpoints/internal/ratelimit"
)

// SetupRoutes wires the demo HTTP surface spec.md §8.1 names, following
// the teacher's internal/api/routes.go grouping.
func SetupRoutes(app *fiber.App, logger *zap.Logger, handlers *Handlers, verifier *apiauth.Verifier, limiter *ratelimit.Limiter, metricsHandler http.Handler) {
	SetupMiddleware(app, logger)

	app.Get("/healthz", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(metricsHandler))

	v1 := app.Group("/v1", verifier.Middleware())
	jobsGroup := v1.Group("/jobs")
	jobsGroup.Post("/:name", RateLimitMiddleware(limiter, logger), handlers.Submit)
	jobsGroup.Get("/:id", handlers.Status)
	jobsGroup.Post("/:id/cancel", handlers.Cancel)
}
