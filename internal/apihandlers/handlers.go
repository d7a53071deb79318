// Package apihandlers implements the demo HTTP surface spec.md §8.1
// names: submit, status lookup, and cancel, on top of fiber/v2.
// Grounded on the teacher's internal/api/handlers.go (SendMessage/
// GetMessage request shape and status-code conventions), generalized
// from a fixed SMS payload to an arbitrary job-name + raw JSON body.
package apihandlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/asyncerrors"
	"github.com/kaushik2901/async-endpoints/internal/httpcapture"
	"github.com/kaushik2901/async-endpoints/internal/jobs"
	"github.com/kaushik2901/async-endpoints/internal/observability"
)

// JobManager is the subset of *manager.JobManager the HTTP surface
// depends on, kept narrow so tests can substitute a fake.
type JobManager interface {
	Submit(ctx context.Context, name string, payload []byte, capture jobs.CapturedContext) (*jobs.Job, error)
	GetJobByID(ctx context.Context, id uuid.UUID) (*jobs.Job, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

// Handlers bundles the manager operations exposed over HTTP.
type Handlers struct {
	manager JobManager
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewHandlers builds a Handlers.
func NewHandlers(mgr JobManager, metrics *observability.Metrics, logger *zap.Logger) *Handlers {
	return &Handlers{manager: mgr, metrics: metrics, logger: logger}
}

// Submit handles POST /v1/jobs/:name (spec.md §8.1).
func (h *Handlers) Submit(c *fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "job name is required"})
	}

	payload := append([]byte(nil), c.Body()...)
	capture := httpcapture.CaptureFiber(c)

	job, err := h.manager.Submit(c.Context(), name, payload, capture)
	if err != nil {
		h.logger.Error("submit failed", zap.String("job_name", name), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to submit job"})
	}

	if h.metrics != nil {
		h.metrics.JobsSubmittedTotal.WithLabelValues(name).Inc()
	}

	return c.Status(fiber.StatusAccepted).JSON(job)
}

// Status handles GET /v1/jobs/:id (spec.md §8.1).
func (h *Handlers) Status(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid job id"})
	}

	job, err := h.manager.GetJobByID(c.Context(), id)
	if err != nil {
		if isNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
		}
		h.logger.Error("status lookup failed", zap.String("job_id", id.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to look up job"})
	}

	return c.Status(fiber.StatusOK).JSON(job)
}

// Cancel handles POST /v1/jobs/:id/cancel (SPEC_FULL.md §11 supplemented
// cancel operation).
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid job id"})
	}

	if err := h.manager.Cancel(c.Context(), id); err != nil {
		if isNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// HealthCheck handles GET /healthz.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}

func isNotFound(err error) bool {
	var asyncErr *asyncerrors.Error
	return errors.As(err, &asyncErr) && asyncErr.Code == asyncerrors.CodeNotFound
}
