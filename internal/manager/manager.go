// Package manager implements the job lifecycle operations spec.md §4.5
// describes: submission (with Async-Job-Id idempotency), claiming,
// success/failure finalization with exponential backoff, and lookup.
// Grounded on the teacher's messages.WorkerService (calculateRetryDelay)
// and internal/idempotency/store.go's dedup-key pattern.
package manager

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/asyncerrors"
	"github.com/kaushik2901/async-endpoints/internal/clock"
	"github.com/kaushik2901/async-endpoints/internal/jobs"
	"github.com/kaushik2901/async-endpoints/internal/store"
)

// idempotencyHeader is the client-supplied header used to dedupe
// resubmissions of the same logical job (spec.md §4.5).
const idempotencyHeader = "Async-Job-Id"

// Config tunes the manager's defaults.
type Config struct {
	// DefaultMaxRetries applies to jobs submitted without an explicit
	// override.
	DefaultMaxRetries int
	// BaseDelaySeconds is the exponential backoff base (spec.md §4.5
	// default 2.0): delay(k) = BaseDelaySeconds * 2^k.
	BaseDelaySeconds float64
}

// JobManager is the sole authorized writer of job status/ownership
// transitions (spec.md §5).
type JobManager struct {
	store  store.Store
	clk    clock.Clock
	logger *zap.Logger
	cfg    Config
}

// New builds a JobManager over the given store.
func New(st store.Store, clk clock.Clock, logger *zap.Logger, cfg Config) *JobManager {
	if cfg.DefaultMaxRetries <= 0 {
		cfg.DefaultMaxRetries = 3
	}
	if cfg.BaseDelaySeconds <= 0 {
		cfg.BaseDelaySeconds = 2.0
	}
	return &JobManager{store: st, clk: clk, logger: logger, cfg: cfg}
}

// Submit creates a new job in Queued, or returns the existing job
// unchanged if the caller supplied an Async-Job-Id that already exists.
func (m *JobManager) Submit(ctx context.Context, name string, payload []byte, capture jobs.CapturedContext) (*jobs.Job, error) {
	id := idempotencyID(capture)
	if id == uuid.Nil {
		id = uuid.New()
	} else if existing, err := m.store.GetByID(ctx, id); err == nil {
		return existing, nil
	} else if !isNotFound(err) {
		return nil, err
	}

	now := m.clk.Now()
	job := &jobs.Job{
		ID:            id,
		Name:          name,
		Status:        jobs.StatusQueued,
		Payload:       payload,
		MaxRetries:    m.cfg.DefaultMaxRetries,
		CreatedAt:     now,
		LastUpdatedAt: now,
		Context:       capture,
	}

	if err := m.store.Create(ctx, job); err != nil {
		var asyncErr *asyncerrors.Error
		if errors.As(err, &asyncErr) && asyncErr.Code == asyncerrors.CodeDuplicateJob {
			// Lost a create race on the same idempotency id; the winner's
			// job is the authoritative result.
			return m.store.GetByID(ctx, id)
		}
		return nil, err
	}

	m.logger.Info("job submitted", zap.String("job_id", id.String()), zap.String("name", name))
	return job, nil
}

func idempotencyID(capture jobs.CapturedContext) uuid.UUID {
	values := capture.Headers[idempotencyHeader]
	for _, v := range values {
		if v == nil || *v == "" {
			continue
		}
		if id, err := uuid.Parse(*v); err == nil {
			return id
		}
	}
	return uuid.Nil
}

func isNotFound(err error) bool {
	var asyncErr *asyncerrors.Error
	return errors.As(err, &asyncErr) && asyncErr.Code == asyncerrors.CodeNotFound
}

// ClaimNextAvailableJob delegates to the store. (nil, nil) means no job
// is currently eligible — a success outcome, not an error.
func (m *JobManager) ClaimNextAvailableJob(ctx context.Context, workerID uuid.UUID, allowedNames ...string) (*jobs.Job, error) {
	return m.store.ClaimNextForWorker(ctx, workerID, allowedNames...)
}

// ProcessJobSuccess finalizes a job as Completed with its serialized
// result.
func (m *JobManager) ProcessJobSuccess(ctx context.Context, jobID uuid.UUID, result []byte) error {
	job, err := m.store.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return asyncerrors.Newf(asyncerrors.CodeConcurrencyConflict, "job %s is already terminal (%s)", jobID, job.Status)
	}

	now := m.clk.Now()
	job.Result = result
	job.Status = jobs.StatusCompleted
	job.CompletedAt = &now
	job.LastUpdatedAt = now
	job.WorkerID = nil

	return m.store.Update(ctx, job)
}

// ProcessJobFailure either schedules a retry with exponential backoff or
// permanently fails the job once its retry budget is exhausted.
func (m *JobManager) ProcessJobFailure(ctx context.Context, jobID uuid.UUID, cause *asyncerrors.Error) error {
	job, err := m.store.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	now := m.clk.Now()
	job.Error = cause
	job.LastUpdatedAt = now

	if job.RetryCount < job.MaxRetries {
		job.RetryCount++
		delay := m.RetryDelay(job.RetryCount)
		delayUntil := now.Add(delay)
		job.Status = jobs.StatusScheduled
		job.RetryDelayUntil = &delayUntil
		job.WorkerID = nil
		job.StartedAt = nil

		m.logger.Warn("job scheduled for retry",
			zap.String("job_id", jobID.String()),
			zap.Int("retry_count", job.RetryCount),
			zap.Duration("delay", delay),
		)
	} else {
		job.Status = jobs.StatusFailed
		job.CompletedAt = &now
		job.WorkerID = nil

		m.logger.Error("job permanently failed",
			zap.String("job_id", jobID.String()),
			zap.Int("retry_count", job.RetryCount),
		)
	}

	return m.store.Update(ctx, job)
}

// RetryDelay computes the exponential backoff for the given retry
// attempt: base_delay_seconds * 2^retryCount (spec.md §4.5).
func (m *JobManager) RetryDelay(retryCount int) time.Duration {
	seconds := m.cfg.BaseDelaySeconds * math.Pow(2, float64(retryCount))
	return time.Duration(seconds * float64(time.Second))
}

// GetJobByID is a passthrough for status queries.
func (m *JobManager) GetJobByID(ctx context.Context, id uuid.UUID) (*jobs.Job, error) {
	return m.store.GetByID(ctx, id)
}

// Cancel marks a job Canceled, but only while it is still Queued or
// Scheduled — a job already InProgress must run to completion or
// recovery rather than being pulled out from under its owning worker
// (SPEC_FULL.md §11 supplemented feature).
func (m *JobManager) Cancel(ctx context.Context, id uuid.UUID) error {
	job, err := m.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !job.Status.IsClaimable() {
		return asyncerrors.Newf(asyncerrors.CodeConcurrencyConflict, "job %s cannot be canceled from status %s", id, job.Status)
	}

	now := m.clk.Now()
	job.Status = jobs.StatusCanceled
	job.CompletedAt = &now
	job.LastUpdatedAt = now
	job.RetryDelayUntil = nil

	return m.store.Update(ctx, job)
}
