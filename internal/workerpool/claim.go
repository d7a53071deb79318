package workerpool

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/jobs"
	"github.com/kaushik2901/async-endpoints/internal/observability"
)

// claimer is the subset of *manager.JobManager the claim/enqueue
// service depends on.
type claimer interface {
	ClaimNextAvailableJob(ctx context.Context, workerID uuid.UUID, allowedNames ...string) (*jobs.Job, error)
}

// ClaimEnqueueService performs one claim attempt and, on success, pushes
// the job onto the bounded channel the consumer drains (spec.md §4.8).
type ClaimEnqueueService struct {
	manager        claimer
	channel        chan<- *jobs.Job
	workerID       uuid.UUID
	allowedNames   []string
	enqueueTimeout time.Duration
	logger         *zap.Logger
	metrics        *observability.Metrics
}

// SetMetrics arms optional Prometheus counters for claims, the same
// nil-safe-optional pattern notify.Notifier uses.
func (s *ClaimEnqueueService) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
}

// NewClaimEnqueueService builds a ClaimEnqueueService. enqueueTimeout
// defaults to 5s (spec.md §4.8) when zero.
func NewClaimEnqueueService(mgr claimer, channel chan<- *jobs.Job, workerID uuid.UUID, allowedNames []string, enqueueTimeout time.Duration, logger *zap.Logger) *ClaimEnqueueService {
	if enqueueTimeout <= 0 {
		enqueueTimeout = 5 * time.Second
	}
	return &ClaimEnqueueService{
		manager:        mgr,
		channel:        channel,
		workerID:       workerID,
		allowedNames:   allowedNames,
		enqueueTimeout: enqueueTimeout,
		logger:         logger,
	}
}

// ClaimAndEnqueue attempts exactly one claim and, if a job was found,
// exactly one enqueue: non-blocking first, then a blocking send bounded
// by enqueueTimeout (spec.md §4.8 "Enqueue semantics").
func (s *ClaimEnqueueService) ClaimAndEnqueue(ctx context.Context) Outcome {
	start := time.Now()
	job, err := s.manager.ClaimNextAvailableJob(ctx, s.workerID, s.allowedNames...)
	if s.metrics != nil {
		s.metrics.ClaimLatencySeconds.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		s.logger.Error("claim failed", zap.Error(err))
		return ErrorOccurred
	}
	if job == nil {
		return NoJobFound
	}
	if s.metrics != nil {
		s.metrics.JobsClaimedTotal.WithLabelValues(job.Name).Inc()
	}

	select {
	case s.channel <- job:
		return JobSuccessfullyEnqueued
	default:
	}

	timer := time.NewTimer(s.enqueueTimeout)
	defer timer.Stop()

	select {
	case s.channel <- job:
		return JobSuccessfullyEnqueued
	case <-timer.C:
		s.logger.Warn("enqueue timed out, channel stayed full", zap.String("job_id", job.ID.String()))
		return FailedToEnqueue
	case <-ctx.Done():
		return FailedToEnqueue
	}
}
