// Package processor implements Process (spec.md §4.7): execute a job's
// handler and finalize it through the manager, ending every path in
// either ProcessJobSuccess or ProcessJobFailure. Grounded on the
// teacher's worker.processMessage end-to-end flow, generalized from
// "get message -> send via provider -> update status" to "execute
// handler -> finalize via manager".
package processor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/asyncerrors"
	"github.com/kaushik2901/async-endpoints/internal/executor"
	"github.com/kaushik2901/async-endpoints/internal/jobs"
	"github.com/kaushik2901/async-endpoints/internal/observability"
)

// manager is the subset of *manager.JobManager the processor depends
// on, kept narrow so tests can substitute a fake.
type manager interface {
	ProcessJobSuccess(ctx context.Context, jobID uuid.UUID, result []byte) error
	ProcessJobFailure(ctx context.Context, jobID uuid.UUID, cause *asyncerrors.Error) error
}

// Processor executes a claimed job's handler and finalizes its outcome.
type Processor struct {
	executor *executor.Executor
	manager  manager
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// New builds a Processor.
func New(exec *executor.Executor, mgr manager, logger *zap.Logger) *Processor {
	return &Processor{executor: exec, manager: mgr, logger: logger}
}

// SetMetrics arms optional Prometheus counters for completed/failed
// outcomes. Left unset, Process behaves identically without recording
// anything, the same nil-safe-optional pattern notify.Notifier uses.
func (p *Processor) SetMetrics(metrics *observability.Metrics) {
	p.metrics = metrics
}

// Process executes job.Name's handler against job.Payload and finalizes
// the job via the manager. It never panics out of the component: every
// path ends in ProcessJobSuccess or ProcessJobFailure, except when
// finalization itself errors, in which case the error is logged and
// returned for recovery to pick the job back up later.
func (p *Processor) Process(ctx context.Context, job *jobs.Job) error {
	start := time.Now()
	result := p.executor.ExecuteHandler(ctx, job.Name, job.Payload, job)
	if p.metrics != nil {
		p.metrics.HandlerDuration.WithLabelValues(job.Name).Observe(time.Since(start).Seconds())
	}

	if !result.IsOk() {
		if err := p.manager.ProcessJobFailure(ctx, job.ID, result.Error()); err != nil {
			p.logger.Error("failed to record job failure",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
			return err
		}
		if p.metrics != nil {
			p.metrics.JobsFailedTotal.WithLabelValues(job.Name).Inc()
		}
		return nil
	}

	if err := p.manager.ProcessJobSuccess(ctx, job.ID, result.Value()); err != nil {
		p.logger.Error("failed to record job success",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
		return err
	}
	if p.metrics != nil {
		p.metrics.JobsCompletedTotal.WithLabelValues(job.Name).Inc()
	}
	return nil
}
