package workerpool

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/clock"
	"github.com/kaushik2901/async-endpoints/internal/observability"
)

// recoveryStore is the subset of store.Store the recovery loop depends
// on.
type recoveryStore interface {
	SupportsRecovery() bool
	RecoverStuckJobs(ctx context.Context, timeoutInstant time.Time, maxRetriesDefault int) (int, error)
}

// Recovery periodically rescues jobs stuck InProgress past their
// timeout (spec.md §4.11). Grounded on the teacher's queue.Retry
// (internal/queue/database.go, "FAILED_TEMP whose retry_after has
// elapsed -> QUEUED") — the same periodic-rescue shape, generalized to
// the spec's InProgress-timeout recovery and exceeded-retries-to-Failed
// transition.
type Recovery struct {
	store             recoveryStore
	clk               clock.Clock
	jobTimeout        time.Duration
	checkInterval     time.Duration
	maxRetriesDefault int
	logger            *zap.Logger
	metrics           *observability.Metrics
}

// SetMetrics arms the optional recovered-jobs counter.
func (r *Recovery) SetMetrics(metrics *observability.Metrics) {
	r.metrics = metrics
}

// NewRecovery builds a Recovery loop.
func NewRecovery(st recoveryStore, clk clock.Clock, jobTimeout, checkInterval time.Duration, maxRetriesDefault int, logger *zap.Logger) *Recovery {
	return &Recovery{
		store:             st,
		clk:               clk,
		jobTimeout:        jobTimeout,
		checkInterval:     checkInterval,
		maxRetriesDefault: maxRetriesDefault,
		logger:            logger,
	}
}

// Run is a no-op when the store doesn't support recovery (spec.md
// §4.11 "active only when SupportsRecovery = true"); otherwise it loops
// until ctx is canceled.
func (r *Recovery) Run(ctx context.Context) {
	if !r.store.SupportsRecovery() {
		r.logger.Info("store does not support recovery; recovery loop disabled")
		return
	}

	for {
		timeoutInstant := r.clk.Now().Add(-r.jobTimeout)
		n, err := r.store.RecoverStuckJobs(ctx, timeoutInstant, r.maxRetriesDefault)
		if err != nil {
			r.logger.Error("recovery pass failed", zap.Error(err))
		} else if n > 0 {
			r.logger.Info("recovered stuck jobs", zap.Int("count", n))
			if r.metrics != nil {
				r.metrics.RecoveredJobsTotal.Add(float64(n))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.checkInterval):
		}
	}
}
