// Package store defines the persistence boundary for jobs: a single
// interface implemented by an in-memory backend (store/memstore) and a
// Redis-backed backend (store/redisstore), generalized from the
// teacher's queue.Queue/messages.Store method shapes (Create,
// GetByID/GetMessage, status-scoped updates).
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kaushik2901/async-endpoints/internal/asyncerrors"
	"github.com/kaushik2901/async-endpoints/internal/jobs"
)

// Store is the persistence boundary a JobManager depends on.
type Store interface {
	// Create persists a brand-new job. Returns *asyncerrors.Error with
	// CodeInvalidJob/CodeInvalidJobID/CodeDuplicateJob/CodeStoreError.
	Create(ctx context.Context, job *jobs.Job) error

	// GetByID loads a job by id. Returns *asyncerrors.Error with
	// CodeInvalidJobID/CodeNotFound/CodeStoreError.
	GetByID(ctx context.Context, id uuid.UUID) (*jobs.Job, error)

	// Update persists a full replacement of a job's mutable fields,
	// atomic against concurrent updates of the same job. Returns
	// *asyncerrors.Error with CodeNotFound/CodeConcurrencyConflict/CodeStoreError.
	Update(ctx context.Context, job *jobs.Job) error

	// ClaimNextForWorker atomically transitions exactly one eligible job
	// (oldest created_at first) to InProgress under workerID and returns
	// it. Returns (nil, nil) when no job is eligible — "no job" is a
	// success outcome, not an error. When allowedNames is non-empty, only
	// jobs whose name appears in it are considered (a partitioning hint,
	// not a priority order — see workerpool's routing filter).
	ClaimNextForWorker(ctx context.Context, workerID uuid.UUID, allowedNames ...string) (*jobs.Job, error)

	// SupportsRecovery reports whether RecoverStuckJobs is implemented.
	SupportsRecovery() bool

	// RecoverStuckJobs rescues jobs stuck InProgress since before
	// timeoutInstant: re-queues them (incrementing retry_count) if
	// retry_count is under the job's own max_retries (maxRetriesDefault
	// applies only when the job has none recorded), otherwise fails them
	// permanently. Returns the count of jobs touched.
	RecoverStuckJobs(ctx context.Context, timeoutInstant time.Time, maxRetriesDefault int) (int, error)

	// Depths reports the current count of jobs eligible to be claimed
	// (Queued or Scheduled) and the count currently InProgress, for the
	// queue_depth/inprogress_depth gauges.
	Depths(ctx context.Context) (queued int, inProgress int, err error)
}

// ErrRecoveryUnsupported is returned by RecoverStuckJobs on stores whose
// SupportsRecovery() is false (spec.md §4.2: memstore "returns a logic
// error").
var ErrRecoveryUnsupported = asyncerrors.New(asyncerrors.CodeStoreError, "store does not support recovery")
