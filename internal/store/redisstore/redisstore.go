// Package redisstore implements store.Store against a Redis-compatible
// server, using server-side Lua scripts for the atomic claim and
// recovery operations spec.md §4.3 requires. Grounded on the teacher's
// internal/persistence/redis.go (connection setup, pool sizing) and
// internal/idempotency/store.go (key-per-entity pattern); the claim
// script's "pop lowest-score candidate, validate, rewrite" shape follows
// other_examples' bananas QueueReader.Dequeue/DequeueWithRouting, scaled
// up to the full hash+sorted-set protocol this spec names.
package redisstore

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kaushik2901/async-endpoints/internal/asyncerrors"
	"github.com/kaushik2901/async-endpoints/internal/clock"
	"github.com/kaushik2901/async-endpoints/internal/jobs"
	"github.com/kaushik2901/async-endpoints/internal/store"
)

// optionalFields are hash fields that may be absent on a Job; Update
// HDELs whichever of these toHash did not populate, so clearing a
// pointer field (e.g. WorkerId on reschedule) actually removes it
// instead of leaving a stale value behind.
var optionalFields = []string{
	fieldResult,
	fieldError,
	fieldRetryDelayUntil,
	fieldWorkerID,
	fieldStartedAt,
	fieldStartedAtUnix,
	fieldCompletedAt,
	fieldHeaders,
	fieldRouteParams,
	fieldQueryParams,
}

// Store is a Redis-backed, horizontally-shareable job store.
type Store struct {
	rdb *redis.Client
	clk clock.Clock
}

// New builds a Store over an already-connected client.
func New(rdb *redis.Client, clk clock.Clock) *Store {
	return &Store{rdb: rdb, clk: clk}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Create(ctx context.Context, job *jobs.Job) error {
	if job == nil {
		return asyncerrors.New(asyncerrors.CodeInvalidJob, "job must not be nil")
	}
	if job.ID == uuid.Nil {
		return asyncerrors.New(asyncerrors.CodeInvalidJobID, "job id must not be zero")
	}

	hash, err := toHash(job)
	if err != nil {
		return asyncerrors.Wrap(asyncerrors.CodeSerializationFailed, "failed to encode job", err)
	}

	argv := make([]any, 0, 2+len(hash)*2)
	argv = append(argv, job.CreatedAt.Unix(), job.ID.String())
	for k, v := range hash {
		argv = append(argv, k, v)
	}

	res, err := createScript.Run(ctx, s.rdb, []string{jobKey(job.ID), queueKeyName}, argv...).Result()
	if err != nil {
		return asyncerrors.Wrap(asyncerrors.CodeStoreError, "redis create failed", err)
	}
	if n, _ := res.(int64); n == 0 {
		return asyncerrors.Newf(asyncerrors.CodeDuplicateJob, "job %s already exists", job.ID)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*jobs.Job, error) {
	if id == uuid.Nil {
		return nil, asyncerrors.New(asyncerrors.CodeInvalidJobID, "job id must not be zero")
	}

	h, err := s.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, asyncerrors.Wrap(asyncerrors.CodeStoreError, "redis get failed", err)
	}
	if len(h) == 0 {
		return nil, asyncerrors.Newf(asyncerrors.CodeNotFound, "job %s not found", id)
	}

	return fromHash(h)
}

func (s *Store) Update(ctx context.Context, job *jobs.Job) error {
	if job == nil {
		return asyncerrors.New(asyncerrors.CodeInvalidJob, "job must not be nil")
	}

	hash, err := toHash(job)
	if err != nil {
		return asyncerrors.Wrap(asyncerrors.CodeSerializationFailed, "failed to encode job", err)
	}

	var delFields []string
	for _, f := range optionalFields {
		if _, ok := hash[f]; !ok {
			delFields = append(delFields, f)
		}
	}

	membership, score := membershipFor(job, s.clk.Now())

	argv := make([]any, 0, 3+len(delFields)+len(hash)*2)
	argv = append(argv, membership, score, len(delFields))
	for _, f := range delFields {
		argv = append(argv, f)
	}
	for k, v := range hash {
		argv = append(argv, k, v)
	}

	res, err := updateScript.Run(ctx, s.rdb, []string{jobKey(job.ID), queueKeyName, inprogressKeyName}, argv...).Result()
	if err != nil {
		return asyncerrors.Wrap(asyncerrors.CodeStoreError, "redis update failed", err)
	}
	if n, _ := res.(int64); n == 0 {
		return asyncerrors.Newf(asyncerrors.CodeNotFound, "job %s not found", job.ID)
	}
	return nil
}

// membershipFor decides which sorted set (if any) a job belongs in
// after an Update, and the score it should carry there, from its
// post-update status (spec.md §4.3 key layout).
func membershipFor(job *jobs.Job, now time.Time) (string, int64) {
	switch job.Status {
	case jobs.StatusQueued:
		return "queue", job.CreatedAt.Unix()
	case jobs.StatusScheduled:
		if job.RetryDelayUntil != nil {
			return "queue", job.RetryDelayUntil.Unix()
		}
		return "queue", now.Unix()
	case jobs.StatusInProgress:
		if job.StartedAt != nil {
			return "inprogress", job.StartedAt.Unix()
		}
		return "inprogress", now.Unix()
	default:
		return "none", 0
	}
}

func (s *Store) ClaimNextForWorker(ctx context.Context, workerID uuid.UUID, allowedNames ...string) (*jobs.Job, error) {
	now := s.clk.Now()
	allowedCSV := strings.Join(allowedNames, ",")

	res, err := claimScript.Run(ctx, s.rdb,
		[]string{queueKeyName, inprogressKeyName},
		now.Unix(), workerID.String(), now.Format(timeLayout), now.Format(timeLayout), jobKeyPrefix, allowedCSV,
	).Result()
	if err == redis.Nil {
		// The script returns false (a nil reply) when no job is eligible.
		return nil, nil
	}
	if err != nil {
		return nil, asyncerrors.Wrap(asyncerrors.CodeStoreError, "redis claim failed", err)
	}
	if res == nil {
		return nil, nil
	}

	fields, ok := res.([]any)
	if !ok || len(fields) == 0 {
		return nil, nil
	}
	return fromHash(flatHash(fields))
}

func (s *Store) SupportsRecovery() bool { return true }

func (s *Store) RecoverStuckJobs(ctx context.Context, timeoutInstant time.Time, maxRetriesDefault int) (int, error) {
	now := s.clk.Now()

	res, err := recoverScript.Run(ctx, s.rdb,
		[]string{inprogressKeyName, queueKeyName},
		timeoutInstant.Unix(), now.Unix(), now.Format(timeLayout), jobKeyPrefix, maxRetriesDefault, string(asyncerrors.CodeMaxRetriesExceeded),
	).Result()
	if err != nil {
		return 0, asyncerrors.Wrap(asyncerrors.CodeStoreError, "redis recovery failed", err)
	}

	n, _ := res.(int64)
	return int(n), nil
}

// Depths reports ZCARD of the queue/in-progress sorted sets.
func (s *Store) Depths(ctx context.Context) (queued int, inProgress int, err error) {
	q, err := s.rdb.ZCard(ctx, queueKeyName).Result()
	if err != nil {
		return 0, 0, asyncerrors.Wrap(asyncerrors.CodeStoreError, "redis queue depth failed", err)
	}
	ip, err := s.rdb.ZCard(ctx, inprogressKeyName).Result()
	if err != nil {
		return 0, 0, asyncerrors.Wrap(asyncerrors.CodeStoreError, "redis inprogress depth failed", err)
	}
	return int(q), int(ip), nil
}
