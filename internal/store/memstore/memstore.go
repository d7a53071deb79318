// Package memstore implements store.Store over a concurrent in-memory
// map. No file in the pack does optimistic CAS over a job map directly,
// but the shape — read, copy, atomically swap, retry on conflict — is
// the same back-pressure idiom the teacher's WorkerPool applies to
// counters (internal/worker/pool.go), generalized here from counters to
// whole-value swap via atomic.Pointer[T].CompareAndSwap.
package memstore

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kaushik2901/async-endpoints/internal/asyncerrors"
	"github.com/kaushik2901/async-endpoints/internal/clock"
	"github.com/kaushik2901/async-endpoints/internal/jobs"
	"github.com/kaushik2901/async-endpoints/internal/store"
)

// maxClaimPasses bounds the rescan loop in ClaimNextForWorker. A handful
// of passes suffices in the single-process setting this store targets
// (spec.md §4.2).
const maxClaimPasses = 8

// Store is an in-memory, process-local job store. It does not implement
// recovery.
type Store struct {
	clk  clock.Clock
	data sync.Map // uuid.UUID -> *atomic.Pointer[jobs.Job]
}

// New builds an empty in-memory store using clk for timestamps.
func New(clk clock.Clock) *Store {
	return &Store{clk: clk}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Create(_ context.Context, job *jobs.Job) error {
	if job == nil {
		return asyncerrors.New(asyncerrors.CodeInvalidJob, "job must not be nil")
	}
	if job.ID == uuid.Nil {
		return asyncerrors.New(asyncerrors.CodeInvalidJobID, "job id must not be zero")
	}

	ptr := &atomic.Pointer[jobs.Job]{}
	ptr.Store(job.Clone())

	if _, loaded := s.data.LoadOrStore(job.ID, ptr); loaded {
		return asyncerrors.Newf(asyncerrors.CodeDuplicateJob, "job %s already exists", job.ID)
	}
	return nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*jobs.Job, error) {
	if id == uuid.Nil {
		return nil, asyncerrors.New(asyncerrors.CodeInvalidJobID, "job id must not be zero")
	}
	v, ok := s.data.Load(id)
	if !ok {
		return nil, asyncerrors.Newf(asyncerrors.CodeNotFound, "job %s not found", id)
	}
	ptr := v.(*atomic.Pointer[jobs.Job])
	return ptr.Load().Clone(), nil
}

func (s *Store) Update(_ context.Context, job *jobs.Job) error {
	if job == nil {
		return asyncerrors.New(asyncerrors.CodeInvalidJob, "job must not be nil")
	}
	v, ok := s.data.Load(job.ID)
	if !ok {
		return asyncerrors.Newf(asyncerrors.CodeNotFound, "job %s not found", job.ID)
	}
	ptr := v.(*atomic.Pointer[jobs.Job])

	old := ptr.Load()
	updated := job.Clone()
	updated.LastUpdatedAt = s.clk.Now()

	if !ptr.CompareAndSwap(old, updated) {
		return asyncerrors.Newf(asyncerrors.CodeConcurrencyConflict, "job %s was modified concurrently", job.ID)
	}
	return nil
}

type candidate struct {
	ptr *atomic.Pointer[jobs.Job]
	job *jobs.Job
}

// allowList is the job-name routing filter (SPEC_FULL.md §11): empty
// means "no filter, accept every name".
type allowList map[string]struct{}

func nameSet(names []string) allowList {
	if len(names) == 0 {
		return nil
	}
	set := make(allowList, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func (a allowList) permits(name string) bool {
	if len(a) == 0 {
		return true
	}
	_, ok := a[name]
	return ok
}

func (s *Store) ClaimNextForWorker(_ context.Context, workerID uuid.UUID, allowedNames ...string) (*jobs.Job, error) {
	now := s.clk.Now()
	allowed := nameSet(allowedNames)

	for pass := 0; pass < maxClaimPasses; pass++ {
		var candidates []candidate
		s.data.Range(func(_, v any) bool {
			ptr := v.(*atomic.Pointer[jobs.Job])
			cur := ptr.Load()
			if cur.IsClaimableAt(now) && allowed.permits(cur.Name) {
				candidates = append(candidates, candidate{ptr: ptr, job: cur})
			}
			return true
		})

		if len(candidates) == 0 {
			return nil, nil
		}

		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].job.CreatedAt.Before(candidates[j].job.CreatedAt)
		})

		for _, c := range candidates {
			updated := c.job.Clone()
			updated.Status = jobs.StatusInProgress
			wid := workerID
			updated.WorkerID = &wid
			started := now
			updated.StartedAt = &started
			updated.LastUpdatedAt = now

			if c.ptr.CompareAndSwap(c.job, updated) {
				return updated.Clone(), nil
			}
			// Lost the race on this candidate; try the next one from
			// this same scan before paying for a full rescan.
		}
	}

	return nil, nil
}

// Depths counts jobs by scanning the map; fine at the scale memstore
// targets (single-process, demo/test use).
func (s *Store) Depths(context.Context) (queued int, inProgress int, err error) {
	s.data.Range(func(_, v any) bool {
		ptr := v.(*atomic.Pointer[jobs.Job])
		switch ptr.Load().Status {
		case jobs.StatusQueued, jobs.StatusScheduled:
			queued++
		case jobs.StatusInProgress:
			inProgress++
		}
		return true
	})
	return queued, inProgress, nil
}

func (s *Store) SupportsRecovery() bool { return false }

func (s *Store) RecoverStuckJobs(context.Context, time.Time, int) (int, error) {
	return 0, store.ErrRecoveryUnsupported
}
