package memstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kaushik2901/async-endpoints/internal/asyncerrors"
	"github.com/kaushik2901/async-endpoints/internal/clock"
	"github.com/kaushik2901/async-endpoints/internal/jobs"
	"github.com/kaushik2901/async-endpoints/internal/store"
	"github.com/kaushik2901/async-endpoints/internal/store/memstore"
)

func newJob(now time.Time, status jobs.Status) *jobs.Job {
	return &jobs.Job{
		ID:            uuid.New(),
		Name:          "echo",
		Status:        status,
		Payload:       []byte(`{}`),
		MaxRetries:    3,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

func TestCreateRejectsNilAndZeroID(t *testing.T) {
	s := memstore.New(clock.NewFrozen(time.Now()))

	if err := s.Create(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil job")
	}

	zero := &jobs.Job{}
	if err := s.Create(context.Background(), zero); err == nil {
		t.Fatal("expected error for zero id")
	}
}

func TestCreateRejectsDuplicate(t *testing.T) {
	clk := clock.NewFrozen(time.Now())
	s := memstore.New(clk)
	job := newJob(clk.Now(), jobs.StatusQueued)

	if err := s.Create(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Create(context.Background(), job); err == nil {
		t.Fatal("expected duplicate error on second create")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	s := memstore.New(clock.NewFrozen(time.Now()))
	_, err := s.GetByID(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestUpdateDetectsConcurrencyConflict(t *testing.T) {
	clk := clock.NewFrozen(time.Now())
	s := memstore.New(clk)
	job := newJob(clk.Now(), jobs.StatusQueued)
	if err := s.Create(context.Background(), job); err != nil {
		t.Fatalf("create: %v", err)
	}

	a, err := s.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, err := s.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	a.Name = "renamed-a"
	if err := s.Update(context.Background(), a); err != nil {
		t.Fatalf("first update should succeed: %v", err)
	}

	b.Name = "renamed-b"
	err = s.Update(context.Background(), b)
	if err == nil {
		t.Fatal("expected concurrency conflict on stale update")
	}
	var asyncErr *asyncerrors.Error
	if !errors.As(err, &asyncErr) || asyncErr.Code != asyncerrors.CodeConcurrencyConflict {
		t.Fatalf("expected CodeConcurrencyConflict, got %v", err)
	}
}

func TestClaimNextForWorkerPicksOldestClaimable(t *testing.T) {
	clk := clock.NewFrozen(time.Now())
	s := memstore.New(clk)

	older := newJob(clk.Now().Add(-time.Minute), jobs.StatusQueued)
	newer := newJob(clk.Now(), jobs.StatusQueued)
	if err := s.Create(context.Background(), older); err != nil {
		t.Fatalf("create older: %v", err)
	}
	if err := s.Create(context.Background(), newer); err != nil {
		t.Fatalf("create newer: %v", err)
	}

	worker := uuid.New()
	claimed, err := s.ClaimNextForWorker(context.Background(), worker)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed == nil {
		t.Fatal("expected a job to be claimed")
	}
	if claimed.ID != older.ID {
		t.Fatalf("expected oldest job claimed, got %s", claimed.ID)
	}
	if claimed.Status != jobs.StatusInProgress {
		t.Fatalf("expected InProgress, got %v", claimed.Status)
	}
	if claimed.WorkerID == nil || *claimed.WorkerID != worker {
		t.Fatal("expected worker id set")
	}
}

func TestClaimNextForWorkerSkipsScheduledInFuture(t *testing.T) {
	clk := clock.NewFrozen(time.Now())
	s := memstore.New(clk)

	future := clk.Now().Add(time.Hour)
	scheduled := newJob(clk.Now(), jobs.StatusScheduled)
	scheduled.RetryDelayUntil = &future
	if err := s.Create(context.Background(), scheduled); err != nil {
		t.Fatalf("create: %v", err)
	}

	claimed, err := s.ClaimNextForWorker(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed != nil {
		t.Fatal("expected no job to be claimable")
	}
}

func TestClaimNextForWorkerReturnsNilWhenEmpty(t *testing.T) {
	s := memstore.New(clock.NewFrozen(time.Now()))
	claimed, err := s.ClaimNextForWorker(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claimed != nil {
		t.Fatal("expected nil job")
	}
}

func TestClaimNextForWorkerIsExclusiveUnderConcurrency(t *testing.T) {
	clk := clock.NewFrozen(time.Now())
	s := memstore.New(clk)
	job := newJob(clk.Now(), jobs.StatusQueued)
	if err := s.Create(context.Background(), job); err != nil {
		t.Fatalf("create: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan *jobs.Job, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := s.ClaimNextForWorker(context.Background(), uuid.New())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results <- claimed
		}()
	}
	wg.Wait()
	close(results)

	claims := 0
	for r := range results {
		if r != nil {
			claims++
		}
	}
	if claims != 1 {
		t.Fatalf("expected exactly 1 claim, got %d", claims)
	}
}

func TestDepthsCountsByStatus(t *testing.T) {
	now := time.Now()
	s := memstore.New(clock.NewFrozen(now))

	for _, st := range []jobs.Status{jobs.StatusQueued, jobs.StatusScheduled, jobs.StatusInProgress, jobs.StatusInProgress, jobs.StatusCompleted} {
		if err := s.Create(context.Background(), newJob(now, st)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	queued, inProgress, err := s.Depths(context.Background())
	if err != nil {
		t.Fatalf("depths: %v", err)
	}
	if queued != 2 {
		t.Fatalf("expected 2 queued/scheduled, got %d", queued)
	}
	if inProgress != 2 {
		t.Fatalf("expected 2 in progress, got %d", inProgress)
	}
}

func TestSupportsRecoveryFalse(t *testing.T) {
	s := memstore.New(clock.NewFrozen(time.Now()))
	if s.SupportsRecovery() {
		t.Fatal("memstore must not support recovery")
	}
	if _, err := s.RecoverStuckJobs(context.Background(), time.Now(), 3); !errors.Is(err, store.ErrRecoveryUnsupported) {
		t.Fatalf("expected ErrRecoveryUnsupported, got %v", err)
	}
}
