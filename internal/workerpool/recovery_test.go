package workerpool_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/clock"
	"github.com/kaushik2901/async-endpoints/internal/observability"
	"github.com/kaushik2901/async-endpoints/internal/workerpool"
)

type fakeRecoveryStore struct {
	supports bool
	calls    int64
	err      error
}

func (f *fakeRecoveryStore) SupportsRecovery() bool { return f.supports }

func (f *fakeRecoveryStore) RecoverStuckJobs(_ context.Context, _ time.Time, _ int) (int, error) {
	atomic.AddInt64(&f.calls, 1)
	return 1, f.err
}

func TestRecoveryDisabledWhenStoreDoesNotSupportIt(t *testing.T) {
	st := &fakeRecoveryStore{supports: false}
	r := workerpool.NewRecovery(st, clock.Real(), time.Minute, time.Millisecond, 3, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() { r.Run(ctx); close(done) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Run to return immediately when recovery is unsupported")
	}

	if atomic.LoadInt64(&st.calls) != 0 {
		t.Fatal("expected no recovery passes when unsupported")
	}
}

func TestRecoveryRunsUntilCanceled(t *testing.T) {
	st := &fakeRecoveryStore{supports: true}
	r := workerpool.NewRecovery(st, clock.Real(), time.Minute, 5*time.Millisecond, 3, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt64(&st.calls) < 3 {
		select {
		case <-deadline:
			t.Fatal("expected multiple recovery passes")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
}

func TestRecoveryRecordsRecoveredJobsMetric(t *testing.T) {
	st := &fakeRecoveryStore{supports: true}
	r := workerpool.NewRecovery(st, clock.Real(), time.Minute, 5*time.Millisecond, 3, zap.NewNop())

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	r.SetMetrics(metrics)

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt64(&st.calls) < 1 {
		select {
		case <-deadline:
			t.Fatal("expected at least one recovery pass")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()

	var m dto.Metric
	if err := metrics.RecoveredJobsTotal.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if m.GetCounter().GetValue() < 1 {
		t.Fatalf("expected RecoveredJobsTotal >= 1, got %v", m.GetCounter().GetValue())
	}
}
