package workerpool_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/jobs"
	"github.com/kaushik2901/async-endpoints/internal/observability"
	"github.com/kaushik2901/async-endpoints/internal/workerpool"
)

type fakeClaimer struct {
	job *jobs.Job
	err error
}

func (f *fakeClaimer) ClaimNextAvailableJob(_ context.Context, _ uuid.UUID, _ ...string) (*jobs.Job, error) {
	return f.job, f.err
}

func TestClaimAndEnqueueNoJobFound(t *testing.T) {
	ch := make(chan *jobs.Job, 1)
	svc := workerpool.NewClaimEnqueueService(&fakeClaimer{}, ch, uuid.New(), nil, 0, zap.NewNop())

	outcome := svc.ClaimAndEnqueue(context.Background())
	if outcome != workerpool.NoJobFound {
		t.Fatalf("expected NoJobFound, got %s", outcome)
	}
}

func TestClaimAndEnqueueError(t *testing.T) {
	ch := make(chan *jobs.Job, 1)
	svc := workerpool.NewClaimEnqueueService(&fakeClaimer{err: errors.New("store down")}, ch, uuid.New(), nil, 0, zap.NewNop())

	outcome := svc.ClaimAndEnqueue(context.Background())
	if outcome != workerpool.ErrorOccurred {
		t.Fatalf("expected ErrorOccurred, got %s", outcome)
	}
}

func TestClaimAndEnqueueSuccess(t *testing.T) {
	job := &jobs.Job{ID: uuid.New(), Name: "echo"}
	ch := make(chan *jobs.Job, 1)
	svc := workerpool.NewClaimEnqueueService(&fakeClaimer{job: job}, ch, uuid.New(), nil, 0, zap.NewNop())

	outcome := svc.ClaimAndEnqueue(context.Background())
	if outcome != workerpool.JobSuccessfullyEnqueued {
		t.Fatalf("expected JobSuccessfullyEnqueued, got %s", outcome)
	}
	select {
	case got := <-ch:
		if got.ID != job.ID {
			t.Fatal("unexpected job on channel")
		}
	default:
		t.Fatal("expected job to be enqueued")
	}
}

func TestClaimAndEnqueueFailsWhenChannelStaysFull(t *testing.T) {
	job := &jobs.Job{ID: uuid.New(), Name: "echo"}
	ch := make(chan *jobs.Job, 1)
	ch <- &jobs.Job{ID: uuid.New()} // fill the buffer

	svc := workerpool.NewClaimEnqueueService(&fakeClaimer{job: job}, ch, uuid.New(), nil, 20*time.Millisecond, zap.NewNop())

	outcome := svc.ClaimAndEnqueue(context.Background())
	if outcome != workerpool.FailedToEnqueue {
		t.Fatalf("expected FailedToEnqueue, got %s", outcome)
	}
}

func TestClaimAndEnqueueRecordsMetricsOnSuccess(t *testing.T) {
	job := &jobs.Job{ID: uuid.New(), Name: "echo"}
	ch := make(chan *jobs.Job, 1)
	svc := workerpool.NewClaimEnqueueService(&fakeClaimer{job: job}, ch, uuid.New(), nil, 0, zap.NewNop())

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	svc.SetMetrics(metrics)

	if outcome := svc.ClaimAndEnqueue(context.Background()); outcome != workerpool.JobSuccessfullyEnqueued {
		t.Fatalf("expected JobSuccessfullyEnqueued, got %s", outcome)
	}

	var m dto.Metric
	if err := metrics.JobsClaimedTotal.WithLabelValues("echo").Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if m.GetCounter().GetValue() != 1 {
		t.Fatalf("expected JobsClaimedTotal=1, got %v", m.GetCounter().GetValue())
	}
}
