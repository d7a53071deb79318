package workerpool_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/clock"
	"github.com/kaushik2901/async-endpoints/internal/diyscope"
	"github.com/kaushik2901/async-endpoints/internal/jobs"
	"github.com/kaushik2901/async-endpoints/internal/workerpool"
)

func TestOrchestratorStartStopIsGraceful(t *testing.T) {
	ch := make(chan *jobs.Job, 1)
	claimer := &fakeClaimer{}
	delay := workerpool.NewDelayCalculator(workerpool.DelayConfig{PollingInterval: 5 * time.Millisecond})

	claimFactory := func(scope *diyscope.Scope) *workerpool.ClaimEnqueueService {
		return workerpool.NewClaimEnqueueService(claimer, ch, uuid.New(), nil, 0, zap.NewNop())
	}
	producer := workerpool.NewProducer(diyscope.New, claimFactory, delay, ch, 0, zap.NewNop())

	var procWG sync.WaitGroup
	procFactory := func(scope *diyscope.Scope) workerpool.JobProcessor {
		return &countingProcessor{count: new(int64), wg: &procWG}
	}
	consumer := workerpool.NewConsumer(ch, 1, diyscope.New, procFactory, time.Second, zap.NewNop())

	recovery := workerpool.NewRecovery(&fakeRecoveryStore{supports: false}, clock.Real(), time.Minute, time.Minute, 3, zap.NewNop())

	o := workerpool.NewOrchestrator(producer, consumer, recovery, zap.NewNop())
	o.Start(context.Background())

	done := make(chan struct{})
	go func() { o.Stop(2 * time.Second); close(done) }()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("expected orchestrator to stop within the shutdown window")
	}
}
