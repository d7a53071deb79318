package workerpool_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/diyscope"
	"github.com/kaushik2901/async-endpoints/internal/jobs"
	"github.com/kaushik2901/async-endpoints/internal/workerpool"
)

type countingProcessor struct {
	count *int64
	wg    *sync.WaitGroup
}

func (p *countingProcessor) Process(_ context.Context, _ *jobs.Job) error {
	atomic.AddInt64(p.count, 1)
	p.wg.Done()
	return nil
}

func TestConsumerProcessesEnqueuedJobs(t *testing.T) {
	ch := make(chan *jobs.Job, 4)
	var processed int64
	var wg sync.WaitGroup
	wg.Add(3)

	factory := func(scope *diyscope.Scope) workerpool.JobProcessor {
		return &countingProcessor{count: &processed, wg: &wg}
	}

	c := workerpool.NewConsumer(ch, 2, diyscope.New, factory, 2*time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go c.Run(ctx)

	for i := 0; i < 3; i++ {
		ch <- &jobs.Job{ID: uuid.New(), Name: "echo"}
	}

	waitDone := make(chan struct{})
	go func() { wg.Wait(); close(waitDone) }()

	select {
	case <-waitDone:
	case <-time.After(2 * time.Second):
		t.Fatal("expected all jobs to be processed")
	}

	if atomic.LoadInt64(&processed) != 3 {
		t.Fatalf("expected 3 jobs processed, got %d", processed)
	}
}

func TestConsumerStopsDrainingOnChannelClose(t *testing.T) {
	ch := make(chan *jobs.Job)
	var processed int64
	var wg sync.WaitGroup

	factory := func(scope *diyscope.Scope) workerpool.JobProcessor {
		return &countingProcessor{count: &processed, wg: &wg}
	}

	c := workerpool.NewConsumer(ch, 1, diyscope.New, factory, time.Second, zap.NewNop())

	done := make(chan struct{})
	go func() { c.Run(context.Background()); close(done) }()

	close(ch)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected consumer to exit after channel close")
	}
}
