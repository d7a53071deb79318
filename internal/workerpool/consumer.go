package workerpool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/diyscope"
	"github.com/kaushik2901/async-endpoints/internal/jobs"
)

// JobProcessor is the subset of *processor.Processor the consumer
// depends on.
type JobProcessor interface {
	Process(ctx context.Context, job *jobs.Job) error
}

// ProcessorFactory builds a JobProcessor scoped to one job's DI scope
// (spec.md §4.10 step 2).
type ProcessorFactory func(scope *diyscope.Scope) JobProcessor

// defaultShutdownTimeout is spec.md §4.10's default.
const defaultShutdownTimeout = 30 * time.Second

// Consumer is the single cooperative task that drains the shared
// channel under bounded concurrency (spec.md §4.10). Grounded on the
// teacher's worker.worker() fixed-goroutine-pool pattern for the bound
// itself, and WorkerPool's semaphore-by-counter idiom
// (internal/worker/pool.go) for the bounding mechanism, unified into one
// consumer instead of the teacher's two divergent implementations.
type Consumer struct {
	channel         <-chan *jobs.Job
	sem             chan struct{}
	newScope        func() *diyscope.Scope
	factory         ProcessorFactory
	shutdownTimeout time.Duration
	logger          *zap.Logger
	wg              sync.WaitGroup
}

// NewConsumer builds a Consumer with the given maximum concurrency.
func NewConsumer(channel <-chan *jobs.Job, maximumConcurrency int, newScope func() *diyscope.Scope, factory ProcessorFactory, shutdownTimeout time.Duration, logger *zap.Logger) *Consumer {
	if maximumConcurrency <= 0 {
		maximumConcurrency = 1
	}
	if newScope == nil {
		newScope = diyscope.New
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	return &Consumer{
		channel:         channel,
		sem:             make(chan struct{}, maximumConcurrency),
		newScope:        newScope,
		factory:         factory,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

// Run drains the channel until it closes or ctx is canceled, then waits
// for outstanding children up to shutdownTimeout before returning.
func (c *Consumer) Run(ctx context.Context) {
loop:
	for {
		select {
		case job, ok := <-c.channel:
			if !ok {
				break loop
			}
			select {
			case c.sem <- struct{}{}:
			case <-ctx.Done():
				break loop
			}
			c.wg.Add(1)
			go c.handle(ctx, job)
		case <-ctx.Done():
			break loop
		}
	}

	c.awaitShutdown()
}

func (c *Consumer) awaitShutdown() {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(c.shutdownTimeout):
		c.logger.Warn("consumer shutdown timeout exceeded; some jobs may still be in flight")
	}
}

func (c *Consumer) handle(ctx context.Context, job *jobs.Job) {
	defer c.wg.Done()
	defer func() { <-c.sem }()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("job handling panicked, recovering",
				zap.Any("panic", r),
				zap.String("job_id", job.ID.String()),
			)
		}
	}()

	scope := c.newScope()
	defer func() {
		if err := scope.Close(); err != nil {
			c.logger.Warn("consumer scope close failed", zap.Error(err))
		}
	}()

	proc := c.factory(scope)
	if err := proc.Process(ctx, job); err != nil {
		c.logger.Error("job processing failed",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
}
