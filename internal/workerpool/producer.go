package workerpool

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/diyscope"
	"github.com/kaushik2901/async-endpoints/internal/jobs"
)

// ClaimServiceFactory builds a ClaimEnqueueService scoped to one
// iteration's DI scope, per spec.md §4.9 step 1 ("open a DI scope for
// the claim service").
type ClaimServiceFactory func(scope *diyscope.Scope) *ClaimEnqueueService

// Producer is the single cooperative task that claims jobs and pushes
// them onto the shared channel (spec.md §4.9). Grounded on the
// teacher's worker.consumeMessages/EnhancedWorker.batchedNATSConsumer
// loop shape (select on stop/ctx/default, sleep on error).
type Producer struct {
	newScope   func() *diyscope.Scope
	factory    ClaimServiceFactory
	delay      *DelayCalculator
	channel    chan *jobs.Job
	errorDelay time.Duration
	logger     *zap.Logger
	wake       <-chan struct{}
}

// SetWakeChannel arms an optional channel (typically fed by
// notify.Notifier.Subscribe) that lets the producer cut its sleep short
// when a job becomes claimable. Purely a latency optimization; Run
// behaves identically with no wake channel set, just polling on its
// computed delay.
func (p *Producer) SetWakeChannel(wake <-chan struct{}) {
	p.wake = wake
}

// NewProducer builds a Producer. channel is closed by Run on exit,
// since the producer is its sole writer.
func NewProducer(newScope func() *diyscope.Scope, factory ClaimServiceFactory, delay *DelayCalculator, channel chan *jobs.Job, errorDelay time.Duration, logger *zap.Logger) *Producer {
	if newScope == nil {
		newScope = diyscope.New
	}
	if errorDelay <= 0 {
		errorDelay = 5 * time.Second
	}
	return &Producer{
		newScope:   newScope,
		factory:    factory,
		delay:      delay,
		channel:    channel,
		errorDelay: errorDelay,
		logger:     logger,
	}
}

// Run drives the producer loop until ctx is canceled, then closes the
// channel and returns.
func (p *Producer) Run(ctx context.Context) {
	defer close(p.channel)

	for {
		if ctx.Err() != nil {
			return
		}

		outcome := p.runOnce(ctx)
		sleep := p.delay.Delay(outcome)

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		case <-p.wake:
		}
	}
}

func (p *Producer) runOnce(ctx context.Context) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("producer iteration panicked, recovering", zap.Any("panic", r))
			outcome = ErrorOccurred
		}
	}()

	scope := p.newScope()
	defer func() {
		if err := scope.Close(); err != nil {
			p.logger.Warn("producer scope close failed", zap.Error(err))
		}
	}()

	svc := p.factory(scope)
	return svc.ClaimAndEnqueue(ctx)
}
