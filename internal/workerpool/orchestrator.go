package workerpool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Orchestrator spawns the producer, consumer, and recovery loops and
// propagates shutdown across all three (spec.md §4.12). Grounded on the
// teacher's Worker.Start/Stop and EnhancedWorker.Start/Stop
// (sync.WaitGroup + bounded time.After shutdown window), applied here
// to three loop kinds instead of the teacher's monolithic worker
// goroutine set.
type Orchestrator struct {
	producer *Producer
	consumer *Consumer
	recovery *Recovery
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator builds an Orchestrator over an already-wired
// producer/consumer/recovery triple.
func NewOrchestrator(producer *Producer, consumer *Consumer, recovery *Recovery, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{producer: producer, consumer: consumer, recovery: recovery, logger: logger}
}

// Start launches all three loops under a context derived from ctx. It
// returns immediately; call Stop to request a graceful shutdown.
func (o *Orchestrator) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(3)
	go func() { defer o.wg.Done(); o.producer.Run(runCtx) }()
	go func() { defer o.wg.Done(); o.consumer.Run(runCtx) }()
	go func() { defer o.wg.Done(); o.recovery.Run(runCtx) }()

	o.logger.Info("worker pool started")
}

// Stop cancels every loop and waits up to shutdownTimeout for them to
// finish.
func (o *Orchestrator) Stop(shutdownTimeout time.Duration) {
	if o.cancel == nil {
		return
	}
	o.logger.Info("stopping worker pool...")
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.logger.Info("worker pool stopped gracefully")
	case <-time.After(shutdownTimeout):
		o.logger.Warn("worker pool shutdown timeout exceeded")
	}
}
