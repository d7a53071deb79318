package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/clock"
	"github.com/kaushik2901/async-endpoints/internal/config"
	"github.com/kaushik2901/async-endpoints/internal/diyscope"
	"github.com/kaushik2901/async-endpoints/internal/examplehandlers"
	"github.com/kaushik2901/async-endpoints/internal/executor"
	"github.com/kaushik2901/async-endpoints/internal/jobs"
	"github.com/kaushik2901/async-endpoints/internal/manager"
	"github.com/kaushik2901/async-endpoints/internal/notify"
	"github.com/kaushik2901/async-endpoints/internal/observability"
	"github.com/kaushik2901/async-endpoints/internal/processor"
	"github.com/kaushik2901/async-endpoints/internal/registry"
	"github.com/kaushik2901/async-endpoints/internal/serializer"
	"github.com/kaushik2901/async-endpoints/internal/store"
	"github.com/kaushik2901/async-endpoints/internal/store/memstore"
	"github.com/kaushik2901/async-endpoints/internal/store/redisstore"
	"github.com/kaushik2901/async-endpoints/internal/workerpool"
)

// shutdownTimeout bounds how long Orchestrator.Stop waits for in-flight
// jobs before giving up, mirroring the teacher's fixed 5s shutdown
// sleep but generalized into a bounded wait instead of a blind sleep.
const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.GetLoggerFromEnv()
	defer logger.Sync()

	logger.Info("starting async-endpoints worker", zap.String("log_level", cfg.LogLevel))

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	shutdownOTel, err := observability.SetupOpenTelemetry("async-endpoints-worker", reg, logger)
	if err != nil {
		logger.Fatal("failed to set up OpenTelemetry", zap.Error(err))
	}
	defer shutdownOTel()

	var rdb *redis.Client
	var st store.Store
	switch cfg.Store.Backend {
	case "redis":
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Store.RedisURL})
		st = redisstore.New(rdb, clock.Real())
	default:
		st = memstore.New(clock.Real())
	}

	mgr := manager.New(st, clock.Real(), logger, manager.Config{
		DefaultMaxRetries: cfg.Manager.DefaultMaxRetries,
		BaseDelaySeconds:  cfg.Manager.RetryDelayBaseSeconds,
	})

	jobRegistry := registry.New(serializer.NewJSON())
	examplehandlers.RegisterEcho(jobRegistry)
	examplehandlers.RegisterMockDelivery(jobRegistry)

	exec := executor.New(jobRegistry, logger, diyscope.New)
	proc := processor.New(exec, mgr, logger)
	proc.SetMetrics(metrics)

	workerID := uuid.New()
	channel := make(chan *jobs.Job, cfg.Worker.MaximumQueueSize)

	claimFactory := func(scope *diyscope.Scope) *workerpool.ClaimEnqueueService {
		svc := workerpool.NewClaimEnqueueService(mgr, channel, workerID, cfg.Worker.AllowedJobNames, cfg.Manager.JobClaimTimeout, logger)
		svc.SetMetrics(metrics)
		return svc
	}
	delay := workerpool.NewDelayCalculator(workerpool.DelayConfig{
		PollingInterval: time.Duration(cfg.Worker.PollingIntervalMS) * time.Millisecond,
	})
	producer := workerpool.NewProducer(diyscope.New, claimFactory, delay, channel, 5*time.Second, logger)

	if cfg.NATSURL != "" {
		notifier, err := notify.Connect(cfg.NATSURL, logger)
		if err != nil {
			logger.Warn("failed to connect to NATS; producer will rely on polling alone", zap.Error(err))
		} else {
			defer notifier.Close()
			wake := make(chan struct{}, 1)
			if _, err := notifier.Subscribe("", func() {
				select {
				case wake <- struct{}{}:
				default:
				}
			}); err != nil {
				logger.Warn("failed to subscribe for wake-up notifications", zap.Error(err))
			} else {
				producer.SetWakeChannel(wake)
			}
		}
	}

	processorFactory := func(scope *diyscope.Scope) workerpool.JobProcessor {
		return proc
	}
	consumer := workerpool.NewConsumer(channel, cfg.Worker.MaximumConcurrency, diyscope.New, processorFactory, shutdownTimeout, logger)

	recovery := workerpool.NewRecovery(
		st,
		clock.Real(),
		time.Duration(cfg.Recovery.JobTimeoutMinutes)*time.Minute,
		cfg.Recovery.RecoveryCheckInterval,
		cfg.Recovery.MaximumRetries,
		logger,
	)
	recovery.SetMetrics(metrics)

	orchestrator := workerpool.NewOrchestrator(producer, consumer, recovery, logger)

	depthsCtx, stopDepths := context.WithCancel(context.Background())
	go pollDepths(depthsCtx, st, metrics, cfg.Recovery.RecoveryCheckInterval, logger)

	orchestrator.Start(context.Background())

	logger.Info("async-endpoints worker started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")
	stopDepths()
	orchestrator.Stop(shutdownTimeout)
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("async-endpoints worker stopped")
}

// pollDepths refreshes the queue_depth/inprogress_depth gauges on a
// fixed interval. Best-effort: a failed Depths call just logs and
// leaves the gauges at their last known value.
func pollDepths(ctx context.Context, st store.Store, metrics *observability.Metrics, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			queued, inProgress, err := st.Depths(ctx)
			if err != nil {
				logger.Warn("failed to refresh queue depth gauges", zap.Error(err))
				continue
			}
			metrics.QueueDepth.Set(float64(queued))
			metrics.InProgressDepth.Set(float64(inProgress))
		}
	}
}
