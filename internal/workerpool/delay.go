// Package workerpool implements the producer/consumer/recovery loops
// spec.md §4.8–§4.12 describes. Grounded on the teacher's
// internal/worker/{worker,pool,enhanced_worker}.go, which split the
// same idea into a simple fixed-goroutine-pool worker and a separate
// "enhanced" batched-NATS variant; here the two are unified behind one
// contract (SPEC_FULL.md §6 — that duplication was organic accretion in
// the teacher, not a pattern worth reproducing).
package workerpool

import "time"

// Outcome is the result of one claim-and-enqueue attempt (spec.md §4.8).
type Outcome int

const (
	JobSuccessfullyEnqueued Outcome = iota
	NoJobFound
	FailedToEnqueue
	ErrorOccurred
)

func (o Outcome) String() string {
	switch o {
	case JobSuccessfullyEnqueued:
		return "JobSuccessfullyEnqueued"
	case NoJobFound:
		return "NoJobFound"
	case FailedToEnqueue:
		return "FailedToEnqueue"
	case ErrorOccurred:
		return "ErrorOccurred"
	default:
		return "Unknown"
	}
}

// maxDelay is the fixed ceiling on NoJobFound backoff (spec.md §4.8).
const maxDelay = 30 * time.Second

// DelayConfig tunes DelayCalculator.
type DelayConfig struct {
	PollingInterval  time.Duration
	ErrorDelay       time.Duration
}

// DelayCalculator maps a claim-enqueue outcome to the producer's next
// sleep duration (spec.md §4.8).
type DelayCalculator struct {
	cfg DelayConfig
}

// NewDelayCalculator builds a DelayCalculator from cfg, applying the
// teacher's idiom of sane defaults when a duration is left zero.
func NewDelayCalculator(cfg DelayConfig) *DelayCalculator {
	if cfg.PollingInterval <= 0 {
		cfg.PollingInterval = time.Second
	}
	if cfg.ErrorDelay <= 0 {
		cfg.ErrorDelay = 5 * time.Second
	}
	return &DelayCalculator{cfg: cfg}
}

// Delay returns the sleep duration for the given outcome.
func (d *DelayCalculator) Delay(outcome Outcome) time.Duration {
	switch outcome {
	case JobSuccessfullyEnqueued:
		return d.cfg.PollingInterval
	case NoJobFound:
		delay := d.cfg.PollingInterval * 3
		if delay > maxDelay {
			delay = maxDelay
		}
		return delay
	case FailedToEnqueue:
		return d.cfg.PollingInterval * 2
	case ErrorOccurred:
		return d.cfg.ErrorDelay
	default:
		return d.cfg.PollingInterval
	}
}
