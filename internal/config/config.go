// Package config loads the engine's envconfig-tagged settings, split
// into one struct per concern the way the teacher's config package
// separates server/database/billing sections.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// WorkerConfig holds spec.md §6's "Worker" settings.
type WorkerConfig struct {
	MaximumConcurrency int           `envconfig:"MAXIMUM_CONCURRENCY" default:"10"`
	PollingIntervalMS  int           `envconfig:"POLLING_INTERVAL_MS"`
	JobPollingIntervalMSAlias int    `envconfig:"JOB_POLLING_INTERVAL_MS" default:"0"`
	JobTimeout          time.Duration `envconfig:"JOB_TIMEOUT" default:"30m"`
	BatchSize           int           `envconfig:"BATCH_SIZE" default:"1"`
	MaximumQueueSize    int           `envconfig:"MAXIMUM_QUEUE_SIZE" default:"100"`
	AllowedJobNames     []string      `envconfig:"ALLOWED_JOB_NAMES"`
}

// ManagerConfig holds spec.md §6's "Manager" settings.
type ManagerConfig struct {
	DefaultMaxRetries           int           `envconfig:"DEFAULT_MAX_RETRIES" default:"3"`
	RetryDelayBaseSeconds       float64       `envconfig:"RETRY_DELAY_BASE_SECONDS" default:"2.0"`
	JobClaimTimeout             time.Duration `envconfig:"JOB_CLAIM_TIMEOUT" default:"5s"`
	MaxConcurrentJobs           int           `envconfig:"MAX_CONCURRENT_JOBS" default:"10"`
	MaxClaimBatchSize           int           `envconfig:"MAX_CLAIM_BATCH_SIZE" default:"1"`
	StaleJobClaimCheckInterval  time.Duration `envconfig:"STALE_JOB_CLAIM_CHECK_INTERVAL" default:"1m"`
}

// RecoveryConfig holds spec.md §6's "Recovery" settings.
type RecoveryConfig struct {
	EnableDistributedJobRecovery bool          `envconfig:"ENABLE_DISTRIBUTED_JOB_RECOVERY" default:"true"`
	JobTimeoutMinutes            int           `envconfig:"JOB_TIMEOUT_MINUTES" default:"30"`
	RecoveryCheckInterval        time.Duration `envconfig:"RECOVERY_CHECK_INTERVAL_SECONDS" default:"60s"`
	MaximumRetries               int           `envconfig:"MAXIMUM_RETRIES" default:"3"`
}

// StoreConfig selects and configures the job store backend.
type StoreConfig struct {
	Backend  string `envconfig:"STORE_BACKEND" default:"memory"` // "memory" or "redis"
	RedisURL string `envconfig:"REDIS_URL"`
}

// Config is the top-level settings object, mirroring the teacher's
// single `config.Config` struct embedding sub-sections.
type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	GoEnv    string `envconfig:"GO_ENV" default:"production"`

	APIKeyHash string `envconfig:"API_KEY_HASH"`

	RateLimitRPS   int `envconfig:"RATE_LIMIT_RPS" default:"10"`
	RateLimitBurst int `envconfig:"RATE_LIMIT_BURST" default:"20"`

	NATSURL string `envconfig:"NATS_URL"`

	Worker   WorkerConfig
	Manager  ManagerConfig
	Recovery RecoveryConfig
	Store    StoreConfig
}

// Load reads Config from the environment. Per the Open Question on
// polling-interval aliasing (spec.md §6, resolved in SPEC_FULL.md §8.3):
// POLLING_INTERVAL_MS is authoritative; JOB_POLLING_INTERVAL_MS is
// copied across only when the canonical field was left at its zero
// value and the alias was explicitly set. With neither set the interval
// defaults to 1000ms.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.Worker.PollingIntervalMS == 0 && cfg.Worker.JobPollingIntervalMSAlias != 0 {
		cfg.Worker.PollingIntervalMS = cfg.Worker.JobPollingIntervalMSAlias
	}
	if cfg.Worker.PollingIntervalMS == 0 {
		cfg.Worker.PollingIntervalMS = 1000
	}
	return &cfg, nil
}
