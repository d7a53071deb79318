package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors exposed by the API server and
// worker binaries. Registered against a single registry so both
// processes can share the /metrics wiring in SetupOpenTelemetry.
type Metrics struct {
	JobsSubmittedTotal  *prometheus.CounterVec
	JobsClaimedTotal    *prometheus.CounterVec
	JobsCompletedTotal  *prometheus.CounterVec
	JobsFailedTotal     *prometheus.CounterVec
	RecoveredJobsTotal  prometheus.Counter
	ClaimLatencySeconds prometheus.Histogram
	HandlerDuration     *prometheus.HistogramVec
	QueueDepth          prometheus.Gauge
	InProgressDepth     prometheus.Gauge
}

// NewMetrics builds and registers every collector against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsSubmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "async_endpoints_jobs_submitted_total",
			Help: "Jobs accepted via Submit, by job name.",
		}, []string{"job_name"}),
		JobsClaimedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "async_endpoints_jobs_claimed_total",
			Help: "Jobs claimed by a worker, by job name.",
		}, []string{"job_name"}),
		JobsCompletedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "async_endpoints_jobs_completed_total",
			Help: "Jobs that reached Completed, by job name.",
		}, []string{"job_name"}),
		JobsFailedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "async_endpoints_jobs_failed_total",
			Help: "Handler failures finalized via ProcessJobFailure, by job name; covers both a scheduled retry and a terminal Failed, since the processor doesn't see which one resulted.",
		}, []string{"job_name"}),
		RecoveredJobsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "async_endpoints_recovered_jobs_total",
			Help: "Jobs rescued from a stuck InProgress state by the recovery loop.",
		}),
		ClaimLatencySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "async_endpoints_claim_latency_seconds",
			Help:    "Time spent in a single ClaimNextForWorker call.",
			Buckets: prometheus.DefBuckets,
		}),
		HandlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "async_endpoints_handler_duration_seconds",
			Help:    "Time spent inside a job's registered handler, by job name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "async_endpoints_queue_depth",
			Help: "Most recently observed count of Queued/Scheduled jobs.",
		}),
		InProgressDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "async_endpoints_inprogress_depth",
			Help: "Most recently observed count of InProgress jobs.",
		}),
	}

	reg.MustRegister(
		m.JobsSubmittedTotal,
		m.JobsClaimedTotal,
		m.JobsCompletedTotal,
		m.JobsFailedTotal,
		m.RecoveredJobsTotal,
		m.ClaimLatencySeconds,
		m.HandlerDuration,
		m.QueueDepth,
		m.InProgressDepth,
	)

	return m
}
