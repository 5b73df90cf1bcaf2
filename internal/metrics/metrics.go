// Package metrics declares the Prometheus metric families from
// spec.md §4.10, following the registration style of mini-50's
// middleware (which referenced a metrics.Metrics it never defined) and
// the client_golang usage in the wider retrieval pack.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every metric family the service exposes. It is created
// once at startup and threaded through the router and worker pool —
// never accessed through a package-level global.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	HTTPActive        prometheus.Gauge
	JobsRunning       prometheus.Gauge
	JobsSubmitted     prometheus.Counter
	JobsCompleted     *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	JobDuration       *prometheus.HistogramVec
	QueueDepth        prometheus.Gauge
	WorkersBusy       prometheus.Gauge
}

// New registers every metric against reg and returns the handle bundle.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Total HTTP requests by route and status.",
		}, []string{"route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "HTTP request wall-clock duration by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		HTTPActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_active",
			Help: "In-flight HTTP requests.",
		}),
		JobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobs_running",
			Help: "Jobs currently in the running state.",
		}),
		JobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobs_submitted_total",
			Help: "Total jobs accepted via POST /jobs.",
		}),
		JobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_completed_total",
			Help: "Total jobs reaching a terminal state, by result.",
		}, []string{"result"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "run_duration_seconds",
			Help:    "Engine invocation duration by mode, distribution and type.",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode", "dist", "type"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "End-to-end async job duration by result.",
			Buckets: prometheus.DefBuckets,
		}, []string{"result"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Pending jobs awaiting a worker lease (durable mode).",
		}),
		WorkersBusy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "workers_busy",
			Help: "Workers currently leased to a job (durable mode).",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal, m.RequestDuration, m.HTTPActive,
		m.JobsRunning, m.JobsSubmitted, m.JobsCompleted,
		m.RunDuration, m.JobDuration, m.QueueDepth, m.WorkersBusy,
	)

	return m
}
