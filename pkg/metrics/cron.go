// Package metrics owns the Prometheus collectors exported by the binaries.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tradein"

// CronJobMetrics records reconciliation job runs and the rows they touch.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	items    *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron job metrics on the provided registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "cron",
		Name:      "job_duration_seconds",
		Help:      "Duration of cron jobs in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cron",
		Name:      "job_runs_total",
		Help:      "Cron job executions by outcome.",
	}, []string{"job", "outcome"})
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cron",
		Name:      "job_items_total",
		Help:      "Rows handled by sweeps by result.",
	}, []string{"job", "result"})
	reg.MustRegister(duration, runs, items)
	return &CronJobMetrics{
		duration: duration,
		runs:     runs,
		items:    items,
	}
}

// ObserveDuration records the duration for the named job.
func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess counts a run that finished without error.
func (c *CronJobMetrics) IncSuccess(job string) {
	c.incRun(job, "success")
}

// IncFailure counts a run that returned an error.
func (c *CronJobMetrics) IncFailure(job string) {
	c.incRun(job, "failure")
}

// AddItems counts sweep rows by result, for example "applied", "skipped" or "failed".
func (c *CronJobMetrics) AddItems(job, result string, n int) {
	if c == nil || c.items == nil || n <= 0 {
		return
	}
	c.items.WithLabelValues(normalizeLabel(job), normalizeLabel(result)).Add(float64(n))
}

func (c *CronJobMetrics) incRun(job, outcome string) {
	if c == nil || c.runs == nil {
		return
	}
	c.runs.WithLabelValues(normalizeLabel(job), outcome).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
