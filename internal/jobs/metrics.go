// Package jobmetrics instruments background job runs.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Backup outcomes recorded by RecordBackup.
const (
	BackupWritten = "written"
	BackupSkipped = "skipped"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	backups     *prometheus.CounterVec
	backupBytes prometheus.Gauge
}

var (
	sharedOnce    sync.Once
	sharedMetrics *Metrics
)

// NewMetrics registers the job collectors on registerer. A nil registerer
// shares one set of collectors on the default registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer != nil {
		return register(registerer)
	}
	sharedOnce.Do(func() {
		sharedMetrics = register(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// Tracker times a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	started time.Time
}

// Track starts timing a run of job. It is safe on a nil Metrics.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, started: time.Now()}
}

// End records the run outcome and returns err unchanged.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	m := t.metrics
	outcome := "success"
	if err != nil {
		outcome = "failure"
		m.failures.WithLabelValues(t.job).Inc()
	}
	m.runs.WithLabelValues(t.job, outcome).Inc()
	m.duration.WithLabelValues(t.job).Observe(time.Since(t.started).Seconds())
	return err
}

// RecordBackup counts a backup run by outcome. size is the written document
// length and is ignored for skipped runs.
func (m *Metrics) RecordBackup(outcome string, size int) {
	if m == nil {
		return
	}
	m.backups.WithLabelValues(outcome).Inc()
	if outcome == BackupWritten {
		m.backupBytes.Set(float64(size))
	}
}

func register(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hisab_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hisab_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hisab_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	backups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hisab_backups_total",
		Help: "Scheduled backup runs by outcome.",
	}, []string{"outcome"})
	backupBytes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hisab_backup_last_size_bytes",
		Help: "Size of the most recently written backup document.",
	})
	registerer.MustRegister(runs, failures, duration, backups, backupBytes)
	return &Metrics{runs: runs, failures: failures, duration: duration, backups: backups, backupBytes: backupBytes}
}
