package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "s3file"

// Metrics collect sync statistics in a self-contained Prometheus registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg         *prometheus.Registry
	syncs       *prometheus.CounterVec
	bytes       prometheus.Counter
	steps       *prometheus.HistogramVec
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
}

// NewMetrics creates a Metrics instance with a fresh registry and registers collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "syncs_total",
			Help:      "Total number of syncs, partitioned by result (changed, skipped, failed).",
		}, []string{"result"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "downloaded_bytes_total",
			Help:      "Total number of downloaded bytes.",
		}),
		steps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "step_duration_seconds",
			Help:      "Histogram of sync step durations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "sync_duration_seconds",
			Help:      "Histogram of sync durations.",
			Buckets:   prometheus.DefBuckets,
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful sync.",
		}),
	}
	m.reg.MustRegister(m.syncs, m.bytes, m.steps, m.duration, m.lastSuccess)
	return m
}

// Registry return the internal registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// WriteTextfile write metrics in the text exposition format, for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}

func (m *Metrics) observeSync(res Result, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	switch {
	case err != nil:
		m.syncs.WithLabelValues("failed").Inc()
		return
	case res.Changed:
		m.syncs.WithLabelValues("changed").Inc()
	default:
		m.syncs.WithLabelValues("skipped").Inc()
	}
	m.lastSuccess.SetToCurrentTime()
}

func (m *Metrics) observeStep(name StepName, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(string(name)).Observe(elapsed.Seconds())
}

func (m *Metrics) observeDownload(size int64) {
	if m == nil {
		return
	}
	m.bytes.Add(float64(size))
}
