// Package metrics counts workflow outcomes and writes them in the Prometheus
// text format for a node-exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the counters for one process invocation. A nil *Recorder
// is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	healthChecksTotal *prometheus.CounterVec
	diagnosticsTotal  *prometheus.CounterVec
	migratedTotal     prometheus.Counter
	importedTotal     prometheus.Counter
	regeneratedTotal  prometheus.Counter
	preuploadTotal    *prometheus.CounterVec
	stageDuration     prometheus.Histogram
	lastRunTimestamp  prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		healthChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crate_health_checks_total",
				Help: "Number of migration health checks by verdict.",
			},
			[]string{"verdict"},
		),
		diagnosticsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crate_health_diagnostics_total",
				Help: "Number of diagnostics reported by code.",
			},
			[]string{"code"},
		),
		migratedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crate_health_migrated_crates_total",
				Help: "Total number of crates moved into the managed repo.",
			},
		),
		importedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crate_health_imported_crates_total",
				Help: "Total number of crates imported from the registry.",
			},
		),
		regeneratedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crate_health_regenerated_crates_total",
				Help: "Total number of managed crates regenerated.",
			},
		),
		preuploadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crate_health_preupload_checks_total",
				Help: "Number of preupload checks by result.",
			},
			[]string{"result"},
		),
		stageDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crate_health_stage_duration_seconds",
				Help:    "Time taken to stage a crate, including generator runs.",
				Buckets: prometheus.DefBuckets,
			},
		),
		lastRunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "crate_health_last_run_timestamp_seconds",
				Help: "Unix time the metrics were last written.",
			},
		),
	}
	r.registry.MustRegister(
		r.healthChecksTotal,
		r.diagnosticsTotal,
		r.migratedTotal,
		r.importedTotal,
		r.regeneratedTotal,
		r.preuploadTotal,
		r.stageDuration,
		r.lastRunTimestamp,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) ObserveHealth(verdict string) {
	if r == nil {
		return
	}
	r.healthChecksTotal.WithLabelValues(verdict).Inc()
}

func (r *Recorder) ObserveDiagnostic(code string) {
	if r == nil {
		return
	}
	r.diagnosticsTotal.WithLabelValues(code).Inc()
}

func (r *Recorder) AddMigrated(n int) {
	if r == nil {
		return
	}
	r.migratedTotal.Add(float64(n))
}

func (r *Recorder) AddImported(n int) {
	if r == nil {
		return
	}
	r.importedTotal.Add(float64(n))
}

func (r *Recorder) AddRegenerated(n int) {
	if r == nil {
		return
	}
	r.regeneratedTotal.Add(float64(n))
}

func (r *Recorder) ObservePreupload(ok bool) {
	if r == nil {
		return
	}
	result := "pass"
	if !ok {
		result = "fail"
	}
	r.preuploadTotal.WithLabelValues(result).Inc()
}

func (r *Recorder) ObserveStage(d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.Observe(d.Seconds())
}

// WriteTextfile atomically writes all metrics to path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	r.lastRunTimestamp.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
