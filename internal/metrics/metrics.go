// Package metrics records operational metrics for validation runs behind a
// small backend interface.
//
// A no-op backend is installed by default, so every Record* call is safe
// even when no metrics system is configured. Concrete systems live in the
// prompush (Prometheus Pushgateway) and datadog (DogStatsD) subpackages.
package metrics

import "time"

// Metric names shared by all backends.
const (
	StepTotal    = "fareqa_step_total"
	StepDuration = "fareqa_step_duration_seconds"
	RowsTotal    = "fareqa_rows_total"
	QualityScore = "fareqa_quality_score"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// SetGauge sets a point-in-time value.
	SetGauge(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) SetGauge(name string, value float64, labels Labels)         {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a run step (load, validate, report)
// and observes its duration, labelled with success or failure.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow adds delta to the row counter of the given kind, e.g.:
//   - "loaded"
//   - "rejected"
//   - "duplicates"
//   - "failure_cases"
//   - "warnings"
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordScore publishes a data quality percentage (completeness,
// uniqueness, overall).
func RecordScore(job, name string, value float64) {
	backend.SetGauge(QualityScore, value, Labels{
		"job":  job,
		"name": name,
	})
}
