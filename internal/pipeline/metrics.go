package pipeline

import (
	"fmt"
	"log"
	"time"

	"fareqa/internal/config"
	"fareqa/internal/dataset"
	"fareqa/internal/metrics"
	"fareqa/internal/metrics/datadog"
	"fareqa/internal/metrics/prompush"
	"fareqa/internal/quality"
	"fareqa/internal/validation"
)

const defaultDogStatsD = "127.0.0.1:8125"

// SetupMetrics installs the backend named by m and returns a function that
// flushes it. The returned function is never nil.
func SetupMetrics(m config.Metrics) (func(), error) {
	nop := func() {}
	switch m.Backend {
	case "", "none":
		return nop, nil

	case "pushgateway":
		b, err := prompush.NewBackend(m.Job, m.PushgatewayURL)
		if err != nil {
			return nop, err
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", m.PushgatewayURL, m.Backend, m.Job)
		metrics.SetBackend(b)
		return func() {
			if err := metrics.Flush(); err != nil {
				log.Printf("metrics: flush error: %v", err)
			}
		}, nil

	case "datadog":
		addr := m.DatadogAddr
		if addr == "" {
			addr = defaultDogStatsD
		}
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			GlobalTags: []string{"job:" + m.Job},
		})
		if err != nil {
			return nop, err
		}
		log.Printf("metrics: addr=%v, backend=%v", addr, m.Backend)
		metrics.SetBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				log.Printf("metrics: close error: %v", err)
			}
		}, nil

	default:
		return nop, fmt.Errorf("metrics: unknown backend %q", m.Backend)
	}
}

func recordStep(job, step string, err error, d time.Duration) {
	metrics.RecordStep(job, step, err, d)
}

func recordResult(job string, snap *dataset.Snapshot, res validation.Result, q quality.Score) {
	metrics.RecordRow(job, "loaded", int64(snap.Nrow()))
	metrics.RecordRow(job, "rejected", int64(len(snap.Rejected())))
	metrics.RecordRow(job, "duplicates", int64(res.Stats.DuplicateRows))
	metrics.RecordRow(job, "failure_cases", int64(len(res.Errors)))
	metrics.RecordRow(job, "warnings", int64(len(res.Warnings)))
	metrics.RecordScore(job, "completeness", q.Completeness)
	metrics.RecordScore(job, "uniqueness", q.Uniqueness)
	metrics.RecordScore(job, "overall", q.Overall)
}
