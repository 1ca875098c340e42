// Package datadog sends fareqa metrics to a DogStatsD agent. Labels become
// "key:value" tags.
package datadog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/DataDog/datadog-go/v5/statsd"

	"fareqa/internal/metrics"
)

// Config addresses the agent.
type Config struct {
	// Addr is "host:port" or "unix:///path/to/dsd.socket".
	Addr string

	// Namespace prefixes every metric name, e.g. "qa.".
	Namespace string

	// GlobalTags are added to every metric, e.g. "job:fareqa".
	GlobalTags []string
}

// Backend implements metrics.Backend. A zero Backend drops everything.
type Backend struct {
	client *statsd.Client
}

var _ metrics.Backend = (*Backend)(nil)

// NewBackend dials the agent described by cfg. Addr is required.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, errors.New("datadog: Addr is required")
	}
	opts := []statsd.Option{}
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	if len(cfg.GlobalTags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.GlobalTags))
	}
	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}
	return &Backend{client: c}, nil
}

// IncCounter sends a Count. DogStatsD counts are integers, so a fractional
// delta is truncated.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client != nil {
		_ = b.client.Count(name, int64(delta), tags(labels), 1)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client != nil {
		_ = b.client.Histogram(name, value, tags(labels), 1)
	}
}

func (b *Backend) SetGauge(name string, value float64, labels metrics.Labels) {
	if b.client != nil {
		_ = b.client.Gauge(name, value, tags(labels), 1)
	}
}

// Flush sends whatever the client has buffered.
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	return b.client.Flush()
}

// Close flushes and releases the client. Call it once at shutdown.
func (b *Backend) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// tags renders labels as sorted "key:value" strings.
func tags(l metrics.Labels) []string {
	if len(l) == 0 {
		return nil
	}
	out := make([]string, 0, len(l))
	for k, v := range l {
		out = append(out, k+":"+v)
	}
	sort.Strings(out)
	return out
}
