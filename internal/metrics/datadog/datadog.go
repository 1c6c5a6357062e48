// Package datadog sends pipeline metrics to a DogStatsD agent.
//
// Metric names from package metrics are rewritten to Datadog's dotted style
// ("fareetl_rows_total" becomes "fareetl.rows") and labels become sorted
// "key:value" tags. Counters map to Count and stage durations to
// Distribution, so percentiles are computed by the agent.
package datadog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/DataDog/datadog-go/v5/statsd"

	"fareetl/internal/metrics"
)

// Config configures the DogStatsD client.
type Config struct {
	// Addr is the agent address, "host:port" or "unix:///path/to/socket".
	Addr string

	// Namespace prefixes every metric name, e.g. "cola.".
	Namespace string

	// Job is attached to every metric as the "job" tag.
	Job string

	// Tags are extra tags for every metric, e.g. "env:prod".
	Tags []string
}

// Backend implements metrics.Backend. A zero Backend drops everything.
type Backend struct {
	client statsd.ClientInterface
}

func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: agent address is required")
	}

	tags := append([]string(nil), cfg.Tags...)
	if cfg.Job != "" {
		tags = append(tags, "job:"+cfg.Job)
	}
	opts := []statsd.Option{statsd.WithTags(tags)}
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}

	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}
	return &Backend{client: c}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	// Row deltas are whole numbers.
	_ = b.client.Count(metricName(name), int64(delta), labelsToTags(labels), 1)
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Distribution(metricName(name), value, labelsToTags(labels), 1)
}

// Flush closes the client, sending anything still buffered. The backend is
// flushed once, at exit.
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// metricName turns "fareetl_rows_total" into "fareetl.rows".
func metricName(name string) string {
	return strings.Replace(strings.TrimSuffix(name, "_total"), "_", ".", 1)
}

// labelsToTags converts labels into sorted "key:value" tags. The job label
// is dropped when empty.
func labelsToTags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	out := make([]string, 0, len(lbls))
	for k, v := range lbls {
		if k == "job" && v == "" {
			continue
		}
		out = append(out, k+":"+v)
	}
	sort.Strings(out)
	return out
}
