// Package metrics collects per-item outcomes of a preparation run and writes
// them in the Prometheus text format for a node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels.
const (
	Succeeded = "succeeded"
	Skipped   = "skipped"
	Failed    = "failed"
)

// Observer records stage outcomes. A nil *Observer discards everything.
type Observer struct {
	registry *prometheus.Registry
	items    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	bytes    prometheus.Counter
}

// NewObserver returns an observer backed by its own registry.
func NewObserver() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "annprep_items_total",
			Help: "Items processed per stage and result",
		}, []string{"stage", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "annprep_item_duration_seconds",
			Help:    "Time spent on a single item",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
		}, []string{"stage"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "annprep_downloaded_bytes_total",
			Help: "Bytes received from dataset sources",
		}),
	}
	o.registry.MustRegister(o.items, o.latency, o.bytes)
	return o
}

// Observe records one item of stage with the given result and duration.
func (o *Observer) Observe(stage, result string, d time.Duration) {
	if o == nil {
		return
	}
	o.items.WithLabelValues(stage, result).Inc()
	if result != Skipped {
		o.latency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// AddBytes counts downloaded bytes.
func (o *Observer) AddBytes(n int64) {
	if o == nil || n <= 0 {
		return
	}
	o.bytes.Add(float64(n))
}

// Count returns the current value of the item counter for stage and result.
func (o *Observer) Count(stage, result string) float64 {
	if o == nil {
		return 0
	}
	families, err := o.registry.Gather()
	if err != nil {
		return 0
	}
	for _, mf := range families {
		if mf.GetName() != "annprep_items_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			var s, r string
			for _, lp := range m.GetLabel() {
				switch lp.GetName() {
				case "stage":
					s = lp.GetValue()
				case "result":
					r = lp.GetValue()
				}
			}
			if s == stage && r == result {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

// WriteTextfile writes all collected metrics to path.
func (o *Observer) WriteTextfile(path string) error {
	if o == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, o.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
