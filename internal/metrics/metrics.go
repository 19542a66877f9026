// Package metrics exposes driver activity as Prometheus metrics.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jbweber/lvnode/internal/driver"
)

const namespace = "lvnode"

// Result label values.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Recorder counts driver calls. It implements driver.Recorder.
type Recorder struct {
	operations   *prometheus.CounterVec
	listDuration prometheus.Histogram
	listedNodes  prometheus.Gauge
}

var _ driver.Recorder = (*Recorder)(nil)

// NewRecorder creates the lvnode collectors and registers them on reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_operations_total",
			Help:      "Driver calls by operation and result.",
		}, []string{"operation", "result"}),
		listDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "list_nodes_duration_seconds",
			Help:      "Time taken to list all nodes.",
			Buckets:   prometheus.DefBuckets,
		}),
		listedNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes",
			Help:      "Number of nodes returned by the last successful listing.",
		}),
	}

	for _, c := range []prometheus.Collector{r.operations, r.listDuration, r.listedNodes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	// Every operation/result series exists from the start.
	for _, op := range append([]driver.Operation{driver.OpList}, driver.Operations...) {
		for _, res := range []string{ResultSuccess, ResultRejected, ResultError} {
			r.operations.WithLabelValues(string(op), res)
		}
	}

	return r, nil
}

// Record implements driver.Recorder.
func (r *Recorder) Record(_ context.Context, ev driver.Event) {
	r.operations.WithLabelValues(string(ev.Operation), Result(ev)).Inc()

	if ev.Operation == driver.OpList {
		r.listDuration.Observe(ev.Duration.Seconds())
		if ev.Err == nil {
			r.listedNodes.Set(float64(ev.Count))
		}
	}
}

// Result classifies an event for the result label.
func Result(ev driver.Event) string {
	switch {
	case ev.Err != nil:
		return ResultError
	case ev.Operation == driver.OpList || ev.Success:
		return ResultSuccess
	default:
		return ResultRejected
	}
}
