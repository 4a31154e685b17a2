// Package metrics builds the go-kit instruments of the client, backed by
// prometheus.
package metrics

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/pkg/errors"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the instruments fed by the middleware.
type Metrics struct {
	// Calls counts every dispatched method by name, batch items included.
	Calls metrics.Counter
	// Requests and Duration count round trips by method and error kind.
	Requests metrics.Counter
	Duration metrics.Histogram
}

// New registers the instruments with reg under namespace.
func New(namespace string, reg stdprometheus.Registerer) (*Metrics, error) {
	calls := stdprometheus.NewCounterVec(stdprometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total methods called, by JSON-RPC method.",
	}, []string{"method"})
	requests := stdprometheus.NewCounterVec(stdprometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "requests_total",
		Help:      "Total round trips, by JSON-RPC method and error kind.",
	}, []string{"method", "error"})
	duration := stdprometheus.NewHistogramVec(stdprometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "request_duration_seconds",
		Help:      "Round trip duration in seconds.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"method", "error"})

	for _, c := range []stdprometheus.Collector{calls, requests, duration} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "metrics: register")
		}
	}

	return &Metrics{
		Calls:    kitprometheus.NewCounter(calls),
		Requests: kitprometheus.NewCounter(requests),
		Duration: kitprometheus.NewHistogram(duration),
	}, nil
}

// Discard returns instruments that record nothing.
func Discard() *Metrics {
	return &Metrics{
		Calls:    discard.NewCounter(),
		Requests: discard.NewCounter(),
		Duration: discard.NewHistogram(),
	}
}
