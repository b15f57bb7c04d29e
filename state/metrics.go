package state

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"

	prometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// Metrics represents the state metrics
type Metrics struct {
	ClassLruCacheHit   metrics.Counter
	ClassLruCacheMiss  metrics.Counter
	ClassLruCacheRead  metrics.Counter
	ClassLruCacheWrite metrics.Counter

	// Calls counts executed entry points by outcome
	Calls metrics.Counter
	// Reverts counts state snapshots rolled back
	Reverts metrics.Counter
}

// GetPrometheusMetrics return the state metrics instance
func GetPrometheusMetrics(namespace string, labelsWithValues ...string) *Metrics {
	labels := []string{}

	for i := 0; i < len(labelsWithValues); i += 2 {
		labels = append(labels, labelsWithValues[i])
	}

	return &Metrics{
		ClassLruCacheHit: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "class_lrucache_hit",
			Help:      "compiled class cache hit count",
		}, labels).With(labelsWithValues...),
		ClassLruCacheMiss: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "class_lrucache_miss",
			Help:      "compiled class cache miss count",
		}, labels).With(labelsWithValues...),
		ClassLruCacheRead: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "class_lrucache_read",
			Help:      "compiled class cache read count",
		}, labels).With(labelsWithValues...),
		ClassLruCacheWrite: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "class_lrucache_write",
			Help:      "compiled class cache write count",
		}, labels).With(labelsWithValues...),
		Calls: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "calls",
			Help:      "executed entry points",
		}, append(append([]string{}, labels...), "outcome")).With(labelsWithValues...),
		Reverts: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "reverts",
			Help:      "state snapshots reverted",
		}, labels).With(labelsWithValues...),
	}
}

// NilMetrics will return the non operational state metrics
func NilMetrics() *Metrics {
	return &Metrics{
		ClassLruCacheHit:   discard.NewCounter(),
		ClassLruCacheMiss:  discard.NewCounter(),
		ClassLruCacheRead:  discard.NewCounter(),
		ClassLruCacheWrite: discard.NewCounter(),

		Calls:   discard.NewCounter(),
		Reverts: discard.NewCounter(),
	}
}

// NewDummyMetrics will return the no nil state metrics
func NewDummyMetrics(metrics *Metrics) *Metrics {
	if metrics != nil {
		return metrics
	}

	return NilMetrics()
}
