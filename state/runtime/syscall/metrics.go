package syscall

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"

	prometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// Metrics represents the syscall metrics
type Metrics struct {
	// Syscalls counts dispatched syscalls, labelled by syscall name
	Syscalls metrics.Counter
	// Failures counts failure responses, labelled by failure code
	Failures metrics.Counter
	// KeccakRounds counts keccak permutations
	KeccakRounds metrics.Counter
}

// GetPrometheusMetrics return the syscall metrics instance
func GetPrometheusMetrics(namespace string, labelsWithValues ...string) *Metrics {
	labels := []string{}

	for i := 0; i < len(labelsWithValues); i += 2 {
		labels = append(labels, labelsWithValues[i])
	}

	return &Metrics{
		Syscalls: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "syscall",
			Name:      "dispatched",
			Help:      "dispatched syscall count",
		}, withLabel(labels, "syscall")).With(labelsWithValues...),
		Failures: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "syscall",
			Name:      "failures",
			Help:      "syscall failure response count",
		}, withLabel(labels, "code")).With(labelsWithValues...),
		KeccakRounds: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "syscall",
			Name:      "keccak_rounds",
			Help:      "keccak permutation count",
		}, labels).With(labelsWithValues...),
	}
}

func withLabel(labels []string, name string) []string {
	out := make([]string, 0, len(labels)+1)

	return append(append(out, labels...), name)
}

// NilMetrics will return the non operational syscall metrics
func NilMetrics() *Metrics {
	return &Metrics{
		Syscalls:     discard.NewCounter(),
		Failures:     discard.NewCounter(),
		KeccakRounds: discard.NewCounter(),
	}
}

// NewDummyMetrics will return the no nil syscall metrics
func NewDummyMetrics(metrics *Metrics) *Metrics {
	if metrics != nil {
		return metrics
	}

	return NilMetrics()
}
