package transport

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type breakerMetrics struct {
	transitions *prometheus.CounterVec
}

var (
	breakerMetricsInstance *breakerMetrics
	breakerMetricsOnce     sync.Once
)

func getBreakerMetrics() *breakerMetrics {
	breakerMetricsOnce.Do(func() {
		breakerMetricsInstance = &breakerMetrics{
			transitions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "rdfproxy",
					Subsystem: "transport",
					Name:      "circuit_breaker_transitions_total",
					Help:      "Total number of backend circuit breaker state transitions",
				},
				[]string{"name", "to"},
			),
		}
	})
	return breakerMetricsInstance
}
