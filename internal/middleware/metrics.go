package middleware

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type middlewareMetrics struct {
	rateLimitAllowed  prometheus.Counter
	rateLimitRejected prometheus.Counter
	bodyLimitRejected prometheus.Counter
	panicsRecovered   prometheus.Counter
}

var (
	metricsInstance *middlewareMetrics
	metricsOnce     sync.Once
)

func getMiddlewareMetrics() *middlewareMetrics {
	metricsOnce.Do(func() {
		metricsInstance = newMiddlewareMetrics()
	})
	return metricsInstance
}

func newMiddlewareMetrics() *middlewareMetrics {
	return &middlewareMetrics{
		rateLimitAllowed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rdfproxy",
				Subsystem: "middleware",
				Name:      "rate_limit_allowed_total",
				Help:      "Total number of requests allowed by the rate limiter",
			},
		),
		rateLimitRejected: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rdfproxy",
				Subsystem: "middleware",
				Name:      "rate_limit_rejected_total",
				Help:      "Total number of requests rejected by the rate limiter",
			},
		),
		bodyLimitRejected: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rdfproxy",
				Subsystem: "middleware",
				Name:      "body_limit_rejected_total",
				Help:      "Total number of requests rejected due to body size limit",
			},
		),
		panicsRecovered: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rdfproxy",
				Subsystem: "middleware",
				Name:      "panics_recovered_total",
				Help:      "Total number of panics recovered",
			},
		),
	}
}
