package transport

import (
	"time"

	"github.com/sony/gobreaker"

	"github.com/vyrodovalexey/rdfproxy/internal/observability"
)

// minBreakerThreshold keeps a breaker from tripping on a single failure.
const minBreakerThreshold = 1

func newBreaker(name string, threshold int, timeout time.Duration, logger func() observability.Logger) *gobreaker.CircuitBreaker {
	requests := safeIntToUint32(threshold)
	if requests < minBreakerThreshold {
		requests = minBreakerThreshold
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: requests,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= requests && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger().Warn("backend circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			getBreakerMetrics().transitions.WithLabelValues(name, to.String()).Inc()
		},
	})
}

func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}
