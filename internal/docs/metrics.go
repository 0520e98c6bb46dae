package docs

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type docsMetrics struct {
	requestsTotal *prometheus.CounterVec
}

var (
	docsMetricsInstance *docsMetrics
	docsMetricsOnce     sync.Once
)

func initDocsMetrics() {
	docsMetricsOnce.Do(func() {
		docsMetricsInstance = &docsMetrics{
			requestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "rdfproxy",
					Subsystem: "documents",
					Name:      "requests_total",
					Help:      "Total number of document requests by status class",
				},
				[]string{"mount", "status"},
			),
		}
	})
}

func getDocsMetrics() *docsMetrics {
	initDocsMetrics()
	return docsMetricsInstance
}

// statusClass returns "2xx", "4xx" and so on.
func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
