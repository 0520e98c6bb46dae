package health

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HealthMetrics holds Prometheus metrics for health checks.
type HealthMetrics struct {
	checksTotal *prometheus.CounterVec
	checkStatus *prometheus.GaugeVec
}

var (
	healthMetricsInstance *HealthMetrics
	healthMetricsOnce     sync.Once
)

// GetHealthMetrics returns the singleton health metrics instance.
func GetHealthMetrics() *HealthMetrics {
	healthMetricsOnce.Do(func() {
		healthMetricsInstance = &HealthMetrics{
			checksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "rdfproxy",
					Subsystem: "health",
					Name:      "checks_total",
					Help:      "Total number of health check requests served",
				},
				[]string{"type"},
			),
			checkStatus: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "rdfproxy",
					Subsystem: "health",
					Name:      "check_status",
					Help:      "Last readiness check result (1=passing, 0=failing)",
				},
				[]string{"check"},
			),
		}
	})
	return healthMetricsInstance
}

// Init creates the common series so they are exported before the first
// request arrives. Calling it again is harmless.
func (m *HealthMetrics) Init() {
	for _, checkType := range []string{"liveness", "readiness"} {
		m.checksTotal.WithLabelValues(checkType)
	}
	m.checkStatus.WithLabelValues("overall")
}

func (m *HealthMetrics) setCheckStatus(check string, passing bool) {
	value := 0.0
	if passing {
		value = 1.0
	}
	m.checkStatus.WithLabelValues(check).Set(value)
}
