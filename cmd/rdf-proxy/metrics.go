package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vyrodovalexey/rdfproxy/internal/health"
	"github.com/vyrodovalexey/rdfproxy/internal/observability"
)

// createMetricsServer creates the admin HTTP server exposing metrics and
// the health endpoints.
func createMetricsServer(
	port int,
	path string,
	metrics *observability.Metrics,
	healthChecker *health.Checker,
) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	healthChecker.RegisterRoutes(mux)

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// runMetricsServer runs the metrics HTTP server.
func runMetricsServer(server *http.Server, logger observability.Logger) {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server error", observability.Error(err))
	}
}

// startMetricsServerIfEnabled starts the metrics server if enabled.
func startMetricsServerIfEnabled(app *application) {
	m := app.currentConfig().Observability.Metrics
	if m == nil || !m.Enabled {
		return
	}

	app.metricsServer = createMetricsServer(m.Port, m.Path, app.metrics, app.healthChecker)
	app.logger.Info("starting metrics server",
		observability.String("address", app.metricsServer.Addr),
		observability.String("metrics_path", m.Path),
	)
	go runMetricsServer(app.metricsServer, app.logger)
}
