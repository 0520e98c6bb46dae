package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/rdfproxy/internal/config"
	"github.com/vyrodovalexey/rdfproxy/internal/observability"
)

// Reload results.
const (
	reloadSuccess = "success"
	reloadError   = "error"
)

// reloadMetrics holds Prometheus metrics for configuration reloads. The
// collectors live in the application's registry.
type reloadMetrics struct {
	configReloadTotal       *prometheus.CounterVec
	configReloadDuration    prometheus.Histogram
	configReloadLastSuccess prometheus.Gauge
	configWatcherStatus     prometheus.Gauge
}

// newReloadMetrics creates reload metrics and registers them with m.
func newReloadMetrics(m *observability.Metrics) *reloadMetrics {
	rm := &reloadMetrics{
		configReloadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rdfproxy",
				Name:      "config_reload_total",
				Help:      "Total number of configuration reloads",
			},
			[]string{"result"},
		),
		configReloadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "rdfproxy",
				Name:      "config_reload_duration_seconds",
				Help:      "Duration of configuration reload operations",
				Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1},
			},
		),
		configReloadLastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "rdfproxy",
				Name:      "config_reload_last_success_timestamp",
				Help:      "Timestamp of last successful config reload",
			},
		),
		configWatcherStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "rdfproxy",
				Name:      "config_watcher_running",
				Help:      "Whether the config file watcher is running (1=running, 0=stopped)",
			},
		),
	}

	m.MustRegisterCollector(rm.configReloadTotal)
	m.MustRegisterCollector(rm.configReloadDuration)
	m.MustRegisterCollector(rm.configReloadLastSuccess)
	m.MustRegisterCollector(rm.configWatcherStatus)

	return rm
}

// startConfigWatcher watches configPath and applies every valid change.
// It returns nil when watching is not possible; the proxy then keeps its
// startup configuration.
func startConfigWatcher(ctx context.Context, app *application, configPath string) *config.Watcher {
	rm := app.reloadMetrics

	watcher, err := config.NewWatcher(configPath,
		func(newCfg *config.Config) {
			app.logger.Info("configuration changed, reloading")
			_ = app.reload(newCfg)
		},
		config.WithLogger(app.logger),
		config.WithErrorFunc(func(err error) {
			rm.configReloadTotal.WithLabelValues(reloadError).Inc()
			app.logger.Error("invalid configuration, keeping the previous one", observability.Error(err))
		}),
	)
	if err != nil {
		app.logger.Warn("failed to create config watcher", observability.Error(err))
		rm.configWatcherStatus.Set(0)
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		app.logger.Warn("failed to start config watcher", observability.Error(err))
		rm.configWatcherStatus.Set(0)
		_ = watcher.Stop()
		return nil
	}

	rm.configWatcherStatus.Set(1)
	app.logger.Info("watching configuration file", observability.String("path", configPath))
	return watcher
}

// reload rebuilds every mount from newCfg and swaps the served handler.
// Requests in flight finish on the handler they started with. Settings
// bound at startup (listen address, timeouts, metrics server, tracing,
// logging) need a restart and are reported when they change.
func (app *application) reload(newCfg *config.Config) error {
	start := time.Now()
	rm := app.reloadMetrics

	set, err := app.buildHandler(newCfg)
	if err != nil {
		rm.configReloadTotal.WithLabelValues(reloadError).Inc()
		app.logger.Error("failed to reload configuration", observability.Error(err))
		return err
	}

	app.mu.Lock()
	oldCfg := app.config
	oldLimiter := app.rateLimiter
	app.config = newCfg
	app.rateLimiter = set.rateLimiter
	app.server.SetHandler(set.handler)
	app.mu.Unlock()

	if oldLimiter != nil {
		oldLimiter.Stop()
	}
	app.healthChecker.ReplaceChecks(set.checks)

	warnRestartRequired(app.logger, oldCfg, newCfg)

	duration := time.Since(start)
	rm.configReloadTotal.WithLabelValues(reloadSuccess).Inc()
	rm.configReloadDuration.Observe(duration.Seconds())
	rm.configReloadLastSuccess.SetToCurrentTime()

	app.logger.Info("configuration reloaded",
		observability.Int("mounts", set.mounts),
		observability.Duration("duration", duration),
	)
	return nil
}

// warnRestartRequired logs settings that a reload cannot apply.
func warnRestartRequired(logger observability.Logger, oldCfg, newCfg *config.Config) {
	if oldCfg.Server.Address != newCfg.Server.Address ||
		oldCfg.Server.ReadTimeout != newCfg.Server.ReadTimeout ||
		oldCfg.Server.WriteTimeout != newCfg.Server.WriteTimeout ||
		oldCfg.Server.IdleTimeout != newCfg.Server.IdleTimeout {
		logger.Warn("server listener settings changed; restart to apply them")
	}

	oldObs, newObs := oldCfg.Observability, newCfg.Observability
	if !equalPtr(oldObs.Metrics, newObs.Metrics) ||
		!equalPtr(oldObs.Tracing, newObs.Tracing) ||
		!equalPtr(oldObs.Logging, newObs.Logging) {
		logger.Warn("observability settings changed; restart to apply them")
	}
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
