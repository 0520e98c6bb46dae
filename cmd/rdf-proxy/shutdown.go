package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"

	"github.com/vyrodovalexey/rdfproxy/internal/config"
	"github.com/vyrodovalexey/rdfproxy/internal/observability"
)

// run serves until a shutdown signal arrives or the server fails, then
// shuts everything down. An empty configPath disables config watching.
func run(app *application, configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, app, configPath)
}

// serve is run without the signal handling.
func serve(ctx context.Context, app *application, configPath string) error {
	if err := app.server.Listen(); err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.server.Start()
	}()

	startMetricsServerIfEnabled(app)

	var watcher *config.Watcher
	if configPath != "" {
		watcher = startConfigWatcher(ctx, app, configPath)
	}

	var result error
	select {
	case <-ctx.Done():
		app.logger.Info("received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			result = multierror.Append(result, err)
		}
		serverErr = nil
	}

	if err := shutdown(app, watcher, serverErr); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}

// shutdown stops every component. serverErr, when non-nil, receives the
// result of the public server's Start.
func shutdown(app *application, watcher *config.Watcher, serverErr <-chan error) error {
	timeout := app.currentConfig().Server.ShutdownTimeout.Duration()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var result *multierror.Error

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			result = multierror.Append(result, fmt.Errorf("stop config watcher: %w", err))
		}
		app.reloadMetrics.configWatcherStatus.Set(0)
	}

	app.healthChecker.SetDraining(true)

	if err := app.server.Stop(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if serverErr != nil {
		if err := <-serverErr; err != nil {
			result = multierror.Append(result, err)
		}
	}

	if app.metricsServer != nil {
		app.logger.Info("stopping metrics server")
		if err := app.metricsServer.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("stop metrics server: %w", err))
		}
	}

	app.mu.Lock()
	limiter := app.rateLimiter
	app.mu.Unlock()
	if limiter != nil {
		limiter.Stop()
	}

	if err := app.tracer.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("shutdown tracer: %w", err))
	}

	if err := result.ErrorOrNil(); err != nil {
		app.logger.Error("shutdown completed with errors", observability.Error(err))
		return err
	}

	app.logger.Info("rdf-proxy stopped")
	return nil
}

