package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/vyrodovalexey/rdfproxy/internal/config"
	"github.com/vyrodovalexey/rdfproxy/internal/docs"
	"github.com/vyrodovalexey/rdfproxy/internal/formats"
	"github.com/vyrodovalexey/rdfproxy/internal/health"
	"github.com/vyrodovalexey/rdfproxy/internal/middleware"
	"github.com/vyrodovalexey/rdfproxy/internal/observability"
	"github.com/vyrodovalexey/rdfproxy/internal/proxy"
	"github.com/vyrodovalexey/rdfproxy/internal/server"
	"github.com/vyrodovalexey/rdfproxy/internal/transport"
)

// application holds all application components.
type application struct {
	server        *server.Server
	metricsServer *http.Server
	healthChecker *health.Checker
	metrics       *observability.Metrics
	reloadMetrics *reloadMetrics
	tracer        *observability.Tracer
	formats       *formats.Registry
	logger        observability.Logger

	mu          sync.Mutex
	config      *config.Config
	rateLimiter *middleware.RateLimiter
}

// handlerSet is everything built from one configuration generation.
type handlerSet struct {
	handler     http.Handler
	rateLimiter *middleware.RateLimiter
	checks      map[string]health.CheckFunc
	mounts      int
}

// initApplication initializes all application components.
func initApplication(cfg *config.Config, logger observability.Logger) (*application, error) {
	metrics := observability.NewMetrics("rdfproxy")
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	tracer, err := initTracer(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize tracer: %w", err)
	}

	app := &application{
		healthChecker: health.NewChecker(version, logger),
		metrics:       metrics,
		reloadMetrics: newReloadMetrics(metrics),
		tracer:        tracer,
		formats:       formats.Default(),
		logger:        logger,
		config:        cfg,
	}

	set, err := app.buildHandler(cfg)
	if err != nil {
		return nil, err
	}
	app.rateLimiter = set.rateLimiter
	app.healthChecker.ReplaceChecks(set.checks)

	app.server = server.New(server.Config{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  cfg.Server.IdleTimeout.Duration(),
	}, set.handler, logger)

	return app, nil
}

// initTracer initializes the tracer.
func initTracer(cfg *config.Config) (*observability.Tracer, error) {
	tracerCfg := observability.TracerConfig{
		ServiceName:  config.DefaultServiceName,
		SamplingRate: 1.0,
	}

	if t := cfg.Observability.Tracing; t != nil {
		tracerCfg.Enabled = t.Enabled
		tracerCfg.SamplingRate = t.SamplingRate
		tracerCfg.OTLPEndpoint = t.OTLPEndpoint
		if t.ServiceName != "" {
			tracerCfg.ServiceName = t.ServiceName
		}
	}

	return observability.NewTracer(context.Background(), tracerCfg)
}

// buildHandler builds the routed and wrapped handler for cfg together
// with the readiness checks of its mounts.
func (app *application) buildHandler(cfg *config.Config) (*handlerSet, error) {
	routes := make([]server.Route, 0, len(cfg.Proxies)+len(cfg.Documents))
	checks := make(map[string]health.CheckFunc, len(cfg.Proxies)+len(cfg.Documents))

	for i := range cfg.Proxies {
		pc := &cfg.Proxies[i]
		p, err := app.newProxy(pc, &cfg.Transport, cfg.Server.MaxRequestBodySize)
		if err != nil {
			return nil, fmt.Errorf("proxy %s: %w", pc.Name, err)
		}
		routes = append(routes, server.Route{Name: pc.Name, Pathname: pc.Pathname, Handler: p})
		checks["endpoint:"+pc.Name] = app.endpointCheck(pc.Name, p.Endpoint())
	}

	for i := range cfg.Documents {
		dc := &cfg.Documents[i]
		routes = append(routes, server.Route{Name: dc.Name, Pathname: dc.Pathname, Handler: app.newDocuments(dc)})
		checks["documents:"+dc.Name] = health.DirectoryCheck(dc.Dir)
	}

	router, err := server.NewRouter(routes, app.logger)
	if err != nil {
		return nil, err
	}

	chain := buildMiddlewareChain(router, cfg, app.logger, app.metrics, app.tracer)

	return &handlerSet{
		handler:     chain.handler,
		rateLimiter: chain.rateLimiter,
		checks:      checks,
		mounts:      len(routes),
	}, nil
}

// newProxy creates the proxy for one configured mount with its own
// transport and circuit breaker.
func (app *application) newProxy(
	pc *config.ProxyConfig,
	tc *config.TransportConfig,
	maxBodyBytes int64,
) (*proxy.Proxy, error) {
	clientOpts := []transport.Option{
		transport.WithFormats(app.formats),
		transport.WithLogger(app.logger),
		transport.WithTimeout(tc.Timeout.Duration()),
		transport.WithMaxResponseBytes(tc.MaxResponseSize),
	}
	if tc.CircuitBreaker.Enabled {
		clientOpts = append(clientOpts, transport.WithCircuitBreaker(
			pc.Name, tc.CircuitBreaker.Threshold, tc.CircuitBreaker.Timeout.Duration()))
	}

	return proxy.New(pc.Endpoint,
		proxy.WithName(pc.Name),
		proxy.WithPathname(pc.Pathname),
		proxy.WithMediaType(pc.MediaType),
		proxy.WithFormats(app.formats),
		proxy.WithClient(transport.NewHTTPClient(clientOpts...)),
		proxy.WithLogger(app.logger),
		proxy.WithTrustForwardedHeaders(pc.TrustForwardedHeaders),
		proxy.WithMaxBodyBytes(maxBodyBytes),
	)
}

// newDocuments serves a document directory with identifiers rewritten
// from the private to the public namespace.
func (app *application) newDocuments(dc *config.DocumentConfig) http.Handler {
	h := docs.New(dc.Dir,
		docs.WithName(dc.Name),
		docs.WithPathname(dc.Pathname),
		docs.WithFormats(app.formats),
		docs.WithLogger(app.logger),
	)
	return proxy.Forward(dc.From, dc.To,
		proxy.WithFormats(app.formats),
		proxy.WithLogger(app.logger),
	)(h)
}

// endpointCheck dials a proxy's backend and mirrors the result in the
// endpoint_up gauge.
func (app *application) endpointCheck(name string, endpoint *url.URL) health.CheckFunc {
	host := endpoint.Host
	return health.EndpointCheck(endpoint, health.DefaultDialTimeout, func(up bool) {
		app.metrics.SetEndpointUp(name, host, up)
	})
}

// currentConfig returns the configuration being served.
func (app *application) currentConfig() *config.Config {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.config
}
