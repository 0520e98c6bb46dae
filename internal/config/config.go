package config

import (
	"fmt"
	"time"
)

// Default values applied by ApplyDefaults.
const (
	DefaultAddress            = ":8080"
	DefaultReadTimeout        = 30 * time.Second
	DefaultWriteTimeout       = 60 * time.Second
	DefaultIdleTimeout        = 120 * time.Second
	DefaultShutdownTimeout    = 30 * time.Second
	DefaultMaxRequestBodySize = 10 << 20
	DefaultTransportTimeout   = 30 * time.Second
	DefaultMaxResponseSize    = 64 << 20
	DefaultBreakerThreshold   = 5
	DefaultBreakerTimeout     = 30 * time.Second
	DefaultRequestsPerSecond  = 100
	DefaultBurst              = 200
	DefaultMetricsPort        = 9090
	DefaultMetricsPath        = "/metrics"
	DefaultServiceName        = "rdfproxy"
)

// Config is the root of the rdfproxy configuration file.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Proxies       []ProxyConfig       `yaml:"proxies,omitempty" json:"proxies,omitempty"`
	Documents     []DocumentConfig    `yaml:"documents,omitempty" json:"documents,omitempty"`
	Transport     TransportConfig     `yaml:"transport" json:"transport"`
	RateLimit     RateLimitConfig     `yaml:"rateLimit" json:"rateLimit"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// ServerConfig configures the public HTTP listener.
type ServerConfig struct {
	Address            string   `yaml:"address,omitempty" json:"address,omitempty"`
	ReadTimeout        Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout       Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	IdleTimeout        Duration `yaml:"idleTimeout,omitempty" json:"idleTimeout,omitempty"`
	ShutdownTimeout    Duration `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
	MaxRequestBodySize int64    `yaml:"maxRequestBodySize,omitempty" json:"maxRequestBodySize,omitempty"`
	// TrustedProxies lists CIDRs or addresses whose X-Forwarded-For is
	// believed when identifying clients for logging and rate limiting.
	TrustedProxies []string `yaml:"trustedProxies,omitempty" json:"trustedProxies,omitempty"`
}

// ProxyConfig maps one public mount path onto one backend endpoint.
type ProxyConfig struct {
	Name                  string `yaml:"name,omitempty" json:"name,omitempty"`
	Endpoint              string `yaml:"endpoint" json:"endpoint"`
	Pathname              string `yaml:"pathname" json:"pathname"`
	MediaType             string `yaml:"mediaType,omitempty" json:"mediaType,omitempty"`
	TrustForwardedHeaders bool   `yaml:"trustForwardedHeaders,omitempty" json:"trustForwardedHeaders,omitempty"`
}

// DocumentConfig publishes a directory of RDF files under a mount path,
// rewriting identifiers from the From namespace to the To namespace.
type DocumentConfig struct {
	Name     string `yaml:"name,omitempty" json:"name,omitempty"`
	Pathname string `yaml:"pathname" json:"pathname"`
	Dir      string `yaml:"dir" json:"dir"`
	From     string `yaml:"from" json:"from"`
	To       string `yaml:"to" json:"to"`
}

// TransportConfig configures backend calls.
type TransportConfig struct {
	Timeout         Duration             `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	MaxResponseSize int64                `yaml:"maxResponseSize,omitempty" json:"maxResponseSize,omitempty"`
	CircuitBreaker  CircuitBreakerConfig `yaml:"circuitBreaker" json:"circuitBreaker"`
}

// CircuitBreakerConfig configures the per-proxy circuit breaker.
type CircuitBreakerConfig struct {
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Threshold int      `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// RateLimitConfig configures request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" json:"enabled"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond,omitempty" json:"requestsPerSecond,omitempty"`
	Burst             int     `yaml:"burst,omitempty" json:"burst,omitempty"`
	PerClient         bool    `yaml:"perClient,omitempty" json:"perClient,omitempty"`
}

// DefaultConfig returns a configuration with every default applied and no
// mounts.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields with their defaults. Metrics are
// enabled unless the file configures the metrics section.
func (c *Config) ApplyDefaults() {
	s := &c.Server
	if s.Address == "" {
		s.Address = DefaultAddress
	}
	s.ReadTimeout.orDefault(DefaultReadTimeout)
	s.WriteTimeout.orDefault(DefaultWriteTimeout)
	s.IdleTimeout.orDefault(DefaultIdleTimeout)
	s.ShutdownTimeout.orDefault(DefaultShutdownTimeout)
	if s.MaxRequestBodySize == 0 {
		s.MaxRequestBodySize = DefaultMaxRequestBodySize
	}

	for i := range c.Proxies {
		if c.Proxies[i].Name == "" {
			c.Proxies[i].Name = fmt.Sprintf("proxy-%d", i)
		}
	}
	for i := range c.Documents {
		if c.Documents[i].Name == "" {
			c.Documents[i].Name = fmt.Sprintf("documents-%d", i)
		}
	}

	t := &c.Transport
	t.Timeout.orDefault(DefaultTransportTimeout)
	if t.MaxResponseSize == 0 {
		t.MaxResponseSize = DefaultMaxResponseSize
	}
	if t.CircuitBreaker.Threshold == 0 {
		t.CircuitBreaker.Threshold = DefaultBreakerThreshold
	}
	t.CircuitBreaker.Timeout.orDefault(DefaultBreakerTimeout)

	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = DefaultBurst
	}

	c.Observability.applyDefaults()
}
