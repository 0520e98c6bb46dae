package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/vyrodovalexey/rdfproxy/internal/formats"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates rdfproxy configuration.
type Validator struct {
	errors  ValidationErrors
	formats *formats.Registry
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors:  make(ValidationErrors, 0),
		formats: formats.Default(),
	}
}

// ValidateConfig validates a configuration.
func ValidateConfig(config *Config) error {
	return NewValidator().Validate(config)
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *Config) error {
	v.errors = make(ValidationErrors, 0)

	if config == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateServer(&config.Server, "server")
	if len(config.Proxies) == 0 && len(config.Documents) == 0 {
		v.addError("", "at least one proxy or documents mount is required")
	}

	names := make(map[string]string)
	pathnames := make(map[string]string)
	for i := range config.Proxies {
		path := fmt.Sprintf("proxies[%d]", i)
		v.validateProxy(&config.Proxies[i], path)
		v.checkUnique(names, config.Proxies[i].Name, path+".name", "name")
		v.checkUnique(pathnames, config.Proxies[i].Pathname, path+".pathname", "pathname")
	}
	for i := range config.Documents {
		path := fmt.Sprintf("documents[%d]", i)
		v.validateDocuments(&config.Documents[i], path)
		v.checkUnique(names, config.Documents[i].Name, path+".name", "name")
		v.checkUnique(pathnames, config.Documents[i].Pathname, path+".pathname", "pathname")
	}

	v.validateOverlap(config)
	v.validateTransport(&config.Transport, "transport")
	v.validateRateLimit(&config.RateLimit, "rateLimit")
	v.validateObservability(&config.Observability, "observability")

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateServer(s *ServerConfig, path string) {
	if s.Address == "" {
		v.addError(path+".address", "address is required")
	} else if _, _, err := net.SplitHostPort(s.Address); err != nil {
		v.addError(path+".address", fmt.Sprintf("invalid address: %v", err))
	}

	if s.MaxRequestBodySize < 0 {
		v.addError(path+".maxRequestBodySize", "maxRequestBodySize cannot be negative")
	}
	if s.ShutdownTimeout.Duration() < 0 {
		v.addError(path+".shutdownTimeout", "shutdownTimeout cannot be negative")
	}
	for i, p := range s.TrustedProxies {
		if _, _, err := net.ParseCIDR(p); err != nil && net.ParseIP(p) == nil {
			v.addError(fmt.Sprintf("%s.trustedProxies[%d]", path, i), fmt.Sprintf("invalid CIDR or address: %s", p))
		}
	}
}

func (v *Validator) validateProxy(p *ProxyConfig, path string) {
	if p.Endpoint == "" {
		v.addError(path+".endpoint", "endpoint is required")
	} else if err := validateAbsoluteURL(p.Endpoint); err != nil {
		v.addError(path+".endpoint", err.Error())
	} else if u, _ := url.Parse(p.Endpoint); u.RawQuery != "" || u.Fragment != "" {
		v.addError(path+".endpoint", "endpoint must not have a query or fragment")
	}

	v.validatePathname(p.Pathname, path+".pathname")

	if p.MediaType != "" && !v.formats.Supports(p.MediaType) {
		v.addError(path+".mediaType", fmt.Sprintf("unsupported media type: %s", p.MediaType))
	}
}

func (v *Validator) validateDocuments(d *DocumentConfig, path string) {
	v.validatePathname(d.Pathname, path+".pathname")

	if d.Dir == "" {
		v.addError(path+".dir", "dir is required")
	}
	if err := validateAbsoluteURL(d.From); err != nil {
		v.addError(path+".from", err.Error())
	}
	if err := validateAbsoluteURL(d.To); err != nil {
		v.addError(path+".to", err.Error())
	}
}

func (v *Validator) validatePathname(pathname, path string) {
	if pathname == "" {
		v.addError(path, "pathname is required")
	} else if !strings.HasPrefix(pathname, "/") {
		v.addError(path, "pathname must start with /")
	}
}

// validateOverlap reports mount paths nested inside other mount paths.
// Identical paths are reported by checkUnique.
func (v *Validator) validateOverlap(config *Config) {
	type mount struct{ path, base string }
	var mounts []mount
	add := func(path, pathname string) {
		if strings.HasPrefix(pathname, "/") {
			mounts = append(mounts, mount{path, strings.TrimSuffix(pathname, "/")})
		}
	}
	for i := range config.Proxies {
		add(fmt.Sprintf("proxies[%d].pathname", i), config.Proxies[i].Pathname)
	}
	for i := range config.Documents {
		add(fmt.Sprintf("documents[%d].pathname", i), config.Documents[i].Pathname)
	}

	for _, outer := range mounts {
		for _, inner := range mounts {
			if outer.base == inner.base {
				continue
			}
			if outer.base == "" || strings.HasPrefix(inner.base, outer.base+"/") {
				v.addError(inner.path, fmt.Sprintf("pathname overlaps %s", outer.path))
			}
		}
	}
}

func (v *Validator) checkUnique(seen map[string]string, value, path, field string) {
	if value == "" {
		return
	}
	if first, exists := seen[value]; exists {
		v.addError(path, fmt.Sprintf("duplicate %s %q, first defined at %s", field, value, first))
		return
	}
	seen[value] = path
}

func (v *Validator) validateTransport(t *TransportConfig, path string) {
	if t.Timeout.Duration() < 0 {
		v.addError(path+".timeout", "timeout cannot be negative")
	}
	if t.MaxResponseSize < 0 {
		v.addError(path+".maxResponseSize", "maxResponseSize cannot be negative")
	}
	v.validateCircuitBreaker(&t.CircuitBreaker, path+".circuitBreaker")
}

// validateRateLimit validates rate limit configuration.
func (v *Validator) validateRateLimit(rl *RateLimitConfig, path string) {
	if rl.Enabled {
		if rl.RequestsPerSecond <= 0 {
			v.addError(path+".requestsPerSecond", "requestsPerSecond must be positive when enabled")
		}

		if rl.Burst <= 0 {
			v.addError(path+".burst", "burst must be positive when enabled")
		}
	}
}

// validateCircuitBreaker validates circuit breaker configuration.
func (v *Validator) validateCircuitBreaker(cb *CircuitBreakerConfig, path string) {
	if cb.Enabled {
		if cb.Threshold <= 0 {
			v.addError(path+".threshold", "threshold must be positive when enabled")
		}

		if cb.Timeout.Duration() <= 0 {
			v.addError(path+".timeout", "timeout must be positive when enabled")
		}
	}
}

// validateObservability validates observability configuration.
func (v *Validator) validateObservability(obs *ObservabilityConfig, path string) {
	if obs.Metrics != nil {
		if obs.Metrics.Path != "" && !strings.HasPrefix(obs.Metrics.Path, "/") {
			v.addError(path+".metrics.path", "metrics path must start with /")
		}

		if obs.Metrics.Port < 0 || obs.Metrics.Port > 65535 {
			v.addError(path+".metrics.port", fmt.Sprintf("invalid port: %d", obs.Metrics.Port))
		}
	}

	if obs.Tracing != nil {
		if obs.Tracing.SamplingRate < 0 || obs.Tracing.SamplingRate > 1 {
			v.addError(path+".tracing.samplingRate", "samplingRate must be between 0 and 1")
		}
		if obs.Tracing.Enabled && obs.Tracing.OTLPEndpoint == "" {
			v.addError(path+".tracing.otlpEndpoint", "otlpEndpoint is required when tracing is enabled")
		}
	}

	if obs.Logging != nil {
		validLevels := map[string]bool{
			"":      true,
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}

		if !validLevels[strings.ToLower(obs.Logging.Level)] {
			v.addError(path+".logging.level", fmt.Sprintf("invalid log level: %s", obs.Logging.Level))
		}

		validFormats := map[string]bool{
			"":        true,
			"json":    true,
			"console": true,
		}

		if !validFormats[strings.ToLower(obs.Logging.Format)] {
			v.addError(path+".logging.format", fmt.Sprintf("invalid log format: %s", obs.Logging.Format))
		}
	}
}

// addError adds a validation error.
func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func validateAbsoluteURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must use http or https: %s", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url must have a host: %s", raw)
	}
	return nil
}
