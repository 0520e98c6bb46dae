package middleware

import (
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/rdfproxy/internal/config"
	"github.com/vyrodovalexey/rdfproxy/internal/observability"
)

// Rate limiter default configuration constants.
const (
	// DefaultClientTTL is how long an idle client keeps its bucket.
	DefaultClientTTL = 10 * time.Minute

	// MinCleanupInterval is the minimum interval for cleanup operations.
	MinCleanupInterval = 10 * time.Second

	// MaxCleanupInterval is the maximum interval for cleanup operations.
	MaxCleanupInterval = time.Minute
)

type clientEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter is a token bucket limiter, either shared by all clients or
// kept per client address.
type RateLimiter struct {
	limiter   *rate.Limiter
	perClient bool
	rps       rate.Limit
	burst     int
	extractor *ClientIPExtractor
	logger    observability.Logger
	clientTTL time.Duration

	mu      sync.Mutex
	clients map[string]*clientEntry
	stopCh  chan struct{}
	stopped bool
}

// RateLimiterOption is a functional option for configuring the rate limiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterLogger sets the logger for the rate limiter.
func WithRateLimiterLogger(logger observability.Logger) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.logger = logger
	}
}

// WithClientIPExtractor sets how clients are identified.
func WithClientIPExtractor(e *ClientIPExtractor) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.extractor = e
	}
}

// WithClientTTL sets how long idle per-client buckets are kept.
func WithClientTTL(ttl time.Duration) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.clientTTL = ttl
	}
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(rps float64, burst int, perClient bool, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		perClient: perClient,
		rps:       rate.Limit(rps),
		burst:     burst,
		logger:    observability.NopLogger(),
		clientTTL: DefaultClientTTL,
		clients:   make(map[string]*clientEntry),
		stopCh:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(rl)
	}

	return rl
}

// Allow reports whether a request from clientIP may proceed.
func (rl *RateLimiter) Allow(clientIP string) bool {
	if !rl.perClient {
		return rl.limiter.Allow()
	}

	now := time.Now()

	rl.mu.Lock()
	entry, exists := rl.clients[clientIP]
	if !exists {
		entry = &clientEntry{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[clientIP] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.Allow()
}

// Middleware returns the HTTP middleware applying the limiter.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := rl.extractor.Extract(r)

			if !rl.Allow(clientIP) {
				rl.logger.Warn("rate limit exceeded",
					observability.String("client_ip", clientIP),
					observability.String("path", r.URL.Path),
				)
				getMiddlewareMetrics().rateLimitRejected.Inc()

				w.Header().Set(HeaderContentType, ContentTypeJSON)
				w.Header().Set(HeaderRetryAfter, "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = io.WriteString(w, ErrRateLimitExceeded)
				return
			}

			getMiddlewareMetrics().rateLimitAllowed.Inc()
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitFromConfig builds the rate limit middleware. The returned
// limiter is nil when limiting is disabled; otherwise the caller must Stop
// it on shutdown.
func RateLimitFromConfig(
	cfg *config.RateLimitConfig,
	extractor *ClientIPExtractor,
	logger observability.Logger,
) (func(http.Handler) http.Handler, *RateLimiter) {
	if cfg == nil || !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}, nil
	}

	rl := NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst, cfg.PerClient,
		WithRateLimiterLogger(logger),
		WithClientIPExtractor(extractor),
	)
	if cfg.PerClient {
		rl.StartAutoCleanup()
	}

	return rl.Middleware(), rl
}

// CleanupOldClients drops client buckets idle for longer than maxAge.
func (rl *RateLimiter) CleanupOldClients(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	removed := 0
	for clientIP, entry := range rl.clients {
		if now.Sub(entry.lastAccess) > maxAge {
			delete(rl.clients, clientIP)
			removed++
		}
	}

	if removed > 0 {
		rl.logger.Debug("cleaned up expired rate limiter entries",
			observability.Int("removed", removed),
			observability.Int("remaining", len(rl.clients)),
		)
	}
}

// StartAutoCleanup periodically drops idle client buckets until Stop.
func (rl *RateLimiter) StartAutoCleanup() {
	rl.mu.Lock()
	if rl.stopped {
		rl.mu.Unlock()
		return
	}
	rl.mu.Unlock()

	interval := rl.clientTTL / 2
	if interval > MaxCleanupInterval {
		interval = MaxCleanupInterval
	}
	if interval < MinCleanupInterval {
		interval = MinCleanupInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.CleanupOldClients(rl.clientTTL)
			case <-rl.stopCh:
				return
			}
		}
	}()
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.stopped {
		rl.stopped = true
		close(rl.stopCh)
	}
}

func (rl *RateLimiter) clientCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}
