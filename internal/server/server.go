package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/rdfproxy/internal/observability"
)

// Config holds configuration for the HTTP server.
type Config struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
}

// DefaultMaxHeaderBytes is used when Config.MaxHeaderBytes is zero.
const DefaultMaxHeaderBytes = 1 << 20

// Server is the public HTTP listener.
type Server struct {
	config  Config
	logger  observability.Logger
	handler atomic.Pointer[http.Handler]

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	running    bool
}

// New creates a server that will serve handler.
func New(config Config, handler http.Handler, logger observability.Logger) *Server {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if config.MaxHeaderBytes == 0 {
		config.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	s := &Server{config: config, logger: logger}
	s.SetHandler(handler)
	return s
}

// SetHandler installs h for every request accepted from now on. Requests
// already running keep the handler they started with.
func (s *Server) SetHandler(h http.Handler) {
	if h == nil {
		h = http.NotFoundHandler()
	}
	s.handler.Store(&h)
}

// Handler returns the handler currently installed.
func (s *Server) Handler() http.Handler {
	return *s.handler.Load()
}

// ServeHTTP dispatches to the installed handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}

// Listen binds the configured address. Start calls it when needed; calling
// it first lets the caller learn the bound address.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Address, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves until Stop is called. It returns nil after a graceful stop.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.httpServer = &http.Server{
		Handler:        s,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}
	httpServer, ln := s.httpServer, s.listener
	s.running = true
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		observability.String("address", ln.Addr().String()),
		observability.Duration("read_timeout", s.config.ReadTimeout),
		observability.Duration("write_timeout", s.config.WriteTimeout),
	)

	err := httpServer.Serve(ln)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop stops the server gracefully, waiting for in-flight requests until
// ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	httpServer, ln := s.httpServer, s.listener
	s.mu.Unlock()

	if httpServer == nil {
		if ln != nil {
			return ln.Close()
		}
		return nil
	}

	s.logger.Info("stopping HTTP server")

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// IsRunning returns whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
