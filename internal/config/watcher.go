package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vyrodovalexey/rdfproxy/internal/observability"
)

// DefaultDebounceDelay is how long the watcher waits for writes to settle.
const DefaultDebounceDelay = 100 * time.Millisecond

// ReloadFunc receives every configuration that loaded and validated.
type ReloadFunc func(*Config)

// ErrorFunc receives load, validation and watch errors.
type ErrorFunc func(error)

// Watcher reloads a configuration file whenever it changes on disk. The
// directory is watched rather than the file so that editors and
// ConfigMap updates that replace the file are noticed.
type Watcher struct {
	path          string
	watcher       *fsnotify.Watcher
	onReload      ReloadFunc
	onError       ErrorFunc
	logger        observability.Logger
	debounceDelay time.Duration

	mu      sync.RWMutex
	current *Config
	running bool

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// WatcherOption is a functional option for configuring the watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the debounce delay for file changes.
func WithDebounceDelay(delay time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = delay
	}
}

// WithLogger sets the logger for the watcher.
func WithLogger(logger observability.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithErrorFunc sets the error callback for the watcher.
func WithErrorFunc(fn ErrorFunc) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// NewWatcher creates a watcher for the configuration file at path.
func NewWatcher(path string, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:          absPath,
		watcher:       fsWatcher,
		onReload:      onReload,
		debounceDelay: DefaultDebounceDelay,
		logger:        observability.NopLogger(),
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Start loads the file once and begins watching it. The initial load does
// not invoke the reload callback.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	cfg, err := Load(w.path)
	if err != nil {
		return err
	}

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	w.mu.Lock()
	w.current = cfg
	w.running = true
	w.mu.Unlock()

	w.logger.Info("watching configuration file",
		observability.String("path", w.path),
	)

	go w.watch(ctx)

	return nil
}

// Stop stops watching and releases the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.stoppedCh

	return w.watcher.Close()
}

// Current returns the last configuration that loaded successfully.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.stoppedCh)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("config watcher stopped", observability.String("reason", "context done"))
			return

		case <-w.stopCh:
			w.logger.Debug("config watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("config file changed",
				observability.String("path", event.Name),
				observability.String("op", event.Op.String()),
			)
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounceDelay)
			fire = timer.C

		case <-fire:
			fire = nil
			_ = w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", observability.Error(err))
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create) != 0
}

// Reload loads the file immediately. On failure the previous configuration
// stays current and the error callback is invoked.
func (w *Watcher) Reload() error {
	return w.reload()
}

func (w *Watcher) reload() error {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("configuration reload rejected",
			observability.String("path", w.path),
			observability.Error(err),
		)
		if w.onError != nil {
			w.onError(err)
		}
		return err
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	w.logger.Info("configuration reloaded",
		observability.String("path", w.path),
		observability.Int("proxies", len(cfg.Proxies)),
		observability.Int("documents", len(cfg.Documents)),
	)

	if w.onReload != nil {
		w.onReload(cfg)
	}
	return nil
}
