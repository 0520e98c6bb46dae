package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the interface for structured logging.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
	Sync() error
}

// Field represents a log field.
type Field = zap.Field

// Field constructors for convenience.
var (
	String   = zap.String
	Strings  = zap.Strings
	Int      = zap.Int
	Int64    = zap.Int64
	Float64  = zap.Float64
	Bool     = zap.Bool
	Error    = zap.Error
	Any      = zap.Any
	Duration = zap.Duration
)

// LogConfig represents logging configuration.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is json or console.
	Format string
	// Output is stdout, stderr or a file path.
	Output string
}

// DefaultLogConfig returns default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

type zapLogger struct {
	logger *zap.Logger
}

var (
	globalLogger Logger
	globalMu     sync.RWMutex
)

// NewLogger creates a new logger with the given configuration.
func NewLogger(cfg LogConfig) (Logger, error) {
	ws, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	return newLogger(cfg, ws)
}

// NewLoggerWithWriter creates a logger that writes to w instead of the
// configured output.
func NewLoggerWithWriter(cfg LogConfig, w io.Writer) (Logger, error) {
	return newLogger(cfg, zapcore.AddSync(w))
}

func newLogger(cfg LogConfig, ws zapcore.WriteSyncer) (Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "console":
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case "", "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	core := zapcore.NewCore(encoder, ws, level)
	return &zapLogger{logger: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))}, nil
}

func openOutput(output string) (zapcore.WriteSyncer, error) {
	switch output {
	case "", "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	default:
		ws, _, err := zap.Open(output)
		if err != nil {
			return nil, fmt.Errorf("open log output %q: %w", output, err)
		}
		return ws, nil
	}
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.logger.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.logger.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.logger.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.logger.Error(msg, fields...) }
func (l *zapLogger) Fatal(msg string, fields ...Field) { l.logger.Fatal(msg, fields...) }

// With returns a logger with additional fields.
func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{logger: l.logger.With(fields...)}
}

// WithContext returns a logger carrying the request, trace and mount
// fields stored in ctx.
func (l *zapLogger) WithContext(ctx context.Context) Logger {
	fields := extractContextFields(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// Sync flushes any buffered log entries.
func (l *zapLogger) Sync() error {
	return l.logger.Sync()
}

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	traceIDKey   contextKey = "trace_id"
	spanIDKey    contextKey = "span_id"
	mountKey     contextKey = "mount"
)

func extractContextFields(ctx context.Context) []Field {
	var fields []Field

	for _, key := range []contextKey{requestIDKey, traceIDKey, spanIDKey, mountKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			fields = append(fields, String(string(key), v))
		}
	}

	return fields
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// ContextWithRequestID adds a request ID to the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, requestIDKey)
}

// ContextWithTraceID adds a trace ID to the context.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext extracts the trace ID from context.
func TraceIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, traceIDKey)
}

// ContextWithSpanID adds a span ID to the context.
func ContextWithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, spanIDKey, spanID)
}

// SpanIDFromContext extracts the span ID from context.
func SpanIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, spanIDKey)
}

// ContextWithMount records the name of the proxy or document mount
// serving the request. Metrics use it as a bounded route label.
func ContextWithMount(ctx context.Context, mount string) context.Context {
	return context.WithValue(ctx, mountKey, mount)
}

// MountFromContext returns the mount name recorded in ctx.
func MountFromContext(ctx context.Context) string {
	return stringFromContext(ctx, mountKey)
}

// SetGlobalLogger sets the global logger instance.
func SetGlobalLogger(logger Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger returns the global logger instance.
func GetGlobalLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		logger, _ := NewLogger(DefaultLogConfig())
		return logger
	}
	return globalLogger
}

// L returns the global logger (shorthand).
func L() Logger {
	return GetGlobalLogger()
}

// NopLogger returns a logger that discards all output.
func NopLogger() Logger {
	return &zapLogger{logger: zap.NewNop()}
}
