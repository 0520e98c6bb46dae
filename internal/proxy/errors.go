package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/vyrodovalexey/rdfproxy/internal/formats"
	"github.com/vyrodovalexey/rdfproxy/internal/observability"
	"github.com/vyrodovalexey/rdfproxy/internal/rdfhttp"
	"github.com/vyrodovalexey/rdfproxy/internal/transport"
)

// Sentinel errors for proxy operations.
var (
	// ErrTransport indicates that the backend call failed.
	ErrTransport = errors.New("backend request failed")

	// ErrStream indicates that an intercepted response stream failed.
	ErrStream = errors.New("response stream failed")

	// ErrMountPathMismatch indicates a request path outside the mount path.
	ErrMountPathMismatch = errors.New("request path outside mount path")

	// ErrInvalidEndpoint indicates an unusable endpoint URL.
	ErrInvalidEndpoint = errors.New("invalid endpoint URL")
)

// Format errors surfaced by the proxy.
var (
	ErrParse                = formats.ErrParse
	ErrSerialize            = formats.ErrSerialize
	ErrNotAcceptable        = formats.ErrNotAcceptable
	ErrUnsupportedMediaType = formats.ErrUnsupportedMediaType
)

// Operations reported in Error.Op.
const (
	OpParseBody = "parse_body"
	OpFetch     = "fetch"
	OpSend      = "send"
	OpIntercept = "intercept"
)

// Error represents a failed proxy step.
type Error struct {
	Op      string // Operation that failed
	Target  string // Backend URL if applicable
	Message string // Human-readable message
	Cause   error  // Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Target != "" {
		if e.Cause != nil {
			return fmt.Sprintf("proxy error [%s] target=%s: %s: %v", e.Op, e.Target, e.Message, e.Cause)
		}
		return fmt.Sprintf("proxy error [%s] target=%s: %s", e.Op, e.Target, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("proxy error [%s]: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("proxy error [%s]: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *Error) Is(target error) bool {
	_, ok := target.(*Error)
	return ok || errors.Is(e.Cause, target)
}

// NewFetchError wraps a failed backend call to target.
func NewFetchError(target string, cause error) *Error {
	return &Error{
		Op:      OpFetch,
		Target:  target,
		Message: "backend request failed",
		Cause:   fmt.Errorf("%w: %w", ErrTransport, cause),
	}
}

// NewStreamError wraps a failure reported by an intercepted producer.
func NewStreamError(cause error) *Error {
	return &Error{
		Op:      OpIntercept,
		Message: "response stream failed",
		Cause:   fmt.Errorf("%w: %w", ErrStream, cause),
	}
}

func newMountMismatchError(path, mount string) *Error {
	return &Error{
		Op:      OpFetch,
		Message: fmt.Sprintf("path %q is not below mount path %q", path, mount),
		Cause:   ErrMountPathMismatch,
	}
}

// IsTransportError reports whether err is a failed backend call.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsStreamError reports whether err is a failed intercepted stream.
func IsStreamError(err error) bool {
	return errors.Is(err, ErrStream)
}

// StatusCode maps err to the HTTP status the default error handler sends.
func StatusCode(err error) int {
	var perr *Error

	switch {
	case errors.Is(err, ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, ErrMountPathMismatch):
		return http.StatusNotFound
	case errors.Is(err, formats.ErrNotAcceptable):
		return http.StatusNotAcceptable
	case errors.Is(err, formats.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, rdfhttp.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &perr) && perr.Op == OpParseBody:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorKind is the metric label for err.
func errorKind(err error) string {
	switch {
	case errors.Is(err, transport.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrStream):
		return "stream"
	case errors.Is(err, ErrMountPathMismatch):
		return "mount_mismatch"
	case errors.Is(err, formats.ErrNotAcceptable):
		return "not_acceptable"
	case errors.Is(err, formats.ErrUnsupportedMediaType):
		return "unsupported_media_type"
	case errors.Is(err, rdfhttp.ErrBodyTooLarge):
		return "body_too_large"
	case errors.Is(err, formats.ErrParse):
		return "parse"
	case errors.Is(err, formats.ErrSerialize):
		return "serialize"
	default:
		return "internal"
	}
}

// ErrorHandler receives every error of a proxied or intercepted request.
// Nothing has been written to w when it is called.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DefaultErrorHandler logs err and answers with a JSON error body. It
// writes nothing when the client is already gone.
func DefaultErrorHandler(logger observability.Logger) ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		log := logger.WithContext(r.Context())

		if errors.Is(r.Context().Err(), context.Canceled) {
			log.Debug("client went away",
				observability.String("path", r.URL.Path),
				observability.Error(err),
			)
			return
		}

		status := StatusCode(err)
		fields := []observability.Field{
			observability.String("path", r.URL.Path),
			observability.String("method", r.Method),
			observability.Int("status", status),
			observability.Error(err),
		}
		if status >= http.StatusInternalServerError {
			log.Error("proxy error", fields...)
		} else {
			log.Warn("proxy request rejected", fields...)
		}

		message := err.Error()
		switch status {
		case http.StatusBadGateway:
			message = "failed to proxy request"
		case http.StatusInternalServerError:
			message = "failed to process graph"
		}

		body, _ := json.Marshal(errorResponse{
			Error:   statusError(status),
			Message: message,
		})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}
}

func statusError(status int) string {
	switch status {
	case http.StatusBadGateway:
		return "bad gateway"
	case http.StatusNotFound:
		return "not found"
	case http.StatusNotAcceptable:
		return "not acceptable"
	case http.StatusUnsupportedMediaType:
		return "unsupported media type"
	case http.StatusRequestEntityTooLarge:
		return "request entity too large"
	case http.StatusBadRequest:
		return "bad request"
	default:
		return "internal server error"
	}
}
