package proxy

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/rdfproxy/internal/formats"
	"github.com/vyrodovalexey/rdfproxy/internal/observability"
	"github.com/vyrodovalexey/rdfproxy/internal/rewrite"
)

var (
	// errHijackRefused is returned to producers that try to take over an
	// intercepted connection.
	errHijackRefused = errors.New("hijack not supported on intercepted response")

	errInterceptDone = errors.New("write after interception completed")
)

// interceptState tracks an intercepted response.
type interceptState int

const (
	stateArmed interceptState = iota
	stateAccumulating
	stateRewritten
	statePassthrough
	stateFailed
)

// interceptWriter buffers everything a producer writes. Headers go to a
// private map so a failed interception leaves the real writer untouched.
type interceptWriter struct {
	w      http.ResponseWriter
	header http.Header
	status int
	buf    bytes.Buffer
	state  interceptState
	err    error
}

func newInterceptWriter(w http.ResponseWriter) *interceptWriter {
	return &interceptWriter{
		w:      w,
		header: w.Header().Clone(),
		status: http.StatusOK,
	}
}

// Header implements http.ResponseWriter.
func (iw *interceptWriter) Header() http.Header {
	return iw.header
}

// WriteHeader implements http.ResponseWriter. The first status wins.
func (iw *interceptWriter) WriteHeader(code int) {
	if iw.state != stateArmed {
		return
	}
	iw.status = code
	iw.state = stateAccumulating
}

// Write implements http.ResponseWriter.
func (iw *interceptWriter) Write(b []byte) (int, error) {
	switch iw.state {
	case stateArmed:
		iw.state = stateAccumulating
	case stateAccumulating:
	default:
		return 0, errInterceptDone
	}
	if iw.err != nil {
		return 0, iw.err
	}
	return iw.buf.Write(b)
}

// Flush is a no-op while the body is being accumulated.
func (iw *interceptWriter) Flush() {}

// Hijack refuses to hand out the connection.
func (iw *interceptWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return nil, nil, errHijackRefused
}

func (iw *interceptWriter) abort(err error) {
	if iw.err == nil {
		iw.err = err
	}
}

// rewritable reports whether the buffered response carries a body that
// should be rewritten. Empty and non-2xx responses are released as they are.
func (iw *interceptWriter) rewritable() bool {
	return iw.buf.Len() > 0 && iw.status >= 200 && iw.status < 300
}

// copyHeader replaces the real header map's content with the buffered one.
func (iw *interceptWriter) copyHeader() {
	dst := iw.w.Header()
	for k := range dst {
		if _, ok := iw.header[k]; !ok {
			delete(dst, k)
		}
	}
	for k, v := range iw.header {
		dst[k] = v
	}
}

// release writes the buffered response unchanged.
func (iw *interceptWriter) release() {
	iw.state = statePassthrough
	iw.copyHeader()
	iw.w.WriteHeader(iw.status)
	if iw.buf.Len() > 0 {
		_, _ = iw.w.Write(iw.buf.Bytes())
	}
}

// commit writes body in place of the buffered one.
func (iw *interceptWriter) commit(mediaType string, body []byte) error {
	iw.state = stateRewritten
	iw.copyHeader()

	h := iw.w.Header()
	h.Set("Content-Type", mediaType)
	h.Del("Content-Length")

	iw.w.WriteHeader(iw.status)
	_, err := iw.w.Write(body)
	return err
}

// AbortStream reports a failure of the response being produced on w. An
// interceptor above w discards the buffered body and hands err to its
// error handler. It returns false when w is not intercepted.
func AbortStream(w http.ResponseWriter, err error) bool {
	for {
		if iw, ok := w.(*interceptWriter); ok {
			iw.abort(err)
			return true
		}
		u, ok := w.(interface{ Unwrap() http.ResponseWriter })
		if !ok {
			return false
		}
		w = u.Unwrap()
	}
}

// forwarder rewrites graphs in responses produced by another handler.
type forwarder struct {
	ns           rewrite.Namespace
	formats      *formats.Registry
	logger       observability.Logger
	errorHandler ErrorHandler
}

// Forward returns middleware that intercepts the response of the wrapped
// handler, parses its body as a graph in the media type negotiated from
// the request's Accept header, rewrites identifiers from the from namespace
// to the to namespace and sends the re-serialized graph instead. Failures
// leave the response unwritten and go to the error handler.
func Forward(from, to string, opts ...Option) func(http.Handler) http.Handler {
	o := newOptions(opts)
	f := &forwarder{
		ns:           rewrite.Namespace{From: from, To: to},
		formats:      o.formats,
		logger:       o.logger,
		errorHandler: o.errorHandler,
	}
	initProxyVecMetrics()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.serve(w, r, next)
		})
	}
}

func (f *forwarder) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	ctx, span := observability.StartSpan(r.Context(), "proxy.Forward",
		trace.WithAttributes(
			attribute.String("rdfproxy.from", f.ns.From),
			attribute.String("rdfproxy.to", f.ns.To),
		),
	)
	r = r.WithContext(ctx)

	iw := newInterceptWriter(w)
	err := f.produce(iw, r, next)
	if err == nil {
		err = f.finish(iw, r)
	}
	observability.EndSpan(span, err)

	if err != nil {
		iw.state = stateFailed
		getProxyMetrics().interceptionsTotal.WithLabelValues(outcomeError).Inc()
		f.errorHandler(w, r, err)
	}
}

// produce runs next against the intercepting writer. A panic or an
// AbortStream call becomes a stream error.
func (f *forwarder) produce(iw *interceptWriter, r *http.Request, next http.Handler) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err = NewStreamError(fmt.Errorf("handler panic: %v", rec))
		}
	}()

	next.ServeHTTP(iw, r)

	if iw.err != nil {
		return NewStreamError(iw.err)
	}
	return nil
}

func (f *forwarder) finish(iw *interceptWriter, r *http.Request) error {
	ctx := r.Context()

	if ctx.Err() != nil {
		f.logger.WithContext(ctx).Debug("client went away, dropping intercepted response")
		return nil
	}

	if !iw.rewritable() {
		iw.release()
		getProxyMetrics().interceptionsTotal.WithLabelValues(outcomePassthrough).Inc()
		return nil
	}

	mediaType, err := f.formats.NegotiateParser(r.Header.Get("Accept"))
	if err != nil {
		return &Error{Op: OpIntercept, Message: "negotiate intercepted media type", Cause: err}
	}

	g, err := f.formats.Parse(ctx, mediaType, iw.buf.Bytes())
	if err != nil {
		return &Error{Op: OpIntercept, Message: "parse intercepted body", Cause: err}
	}

	body, err := f.formats.Serialize(ctx, mediaType, f.ns.Graph(g))
	if err != nil {
		return &Error{Op: OpIntercept, Message: "serialize intercepted body", Cause: err}
	}
	getProxyMetrics().rewritesTotal.WithLabelValues(directionIntercept).Inc()

	if err := iw.commit(mediaType, body); err != nil {
		f.logger.WithContext(ctx).Debug("write intercepted response failed", observability.Error(err))
	}
	getProxyMetrics().interceptionsTotal.WithLabelValues(outcomeRewritten).Inc()
	return nil
}
