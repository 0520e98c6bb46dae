package docs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/rdfproxy/internal/formats"
	"github.com/vyrodovalexey/rdfproxy/internal/observability"
	"github.com/vyrodovalexey/rdfproxy/internal/proxy"
	"github.com/vyrodovalexey/rdfproxy/internal/rdfhttp"
)

// IndexName is the document served for a directory path.
const IndexName = "index"

var (
	// ErrNotFound indicates that no document matches the request path.
	ErrNotFound = errors.New("document not found")

	// ErrMethodNotAllowed indicates a request other than GET or HEAD.
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// OpLoad is the proxy.Error operation for reading and parsing a document.
const OpLoad = "load_document"

// Handler serves the RDF documents of one directory.
type Handler struct {
	name      string
	pathname  string
	dir       string
	formats   *formats.Registry
	responder *rdfhttp.Responder
	logger    observability.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithName sets the mount name used in logs and metrics.
func WithName(name string) Option {
	return func(h *Handler) {
		h.name = name
	}
}

// WithPathname sets the mount path. Without it the mount path recorded by
// proxy.Mount is used.
func WithPathname(pathname string) Option {
	return func(h *Handler) {
		h.pathname = pathname
	}
}

// WithFormats sets the format registry.
func WithFormats(reg *formats.Registry) Option {
	return func(h *Handler) {
		if reg != nil {
			h.formats = reg
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// New returns a handler serving the documents in dir.
func New(dir string, opts ...Option) *Handler {
	h := &Handler{
		name:    filepath.Base(dir),
		dir:     dir,
		formats: formats.Default(),
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.responder = rdfhttp.NewResponder(h.formats)
	h.logger = h.logger.With(observability.String("mount", h.name))
	initDocsMetrics()
	return h
}

// Name returns the mount name.
func (h *Handler) Name() string {
	return h.name
}

// Dir returns the served directory.
func (h *Handler) Dir() string {
	return h.dir
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := observability.SetMount(r.Context(), h.name)
	ctx, span := observability.StartSpan(ctx, "docs.Serve",
		trace.WithAttributes(
			attribute.String("rdfproxy.mount", h.name),
			attribute.String("http.request.method", r.Method),
		),
	)
	r = r.WithContext(ctx)

	err := h.serve(w, r)
	observability.EndSpan(span, err)

	status := http.StatusOK
	if err != nil {
		status = StatusCode(err)
		h.writeError(w, r, status, err)
	}
	getDocsMetrics().requestsTotal.WithLabelValues(h.name, statusClass(status)).Inc()
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		return ErrMethodNotAllowed
	}

	rel, err := h.relativePath(r)
	if err != nil {
		return err
	}

	name, mediaType, data, err := h.load(rel)
	if err != nil {
		return err
	}

	g, err := h.formats.Parse(r.Context(), mediaType, data)
	if err != nil {
		return &proxy.Error{Op: OpLoad, Target: name, Message: "parse document", Cause: err}
	}

	h.logger.WithContext(r.Context()).Debug("serving document",
		observability.String("file", name),
		observability.String("media_type", mediaType),
		observability.Int("triples", g.Len()),
	)

	return h.responder.SendGraph(r.Context(), w, http.StatusOK, g, r.Header.Get("Accept"))
}

// relativePath returns the slash separated document path below the mount.
// Dot segments are resolved against the mount root and cannot leave it.
func (h *Handler) relativePath(r *http.Request) (string, error) {
	mount := h.pathname
	if mount == "" {
		mount = proxy.MountPathFromContext(r.Context())
	}
	base := strings.TrimSuffix(mount, "/")

	p := r.URL.Path
	if p != base && !strings.HasPrefix(p, base+"/") {
		return "", fmt.Errorf("%w: %s", proxy.ErrMountPathMismatch, p)
	}

	rest := strings.TrimPrefix(p, base)
	rel := strings.TrimPrefix(path.Clean("/"+rest), "/")

	switch {
	case rel == "":
		return IndexName, nil
	case strings.HasSuffix(rest, "/"):
		return rel + "/" + IndexName, nil
	default:
		return rel, nil
	}
}

// load finds the file for rel and returns its name, media type and
// content. Reads go through os.Root, so symlinks cannot escape dir.
func (h *Handler) load(rel string) (string, string, []byte, error) {
	root, err := os.OpenRoot(h.dir)
	if err != nil {
		return "", "", nil, &proxy.Error{Op: OpLoad, Target: h.dir, Message: "open document directory", Cause: err}
	}
	defer func() { _ = root.Close() }()

	for _, name := range h.candidates(rel) {
		mediaType, _ := h.formats.MediaTypeForExtension(path.Ext(name))

		data, err := readFile(root, name)
		switch {
		case err == nil:
			return name, mediaType, data, nil
		case errors.Is(err, fs.ErrNotExist), errors.Is(err, errIsDir):
			continue
		default:
			return "", "", nil, &proxy.Error{Op: OpLoad, Target: name, Message: "read document", Cause: err}
		}
	}
	return "", "", nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
}

// candidates lists the file names that may hold rel.
func (h *Handler) candidates(rel string) []string {
	if _, ok := h.formats.MediaTypeForExtension(path.Ext(rel)); ok {
		return []string{rel}
	}
	exts := h.formats.Extensions()
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		out = append(out, rel+ext)
	}
	return out
}

var errIsDir = errors.New("is a directory")

func readFile(root *os.Root, name string) ([]byte, error) {
	f, err := root.Open(filepath.FromSlash(name))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errIsDir
	}
	return io.ReadAll(f)
}

// StatusCode maps err to the HTTP status sent for it.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	default:
		return proxy.StatusCode(err)
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	log := h.logger.WithContext(r.Context())
	fields := []observability.Field{
		observability.String("path", r.URL.Path),
		observability.Int("status", status),
		observability.Error(err),
	}

	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error("document error", fields...)
		message = "failed to load document"
	} else {
		log.Debug("document request rejected", fields...)
	}

	body, _ := json.Marshal(errorResponse{
		Error:   strings.ToLower(http.StatusText(status)),
		Message: message,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
