package proxy

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/rdfproxy/internal/formats"
	"github.com/vyrodovalexey/rdfproxy/internal/graph"
)

const (
	forwardFrom = "http://example.com:8080/"
	forwardTo   = "http://example.org/proxy/"
)

const backendNTriples = "<http://example.com:8080/s> <http://example.com:8080/p> <http://example.com:8080/o> .\n" +
	"<http://example.com:8080/s> <http://example.com:8080/label> \"http://example.com:8080/literal\" .\n"

// producer writes body in chunks with the given headers and status.
func producer(status int, contentType string, chunks ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		total := 0
		for _, c := range chunks {
			total += len(c)
		}
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.Header().Set("Content-Length", strconv.Itoa(total))
		w.WriteHeader(status)
		for _, c := range chunks {
			_, _ = io.WriteString(w, c)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	})
}

type capturedError struct {
	calls int
	err   error
}

func (c *capturedError) handler() ErrorHandler {
	return func(w http.ResponseWriter, _ *http.Request, err error) {
		c.calls++
		c.err = err
		w.WriteHeader(StatusCode(err))
	}
}

func TestForward_RewritesBody(t *testing.T) {
	t.Parallel()

	half := len(backendNTriples) / 2
	h := Forward(forwardFrom, forwardTo)(producer(http.StatusOK, formats.MediaTypeNTriples,
		backendNTriples[:half], backendNTriples[half:]))

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/proxy/s", nil)
	r.Header.Set("Accept", formats.MediaTypeNTriples)
	h.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Length"))
	assert.Equal(t, formats.MediaTypeNTriples, rec.Header().Get("Content-Type"))
	assert.NotContains(t, strings.ReplaceAll(rec.Body.String(), "\"http://example.com:8080/literal\"", ""), forwardFrom)
	assert.False(t, rec.Flushed)

	expected := graph.New(
		named("http://example.org/proxy/s", "http://example.org/proxy/p", "http://example.org/proxy/o"),
		graph.NewTriple(graph.NamedNode("http://example.org/proxy/s"), graph.NamedNode("http://example.org/proxy/label"),
			graph.Literal("http://example.com:8080/literal")),
	)
	assert.True(t, expected.Equal(parseBody(t, rec)))
}

func TestForward_NegotiatesMediaType(t *testing.T) {
	t.Parallel()

	turtle := "<http://example.com:8080/s> <http://example.com:8080/p> <http://example.com:8080/o> .\n"
	h := Forward(forwardFrom, forwardTo)(producer(http.StatusCreated, formats.MediaTypeTurtle, turtle))

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/proxy/s", nil)
	r.Header.Set("Accept", "text/html;q=0.9, text/turtle")
	h.ServeHTTP(rec, r)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, formats.MediaTypeTurtle, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<http://example.org/proxy/s>")
	assert.NotContains(t, rec.Body.String(), forwardFrom)
}

func TestForward_KeepsOtherHeaders(t *testing.T) {
	t.Parallel()

	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		_, _ = io.WriteString(w, ntriple)
	})

	rec := httptest.NewRecorder()
	rec.Header().Set("X-Request-ID", "abc")
	Forward(forwardFrom, forwardTo)(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"v1"`, rec.Header().Get("ETag"))
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, ntriple, rec.Body.String())
}

func TestForward_Passthrough(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "empty body", status: http.StatusNoContent},
		{name: "empty ok", status: http.StatusOK},
		{name: "error status", status: http.StatusNotFound, body: `{"error":"not found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var chunks []string
			if tt.body != "" {
				chunks = append(chunks, tt.body)
			}
			captured := &capturedError{}
			h := Forward(forwardFrom, forwardTo, WithErrorHandler(captured.handler()))(
				producer(tt.status, "application/json", chunks...))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Zero(t, captured.calls)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestForward_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		accept   string
		inner    http.Handler
		target   error
		expected int
	}{
		{
			name:     "unparseable body",
			accept:   formats.MediaTypeTurtle,
			inner:    producer(http.StatusOK, formats.MediaTypeTurtle, "<http://example.com:8080/s> <http://example.com:8080/p>"),
			target:   ErrParse,
			expected: http.StatusInternalServerError,
		},
		{
			name:     "not acceptable",
			accept:   "image/png",
			inner:    producer(http.StatusOK, formats.MediaTypeNTriples, ntriple),
			target:   ErrNotAcceptable,
			expected: http.StatusNotAcceptable,
		},
		{
			name:   "stream aborted",
			accept: formats.MediaTypeNTriples,
			inner: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, "<http://example.com:8080/s> ")
				AbortStream(w, errors.New("upstream reset"))
			}),
			target:   ErrStream,
			expected: http.StatusInternalServerError,
		},
		{
			name:   "producer panic",
			accept: formats.MediaTypeNTriples,
			inner: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, ntriple)
				panic("boom")
			}),
			target:   ErrStream,
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			captured := &capturedError{}
			h := Forward(forwardFrom, forwardTo, WithErrorHandler(captured.handler()))(tt.inner)

			rec := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Accept", tt.accept)
			h.ServeHTTP(rec, r)

			assert.Equal(t, 1, captured.calls)
			assert.ErrorIs(t, captured.err, tt.target)
			assert.Equal(t, tt.expected, rec.Code)
			assert.Zero(t, rec.Body.Len())
			assert.Empty(t, rec.Header().Get("Content-Type"))
			assert.Empty(t, rec.Header().Get("Content-Length"))
		})
	}
}

func TestForward_DefaultErrorHandlerSendsJSON(t *testing.T) {
	t.Parallel()

	h := Forward(forwardFrom, forwardTo)(producer(http.StatusOK, formats.MediaTypeTurtle, "<http://a.test/s> <http://a.test/p>"))

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Accept", formats.MediaTypeTurtle)
	h.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Content-Length"))
	assert.NotContains(t, rec.Body.String(), "a.test")
}

func TestInterceptWriter(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	iw := newInterceptWriter(rec)

	iw.WriteHeader(http.StatusAccepted)
	iw.WriteHeader(http.StatusTeapot)
	n, err := iw.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, http.StatusAccepted, iw.status)

	iw.Flush()
	assert.False(t, rec.Flushed)

	_, _, err = http.NewResponseController(iw).Hijack()
	assert.ErrorIs(t, err, errHijackRefused)

	assert.True(t, AbortStream(iw, errors.New("first")))
	assert.True(t, AbortStream(iw, errors.New("second")))
	assert.EqualError(t, iw.err, "first")

	_, err = iw.Write([]byte("more"))
	assert.EqualError(t, err, "first")

	iw.release()
	_, err = iw.Write([]byte("late"))
	assert.ErrorIs(t, err, errInterceptDone)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "abc", rec.Body.String())
}

func TestAbortStream_NotIntercepted(t *testing.T) {
	t.Parallel()

	assert.False(t, AbortStream(httptest.NewRecorder(), errors.New("x")))
}
