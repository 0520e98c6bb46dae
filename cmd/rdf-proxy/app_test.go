package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/rdfproxy/internal/config"
	"github.com/vyrodovalexey/rdfproxy/internal/formats"
	"github.com/vyrodovalexey/rdfproxy/internal/health"
	"github.com/vyrodovalexey/rdfproxy/internal/observability"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const personNT = "<http://vocab.internal/Person> <http://www.w3.org/2000/01/rdf-schema#label> \"Person\" .\n"

// newBackend answers every request with one triple about the requested
// resource, using the backend's own base IRI.
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", formats.MediaTypeNTriples)
		_, _ = fmt.Fprintf(w, "<%s%s> <%s/ds/label> \"x\" .\n", srv.URL, r.URL.Path, srv.URL)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newVocabDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Person.nt"), []byte(personNT), 0o600))
	return dir
}

func configYAML(backendURL, vocabDir string, extra string) string {
	return fmt.Sprintf(`
server:
  address: 127.0.0.1:0
  shutdownTimeout: 5s
proxies:
  - name: dataset
    endpoint: %s/ds/
    pathname: /data/
%sdocuments:
  - name: vocab
    pathname: /vocab/
    dir: %s
    from: http://vocab.internal/
    to: https://example.org/vocab/
rateLimit:
  enabled: true
  requestsPerSecond: 1000
  burst: 1000
observability:
  metrics:
    enabled: false
`, backendURL, extra, vocabDir)
}

func otherProxyYAML(backendURL string) string {
	return fmt.Sprintf(`  - name: other
    endpoint: %s/other/
    pathname: /other/
`, backendURL)
}

func newTestConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()

	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	require.NoError(t, err)
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *application {
	t.Helper()

	app, err := initApplication(cfg, observability.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		if app.rateLimiter != nil {
			app.rateLimiter.Stop()
		}
	})
	return app
}

func get(h http.Handler, target, accept string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.Header.Set("Accept", accept)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestInitApplication_ServesMounts(t *testing.T) {
	t.Parallel()

	backend := newBackend(t)
	app := newTestApp(t, newTestConfig(t, configYAML(backend.URL, newVocabDir(t), "")))
	h := app.server.Handler()

	rec := get(h, "http://example.org/data/s", formats.MediaTypeNTriples)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "<http://example.org/data/s>")
	assert.NotContains(t, rec.Body.String(), backend.URL)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = get(h, "http://example.org/vocab/Person", formats.MediaTypeNTriples)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "<https://example.org/vocab/Person>")

	rec = get(h, "http://example.org/elsewhere", formats.MediaTypeNTriples)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, []string{"documents:vocab", "endpoint:dataset"}, app.healthChecker.CheckNames())
	assert.NotNil(t, app.rateLimiter)
}

func TestInitApplication_InvalidProxy(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Proxies = []config.ProxyConfig{{Name: "bad", Endpoint: "ftp://backend/", Pathname: "/bad/"}}

	_, err := initApplication(cfg, observability.NopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proxy bad")
}

func TestApplication_Reload(t *testing.T) {
	t.Parallel()

	backend := newBackend(t)
	dir := newVocabDir(t)
	app := newTestApp(t, newTestConfig(t, configYAML(backend.URL, dir, "")))
	oldLimiter := app.rateLimiter

	rec := get(app.server.Handler(), "http://example.org/other/s", formats.MediaTypeNTriples)
	require.Equal(t, http.StatusNotFound, rec.Code)

	newCfg := newTestConfig(t, configYAML(backend.URL, dir, otherProxyYAML(backend.URL)))
	require.NoError(t, app.reload(newCfg))

	rec = get(app.server.Handler(), "http://example.org/other/s", formats.MediaTypeNTriples)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "<http://example.org/other/s>")

	assert.Same(t, newCfg, app.currentConfig())
	assert.NotSame(t, oldLimiter, app.rateLimiter)
	assert.Contains(t, app.healthChecker.CheckNames(), "endpoint:other")
	assert.InDelta(t, 1, testutil.ToFloat64(app.reloadMetrics.configReloadTotal.WithLabelValues(reloadSuccess)), 0)
}

func TestApplication_ReloadFailureKeepsServing(t *testing.T) {
	t.Parallel()

	backend := newBackend(t)
	cfg := newTestConfig(t, configYAML(backend.URL, newVocabDir(t), ""))
	app := newTestApp(t, cfg)

	bad := newTestConfig(t, configYAML(backend.URL, newVocabDir(t), ""))
	bad.Proxies[0].MediaType = "text/html"

	require.Error(t, app.reload(bad))

	assert.Same(t, cfg, app.currentConfig())
	rec := get(app.server.Handler(), "http://example.org/data/s", formats.MediaTypeNTriples)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 1, testutil.ToFloat64(app.reloadMetrics.configReloadTotal.WithLabelValues(reloadError)), 0)
}

func TestServe_ShutdownOnCancel(t *testing.T) {
	t.Parallel()

	backend := newBackend(t)
	app := newTestApp(t, newTestConfig(t, configYAML(backend.URL, newVocabDir(t), "")))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, app, "")
	}()

	require.Eventually(t, app.server.IsRunning, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + app.server.Addr().String() + "/vocab/Person")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}

	assert.False(t, app.server.IsRunning())
	assert.Equal(t, health.StatusUnhealthy, app.healthChecker.Readiness(context.Background()).Status)
}

func TestServe_WatchesConfigFile(t *testing.T) {
	t.Parallel()

	backend := newBackend(t)
	dir := newVocabDir(t)
	path := filepath.Join(t.TempDir(), "rdfproxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML(backend.URL, dir, "")), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	app := newTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, app, path)
	}()
	defer func() {
		cancel()
		<-done
	}()

	require.Eventually(t, app.server.IsRunning, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(configYAML(backend.URL, dir, otherProxyYAML(backend.URL))), 0o600))

	assert.Eventually(t, func() bool {
		rec := get(app.server.Handler(), "http://example.org/other/s", formats.MediaTypeNTriples)
		return rec.Code == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWarnRestartRequired(t *testing.T) {
	t.Parallel()

	oldCfg := config.DefaultConfig()
	newCfg := config.DefaultConfig()

	var buf strings.Builder
	logger, err := observability.NewLoggerWithWriter(observability.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	warnRestartRequired(logger, oldCfg, newCfg)
	assert.Empty(t, buf.String())

	newCfg.Server.Address = ":9999"
	newCfg.Observability.Tracing.Enabled = true
	warnRestartRequired(logger, oldCfg, newCfg)
	assert.Contains(t, buf.String(), "server listener settings changed")
	assert.Contains(t, buf.String(), "observability settings changed")
}

func TestEqualPtr(t *testing.T) {
	t.Parallel()

	a, b := 1, 1
	c := 2
	assert.True(t, equalPtr[int](nil, nil))
	assert.True(t, equalPtr(&a, &b))
	assert.False(t, equalPtr(&a, &c))
	assert.False(t, equalPtr(&a, nil))
}
