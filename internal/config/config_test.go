package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	assert.Equal(t, DefaultAddress, cfg.Server.Address)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, int64(DefaultMaxRequestBodySize), cfg.Server.MaxRequestBodySize)
	assert.Equal(t, int64(DefaultMaxResponseSize), cfg.Transport.MaxResponseSize)
	assert.Equal(t, DefaultBreakerThreshold, cfg.Transport.CircuitBreaker.Threshold)
	assert.False(t, cfg.Transport.CircuitBreaker.Enabled)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, DefaultBurst, cfg.RateLimit.Burst)
	assert.Equal(t, DefaultServiceName, cfg.Observability.Tracing.ServiceName)
	assert.InDelta(t, 1.0, cfg.Observability.Tracing.SamplingRate, 0.0001)
	assert.Equal(t, "stdout", cfg.Observability.Logging.Output)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Server: ServerConfig{Address: ":9999", ReadTimeout: Duration(time.Second)},
		Proxies: []ProxyConfig{
			{Name: "named"},
			{},
		},
		Documents: []DocumentConfig{{}},
		Observability: ObservabilityConfig{
			Metrics: &MetricsConfig{Enabled: false, Port: 9100},
		},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, "named", cfg.Proxies[0].Name)
	assert.Equal(t, "proxy-1", cfg.Proxies[1].Name)
	assert.Equal(t, "documents-0", cfg.Documents[0].Name)
	assert.False(t, cfg.Observability.Metrics.Enabled)
	assert.Equal(t, 9100, cfg.Observability.Metrics.Port)
	assert.Equal(t, DefaultMetricsPath, cfg.Observability.Metrics.Path)
}

func TestDuration_YAML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{name: "seconds", input: `d: 30s`, expected: 30 * time.Second},
		{name: "compound", input: `d: 1h30m`, expected: 90 * time.Minute},
		{name: "empty", input: `d: ""`, expected: 0},
		{name: "null", input: `d:`, expected: 0},
		{name: "bare seconds", input: `d: 45`, expected: 45 * time.Second},
		{name: "invalid", input: `d: later`, wantErr: true},
		{name: "sequence", input: `d: [1s]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out struct {
				D Duration `yaml:"d"`
			}
			err := yaml.Unmarshal([]byte(tt.input), &out)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out.D.Duration())
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(struct {
		D Duration `json:"d"`
	}{D: Duration(1500 * time.Millisecond)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"1.5s"}`, string(data))

	var out struct {
		D Duration `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2m"}`), &out))
	assert.Equal(t, 2*time.Minute, out.D.Duration())

	require.NoError(t, json.Unmarshal([]byte(`{"d":null}`), &out))
	assert.Zero(t, out.D.Duration())

	require.NoError(t, json.Unmarshal([]byte(`{"d":2.5}`), &out))
	assert.Equal(t, 2500*time.Millisecond, out.D.Duration())

	assert.Error(t, json.Unmarshal([]byte(`{"d":"soon"}`), &out))
	assert.Error(t, json.Unmarshal([]byte(`{"d":true}`), &out))
}

func TestDuration_MarshalYAML(t *testing.T) {
	t.Parallel()

	data, err := yaml.Marshal(struct {
		D Duration `yaml:"d"`
	}{D: Duration(5 * time.Second)})
	require.NoError(t, err)
	assert.Equal(t, "d: 5s\n", string(data))
}
