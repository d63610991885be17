package telemetry

import (
	"testing"
	"time"

	"github.com/fyrsmithlabs/assessd/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, ProtocolGRPC, cfg.Protocol)
	assert.Equal(t, "assessd", cfg.ServiceName)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.Sampling.Rate)
	assert.Equal(t, 15*time.Second, cfg.Metrics.ExportInterval.Duration())
	assert.Equal(t, 5*time.Second, cfg.Shutdown.Timeout.Duration())
	require.NoError(t, cfg.Validate())
}

func TestFromSettings(t *testing.T) {
	cfg := FromSettings(config.TelemetryConfig{
		Enabled:     true,
		Endpoint:    "https://otel.example.com",
		Protocol:    ProtocolHTTP,
		ServiceName: "assessd-staging",
		SampleRate:  0.25,
	}, "1.4.0")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "https://otel.example.com", cfg.Endpoint)
	assert.Equal(t, ProtocolHTTP, cfg.Protocol)
	assert.Equal(t, "assessd-staging", cfg.ServiceName)
	assert.Equal(t, "1.4.0", cfg.ServiceVersion)
	assert.False(t, cfg.Insecure)
	assert.Equal(t, 0.25, cfg.Sampling.Rate)
	require.NoError(t, cfg.Validate())

	defaults := FromSettings(config.Default().Telemetry, "")
	assert.Equal(t, "dev", defaults.ServiceVersion)
	assert.Equal(t, "localhost:4317", defaults.Endpoint)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := NewDefaultConfig()
		cfg.Enabled = true
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"disabled skips validation", func(c *Config) { *c = Config{} }, ""},
		{"missing endpoint", func(c *Config) { c.Endpoint = "" }, "endpoint is required"},
		{"missing service name", func(c *Config) { c.ServiceName = "" }, "service_name is required"},
		{"missing version", func(c *Config) { c.ServiceVersion = "" }, "service_version is required"},
		{"bad protocol", func(c *Config) { c.Protocol = "udp" }, "protocol must be"},
		{"insecure remote", func(c *Config) { c.Endpoint = "otel.example.com:4317" }, "insecure connections"},
		{"insecure ipv6 loopback", func(c *Config) { c.Endpoint = "[::1]:4317" }, ""},
		{"insecure 127 range", func(c *Config) { c.Endpoint = "127.0.0.2:4317" }, ""},
		{"secure remote", func(c *Config) { c.Endpoint = "otel.example.com:4317"; c.Insecure = false }, ""},
		{"rate too high", func(c *Config) { c.Sampling.Rate = 1.5 }, "sampling.rate"},
		{"rate negative", func(c *Config) { c.Sampling.Rate = -0.1 }, "sampling.rate"},
		{"zero export interval", func(c *Config) { c.Metrics.ExportInterval = 0 }, "export_interval"},
		{"zero shutdown timeout", func(c *Config) { c.Shutdown.Timeout = 0 }, "shutdown.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "otel.example.com:4318", stripScheme("https://otel.example.com:4318"))
	assert.Equal(t, "localhost:4318", stripScheme("http://localhost:4318"))
	assert.Equal(t, "localhost:4317", stripScheme("localhost:4317"))
}
