package telemetry

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestNewConfigFromEnv_Defaults(t *testing.T) {
	unsetEnv(t, "OTEL_ENABLED", "OTEL_ENDPOINT", "OTEL_SERVICE_NAME")

	cfg, err := NewConfigFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Empty(t, cfg.Endpoint)
	assert.Equal(t, "mission-engine", cfg.ServiceName)
}

func TestNewConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("OTEL_SERVICE_NAME", "mission-seeder")

	cfg, err := NewConfigFromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "http://localhost:4318", cfg.Endpoint)
	assert.Equal(t, "mission-seeder", cfg.ServiceName)
}

func TestNewConfigFromEnv_InvalidBool(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "maybe")

	_, err := NewConfigFromEnv()
	assert.Error(t, err)
}

func TestSetup_Noop(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{name: "nil config", cfg: nil},
		{name: "empty endpoint", cfg: &Config{Enabled: true, ServiceName: "test"}},
		{name: "disabled", cfg: &Config{Enabled: false, Endpoint: "http://localhost:4318", ServiceName: "test"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), tt.cfg)
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			assert.NoError(t, shutdown(ctx), "noop shutdown ignores a cancelled context")
		})
	}
}

func TestSetup_CreatesProvider(t *testing.T) {
	// Non-routable address so no export happens.
	cfg := &Config{Enabled: true, Endpoint: "http://192.0.2.1:4318", ServiceName: "test"}

	shutdown, err := Setup(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
