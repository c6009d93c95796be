package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8888", cfg.Port)
	assert.Equal(t, 8, cfg.Pin)
	assert.Equal(t, BackendSysfs, cfg.GPIOBackend)
	assert.Equal(t, 3*time.Second, cfg.ProbeInterval)
	assert.Equal(t, 10*time.Second, cfg.EvictionTimeout)
	assert.Equal(t, 3*time.Second, cfg.PressDuration)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Debug)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PIN", "17")
	t.Setenv("PROBE_INTERVAL", "1s")
	t.Setenv("EVICTION_TIMEOUT", "4s")
	t.Setenv("GPIO_BACKEND", "log")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 17, cfg.Pin)
	assert.Equal(t, time.Second, cfg.ProbeInterval)
	assert.Equal(t, 4*time.Second, cfg.EvictionTimeout)
	assert.Equal(t, BackendLog, cfg.GPIOBackend)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_FlagsWinOverEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PIN", "17")

	cfg, err := Load([]string{"--port", "80", "--pin=4", "--probe-interval", "500ms"})
	require.NoError(t, err)

	assert.Equal(t, "80", cfg.Port)
	assert.Equal(t, 4, cfg.Pin)
	assert.Equal(t, 500*time.Millisecond, cfg.ProbeInterval)
}

func TestLoad_DebugForcesDebugLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load([]string{"--debug"})
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_UnknownFlag(t *testing.T) {
	_, err := Load([]string{"--no-such-flag"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse flags")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"non-numeric port", "PORT", "http", "PORT must be a number"},
		{"port out of range", "PORT", "70000", "PORT must be a number"},
		{"negative pin", "PIN", "-1", "PIN must not be negative"},
		{"unknown backend", "GPIO_BACKEND", "spi", "GPIO_BACKEND must be"},
		{"zero probe interval", "PROBE_INTERVAL", "0s", "PROBE_INTERVAL must be positive"},
		{"negative eviction timeout", "EVICTION_TIMEOUT", "-1s", "EVICTION_TIMEOUT must be positive"},
		{"zero press duration", "PRESS_DURATION", "0s", "PRESS_DURATION must be positive"},
		{"zero rate limit", "TRIGGER_RATE_LIMIT", "0", "TRIGGER_RATE_LIMIT and TRIGGER_RATE_BURST must be positive"},
		{"zero max connections", "MAX_CONNECTIONS", "0", "MAX_CONNECTIONS must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load(nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
