package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"ENVIRONMENT", "HOST", "PORT", "SERVE_DIR", "PAGE_PATH", "SELECTOR",
	"EXPECTED_VERSION", "SCREENSHOT_PATH", "WARMUP_TIMEOUT", "POLL_INTERVAL",
	"LOCATE_TIMEOUT", "TIMEOUT", "HEADLESS", "CHROME_PATH", "DB_URL",
}

// clearEnv unsets every key Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8002, cfg.Port)
	assert.Equal(t, ".", cfg.ServeDir)
	assert.Equal(t, "/index.html", cfg.PagePath)
	assert.Equal(t, "div", cfg.Selector)
	assert.Equal(t, "v1.1.0", cfg.ExpectedVersion)
	assert.Equal(t, "version_indicator.png", cfg.ScreenshotPath)
	assert.Equal(t, 5*time.Second, cfg.WarmupTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.LocateTimeout)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.Headless)
	assert.Empty(t, cfg.ChromePath)
	assert.Empty(t, cfg.DatabaseURL)

	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9100")
	t.Setenv("EXPECTED_VERSION", "v2.0.0")
	t.Setenv("TIMEOUT", "1m")
	t.Setenv("HEADLESS", "false")
	t.Setenv("DB_URL", "postgres://localhost/verifier")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "v2.0.0", cfg.ExpectedVersion)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.False(t, cfg.Headless)
	assert.Equal(t, "postgres://localhost/verifier", cfg.DatabaseURL)
}

func TestLoad_BadValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-port")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	valid := func(t *testing.T) *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"port too high", func(c *Config) { c.Port = 70000 }, "out of range"},
		{"negative port", func(c *Config) { c.Port = -1 }, "out of range"},
		{"relative page path", func(c *Config) { c.PagePath = "index.html" }, "must start with /"},
		{"blank selector", func(c *Config) { c.Selector = "  " }, "selector is empty"},
		{"no expected version", func(c *Config) { c.ExpectedVersion = "" }, "expected version is empty"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout must be positive"},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, "poll interval must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("several bad durations are reported in field order", func(t *testing.T) {
		cfg := valid(t)
		cfg.WarmupTimeout = 0
		cfg.PollInterval = 0
		cfg.LocateTimeout = 0
		cfg.Timeout = 0

		want := "warmup timeout must be positive, got 0s\n" +
			"poll interval must be positive, got 0s\n" +
			"locate timeout must be positive, got 0s\n" +
			"timeout must be positive, got 0s"
		for i := 0; i < 20; i++ {
			require.EqualError(t, cfg.Validate(), want)
		}
	})

	t.Run("port zero picks a free port", func(t *testing.T) {
		cfg := valid(t)
		cfg.Port = 0
		assert.NoError(t, cfg.Validate())
	})
}
