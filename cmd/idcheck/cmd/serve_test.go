package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/idcheck/internal/config"
)

func TestConfigToServerConfig_Defaults(t *testing.T) {
	cfg := config.DefaultConfig()
	c := newFlagCommand(addServeFlags)

	sc := configToServerConfig(&cfg, c)
	assert.Equal(t, cfg.Server.Host, sc.Host)
	assert.Equal(t, cfg.Server.Port, sc.Port)
	assert.Equal(t, int64(cfg.Server.MaxUploadMB), sc.MaxUploadMB)
	assert.Equal(t, cfg.Server.TimeoutSec, sc.TimeoutSec)
	assert.Equal(t, cfg.Preprocess.MaxWidth, sc.MaxImageWidth)
	assert.Equal(t, cfg.Server.RateLimit.Enabled, sc.RateLimit.Enabled)
	assert.Equal(t, int64(cfg.Server.RateLimit.MaxDataPerDayMB), sc.RateLimit.MaxDataPerDayMB)
	assert.Equal(t, "dev", sc.Version)
	assert.NotNil(t, sc.Logger)
}

func TestConfigToServerConfig_FlagsOverride(t *testing.T) {
	cfg := config.DefaultConfig()
	c := newFlagCommand(addServeFlags)
	require.NoError(t, c.ParseFlags([]string{
		"--host", "0.0.0.0",
		"--port", "9090",
		"--cors-origin", "https://example.org",
		"--max-upload-size", "5",
		"--timeout", "15",
		"--rate-limit-enabled",
		"--requests-per-minute", "3",
		"--max-data-per-day", "10",
	}))

	sc := configToServerConfig(&cfg, c)
	assert.Equal(t, "0.0.0.0", sc.Host)
	assert.Equal(t, 9090, sc.Port)
	assert.Equal(t, "https://example.org", sc.CORSOrigin)
	assert.Equal(t, int64(5), sc.MaxUploadMB)
	assert.Equal(t, 15, sc.TimeoutSec)
	assert.True(t, sc.RateLimit.Enabled)
	assert.Equal(t, 3, sc.RateLimit.RequestsPerMinute)
	assert.Equal(t, cfg.Server.RateLimit.RequestsPerHour, sc.RateLimit.RequestsPerHour)
	assert.Equal(t, int64(10), sc.RateLimit.MaxDataPerDayMB)
}
