package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "BOARD_SIZE", "WIN_LENGTH", "CAPTURE_MODE", "EMPTY_ROOM_GRACE",
		"MAX_ROOM_LIFETIME", "SWEEP_INTERVAL", "RATE_LIMIT_PER_SECOND", "ALLOWED_ORIGINS",
		"LOG_LEVEL", "LOG_FORMAT", "DATABASE_URL"} {
		t.Setenv(key, "")
	}
	assert := assert.New(t)

	cfg := Load()

	assert.Equal(8080, cfg.Port)
	assert.Equal(20, cfg.BoardSize)
	assert.Equal(5, cfg.WinLength)
	assert.Equal(CaptureManual, cfg.CaptureMode)
	assert.Equal(30*time.Minute, cfg.EmptyRoomGrace)
	assert.Equal(2*time.Hour, cfg.MaxRoomLifetime)
	assert.Equal(10*time.Minute, cfg.SweepInterval)
	assert.Equal(10, cfg.RateLimitPerSecond)
	assert.Equal([]string{"*"}, cfg.AllowedOrigins)
	assert.Empty(cfg.DatabaseURL)
	assert.NoError(cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	assert := assert.New(t)
	t.Setenv("PORT", "9000")
	t.Setenv("BOARD_SIZE", "15")
	t.Setenv("CAPTURE_MODE", "Surround")
	t.Setenv("EMPTY_ROOM_GRACE", "45s")
	t.Setenv("ALLOWED_ORIGINS", "example.com, *.example.org")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg := Load()

	assert.Equal(9000, cfg.Port)
	assert.Equal(15, cfg.BoardSize)
	assert.Equal(CaptureSurround, cfg.CaptureMode)
	assert.Equal(45*time.Second, cfg.EmptyRoomGrace)
	assert.Equal([]string{"example.com", "*.example.org"}, cfg.AllowedOrigins)
	assert.Equal("json", cfg.LogFormat)
	assert.NoError(cfg.Validate())
}

func TestInvalidValuesFallBackAndAreReported(t *testing.T) {
	assert := assert.New(t)
	t.Setenv("BOARD_SIZE", "big")
	t.Setenv("SWEEP_INTERVAL", "often")

	cfg := Load()

	assert.Equal(20, cfg.BoardSize)
	assert.Equal(10*time.Minute, cfg.SweepInterval)
	err := cfg.Validate()
	assert.ErrorContains(err, "BOARD_SIZE")
	assert.ErrorContains(err, "SWEEP_INTERVAL")
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"board too small", func(c *Config) { c.BoardSize = 3; c.WinLength = 3 }, "BoardSize"},
		{"win longer than board", func(c *Config) { c.BoardSize = 6; c.WinLength = 7 }, "WinLength"},
		{"unknown capture mode", func(c *Config) { c.CaptureMode = "flood" }, "CaptureMode"},
		{"zero grace", func(c *Config) { c.EmptyRoomGrace = 0 }, "EmptyRoomGrace"},
		{"no origins", func(c *Config) { c.AllowedOrigins = nil }, "AllowedOrigins"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "LogLevel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.field)
		})
	}
}
