package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
)

const (
	CaptureManual   = "manual"
	CaptureSurround = "surround"
)

type Config struct {
	Port int `validate:"min=1,max=65535"`

	BoardSize   int    `validate:"min=5,max=100"`
	WinLength   int    `validate:"min=3,ltefield=BoardSize"`
	CaptureMode string `validate:"oneof=manual surround"`

	EmptyRoomGrace  time.Duration `validate:"gt=0"`
	MaxRoomLifetime time.Duration `validate:"gt=0"`
	SweepInterval   time.Duration `validate:"gt=0"`

	RateLimitPerSecond int      `validate:"min=1"`
	AllowedOrigins     []string `validate:"min=1"`

	LogLevel  string `validate:"oneof=trace debug info warn error"`
	LogFormat string `validate:"oneof=console json"`

	DatabaseURL string

	// parse failures that fell back to defaults
	problems []error
}

func Default() Config {
	return Config{
		Port:               8080,
		BoardSize:          20,
		WinLength:          5,
		CaptureMode:        CaptureManual,
		EmptyRoomGrace:     30 * time.Minute,
		MaxRoomLifetime:    2 * time.Hour,
		SweepInterval:      10 * time.Minute,
		RateLimitPerSecond: 10,
		AllowedOrigins:     []string{"*"},
		LogLevel:           "info",
		LogFormat:          "console",
	}
}

func Load() Config {
	def := Default()
	cfg := Config{}
	cfg.Port = cfg.getenvInt("PORT", def.Port)
	cfg.BoardSize = cfg.getenvInt("BOARD_SIZE", def.BoardSize)
	cfg.WinLength = cfg.getenvInt("WIN_LENGTH", def.WinLength)
	cfg.CaptureMode = strings.ToLower(getenvString("CAPTURE_MODE", def.CaptureMode))
	cfg.EmptyRoomGrace = cfg.getenvDuration("EMPTY_ROOM_GRACE", def.EmptyRoomGrace)
	cfg.MaxRoomLifetime = cfg.getenvDuration("MAX_ROOM_LIFETIME", def.MaxRoomLifetime)
	cfg.SweepInterval = cfg.getenvDuration("SWEEP_INTERVAL", def.SweepInterval)
	cfg.RateLimitPerSecond = cfg.getenvInt("RATE_LIMIT_PER_SECOND", def.RateLimitPerSecond)
	cfg.AllowedOrigins = getenvList("ALLOWED_ORIGINS", def.AllowedOrigins)
	cfg.LogLevel = strings.ToLower(getenvString("LOG_LEVEL", def.LogLevel))
	cfg.LogFormat = strings.ToLower(getenvString("LOG_FORMAT", def.LogFormat))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	return cfg
}

// Validate reports values that could not be parsed and values out of range.
func (c Config) Validate() error {
	errs := append([]error(nil), c.problems...)
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("config %s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
		} else {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func getenvString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
		c.problems = append(c.problems, fmt.Errorf("config %s: %q is not an integer, using %d", key, v, def))
	}
	return def
}

func (c *Config) getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
		c.problems = append(c.problems, fmt.Errorf("config %s: %q is not a duration, using %s", key, v, def))
	}
	return def
}
