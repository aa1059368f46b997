// Package config loads acesupd settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/acesup/engine"
	"github.com/jason-s-yu/acesup/service/internal/dwell"
)

// DevTokenSecret signs table tokens when ACESUP_TOKEN_SECRET is unset.
const DevTokenSecret = "acesup-dev-secret"

// Config is the process configuration.
type Config struct {
	HTTPAddr  string `env:"ACESUP_HTTP_ADDR" envDefault:":8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	TokenSecret string        `env:"ACESUP_TOKEN_SECRET" envDefault:"acesup-dev-secret"`
	TokenTTL    time.Duration `env:"ACESUP_TOKEN_TTL" envDefault:"12h"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	AllowedOrigins []string      `env:"ACESUP_ALLOWED_ORIGINS" envSeparator:","`
	TableIdle      time.Duration `env:"ACESUP_TABLE_IDLE" envDefault:"10m"`
	MaxTables      int           `env:"ACESUP_MAX_TABLES" envDefault:"1000"`

	DwellMs          int `env:"ACESUP_DWELL_MS" envDefault:"2000"`
	DwellTickMs      int `env:"ACESUP_DWELL_TICK_MS" envDefault:"50"`
	DwellMinMs       int `env:"ACESUP_DWELL_MIN_MS" envDefault:"50"`
	DwellMaxMs       int `env:"ACESUP_DWELL_MAX_MS" envDefault:"10000"`
	StripJackDwellMs int `env:"STRIPJACK_DWELL_MS" envDefault:"50"`
	StripJackTickMs  int `env:"STRIPJACK_DWELL_TICK_MS" envDefault:"10"`
	NoticeMs         int `env:"ACESUP_NOTICE_MS" envDefault:"2000"`

	DealPolicy string `env:"ACESUP_DEAL_POLICY" envDefault:"always"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads path (if it exists) into the environment without overriding
// variables already set, then parses and validates Config.
func Load(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT %q: want text or json", c.LogFormat)
	}
	if _, err := engine.ParseDealPolicy(c.DealPolicy); err != nil {
		return fmt.Errorf("ACESUP_DEAL_POLICY: %w", err)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("ACESUP_TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.TableIdle <= 0 {
		return fmt.Errorf("ACESUP_TABLE_IDLE must be positive, got %s", c.TableIdle)
	}
	if c.MaxTables <= 0 {
		return fmt.Errorf("ACESUP_MAX_TABLES must be positive, got %d", c.MaxTables)
	}
	if c.DwellMinMs <= 0 || c.DwellMinMs > c.DwellMaxMs {
		return fmt.Errorf("dwell bounds %d..%d ms are invalid", c.DwellMinMs, c.DwellMaxMs)
	}
	if c.DwellMs < c.DwellMinMs || c.DwellMs > c.DwellMaxMs {
		return fmt.Errorf("ACESUP_DWELL_MS %d outside %d..%d", c.DwellMs, c.DwellMinMs, c.DwellMaxMs)
	}
	if c.StripJackDwellMs < c.DwellMinMs || c.StripJackDwellMs > c.DwellMaxMs {
		return fmt.Errorf("STRIPJACK_DWELL_MS %d outside %d..%d", c.StripJackDwellMs, c.DwellMinMs, c.DwellMaxMs)
	}
	if c.DwellTickMs <= 0 || c.StripJackTickMs <= 0 {
		return fmt.Errorf("dwell ticks must be positive")
	}
	if c.NoticeMs <= 0 {
		return fmt.Errorf("ACESUP_NOTICE_MS must be positive, got %d", c.NoticeMs)
	}
	return nil
}

// Rules returns the Aces Up house rules.
func (c Config) Rules() engine.HouseRules {
	p, _ := engine.ParseDealPolicy(c.DealPolicy)
	return engine.HouseRules{DealPolicy: p}
}

// AcesUpDwell returns the Aces Up hover-to-click settings. Automation starts
// disabled.
func (c Config) AcesUpDwell() dwell.Options {
	return dwell.Options{
		Duration:    ms(c.DwellMs),
		Tick:        ms(c.DwellTickMs),
		MinDuration: ms(c.DwellMinMs),
		MaxDuration: ms(c.DwellMaxMs),
	}
}

// StripJackDwell returns the quick-draw settings. Automation starts enabled.
func (c Config) StripJackDwell() dwell.Options {
	return dwell.Options{
		Duration:    ms(c.StripJackDwellMs),
		Tick:        ms(c.StripJackTickMs),
		MinDuration: ms(c.DwellMinMs),
		MaxDuration: ms(c.DwellMaxMs),
		Enabled:     true,
	}
}

// NoticeTTL is how long notices stay visible.
func (c Config) NoticeTTL() time.Duration { return ms(c.NoticeMs) }

// Logger builds the process logger.
func (c Config) Logger() *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
