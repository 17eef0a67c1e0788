// Package config loads GigFinder settings. A YAML file supplies the base
// values, environment variables override them, and a .env file in the
// working directory is read into the environment first.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/gigfinder/gigfinder/internal/geo"
	"github.com/gigfinder/gigfinder/internal/logger"
	"github.com/gigfinder/gigfinder/internal/scraper"
	"github.com/gigfinder/gigfinder/internal/skiddle"
)

// Config holds all GigFinder settings.
type Config struct {
	Env      string `koanf:"env"`
	Port     int    `koanf:"port"`
	LogLevel string `koanf:"log_level"`

	// Storage: Postgres when DatabaseURL is set, else a JSON file in DataDir.
	DatabaseURL string `koanf:"database_url"`
	DataDir     string `koanf:"data_dir"`

	AdminToken string `koanf:"admin_token"`

	Skiddle SkiddleConfig `koanf:"skiddle"`

	RabbitMQURL      string `koanf:"rabbitmq_url"`
	ImageFallbackURL string `koanf:"image_fallback_url"`

	Scrapers []scraper.Config `koanf:"scrapers"`
}

// SkiddleConfig configures the third-party events API.
type SkiddleConfig struct {
	APIKey      string        `koanf:"api_key"`
	BaseURL     string        `koanf:"base_url"`
	Timeout     time.Duration `koanf:"timeout"`
	RadiusMiles float64       `koanf:"radius_miles"`
}

// Enabled reports whether the events API can be queried.
func (s SkiddleConfig) Enabled() bool {
	return s.APIKey != ""
}

// Configuration validation errors.
var (
	ErrInvalidPort     = errors.New("PORT must be a valid integer")
	ErrInvalidNumber   = errors.New("value must be a number")
	ErrInvalidDuration = errors.New("value must be a duration")
	ErrInvalidLogLevel = errors.New("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR")
	ErrInvalidEnv      = errors.New("ENV must be development, test or production")
	ErrMissingAdmin    = errors.New("ADMIN_TOKEN is required in production")
)

// Defaults.
const (
	DefaultEnv            = "development"
	DefaultPort           = 8080
	DefaultLogLevel       = "INFO"
	DefaultDataDir        = "~/.gigfinder"
	DefaultSkiddleTimeout = 5 * time.Second
	DefaultImageFallback  = "https://gigfinder.app/static/gig-placeholder.png"
)

// Load reads configuration from the optional YAML file at path, then from
// the environment. It returns the config and every problem found; the
// config is nil only when the file itself cannot be read.
func Load(path string) (*Config, []error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to read .env file", nil, err)
	}

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", path, err)}
		}
	}

	var errs []error

	port, err := envInt("GIGFINDER_PORT", k.Int("port"), DefaultPort)
	if err != nil {
		errs = append(errs, err)
	}
	timeout, err := envDuration("SKIDDLE_TIMEOUT", k.Duration("skiddle.timeout"), DefaultSkiddleTimeout)
	if err != nil {
		errs = append(errs, err)
	}
	radius, err := envFloat("SKIDDLE_RADIUS_MILES", k.Float64("skiddle.radius_miles"), geo.RadiusLocal)
	if err != nil {
		errs = append(errs, err)
	}

	cfg := &Config{
		Env:         envOr([]string{"GIGFINDER_ENV", "ENV"}, k.String("env"), DefaultEnv),
		Port:        port,
		LogLevel:    strings.ToUpper(envOr([]string{"LOG_LEVEL"}, k.String("log_level"), DefaultLogLevel)),
		DatabaseURL: envOr([]string{"DATABASE_URL"}, k.String("database_url"), ""),
		DataDir:     envOr([]string{"GIGFINDER_DATA_DIR"}, k.String("data_dir"), DefaultDataDir),
		AdminToken:  envOr([]string{"ADMIN_TOKEN"}, k.String("admin_token"), ""),
		Skiddle: SkiddleConfig{
			APIKey:      envOr([]string{"SKIDDLE_API_KEY"}, k.String("skiddle.api_key"), ""),
			BaseURL:     envOr([]string{"SKIDDLE_BASE_URL"}, k.String("skiddle.base_url"), skiddle.DefaultBaseURL),
			Timeout:     timeout,
			RadiusMiles: radius,
		},
		RabbitMQURL:      envOr([]string{"RABBITMQ_URL"}, k.String("rabbitmq_url"), ""),
		ImageFallbackURL: envOr([]string{"IMAGE_FALLBACK_URL"}, k.String("image_fallback_url"), DefaultImageFallback),
	}

	if k.Exists("scrapers") {
		if err := k.Unmarshal("scrapers", &cfg.Scrapers); err != nil {
			errs = append(errs, fmt.Errorf("scrapers: %w", err))
		}
	}

	errs = append(errs, cfg.Validate()...)
	return cfg, errs
}

// Validate checks the loaded values.
func (c *Config) Validate() []error {
	var errs []error

	switch c.Env {
	case "development", "test", "production":
	default:
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidEnv, c.Env))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: %d is out of range", ErrInvalidPort, c.Port))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidLogLevel, c.LogLevel))
	}
	if c.IsProduction() && c.AdminToken == "" {
		errs = append(errs, ErrMissingAdmin)
	}
	for _, s := range c.Scrapers {
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// LogSummary returns the settings suitable for logging, with secrets masked.
func (c *Config) LogSummary() logger.Fields {
	return logger.Fields{
		"env":             c.Env,
		"port":            c.Port,
		"log_level":       c.LogLevel,
		"database_url":    maskDatabaseURL(c.DatabaseURL),
		"data_dir":        c.DataDir,
		"admin_token":     maskSecret(c.AdminToken),
		"skiddle_api_key": maskSecret(c.Skiddle.APIKey),
		"skiddle_timeout": c.Skiddle.Timeout.String(),
		"rabbitmq_url":    maskDatabaseURL(c.RabbitMQURL),
		"scrapers":        len(c.Scrapers),
	}
}

func envOr(keys []string, fileVal, def string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if fileVal != "" {
		return fileVal
	}
	return def
}

func envInt(key string, fileVal, def int) (int, error) {
	if val := os.Getenv(key); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, ErrInvalidPort)
		}
		return i, nil
	}
	if fileVal != 0 {
		return fileVal, nil
	}
	return def, nil
}

func envFloat(key string, fileVal, def float64) (float64, error) {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, ErrInvalidNumber)
		}
		return f, nil
	}
	if fileVal != 0 {
		return fileVal, nil
	}
	return def, nil
}

func envDuration(key string, fileVal, def time.Duration) (time.Duration, error) {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, ErrInvalidDuration)
		}
		return d, nil
	}
	if fileVal != 0 {
		return fileVal, nil
	}
	return def, nil
}

func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL hides the password in a user:password@host URL.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}
	rest := s[schemeEnd+3:]
	at := strings.Index(rest, "@")
	if at == -1 {
		return s
	}
	colon := strings.Index(rest[:at], ":")
	if colon == -1 {
		return s
	}
	return s[:schemeEnd+3] + rest[:colon] + ":****" + rest[at:]
}
