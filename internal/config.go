package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const DefaultBaseURL = "http://127.0.0.1:8000"

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Session SessionConfig `mapstructure:"session"`
	Logging LoggingConfig `mapstructure:"logging"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Stub    StubConfig    `mapstructure:"stub"`
}

type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Timeout of zero leaves requests unbounded; callers can still pass a deadline.
	Timeout time.Duration `mapstructure:"timeout"`
}

type SessionConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// StubConfig drives the development API server under internal/stubapi.
type StubConfig struct {
	Port            int            `mapstructure:"port"`
	Database        DatabaseConfig `mapstructure:"database"`
	AccessSecret    string         `mapstructure:"access_secret"`
	RefreshSecret   string         `mapstructure:"refresh_secret"`
	AccessTokenTTL  time.Duration  `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration  `mapstructure:"refresh_token_ttl"`
	ReadTimeout     time.Duration  `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration  `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	Source string `mapstructure:"source"`
}

// DefaultConfig is what the CLI runs with when no config file is present.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{BaseURL: DefaultBaseURL},
		Session: SessionConfig{
			Path: defaultSessionPath(),
		},
		Logging: LoggingConfig{Level: "warn", Format: "text"},
		Tracing: TracingConfig{ServiceName: "gatepass"},
		Stub: StubConfig{
			Port: 8000,
			Database: DatabaseConfig{
				Driver: "sqlite",
				Source: "file:gatepass-stub?mode=memory&cache=shared",
			},
			AccessSecret:    "stub-access-secret",
			RefreshSecret:   "stub-refresh-secret",
			AccessTokenTTL:  5 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
		},
	}
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".gatepass", "session.db")
	}
	return filepath.Join(home, ".gatepass", "session.db")
}

// LoadConfigFromEnv builds a config purely from GATEPASS_* variables.
func LoadConfigFromEnv() *Config {
	cfg := DefaultConfig()

	cfg.API.BaseURL = getEnv("GATEPASS_API_BASE_URL", cfg.API.BaseURL)
	cfg.API.Timeout = getEnvAsDuration("GATEPASS_API_TIMEOUT", cfg.API.Timeout)
	cfg.Session.Path = getEnv("GATEPASS_SESSION_PATH", cfg.Session.Path)
	cfg.Logging.Level = getEnv("GATEPASS_LOGGING_LEVEL", "info")
	cfg.Logging.Format = getEnv("GATEPASS_LOGGING_FORMAT", "json")
	cfg.Tracing.Enabled = getEnv("GATEPASS_TRACING_ENABLED", "false") == "true"
	cfg.Tracing.ServiceName = getEnv("GATEPASS_TRACING_SERVICE_NAME", cfg.Tracing.ServiceName)

	cfg.Stub.Port = getEnvAsInt("GATEPASS_STUB_PORT", cfg.Stub.Port)
	cfg.Stub.Database.Driver = getEnv("GATEPASS_STUB_DATABASE_DRIVER", cfg.Stub.Database.Driver)
	cfg.Stub.Database.Source = getEnv("GATEPASS_STUB_DATABASE_SOURCE", cfg.Stub.Database.Source)
	cfg.Stub.AccessSecret = getEnv("GATEPASS_STUB_ACCESS_SECRET", cfg.Stub.AccessSecret)
	cfg.Stub.RefreshSecret = getEnv("GATEPASS_STUB_REFRESH_SECRET", cfg.Stub.RefreshSecret)
	cfg.Stub.AccessTokenTTL = getEnvAsDuration("GATEPASS_STUB_ACCESS_TOKEN_TTL", cfg.Stub.AccessTokenTTL)
	cfg.Stub.RefreshTokenTTL = getEnvAsDuration("GATEPASS_STUB_REFRESH_TOKEN_TTL", cfg.Stub.RefreshTokenTTL)

	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.API.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("api config: %v", err))
	}

	if err := c.Session.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("session config: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *APIConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url %s: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url %s must be http or https", c.BaseURL)
	}
	if c.Timeout < 0 {
		return errors.New("timeout cannot be negative")
	}
	return nil
}

func (c *SessionConfig) Validate() error {
	if c.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of debug, info, warn, error; got %q", c.Level)
	}
	switch c.Format {
	case "json", "text":
	default:
		return fmt.Errorf("format must be json or text; got %q", c.Format)
	}
	return nil
}

// Validate is only called when the stub server is started.
func (c *StubConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database driver must be sqlite or postgres; got %q", c.Database.Driver)
	}
	if c.Database.Source == "" {
		return errors.New("database source is required")
	}
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		return errors.New("access_secret and refresh_secret are required")
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("access_secret and refresh_secret must differ")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token ttls must be positive")
	}
	return nil
}
