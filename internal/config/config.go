package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Limits enforced by Validate.
const (
	MinGroupInterval = 5 * time.Second
	MinThemeInterval = 60 * time.Second

	DefaultGroupInterval = 60 * time.Second
	DefaultThemeInterval = 600 * time.Second
)

// Config represents the application configuration
type Config struct {
	Controllers     []ControllerConfig `yaml:"controllers"`
	Client          ClientConfig       `yaml:"client"`
	Setup           SetupConfig        `yaml:"setup"`
	Database        DatabaseConfig     `yaml:"database"`
	Log             LogConfig          `yaml:"log"`
	Ledger          LedgerConfig       `yaml:"ledger"`
	API             APIConfig          `yaml:"api"`
	EventBus        EventBusConfig     `yaml:"eventbus"`
	ShutdownTimeout Duration           `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// ControllerConfig describes one Luxor controller to poll
type ControllerConfig struct {
	Host          string   `yaml:"host"`           // host or host:port
	GroupInterval Duration `yaml:"group_interval"` // light poll interval (>= 5s)
	ThemeInterval Duration `yaml:"theme_interval"` // scene poll interval (>= 60s)
	Timeout       Duration `yaml:"timeout"`        // HTTP timeout per request
}

// ClientConfig contains settings shared by all controller clients
type ClientConfig struct {
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

// SetupConfig controls retries of controllers that were not ready
type SetupConfig struct {
	MinRetryBackoff Duration `yaml:"min_retry_backoff"` // default: 1s
	MaxRetryBackoff Duration `yaml:"max_retry_backoff"` // default: 2m
	RetryMultiplier float64  `yaml:"retry_multiplier"`  // default: 2.0
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"use_json"`
}

// LedgerConfig contains event ledger settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// APIConfig contains HTTP API server settings
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Addr returns the listen address.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 4)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// GetLevel returns the log level, lowercased.
func (c LogConfig) GetLevel() string {
	return strings.ToLower(c.Level)
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
// Bare integers are read as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var secs int64
	if value.Tag == "!!int" {
		if err := value.Decode(&secs); err != nil {
			return err
		}
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads, parses and validates the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./luxord.sqlite"
	}

	for i := range cfg.Controllers {
		c := &cfg.Controllers[i]
		c.Host = strings.TrimPrefix(strings.TrimSpace(c.Host), "http://")
		if c.GroupInterval == 0 {
			c.GroupInterval = Duration(DefaultGroupInterval)
		}
		if c.ThemeInterval == 0 {
			c.ThemeInterval = Duration(DefaultThemeInterval)
		}
		if c.Timeout == 0 {
			c.Timeout = Duration(10 * time.Second)
		}
	}

	if cfg.Client.RateLimitRPS == 0 {
		cfg.Client.RateLimitRPS = 5.0
	}

	// Setup retry defaults
	if cfg.Setup.MinRetryBackoff == 0 {
		cfg.Setup.MinRetryBackoff = Duration(1 * time.Second)
	}
	if cfg.Setup.MaxRetryBackoff == 0 {
		cfg.Setup.MaxRetryBackoff = Duration(2 * time.Minute)
	}
	if cfg.Setup.RetryMultiplier == 0 {
		cfg.Setup.RetryMultiplier = 2.0
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// API defaults
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.API.Host == "" {
		cfg.API.Host = "0.0.0.0"
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate checks settings the daemon relies on. Poll intervals are only
// checked here; the polling core trusts them.
func (cfg *Config) Validate() error {
	var errs []error

	if len(cfg.Controllers) == 0 {
		errs = append(errs, errors.New("at least one controller must be configured"))
	}

	seen := make(map[string]bool)
	for i, c := range cfg.Controllers {
		if c.Host == "" {
			errs = append(errs, fmt.Errorf("controllers[%d]: host is required", i))
			continue
		}
		if seen[c.Host] {
			errs = append(errs, fmt.Errorf("controllers[%d]: duplicate host %q", i, c.Host))
		}
		seen[c.Host] = true

		if c.GroupInterval.Duration() < MinGroupInterval {
			errs = append(errs, fmt.Errorf("controllers[%d]: group_interval %s is below minimum %s", i, c.GroupInterval.Duration(), MinGroupInterval))
		}
		if c.ThemeInterval.Duration() < MinThemeInterval {
			errs = append(errs, fmt.Errorf("controllers[%d]: theme_interval %s is below minimum %s", i, c.ThemeInterval.Duration(), MinThemeInterval))
		}
	}

	if cfg.Setup.RetryMultiplier < 1 {
		errs = append(errs, fmt.Errorf("setup.retry_multiplier must be >= 1, got %v", cfg.Setup.RetryMultiplier))
	}

	switch cfg.Log.GetLevel() {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level))
	}

	return errors.Join(errs...)
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
