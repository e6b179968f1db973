// ABOUTME: Configuration loading and parsing for the hris console binaries
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a field is left empty.
const (
	DefaultAPITimeout     = 30 * time.Second
	DefaultCacheTTL       = 15 * time.Second
	DefaultMaxEntries     = 1024
	DefaultGuardTimeout   = 3500 * time.Millisecond
	DefaultSessionBackend = "file"
	DefaultHTTPAddr       = "127.0.0.1:3001"
)

// Session storage backends
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config represents the complete console configuration
type Config struct {
	API     APIConfig     `yaml:"api" toml:"api"`
	Session SessionConfig `yaml:"session" toml:"session"`
	RBAC    RBACConfig    `yaml:"rbac" toml:"rbac"`
	Gate    GateConfig    `yaml:"gate" toml:"gate"`
	Console ConsoleConfig `yaml:"console" toml:"console"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// APIConfig holds the backend REST API settings
type APIConfig struct {
	BaseURL string        `yaml:"base_url" toml:"base_url"`
	Timeout time.Duration `yaml:"-" toml:"-"`

	TimeoutRaw string `yaml:"timeout" toml:"timeout"`
}

// SessionConfig selects where the session is persisted
type SessionConfig struct {
	Backend string `yaml:"backend" toml:"backend"` // memory, file, sqlite
	Path    string `yaml:"path" toml:"path"`       // directory (file) or database file (sqlite)
}

// RBACConfig holds permission cache settings
type RBACConfig struct {
	CacheTTL   time.Duration `yaml:"-" toml:"-"`
	MaxEntries int           `yaml:"max_entries" toml:"max_entries"`

	// RedisURL switches the decision cache to a shared Redis instance when set.
	RedisURL string `yaml:"redis_url" toml:"redis_url"`

	CacheTTLRaw string `yaml:"cache_ttl" toml:"cache_ttl"`
}

// GateConfig holds route/menu gate settings
type GateConfig struct {
	GuardTimeout time.Duration `yaml:"-" toml:"-"`

	GuardTimeoutRaw string `yaml:"guard_timeout" toml:"guard_timeout"`
}

// ConsoleConfig holds the console shell server settings
type ConsoleConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`

	// Upstream is the backend the /api proxy forwards to. Defaults to api.base_url.
	Upstream string `yaml:"upstream" toml:"upstream"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.Session.Backend == "" {
		c.Session.Backend = DefaultSessionBackend
	}
	if c.RBAC.CacheTTL == 0 {
		c.RBAC.CacheTTL = DefaultCacheTTL
	}
	if c.RBAC.MaxEntries == 0 {
		c.RBAC.MaxEntries = DefaultMaxEntries
	}
	if c.Gate.GuardTimeout == 0 {
		c.Gate.GuardTimeout = DefaultGuardTimeout
	}
	if c.Console.HTTPAddr == "" {
		c.Console.HTTPAddr = DefaultHTTPAddr
	}
	if c.Console.Upstream == "" {
		c.Console.Upstream = c.API.BaseURL
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}

	switch c.Session.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Session.Path == "" {
			return fmt.Errorf("session.path is required for the %s backend", c.Session.Backend)
		}
	default:
		return fmt.Errorf("session.backend must be one of memory, file, sqlite, got %q", c.Session.Backend)
	}

	if c.RBAC.CacheTTL < 0 {
		return fmt.Errorf("rbac.cache_ttl must be positive")
	}
	if c.RBAC.MaxEntries < 0 {
		return fmt.Errorf("rbac.max_entries must be positive")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.API.TimeoutRaw != "" {
		cfg.API.Timeout, err = time.ParseDuration(cfg.API.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing timeout %q: %w", cfg.API.TimeoutRaw, err)
		}
	}

	if cfg.RBAC.CacheTTLRaw != "" {
		cfg.RBAC.CacheTTL, err = time.ParseDuration(cfg.RBAC.CacheTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing cache_ttl %q: %w", cfg.RBAC.CacheTTLRaw, err)
		}
	}

	if cfg.Gate.GuardTimeoutRaw != "" {
		cfg.Gate.GuardTimeout, err = time.ParseDuration(cfg.Gate.GuardTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing guard_timeout %q: %w", cfg.Gate.GuardTimeoutRaw, err)
		}
	}

	return nil
}
