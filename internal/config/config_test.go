// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, "console.yaml", `
api:
  base_url: "https://hris.example.com"
  timeout: "10s"

session:
  backend: "sqlite"
  path: "./session.db"

rbac:
  cache_ttl: "20s"
  max_entries: 64
  redis_url: "redis://localhost:6379/2"

gate:
  guard_timeout: "2s"

console:
  http_addr: "0.0.0.0:3001"
  upstream: "http://backend:3000"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://hris.example.com" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "https://hris.example.com")
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, 10*time.Second)
	}
	if cfg.Session.Backend != BackendSQLite {
		t.Errorf("Session.Backend = %q, want %q", cfg.Session.Backend, BackendSQLite)
	}
	if cfg.Session.Path != "./session.db" {
		t.Errorf("Session.Path = %q, want %q", cfg.Session.Path, "./session.db")
	}
	if cfg.RBAC.CacheTTL != 20*time.Second {
		t.Errorf("RBAC.CacheTTL = %v, want %v", cfg.RBAC.CacheTTL, 20*time.Second)
	}
	if cfg.RBAC.MaxEntries != 64 {
		t.Errorf("RBAC.MaxEntries = %d, want 64", cfg.RBAC.MaxEntries)
	}
	if cfg.RBAC.RedisURL != "redis://localhost:6379/2" {
		t.Errorf("RBAC.RedisURL = %q", cfg.RBAC.RedisURL)
	}
	if cfg.Gate.GuardTimeout != 2*time.Second {
		t.Errorf("Gate.GuardTimeout = %v, want %v", cfg.Gate.GuardTimeout, 2*time.Second)
	}
	if cfg.Console.Upstream != "http://backend:3000" {
		t.Errorf("Console.Upstream = %q, want %q", cfg.Console.Upstream, "http://backend:3000")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "console.toml", `
[api]
base_url = "http://localhost:3000"

[session]
backend = "memory"

[rbac]
cache_ttl = "5s"

[logging]
level = "warn"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:3000" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Session.Backend != BackendMemory {
		t.Errorf("Session.Backend = %q, want memory", cfg.Session.Backend)
	}
	if cfg.RBAC.CacheTTL != 5*time.Second {
		t.Errorf("RBAC.CacheTTL = %v, want 5s", cfg.RBAC.CacheTTL)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, "console.yaml", `
api:
  base_url: "http://localhost:3000"
session:
  path: "/tmp/hris"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.Session.Backend != BackendFile {
		t.Errorf("Session.Backend = %q, want %q", cfg.Session.Backend, BackendFile)
	}
	if cfg.RBAC.CacheTTL != 15*time.Second {
		t.Errorf("RBAC.CacheTTL = %v, want 15s", cfg.RBAC.CacheTTL)
	}
	if cfg.RBAC.MaxEntries != DefaultMaxEntries {
		t.Errorf("RBAC.MaxEntries = %d, want %d", cfg.RBAC.MaxEntries, DefaultMaxEntries)
	}
	if cfg.Gate.GuardTimeout != 3500*time.Millisecond {
		t.Errorf("Gate.GuardTimeout = %v, want 3.5s", cfg.Gate.GuardTimeout)
	}
	if cfg.Console.Upstream != "http://localhost:3000" {
		t.Errorf("Console.Upstream = %q, want api.base_url", cfg.Console.Upstream)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_HRIS_API_URL", "https://api.from-env.test")

	configPath := writeConfig(t, "console.yaml", `
api:
  base_url: "${TEST_HRIS_API_URL}"
session:
  backend: memory
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://api.from-env.test" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "https://api.from-env.test")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/console.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "console.yaml", "api:\n  base_url: [unclosed")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name:    "invalid timeout",
			content: "api:\n  base_url: http://x.test\n  timeout: soon\n",
			field:   "timeout",
		},
		{
			name:    "invalid cache_ttl",
			content: "api:\n  base_url: http://x.test\nrbac:\n  cache_ttl: forever\n",
			field:   "cache_ttl",
		},
		{
			name:    "invalid guard_timeout",
			content: "api:\n  base_url: http://x.test\ngate:\n  guard_timeout: 3.5\n",
			field:   "guard_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "console.yaml", tt.content))
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q should mention %q", err.Error(), tt.field)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing base url",
			cfg:     Config{Session: SessionConfig{Backend: BackendMemory}},
			wantErr: "api.base_url is required",
		},
		{
			name: "relative base url",
			cfg: Config{
				API:     APIConfig{BaseURL: "/api"},
				Session: SessionConfig{Backend: BackendMemory},
			},
			wantErr: "absolute http(s) URL",
		},
		{
			name: "file backend without path",
			cfg: Config{
				API:     APIConfig{BaseURL: "http://localhost:3000"},
				Session: SessionConfig{Backend: BackendFile},
			},
			wantErr: "session.path is required",
		},
		{
			name: "unknown backend",
			cfg: Config{
				API:     APIConfig{BaseURL: "http://localhost:3000"},
				Session: SessionConfig{Backend: "cookie"},
			},
			wantErr: "session.backend must be one of",
		},
		{
			name: "valid memory backend",
			cfg: Config{
				API:     APIConfig{BaseURL: "http://localhost:3000"},
				Session: SessionConfig{Backend: BackendMemory},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_HRIS_VAR", "value")

	tests := []struct {
		input string
		want  string
	}{
		{"${TEST_HRIS_VAR}", "value"},
		{"prefix-${TEST_HRIS_VAR}-suffix", "prefix-value-suffix"},
		{"${TEST_HRIS_UNSET_VAR}", ""},
		{"no vars here", "no vars here"},
	}

	for _, tt := range tests {
		if got := expandEnvVars(tt.input); got != tt.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
