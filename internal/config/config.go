package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIURL       string        `yaml:"api_url"`
	Environment  string        `yaml:"environment"`
	StateDir     string        `yaml:"state_dir"`
	LogDir       string        `yaml:"log_dir"`
	MaxLogFiles  int           `yaml:"max_log_files"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"` // 0 keeps the transport default
	CallbackAddr string        `yaml:"callback_addr"`
	CORSOrigins  string        `yaml:"cors_origins"`
	JWKSURL      string        `yaml:"jwks_url"` // optional, enables credential signature checks
	SentryDSN    string        `yaml:"sentry_dsn"`
	// Debug flags
	Debug bool `yaml:"debug"`
}

// Load builds the configuration from defaults and environment variables.
func Load() *Config {
	cfg, _ := LoadFile("")
	return cfg
}

// LoadFile layers defaults, the YAML file at path (if any) and environment
// variables, in that order. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("PROJECTDESK_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return applyEnv(cfg), fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return applyEnv(cfg), fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	return applyEnv(cfg), nil
}

// DatabasePath is the SQLite file holding the credential and Slack state.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.StateDir, "projectdesk.db")
}

func defaults() *Config {
	stateDir := defaultStateDir()
	return &Config{
		APIURL:       "http://127.0.0.1:8000",
		Environment:  "dev",
		StateDir:     stateDir,
		LogDir:       filepath.Join(stateDir, "logs"),
		MaxLogFiles:  10,
		CallbackAddr: "127.0.0.1:8765",
		CORSOrigins:  "http://localhost:5173",
	}
}

func applyEnv(cfg *Config) *Config {
	cfg.APIURL = getEnv("PROJECTDESK_API_URL", cfg.APIURL)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.StateDir = getEnv("PROJECTDESK_STATE_DIR", cfg.StateDir)
	cfg.LogDir = getEnv("PROJECTDESK_LOG_DIR", cfg.LogDir)
	cfg.CallbackAddr = getEnv("PROJECTDESK_CALLBACK_ADDR", cfg.CallbackAddr)
	cfg.CORSOrigins = getEnv("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.JWKSURL = getEnv("PROJECTDESK_JWKS_URL", cfg.JWKSURL)
	cfg.SentryDSN = getEnv("SENTRY_DSN", cfg.SentryDSN)

	if raw := os.Getenv("PROJECTDESK_HTTP_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			cfg.HTTPTimeout = d
		}
	}

	// Debug defaults to on outside production unless set explicitly
	debugDefault := "false"
	if cfg.Debug || cfg.Environment == "dev" {
		debugDefault = "true"
	}
	cfg.Debug = getEnv("DEBUG", debugDefault) == "true"

	return cfg
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".projectdesk"
	}
	return filepath.Join(dir, "projectdesk")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
