package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Sync      SyncConfig      `yaml:"sync"`
	Stats     StatsConfig     `yaml:"stats"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type StorageConfig struct {
	Driver     string         `yaml:"driver"` // sqlite or postgres
	SQLitePath string         `yaml:"sqlite_path"`
	Postgres   DatabaseConfig `yaml:"postgres"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// SyncConfig configures pushing local collections to a remote babytrack server.
type SyncConfig struct {
	Enabled   bool   `yaml:"enabled"`
	RemoteURL string `yaml:"remote_url"`
	APIKey    string `yaml:"api_key"`
	StateDir  string `yaml:"state_dir"`
}

type StatsConfig struct {
	Timezone      string `yaml:"timezone"`
	DefaultWindow int    `yaml:"default_window"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Location resolves the statistics timezone. Empty means the system zone.
func (s StatsConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A .env file next to the config file is loaded first if present; variables
// already set in the environment win over it.
// Env vars use the prefix BABYTRACK_ and underscore-separated paths:
//
//	BABYTRACK_SERVER_HOST, BABYTRACK_SERVER_PORT,
//	BABYTRACK_STORAGE_DRIVER, BABYTRACK_SQLITE_PATH,
//	BABYTRACK_DB_HOST, BABYTRACK_DB_PORT, BABYTRACK_DB_NAME,
//	BABYTRACK_DB_USER, BABYTRACK_DB_PASSWORD, BABYTRACK_DB_SSLMODE,
//	BABYTRACK_AUTH_API_KEY,
//	BABYTRACK_TAILSCALE_ENABLED, BABYTRACK_TAILSCALE_HOSTNAME,
//	BABYTRACK_SYNC_ENABLED, BABYTRACK_SYNC_REMOTE_URL, BABYTRACK_SYNC_API_KEY,
//	BABYTRACK_TIMEZONE, BABYTRACK_DEFAULT_WINDOW
func Load(path string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("reading %s: %w", envPath, err)
		}
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("BABYTRACK_SERVER_HOST", &cfg.Server.Host)
	num("BABYTRACK_SERVER_PORT", &cfg.Server.Port)

	str("BABYTRACK_STORAGE_DRIVER", &cfg.Storage.Driver)
	str("BABYTRACK_SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("BABYTRACK_DB_HOST", &cfg.Storage.Postgres.Host)
	num("BABYTRACK_DB_PORT", &cfg.Storage.Postgres.Port)
	str("BABYTRACK_DB_NAME", &cfg.Storage.Postgres.Name)
	str("BABYTRACK_DB_USER", &cfg.Storage.Postgres.User)
	str("BABYTRACK_DB_PASSWORD", &cfg.Storage.Postgres.Password)
	str("BABYTRACK_DB_SSLMODE", &cfg.Storage.Postgres.SSLMode)

	str("BABYTRACK_AUTH_API_KEY", &cfg.Auth.APIKey)

	flag("BABYTRACK_TAILSCALE_ENABLED", &cfg.Tailscale.Enabled)
	str("BABYTRACK_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)

	flag("BABYTRACK_SYNC_ENABLED", &cfg.Sync.Enabled)
	str("BABYTRACK_SYNC_REMOTE_URL", &cfg.Sync.RemoteURL)
	str("BABYTRACK_SYNC_API_KEY", &cfg.Sync.APIKey)

	str("BABYTRACK_TIMEZONE", &cfg.Stats.Timezone)
	num("BABYTRACK_DEFAULT_WINDOW", &cfg.Stats.DefaultWindow)
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverSQLite
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = filepath.Join("data", "babytrack.db")
	}
	if cfg.Tailscale.StateDir == "" {
		cfg.Tailscale.StateDir = filepath.Join("data", "tsnet")
	}
	if cfg.Sync.StateDir == "" {
		cfg.Sync.StateDir = "data"
	}
	if cfg.Stats.DefaultWindow == 0 {
		cfg.Stats.DefaultWindow = 7
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return errors.New("server.port is required")
	}
	if c.Auth.APIKey == "" {
		return errors.New("auth.api_key is required")
	}

	switch c.Storage.Driver {
	case DriverSQLite:
	case DriverPostgres:
		pg := c.Storage.Postgres
		if pg.Host == "" {
			return errors.New("storage.postgres.host is required")
		}
		if pg.Port == 0 {
			return errors.New("storage.postgres.port is required")
		}
		if pg.Name == "" {
			return errors.New("storage.postgres.name is required")
		}
		if pg.User == "" {
			return errors.New("storage.postgres.user is required")
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Storage.Driver)
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return errors.New("tailscale.hostname is required when tailscale is enabled")
	}
	if c.Sync.Enabled {
		if c.Sync.RemoteURL == "" {
			return errors.New("sync.remote_url is required when sync is enabled")
		}
		if c.Sync.APIKey == "" {
			return errors.New("sync.api_key is required when sync is enabled")
		}
	}

	if _, err := c.Stats.Location(); err != nil {
		return fmt.Errorf("stats.timezone: %w", err)
	}
	if c.Stats.DefaultWindow < 1 || c.Stats.DefaultWindow > 400 {
		return fmt.Errorf("stats.default_window must be between 1 and 400, got %d", c.Stats.DefaultWindow)
	}
	return nil
}
