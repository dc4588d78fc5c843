package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/redbco/ngram-search/internal/database/mysql"
)

// Settings backends
const (
	SettingsBackendSQL   = "sql"
	SettingsBackendRedis = "redis"
	SettingsBackendNone  = "none"
)

// Environment variables that override file values
const (
	EnvDSN       = "NGRAM_SEARCH_DSN"
	EnvPassword  = "NGRAM_SEARCH_PASSWORD"
	EnvRedisAddr = "NGRAM_SEARCH_REDIS_ADDR"
	EnvLogLevel  = "NGRAM_SEARCH_LOG_LEVEL"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Settings SettingsConfig `yaml:"settings"`
	Log      LogConfig      `yaml:"log"`
	// Verify re-reads the schema after install/uninstall
	Verify bool `yaml:"verify"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	TLS      string `yaml:"tls"`
	// Timeout is the dial timeout in seconds
	Timeout int `yaml:"timeout"`
	// KeyringService, when set, is used to look up the password in the OS
	// keyring under the configured username
	KeyringService string `yaml:"keyring_service"`
}

type SettingsConfig struct {
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisKey      string `yaml:"redis_key"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    3306,
			Timeout: 10,
		},
		Settings: SettingsConfig{
			Backend: SettingsBackendSQL,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // path comes from the operator
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvDSN); v != "" {
		c.Database.DSN = v
	}
	if v := getenv(EnvPassword); v != "" {
		c.Database.Password = v
	}
	if v := getenv(EnvRedisAddr); v != "" {
		c.Settings.RedisAddr = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate checks field combinations
func (c *Config) Validate() error {
	switch c.Settings.Backend {
	case SettingsBackendSQL, SettingsBackendNone:
	case SettingsBackendRedis:
		if c.Settings.RedisAddr == "" {
			return errors.New("settings.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown settings backend %q", c.Settings.Backend)
	}

	if c.Database.DSN == "" && c.Database.Name == "" {
		return errors.New("database.dsn or database.name is required")
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port %d", c.Database.Port)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

// ConnectionConfig converts the database section for the MySQL client
func (c *Config) ConnectionConfig() mysql.ConnectionConfig {
	return mysql.ConnectionConfig{
		DSN:          c.Database.DSN,
		Host:         c.Database.Host,
		Port:         c.Database.Port,
		Username:     c.Database.Username,
		Password:     c.Database.Password,
		DatabaseName: c.Database.Name,
		TLS:          c.Database.TLS,
		Timeout:      time.Duration(c.Database.Timeout) * time.Second,
	}
}
