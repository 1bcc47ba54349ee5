package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the GymHub back-office core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Database  DatabaseConfig  `yaml:"database"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// DatabaseConfig contains SQLite settings for the operator directory.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// WebSocketConfig contains presence channel settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains optional telemetry settings (login rates,
// online-operator gauge for the back-office charts).
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains token and cookie settings.
type SecurityConfig struct {
	JWT    JWTConfig    `yaml:"jwt"`
	Cookie CookieConfig `yaml:"cookie"`
}

// JWTConfig contains signing secrets and lifetimes for the two token classes.
// Exactly one secret per class: the websocket handshake verifies against
// AccessSecret, the refresh endpoint against RotationSecret.
type JWTConfig struct {
	// AccessSecret signs short-lived access tokens (HTTP and handshake).
	AccessSecret string `yaml:"access_secret"`

	// RotationSecret signs the long-lived rotation token carried by the cookie.
	RotationSecret string `yaml:"rotation_secret"`

	// AccessTokenTTL is the access token lifetime in minutes.
	AccessTokenTTL int `yaml:"access_token_ttl"`

	// RotationTokenTTL is the rotation token lifetime in hours.
	RotationTokenTTL int `yaml:"rotation_token_ttl"`
}

// CookieConfig contains rotation cookie transport settings.
type CookieConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Default token lifetimes.
const (
	// DefaultAccessTokenTTL is 30 minutes.
	DefaultAccessTokenTTL = 30

	// DefaultRotationTokenTTL is 30 days, expressed in hours.
	DefaultRotationTokenTTL = 30 * 24
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern GYMHUB_SECTION_KEY,
// for example GYMHUB_DATABASE_PATH or GYMHUB_JWT_ACCESS_SECRET.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
		},
		Database: DatabaseConfig{
			Path:        "data/gymhub.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 4096,
			PingInterval:   30,
			PongTimeout:    60,
		},
		InfluxDB: InfluxDBConfig{
			Enabled:       false,
			URL:           "http://localhost:8086",
			Org:           "gymhub",
			Bucket:        "backoffice",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL:   DefaultAccessTokenTTL,
				RotationTokenTTL: DefaultRotationTokenTTL,
			},
			Cookie: CookieConfig{
				Name: "gymhub_rotation",
				Path: "/api/v1/auth",
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Only operationally relevant values are overridable (deployment paths and secrets).
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("GYMHUB_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("GYMHUB_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GYMHUB_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("GYMHUB_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - always override secrets in production
	if v := os.Getenv("GYMHUB_JWT_ACCESS_SECRET"); v != "" {
		cfg.Security.JWT.AccessSecret = v
	}
	if v := os.Getenv("GYMHUB_JWT_ROTATION_SECRET"); v != "" {
		cfg.Security.JWT.RotationSecret = v
	}
}

// minSecretLength is the minimum accepted signing secret length.
const minSecretLength = 32

// Validate checks the configuration for missing or inconsistent values.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Signing secrets are required and must differ per token class.
	// A shared or guessable secret lets an attacker mint operator sessions.
	if c.Security.JWT.AccessSecret == "" {
		errs = append(errs, "security.jwt.access_secret is required (set GYMHUB_JWT_ACCESS_SECRET)")
	} else if len(c.Security.JWT.AccessSecret) < minSecretLength {
		errs = append(errs, "security.jwt.access_secret must be at least 32 characters")
	}

	if c.Security.JWT.RotationSecret == "" {
		errs = append(errs, "security.jwt.rotation_secret is required (set GYMHUB_JWT_ROTATION_SECRET)")
	} else if len(c.Security.JWT.RotationSecret) < minSecretLength {
		errs = append(errs, "security.jwt.rotation_secret must be at least 32 characters")
	}

	if c.Security.JWT.AccessSecret != "" && c.Security.JWT.AccessSecret == c.Security.JWT.RotationSecret {
		errs = append(errs, "security.jwt.access_secret and rotation_secret must differ")
	}

	if c.Security.JWT.AccessTokenTTL <= 0 {
		errs = append(errs, "security.jwt.access_token_ttl must be positive")
	}
	if c.Security.JWT.RotationTokenTTL <= 0 {
		errs = append(errs, "security.jwt.rotation_token_ttl must be positive")
	}

	if c.Security.Cookie.Name == "" {
		errs = append(errs, "security.cookie.name is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
