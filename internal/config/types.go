package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Privacy PrivacyConfig `yaml:"privacy" mapstructure:"privacy"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Audit   AuditConfig   `yaml:"audit" mapstructure:"audit"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// PrivacyConfig contains PII filtering configuration. Everything defaults
// to on; set a flag to false to opt out of that category.
type PrivacyConfig struct {
	Enabled         bool `yaml:"enabled" mapstructure:"enabled"`
	AnonymizeEmails bool `yaml:"anonymize_emails" mapstructure:"anonymize_emails"`
	AnonymizeNames  bool `yaml:"anonymize_names" mapstructure:"anonymize_names"`
	AnonymizePhones bool `yaml:"anonymize_phones" mapstructure:"anonymize_phones"`
}

// SourceConfig contains the connection settings for one SaaS API.
type SourceConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Token   string `yaml:"token" mapstructure:"token"`
	// Email is only used by sources with basic auth (Jira, Confluence).
	Email string `yaml:"email" mapstructure:"email"`
}

// SourcesConfig contains per-source settings plus shared client tuning.
type SourcesConfig struct {
	Productboard SourceConfig `yaml:"productboard" mapstructure:"productboard"`
	Dovetail     SourceConfig `yaml:"dovetail" mapstructure:"dovetail"`
	Confluence   SourceConfig `yaml:"confluence" mapstructure:"confluence"`
	Jira         SourceConfig `yaml:"jira" mapstructure:"jira"`

	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxPages    int           `yaml:"max_pages" mapstructure:"max_pages"`
	MaxRetries  int           `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64       `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst   int           `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// CacheConfig contains the Redis record cache configuration.
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
}

// AuditConfig contains the Postgres redaction audit log configuration.
type AuditConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// ServerConfig contains serve-mode HTTP server configuration.
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`

	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
}

// WebSocketConfig contains the serve-mode event stream configuration.
type WebSocketConfig struct {
	Enabled         bool     `yaml:"enabled" mapstructure:"enabled"`
	Path            string   `yaml:"path" mapstructure:"path"`
	ReadBufferSize  int      `yaml:"read_buffer_size" mapstructure:"read_buffer_size"`
	WriteBufferSize int      `yaml:"write_buffer_size" mapstructure:"write_buffer_size"`
	AllowedOrigins  []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	return &Config{
		Privacy: PrivacyConfig{
			Enabled:         true,
			AnonymizeEmails: true,
			AnonymizeNames:  true,
			AnonymizePhones: true,
		},
		Sources: SourcesConfig{
			Productboard: SourceConfig{BaseURL: "https://api.productboard.com"},
			Dovetail:     SourceConfig{BaseURL: "https://dovetail.com/api"},
			Confluence:   SourceConfig{BaseURL: "https://api.atlassian.com/wiki"},
			Jira:         SourceConfig{BaseURL: "https://api.atlassian.com"},
			Timeout:      30 * time.Second,
			MaxPages:     10,
			MaxRetries:   3,
			RatePerSec:   5,
			RateBurst:    5,
		},
		Cache: CacheConfig{
			Enabled:        false,
			RedisURL:       "redis://localhost:6379/0",
			DefaultTTL:     15 * time.Minute,
			KeyPrefix:      "pmscrub",
			MaxConnections: 10,
			MinIdleConns:   2,
		},
		Audit: AuditConfig{
			Enabled:         false,
			DatabaseURL:     "postgres://localhost:5432/pmscrub?sslmode=disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
		},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			WebSocket: WebSocketConfig{
				Enabled:         true,
				Path:            "/ws",
				ReadBufferSize:  1024,
				WriteBufferSize: 1024,
				AllowedOrigins:  []string{"*"},
			},
		},
		Logging: LoggingConfig{
			// stdout carries filtered records; diagnostics stay on stderr
			Level:  "warn",
			Format: "console",
		},
	}
}
