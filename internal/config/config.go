package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultPageSize       = 50
	DefaultMaxPageSize    = 100
	DefaultRequestTimeout = 10
	DefaultGeneralLimit   = 60
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Supabase    SupabaseConfig            `json:"supabase"`
	Auth        AuthConfig                `json:"auth"`
	RateLimit   RateLimitConfig           `json:"rate_limit"`
}

type BasicConfig struct {
	ServerAddress         string `json:"server_address"`
	DefaultPageSize       int    `json:"default_page_size"`
	MaxPageSize           int    `json:"max_page_size"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// DatabaseConfig holds either a DSN (sqlite) or discrete connection fields (mysql).
type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Enabled reports whether a redis server was configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type SupabaseConfig struct {
	URL    string `json:"url"`
	APIKey string `json:"api_key"`
	Schema string `json:"schema"`
}

type AuthConfig struct {
	Provider      string `json:"provider"`
	TokenTTLHours int    `json:"token_ttl_hours"`
}

type RateLimitConfig struct {
	GeneralPerMinute int `json:"general_per_minute"`
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if sqliteCfg, ok := cfg.Databases["sqlite3"]; ok && sqliteCfg.DSN != "" {
		sqliteCfg.DSN = resolveSQLitePath(filepath.Dir(absPath), sqliteCfg.DSN)
		cfg.Databases["sqlite3"] = sqliteCfg
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BasicConfig.ServerAddress == "" {
		c.BasicConfig.ServerAddress = ":8090"
	}
	if c.BasicConfig.DefaultPageSize <= 0 {
		c.BasicConfig.DefaultPageSize = DefaultPageSize
	}
	if c.BasicConfig.MaxPageSize <= 0 {
		c.BasicConfig.MaxPageSize = DefaultMaxPageSize
	}
	if c.BasicConfig.RequestTimeoutSeconds <= 0 {
		c.BasicConfig.RequestTimeoutSeconds = DefaultRequestTimeout
	}
	if c.Auth.Provider == "" {
		c.Auth.Provider = "token"
	}
	if c.Auth.TokenTTLHours <= 0 {
		c.Auth.TokenTTLHours = 24
	}
	if c.RateLimit.GeneralPerMinute <= 0 {
		c.RateLimit.GeneralPerMinute = DefaultGeneralLimit
	}
	if c.Databases == nil {
		c.Databases = make(map[string]DatabaseConfig)
	}
}

// Validate checks cross-field constraints after defaults are applied.
func (c *Config) Validate() error {
	if c.BasicConfig.DefaultPageSize > c.BasicConfig.MaxPageSize {
		return fmt.Errorf("default_page_size %d exceeds max_page_size %d",
			c.BasicConfig.DefaultPageSize, c.BasicConfig.MaxPageSize)
	}
	switch strings.ToLower(c.Auth.Provider) {
	case "token":
	case "supabase":
		if c.Supabase.URL == "" || c.Supabase.APIKey == "" {
			return fmt.Errorf("supabase url and api_key must be configured for supabase auth")
		}
	default:
		return fmt.Errorf("unsupported auth provider: %s", c.Auth.Provider)
	}
	return nil
}

// resolveSQLitePath anchors relative sqlite file DSNs to the config directory.
func resolveSQLitePath(base, dsn string) string {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") || filepath.IsAbs(dsn) {
		return dsn
	}
	return filepath.Join(base, dsn)
}
