package server

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// AppConfig defines application configuration loaded from files and environment.
type AppConfig struct {
	Env      string         `koanf:"env"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Auth     AuthConfig     `koanf:"auth"`
	Sweep    SweepConfig    `koanf:"sweep"`
}

type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

// CacheConfig selects the resolved-set cache backend. Backend is "memory"
// (default) or "valkey"; Addr is only read for valkey.
type CacheConfig struct {
	Backend    string `koanf:"backend"`
	Addr       string `koanf:"addr"`
	TTLSeconds int    `koanf:"ttl_seconds"`
}

type AuthConfig struct {
	JWTKey string      `koanf:"jwt_key"`
	OAuth  OAuthConfig `koanf:"oauth"`
}

// OAuthConfig describes the upstream identity provider used by the login
// callback. Leaving ClientID empty disables the callback endpoint.
type OAuthConfig struct {
	Provider     string   `koanf:"provider"`
	ClientID     string   `koanf:"client_id"`
	ClientSecret string   `koanf:"client_secret"`
	AuthURL      string   `koanf:"auth_url"`
	TokenURL     string   `koanf:"token_url"`
	UserInfoURL  string   `koanf:"userinfo_url"`
	RedirectURL  string   `koanf:"redirect_url"`
	Scopes       []string `koanf:"scopes"`
}

type SweepConfig struct {
	IntervalMinutes int `koanf:"interval_minutes"`
}

var (
	cfgOnce sync.Once
	cfgInst *AppConfig
)

// GetConfig loads and returns the singleton AppConfig. Loading order:
// 1) config/config.yaml (optional)
// 2) config/config.<APP_ENV>.yaml (optional), APP_ENV defaults to "local"
// 3) Environment variables with prefix IAM_ mapped using __ as nested separator, e.g. IAM_DATABASE__DSN
func GetConfig() *AppConfig {
	cfgOnce.Do(func() {
		k := koanf.New(".")
		// Config directory (CONFIG_DIR) default ./config
		configDir := os.Getenv("CONFIG_DIR")
		if configDir == "" {
			configDir = "config"
		}
		// Whether to load files (default: disabled to keep tests isolated)
		loadFiles := strings.EqualFold(os.Getenv("APP_CONFIG_FILES"), "1") || strings.EqualFold(os.Getenv("APP_CONFIG_FILES"), "true")
		// 1) base file
		if loadFiles {
			base := filepath.Join(configDir, "config.yaml")
			if _, err := os.Stat(base); err == nil {
				if err := k.Load(file.Provider(base), yaml.Parser()); err != nil {
					log.Printf("config: failed loading base: %v", err)
				}
			}
		}
		// 2) env-specific file
		envName := os.Getenv("APP_ENV")
		if envName == "" {
			envName = "local"
		}
		if loadFiles {
			envFile := filepath.Join(configDir, "config."+envName+".yaml")
			if _, err := os.Stat(envFile); err == nil {
				if err := k.Load(file.Provider(envFile), yaml.Parser()); err != nil {
					log.Printf("config: failed loading env file: %v", err)
				}
			}
		}
		// 3) env vars: IAM_ prefix, __ delim for nesting
		_ = k.Load(env.Provider("IAM_", "__", func(s string) string {
			// IAM_DATABASE__DSN -> database.dsn
			return s
		}), nil)

		var c AppConfig
		if err := k.Unmarshal("", &c); err != nil {
			log.Printf("config: unmarshal error: %v", err)
		}
		if c.Env == "" {
			c.Env = envName
		}
		cfgInst = &c
	})
	return cfgInst
}

// DatabaseDSN returns the effective DSN (config first, then env fallback to MIGRATE_DSN).
func (c *AppConfig) DatabaseDSN() string {
	if c != nil && c.Database.DSN != "" {
		return strings.TrimSpace(c.Database.DSN)
	}
	dsn := strings.TrimSpace(os.Getenv("IAM_DB_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("MIGRATE_DSN"))
	}
	return dsn
}

// JWTKey returns the HMAC key used to verify caller identity tokens.
func (c *AppConfig) JWTKey() string {
	if c != nil && c.Auth.JWTKey != "" {
		return c.Auth.JWTKey
	}
	return strings.TrimSpace(os.Getenv("IAM_JWT_KEY"))
}

// CacheTTL bounds how long a cached resolved set may outlive a missed
// invalidation. Defaults to 30 seconds.
func (c *AppConfig) CacheTTL() time.Duration {
	if c != nil && c.Cache.TTLSeconds > 0 {
		return time.Duration(c.Cache.TTLSeconds) * time.Second
	}
	return 30 * time.Second
}

// SweepInterval is how often the expiration sweeper runs. Defaults to one hour.
func (c *AppConfig) SweepInterval() time.Duration {
	if c != nil && c.Sweep.IntervalMinutes > 0 {
		return time.Duration(c.Sweep.IntervalMinutes) * time.Minute
	}
	return time.Hour
}
