// Package config loads the YAML application configuration and resolves the
// knobs other packages consume. Environment variables override file values so
// secrets can stay out of the config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/router-for-me/OrgQuotaService/internal/util"
	"gopkg.in/yaml.v3"
)

const defaultConfigFileName = "config.yaml"

// AppConfig carries process-level options supplied on the command line.
type AppConfig struct {
	ConfigPath string
}

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Logging  LoggingConfig  `yaml:"logging"`
	Quota    QuotaConfig    `yaml:"quota"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	ReadTimeoutSeconds     int    `yaml:"read-timeout-seconds"`
	WriteTimeoutSeconds    int    `yaml:"write-timeout-seconds"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown-timeout-seconds"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ReadTimeout returns the HTTP read timeout.
func (s ServerConfig) ReadTimeout() time.Duration {
	return secondsOrDefault(s.ReadTimeoutSeconds, 15*time.Second)
}

// WriteTimeout returns the HTTP write timeout.
func (s ServerConfig) WriteTimeout() time.Duration {
	return secondsOrDefault(s.WriteTimeoutSeconds, 15*time.Second)
}

// ShutdownTimeout returns the graceful shutdown deadline.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return secondsOrDefault(s.ShutdownTimeoutSeconds, 30*time.Second)
}

// DatabaseConfig configures the persistence layer. The DSN selects the
// dialect: postgres URLs and key=value strings open PostgreSQL, everything
// else is treated as a SQLite path.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the effective-limit cache. An empty address disables
// the cache entirely.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether a Redis cache is configured.
func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Addr) != "" }

// JWTConfig configures admin token signing. Expiry is derived from
// ExpiryHours when the configuration is loaded.
type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpiryHours int    `yaml:"expiry-hours"`

	Expiry time.Duration `yaml:"-"`
}

// LoggingConfig configures log level and optional rotating file output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
	Compress   bool   `yaml:"compress"`
}

// QuotaConfig tunes the reservation path.
type QuotaConfig struct {
	LockTimeoutMillis    int `yaml:"lock-timeout-ms"`
	LimitCacheTTLSeconds int `yaml:"limit-cache-ttl-seconds"`
}

// LockTimeout returns the per-key lock acquisition deadline.
func (q QuotaConfig) LockTimeout() time.Duration {
	if q.LockTimeoutMillis <= 0 {
		return 0
	}
	return time.Duration(q.LockTimeoutMillis) * time.Millisecond
}

// LimitCacheTTL returns the Redis limit cache TTL.
func (q QuotaConfig) LimitCacheTTL() time.Duration {
	return secondsOrDefault(q.LimitCacheTTLSeconds, 5*time.Minute)
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8317,
		},
		Database: DatabaseConfig{
			DSN: defaultDatabaseDSN(),
		},
		JWT: JWTConfig{
			ExpiryHours: 24,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

// ResolveConfigPath resolves the effective config file path. An explicit path
// wins; otherwise the writable path (WRITABLE_PATH) is consulted before
// falling back to the working directory.
func ResolveConfigPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed != "" {
		return filepath.Clean(trimmed)
	}
	if writable := util.WritablePath(); writable != "" {
		return filepath.Join(writable, defaultConfigFileName)
	}
	return defaultConfigFileName
}

// ConfigExists reports whether a config file is present at path.
func ConfigExists(path string) bool {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return false
	}
	info, err := os.Stat(trimmed)
	return err == nil && !info.IsDir()
}

// Load reads the config file at path, applies environment overrides and
// validates the result. A missing file is not an error; defaults plus the
// environment decide everything in that case.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	resolved := ResolveConfigPath(path)
	data, errRead := os.ReadFile(resolved)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s: %w", resolved, errUnmarshal)
		}
	case os.IsNotExist(errRead):
		// Defaults and environment only.
	default:
		return nil, fmt.Errorf("config: read %s: %w", resolved, errRead)
	}

	applyEnvironmentOverrides(cfg)

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabaseDSN loads the configuration and returns the database DSN.
func LoadDatabaseDSN(path string) (string, error) {
	cfg, err := Load(path)
	if err != nil {
		return "", err
	}
	dsn := strings.TrimSpace(cfg.Database.DSN)
	if dsn == "" {
		return "", fmt.Errorf("config: database dsn is not set")
	}
	return dsn, nil
}

// LoadJWTConfig loads the configuration and returns the admin token settings.
// A missing secret is an error since tokens signed with an empty secret would
// be forgeable.
func LoadJWTConfig(path string) (JWTConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return JWTConfig{}, err
	}
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return JWTConfig{}, fmt.Errorf("config: jwt secret is not set (config file or ORGQUOTA_JWT_SECRET)")
	}
	return cfg.JWT, nil
}

// applyEnvironmentOverrides lets the environment win over file values.
func applyEnvironmentOverrides(cfg *Config) {
	if dsn := os.Getenv("ORGQUOTA_DATABASE_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if addr := os.Getenv("ORGQUOTA_REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("ORGQUOTA_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if secret := os.Getenv("ORGQUOTA_JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}
	if port := os.Getenv("ORGQUOTA_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			cfg.Server.Port = p
		}
	}
	if level := os.Getenv("ORGQUOTA_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// normalize trims string fields, derives computed values and validates ranges.
func (c *Config) normalize() error {
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
	c.Redis.Addr = strings.TrimSpace(c.Redis.Addr)
	c.JWT.Secret = strings.TrimSpace(c.JWT.Secret)
	c.Logging.Level = strings.TrimSpace(c.Logging.Level)
	c.Logging.File = strings.TrimSpace(c.Logging.File)

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.JWT.ExpiryHours <= 0 {
		c.JWT.ExpiryHours = 24
	}
	c.JWT.Expiry = time.Duration(c.JWT.ExpiryHours) * time.Hour
	return nil
}

// defaultDatabaseDSN places the SQLite file under the writable path when one
// is configured.
func defaultDatabaseDSN() string {
	if writable := util.WritablePath(); writable != "" {
		return filepath.Join(writable, "orgquota.db")
	}
	return "orgquota.db"
}

func secondsOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
