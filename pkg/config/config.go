/*
 * Copyright (c) 2026, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	toml "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix of environment variables that override file settings
	EnvPrefix = "SECRETMGT_"

	// SuperTenantDomain is the domain of the always-present super tenant
	SuperTenantDomain = "carbon.super"
)

// Config holds all configuration for the secret management service
type Config struct {
	Server           ServerConfig           `koanf:"server"`
	SecretManagement SecretManagementConfig `koanf:"secret_management"`
	Storage          StorageConfig          `koanf:"storage"`
	Encryption       EncryptionConfig       `koanf:"encryption"`
	Tenants          []TenantConfig         `koanf:"tenants"`
	Auth             AuthConfig             `koanf:"auth"`
	Logging          LoggingConfig          `koanf:"logging"`
	Metrics          MetricsConfig          `koanf:"metrics"`
}

// ServerConfig holds REST server configuration
type ServerConfig struct {
	APIPort              int             `koanf:"api_port"`
	ReadTimeout          time.Duration   `koanf:"read_timeout"`
	WriteTimeout         time.Duration   `koanf:"write_timeout"`
	ShutdownTimeout      time.Duration   `koanf:"shutdown_timeout"`
	ResolutionAPIEnabled bool            `koanf:"resolution_api_enabled"`
	ResolveRateLimit     RateLimitConfig `koanf:"resolve_rate_limit"`

	// AllowUnauthenticatedResolution permits the resolution routes with basic
	// auth disabled. Any caller can then read any tenant's plaintext.
	AllowUnauthenticatedResolution bool `koanf:"allow_unauthenticated_resolution"`
}

// RateLimitConfig configures the per-tenant token bucket of the resolution routes
type RateLimitConfig struct {
	Enabled           bool    `koanf:"enabled"`
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

// SecretManagementConfig holds the component switch and input limits
type SecretManagementConfig struct {
	Enabled       bool `koanf:"enabled"`
	MaxNameLength int  `koanf:"max_name_length"`
	MaxValueSize  int  `koanf:"max_value_size"`
}

// StorageConfig holds storage backend configuration
type StorageConfig struct {
	Type           string         `koanf:"type"` // "memory", "sqlite" or "postgres"
	ConnectTimeout time.Duration  `koanf:"connect_timeout"`
	SQLite         SQLiteConfig   `koanf:"sqlite"`
	Postgres       PostgresConfig `koanf:"postgres"`
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig holds PostgreSQL-specific configuration
type PostgresConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"sslmode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// EncryptionConfig holds crypto provider configuration
type EncryptionConfig struct {
	AESGCM AESGCMConfig `koanf:"aesgcm"`
}

// AESGCMConfig lists the AES-GCM keys. The first key encrypts, all keys decrypt.
type AESGCMConfig struct {
	Keys []EncryptionKeyConfig `koanf:"keys"`
}

// EncryptionKeyConfig describes where one key version comes from
type EncryptionKeyConfig struct {
	Version        string `koanf:"version"`
	File           string `koanf:"file"`
	Keyring        string `koanf:"keyring"`
	KeyringService string `koanf:"keyring_service"`
	PassphraseEnv  string `koanf:"passphrase_env"`
	PassphraseSalt string `koanf:"passphrase_salt"`
}

func (k EncryptionKeyConfig) sources() int {
	n := 0
	for _, s := range []string{k.File, k.Keyring, k.PassphraseEnv} {
		if s != "" {
			n++
		}
	}
	return n
}

// TenantConfig registers a tenant besides the super tenant
type TenantConfig struct {
	ID     int    `koanf:"id"`
	Domain string `koanf:"domain"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Basic BasicAuth `koanf:"basic"`
}

// BasicAuth describes basic authentication configuration
type BasicAuth struct {
	Enabled bool       `koanf:"enabled"`
	Users   []AuthUser `koanf:"users"`
}

// AuthUser represents a user bound to a tenant
type AuthUser struct {
	Username       string `koanf:"username"`
	Password       string `koanf:"password"`        // plain or hashed value depending on PasswordHashed
	PasswordHashed bool   `koanf:"password_hashed"` // true when Password is a bcrypt or argon2id hash
	TenantDomain   string `koanf:"tenant_domain"`   // empty means the super tenant
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `koanf:"level"`  // "debug", "info", "warn", "error"
	Format string `koanf:"format"` // "json" or "text"
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled              bool          `koanf:"enabled"`
	Port                 int           `koanf:"port"`
	MemoryUpdateInterval time.Duration `koanf:"memory_update_interval"`
}

// LoadConfig loads configuration from an optional TOML file and SECRETMGT_
// environment variables, on top of the defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := defaultConfig()

	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName:          "koanf",
			WeaklyTypedInput: true,
			Result:           cfg,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Lists are not merged with defaults; a configured key list replaces this one.
	if len(cfg.Encryption.AESGCM.Keys) == 0 {
		cfg.Encryption.AESGCM.Keys = []EncryptionKeyConfig{
			{Version: "key-v1", File: "./data/keys/key-v1.bin"},
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// envKey maps SECRETMGT_STORAGE_SQLITE_PATH to storage.sqlite.path. A double
// underscore stands for a literal underscore: SECRETMGT_SECRET__MANAGEMENT_ENABLED.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	s = strings.ReplaceAll(s, "__", "%UNDERSCORE%")
	s = strings.ReplaceAll(s, "_", ".")
	return strings.ReplaceAll(s, "%UNDERSCORE%", "_")
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			APIPort:              9443,
			ReadTimeout:          15 * time.Second,
			WriteTimeout:         15 * time.Second,
			ShutdownTimeout:      15 * time.Second,
			ResolutionAPIEnabled: true,
			ResolveRateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 50,
				Burst:             100,
			},
		},
		SecretManagement: SecretManagementConfig{
			Enabled:       true,
			MaxNameLength: 255,
			MaxValueSize:  10 * 1024,
		},
		Storage: StorageConfig{
			Type:           "sqlite",
			ConnectTimeout: 30 * time.Second,
			SQLite: SQLiteConfig{
				Path: "./data/secrets.db",
			},
			Postgres: PostgresConfig{
				Port:            5432,
				SSLMode:         "disable",
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 30 * time.Minute,
			},
		},
		Auth: AuthConfig{
			Basic: BasicAuth{
				Enabled: true,
				Users:   []AuthUser{},
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled:              false,
			Port:                 9091,
			MemoryUpdateInterval: 15 * time.Second,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateServerConfig(); err != nil {
		return err
	}
	if c.SecretManagement.MaxNameLength <= 0 {
		return fmt.Errorf("secret_management.max_name_length must be positive, got: %d", c.SecretManagement.MaxNameLength)
	}
	if c.SecretManagement.MaxValueSize <= 0 {
		return fmt.Errorf("secret_management.max_value_size must be positive, got: %d", c.SecretManagement.MaxValueSize)
	}
	if err := c.validateStorageConfig(); err != nil {
		return err
	}
	if err := c.validateEncryptionConfig(); err != nil {
		return err
	}
	if err := c.validateTenants(); err != nil {
		return err
	}
	if err := c.validateAuthConfig(); err != nil {
		return err
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error, got: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be either 'json' or 'text', got: %s", c.Logging.Format)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be between 1 and 65535, got: %d", c.Metrics.Port)
		}
		if c.Metrics.Port == c.Server.APIPort {
			return fmt.Errorf("metrics.port must differ from server.api_port")
		}
	}

	return nil
}

func (c *Config) validateServerConfig() error {
	if c.Server.APIPort < 1 || c.Server.APIPort > 65535 {
		return fmt.Errorf("server.api_port must be between 1 and 65535, got: %d", c.Server.APIPort)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	rl := c.Server.ResolveRateLimit
	if rl.Enabled {
		if rl.RequestsPerSecond <= 0 {
			return fmt.Errorf("server.resolve_rate_limit.requests_per_second must be positive, got: %v", rl.RequestsPerSecond)
		}
		if rl.Burst < 1 {
			return fmt.Errorf("server.resolve_rate_limit.burst must be at least 1, got: %d", rl.Burst)
		}
	}
	return nil
}

func (c *Config) validateStorageConfig() error {
	switch c.Storage.Type {
	case "memory":
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required when storage.type is 'sqlite'")
		}
	case "postgres":
		if c.Storage.Postgres.Host == "" {
			return fmt.Errorf("storage.postgres.host is required when storage.type is 'postgres'")
		}
		if c.Storage.Postgres.Database == "" {
			return fmt.Errorf("storage.postgres.database is required when storage.type is 'postgres'")
		}
		if c.Storage.Postgres.Port < 1 || c.Storage.Postgres.Port > 65535 {
			return fmt.Errorf("storage.postgres.port must be between 1 and 65535, got: %d", c.Storage.Postgres.Port)
		}
	default:
		return fmt.Errorf("storage.type must be one of: memory, sqlite, postgres, got: %s", c.Storage.Type)
	}
	if c.Storage.ConnectTimeout < 0 {
		return fmt.Errorf("storage.connect_timeout must not be negative")
	}
	return nil
}

func (c *Config) validateEncryptionConfig() error {
	keys := c.Encryption.AESGCM.Keys
	if len(keys) == 0 {
		return fmt.Errorf("encryption.aesgcm.keys must contain at least one key")
	}
	seen := make(map[string]bool, len(keys))
	for i, k := range keys {
		if k.Version == "" {
			return fmt.Errorf("encryption.aesgcm.keys[%d].version is required", i)
		}
		if strings.Contains(k.Version, ":") {
			return fmt.Errorf("encryption.aesgcm.keys[%d].version must not contain ':'", i)
		}
		if seen[k.Version] {
			return fmt.Errorf("encryption.aesgcm.keys[%d].version %q is duplicated", i, k.Version)
		}
		seen[k.Version] = true
		if k.sources() != 1 {
			return fmt.Errorf("encryption.aesgcm.keys[%d] must set exactly one of file, keyring, passphrase_env", i)
		}
		if k.PassphraseSalt != "" && k.PassphraseEnv == "" {
			return fmt.Errorf("encryption.aesgcm.keys[%d].passphrase_salt requires passphrase_env", i)
		}
	}
	return nil
}

func (c *Config) validateTenants() error {
	domains := map[string]bool{SuperTenantDomain: true}
	ids := map[int]bool{-1234: true}
	for i, t := range c.Tenants {
		if t.Domain == "" {
			return fmt.Errorf("tenants[%d].domain is required", i)
		}
		if domains[t.Domain] {
			return fmt.Errorf("tenants[%d].domain %q is already registered", i, t.Domain)
		}
		if ids[t.ID] {
			return fmt.Errorf("tenants[%d].id %d is already registered", i, t.ID)
		}
		domains[t.Domain] = true
		ids[t.ID] = true
	}
	return nil
}

func (c *Config) validateAuthConfig() error {
	if !c.Auth.Basic.Enabled {
		if c.Server.ResolutionAPIEnabled && !c.Server.AllowUnauthenticatedResolution {
			return fmt.Errorf("server.resolution_api_enabled requires auth.basic.enabled " +
				"(set server.allow_unauthenticated_resolution to override)")
		}
		return nil
	}
	known := map[string]bool{SuperTenantDomain: true}
	for _, t := range c.Tenants {
		known[t.Domain] = true
	}
	for i, u := range c.Auth.Basic.Users {
		if u.Username == "" || u.Password == "" {
			return fmt.Errorf("auth.basic.users[%d] requires username and password", i)
		}
		if u.PasswordHashed && !isPasswordHash(u.Password) {
			return fmt.Errorf("auth.basic.users[%d].password is not an argon2id or bcrypt hash", i)
		}
		if u.TenantDomain != "" && !known[u.TenantDomain] {
			return fmt.Errorf("auth.basic.users[%d].tenant_domain %q is not a configured tenant", i, u.TenantDomain)
		}
	}
	return nil
}

func isPasswordHash(s string) bool {
	for _, prefix := range []string{"$argon2id$", "$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// IsPersistentMode returns true if a database backend is configured
func (c *Config) IsPersistentMode() bool {
	return c.Storage.Type != "memory"
}
