// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Identity store backends.
const (
	StoreBackendFile     = "file"
	StoreBackendPostgres = "postgres"
)

// Session store backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// StoreBackend selects the identity store: "file" or "postgres".
	StoreBackend string `mapstructure:"STORE_BACKEND"`
	// DataDir is the directory for the file backend's snapshot and export.
	DataDir string `mapstructure:"DATA_DIR"`
	// DatabaseURL is the Postgres DSN; required for the postgres backend and the code ledger.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SessionBackend selects conversation session storage: "memory" or "redis".
	SessionBackend string `mapstructure:"SESSION_BACKEND"`
	// RedisAddr is the Redis address for the redis session backend (e.g. localhost:6379).
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// SessionTTL is how long an abandoned conversation survives in Redis (e.g. "24h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// CodeLength is the length of TTL ledger codes (6–8).
	CodeLength int `mapstructure:"CODE_LENGTH"`
	// CodeTTL is the ledger code lifetime (e.g. "10m").
	CodeTTL string `mapstructure:"CODE_TTL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim; required when token minting is enabled.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim; required when token minting is enabled.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// SyncCommand is an optional shell command run after each successful
	// registration (e.g. a script pushing DataDir to a remote). Failure is
	// logged, never fatal.
	SyncCommand string `mapstructure:"SYNC_COMMAND"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. localhost:4317); empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("STORE_BACKEND", StoreBackendFile)
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SESSION_BACKEND", SessionBackendMemory)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("CODE_LENGTH", 6)
	v.SetDefault("CODE_TTL", "10m")
	v.SetDefault("JWT_ISSUER", "employee-access")
	v.SetDefault("JWT_AUDIENCE", "employee-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("SYNC_COMMAND", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	switch cfg.StoreBackend {
	case StoreBackendFile:
		if cfg.DataDir == "" {
			return nil, errors.New("config: DATA_DIR must be set for the file backend")
		}
	case StoreBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: DATABASE_URL must be set for the postgres backend")
		}
	default:
		return nil, fmt.Errorf("config: unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	switch cfg.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("config: REDIS_ADDR must be set for the redis session backend")
		}
	default:
		return nil, fmt.Errorf("config: unknown SESSION_BACKEND %q", cfg.SessionBackend)
	}

	if cfg.CodeLength < 6 || cfg.CodeLength > 8 {
		return nil, errors.New("config: CODE_LENGTH must be between 6 and 8")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// CodeExpiry parses CodeTTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) CodeExpiry() time.Duration {
	d, err := time.ParseDuration(c.CodeTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// SessionExpiry parses SessionTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) SessionExpiry() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}
