package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinSecretKeyLength is the smallest HS256 signing key accepted, in bytes.
const MinSecretKeyLength = 32

// Config holds all runtime settings
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Cache    CacheConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Metrics  MetricsConfig
	JWT      JWTConfig
	Audit    AuditConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig describes the Postgres connection. URL wins over the
// individual fields when both are set.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	LogLevel string
}

type LogConfig struct {
	Level  string
	Format string
}

type CacheConfig struct {
	Enabled bool
	Type    string // memory or redis
	TTL     time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type MetricsConfig struct {
	Enabled bool
}

// JWTConfig holds token signing settings
type JWTConfig struct {
	SecretKey         string
	Issuer            string
	Audience          string
	ExpirationMinutes int
}

// AuditConfig controls the request/response audit middleware
type AuditConfig struct {
	MaxBodyBytes int
	Persist      bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	env := &envReader{}
	cfg := &Config{
		Server: ServerConfig{
			Host:         env.str("SERVER_HOST", "0.0.0.0"),
			Port:         env.int("SERVER_PORT", 8080),
			ReadTimeout:  env.duration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: env.duration("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     os.Getenv("DB_HOST"),
			Port:     env.int("DB_PORT", 5432),
			User:     env.str("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
			SSLMode:  env.str("DB_SSLMODE", "disable"),
			LogLevel: env.str("DB_LOG_LEVEL", "warn"),
		},
		Log: LogConfig{
			Level:  env.str("LOG_LEVEL", "info"),
			Format: env.str("LOG_FORMAT", "json"),
		},
		Cache: CacheConfig{
			Enabled: env.bool("CACHE_ENABLED", true),
			Type:    env.str("CACHE_TYPE", "memory"),
			TTL:     env.duration("CACHE_TTL", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     env.str("REDIS_HOST", "localhost"),
			Port:     env.int("REDIS_PORT", 6379),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       env.int("REDIS_DB", 0),
		},
		CORS: CORSConfig{
			AllowedOrigins: env.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: env.list("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: env.list("CORS_ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"}),
		},
		Metrics: MetricsConfig{
			Enabled: env.bool("METRICS_ENABLED", true),
		},
		JWT: JWTConfig{
			SecretKey:         os.Getenv("JWT_SECRET_KEY"),
			Issuer:            os.Getenv("JWT_ISSUER"),
			Audience:          os.Getenv("JWT_AUDIENCE"),
			ExpirationMinutes: env.int("JWT_EXPIRATION_MINUTES", 0),
		},
		Audit: AuditConfig{
			MaxBodyBytes: env.int("AUDIT_MAX_BODY_BYTES", 64*1024),
			Persist:      env.bool("AUDIT_PERSIST", false),
		},
	}

	if len(env.invalid) > 0 {
		return nil, fmt.Errorf("invalid environment variables: %s", strings.Join(env.invalid, ", "))
	}

	return cfg, nil
}

// Validate reports every missing or invalid required setting at once.
func (c *Config) Validate() error {
	var missing []string

	if c.Database.URL == "" {
		if c.Database.Host == "" {
			missing = append(missing, "DB_HOST")
		}
		if c.Database.DBName == "" {
			missing = append(missing, "DB_NAME")
		}
	}
	if c.JWT.SecretKey == "" {
		missing = append(missing, "JWT_SECRET_KEY")
	}
	if c.JWT.Issuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	if c.JWT.Audience == "" {
		missing = append(missing, "JWT_AUDIENCE")
	}
	if c.JWT.ExpirationMinutes == 0 {
		missing = append(missing, "JWT_EXPIRATION_MINUTES")
	}

	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if len(c.JWT.SecretKey) < MinSecretKeyLength {
		return fmt.Errorf("JWT_SECRET_KEY must be at least %d bytes, got %d", MinSecretKeyLength, len(c.JWT.SecretKey))
	}
	if c.JWT.ExpirationMinutes < 0 {
		return fmt.Errorf("JWT_EXPIRATION_MINUTES must be positive, got %d", c.JWT.ExpirationMinutes)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.Cache.TTL)
	}
	if c.Cache.Type != "memory" && c.Cache.Type != "redis" {
		return fmt.Errorf("CACHE_TYPE must be memory or redis, got %q", c.Cache.Type)
	}
	if c.Audit.MaxBodyBytes < 0 {
		return fmt.Errorf("AUDIT_MAX_BODY_BYTES must not be negative")
	}

	return nil
}

// DSN returns the Postgres connection string
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// TokenTTL returns the configured token lifetime
func (j JWTConfig) TokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// envReader reads typed environment variables. Unset keys fall back to
// defaults; values that do not parse are collected in invalid.
type envReader struct {
	invalid []string
}

func (e *envReader) reject(key, value string) {
	e.invalid = append(e.invalid, fmt.Sprintf("%s=%q", key, value))
}

func (e *envReader) str(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (e *envReader) int(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.reject(key, v)
		return defaultVal
	}
	return i
}

func (e *envReader) bool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.reject(key, v)
		return defaultVal
	}
	return b
}

func (e *envReader) duration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.reject(key, v)
		return defaultVal
	}
	return d
}

func (e *envReader) list(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
