// Copyright (c) 2024 Carbon Ledger
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the complete application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	JWT        JWTConfig        `json:"jwt"`
	Email      EmailConfig      `json:"email"`
	SMS        SMSConfig        `json:"sms"`
	NATS       NATSConfig       `json:"nats"`
	App        AppConfig        `json:"app"`
	Cache      CacheConfig      `json:"cache"`
	RateLimits RateLimitsConfig `json:"rateLimits"`
	Recaptcha  RecaptchaConfig  `json:"recaptcha"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	BaseRoute       string        `json:"baseRoute"`
	AllowedOrigins  string        `json:"allowedOrigins"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout"`
	Debug           bool          `json:"debug"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Type    string        `json:"type"`
	MongoDB MongoDBConfig `json:"mongodb"`
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI            string        `json:"uri"`
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	Username       string        `json:"username"`
	Password       string        `json:"password"`
	Database       string        `json:"database"`
	AuthDatabase   string        `json:"authDatabase"`
	MaxPoolSize    int           `json:"maxPoolSize"`
	ConnectTimeout time.Duration `json:"connectTimeout"`
	SocketTimeout  time.Duration `json:"socketTimeout"`
}

// JWTConfig holds the ES256 key pair used to sign session tokens
type JWTConfig struct {
	PublicKey  string        `json:"publicKey"`
	PrivateKey string        `json:"privateKey"`
	Expiry     time.Duration `json:"expiry"`
	CookieName string        `json:"cookieName"`
}

// EmailConfig holds SMTP configuration. An empty host disables email delivery.
type EmailConfig struct {
	SMTPEmail string `json:"smtpEmail"`
	SMTPHost  string `json:"smtpHost"`
	SMTPPort  int    `json:"smtpPort"`
	SMTPUser  string `json:"smtpUser"`
	SMTPPass  string `json:"smtpPass"`
}

// SMSConfig holds Plivo credentials. Empty credentials disable SMS delivery.
type SMSConfig struct {
	SourceNumber string `json:"sourceNumber"`
	AuthID       string `json:"authId"`
	AuthToken    string `json:"authToken"`
}

// NATSConfig holds the notification broker configuration. An empty URL disables publishing.
type NATSConfig struct {
	URL     string `json:"url"`
	Subject string `json:"subject"`
}

// AppConfig holds application-related configuration
type AppConfig struct {
	Name string `json:"name"`
}

// RecaptchaConfig enables signup token checks when SecretKey is set.
type RecaptchaConfig struct {
	SecretKey string `json:"secretKey"`
	Endpoint  string `json:"endpoint"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	Backend         string        `json:"backend"`
	Prefix          string        `json:"prefix"`
	TTL             time.Duration `json:"ttl"`
	MaxMemory       int64         `json:"maxMemory"`
	CleanupInterval time.Duration `json:"cleanupInterval"`
	Redis           RedisConfig   `json:"redis"`
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	Address      string `json:"address"`
	Password     string `json:"password"`
	DB           int    `json:"db"`
	PoolSize     int    `json:"poolSize"`
	MinIdleConns int    `json:"minIdleConns"`
}

// RateLimitConfig holds rate limiting configuration for a specific endpoint
type RateLimitConfig struct {
	Enabled  bool          `json:"enabled"`
	Max      int           `json:"max"`
	Duration time.Duration `json:"duration"`
}

// RateLimitsConfig holds rate limiting configuration for all limited endpoints
type RateLimitsConfig struct {
	Login  RateLimitConfig `json:"login"`
	Signup RateLimitConfig `json:"signup"`
	Upload RateLimitConfig `json:"upload"`
}

// LoadFromEnv loads configuration from the environment.
// Precedence: explicit environment variables, then values from a .env file, then defaults.
func LoadFromEnv() (*Config, error) {
	// godotenv never overrides variables that are already set.
	envPaths := []string{".env", "../.env", "../../.env"}

	var loadErr error
	for _, envPath := range envPaths {
		loadErr = godotenv.Load(envPath)
		if loadErr == nil {
			break
		}
	}
	if loadErr != nil {
		fmt.Println("INFO: .env file not found, using environment variables and defaults.")
	}

	return load(func(key string) (string, bool) {
		value := os.Getenv(key)
		return value, value != ""
	})
}

// LoadFromMap loads configuration from an in-memory map.
// Tests use it to exercise configuration without touching the process environment.
func LoadFromMap(envMap map[string]string) (*Config, error) {
	return load(func(key string) (string, bool) {
		value, ok := envMap[key]
		return value, ok
	})
}

type lookupFunc func(key string) (string, bool)

func load(lookup lookupFunc) (*Config, error) {
	e := env{lookup: lookup}

	config := &Config{
		Server: ServerConfig{
			Host:            e.get("HOST", "0.0.0.0"),
			Port:            e.getInt("SERVER_PORT", 8080),
			BaseRoute:       e.get("BASE_ROUTE", "/api"),
			AllowedOrigins:  e.get("ALLOWED_ORIGINS", "*"),
			ShutdownTimeout: e.getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			Debug:           e.getBool("DEBUG", false),
		},
		Database: DatabaseConfig{
			Type: e.get("DB_TYPE", "mongodb"),
			MongoDB: MongoDBConfig{
				URI:            e.get("MONGODB_URI", ""),
				Host:           e.get("MONGODB_HOST", "localhost"),
				Port:           e.getInt("MONGODB_PORT", 27017),
				Username:       e.get("MONGODB_USERNAME", ""),
				Password:       e.get("MONGODB_PASSWORD", ""),
				Database:       e.get("MONGODB_DATABASE", "carbon_ledger"),
				AuthDatabase:   e.get("MONGODB_AUTH_DATABASE", ""),
				MaxPoolSize:    e.getInt("MONGODB_MAX_POOL_SIZE", 100),
				ConnectTimeout: e.getDuration("MONGODB_CONNECT_TIMEOUT", 10*time.Second),
				SocketTimeout:  e.getDuration("MONGODB_SOCKET_TIMEOUT", 30*time.Second),
			},
		},
		JWT: JWTConfig{
			PublicKey:  e.get("JWT_PUBLIC_KEY", ""),
			PrivateKey: e.get("JWT_PRIVATE_KEY", ""),
			Expiry:     e.getDuration("JWT_EXPIRY", 48*time.Hour),
			CookieName: e.get("JWT_COOKIE_NAME", "jwt"),
		},
		Email: EmailConfig{
			SMTPEmail: e.get("SMTP_EMAIL", ""),
			SMTPHost:  e.get("SMTP_HOST", ""),
			SMTPPort:  e.getInt("SMTP_PORT", 587),
			SMTPUser:  e.get("SMTP_USER", ""),
			SMTPPass:  e.get("SMTP_PASS", ""),
		},
		SMS: SMSConfig{
			SourceNumber: e.get("PHONE_SOURCE_NUMBER", ""),
			AuthID:       e.get("PHONE_AUTH_ID", ""),
			AuthToken:    e.get("PHONE_AUTH_TOKEN", ""),
		},
		NATS: NATSConfig{
			URL:     e.get("NATS_URL", ""),
			Subject: e.get("NATS_SUBJECT", "carbon.notifications"),
		},
		App: AppConfig{
			Name: e.get("APP_NAME", "Carbon Ledger"),
		},
		Recaptcha: RecaptchaConfig{
			SecretKey: e.get("RECAPTCHA_SECRET_KEY", ""),
			Endpoint:  e.get("RECAPTCHA_ENDPOINT", ""),
		},
		Cache: CacheConfig{
			Enabled:         e.getBool("CACHE_ENABLED", true),
			Backend:         e.get("CACHE_BACKEND", "memory"),
			Prefix:          e.get("CACHE_PREFIX", "carbon:"),
			TTL:             e.getDuration("CACHE_TTL", 10*time.Minute),
			MaxMemory:       e.getInt64("CACHE_MAX_MEMORY", 64*1024*1024),
			CleanupInterval: e.getDuration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
			Redis: RedisConfig{
				Address:      e.get("REDIS_ADDRESS", "localhost:6379"),
				Password:     e.get("REDIS_PASSWORD", ""),
				DB:           e.getInt("REDIS_DB", 0),
				PoolSize:     e.getInt("REDIS_POOL_SIZE", 10),
				MinIdleConns: e.getInt("REDIS_MIN_IDLE_CONNS", 2),
			},
		},
		RateLimits: RateLimitsConfig{
			Login: RateLimitConfig{
				Enabled:  e.getBool("RATE_LIMIT_LOGIN_ENABLED", true),
				Max:      e.getInt("RATE_LIMIT_LOGIN_MAX", 5),
				Duration: e.getDuration("RATE_LIMIT_LOGIN_DURATION", 15*time.Minute),
			},
			Signup: RateLimitConfig{
				Enabled:  e.getBool("RATE_LIMIT_SIGNUP_ENABLED", true),
				Max:      e.getInt("RATE_LIMIT_SIGNUP_MAX", 10),
				Duration: e.getDuration("RATE_LIMIT_SIGNUP_DURATION", time.Hour),
			},
			Upload: RateLimitConfig{
				Enabled:  e.getBool("RATE_LIMIT_UPLOAD_ENABLED", true),
				Max:      e.getInt("RATE_LIMIT_UPLOAD_MAX", 20),
				Duration: e.getDuration("RATE_LIMIT_UPLOAD_DURATION", time.Hour),
			},
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration for required fields
func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.JWT.PublicKey) == "" {
		errors = append(errors, "JWT_PUBLIC_KEY is required")
	}
	if strings.TrimSpace(c.JWT.PrivateKey) == "" {
		errors = append(errors, "JWT_PRIVATE_KEY is required")
	}

	validDbTypes := []string{"mongodb", "memory"}
	if !contains(validDbTypes, c.Database.Type) {
		errors = append(errors, fmt.Sprintf("DB_TYPE must be one of: %s", strings.Join(validDbTypes, ", ")))
	}

	validCacheBackends := []string{"memory", "redis"}
	if c.Cache.Enabled && !contains(validCacheBackends, c.Cache.Backend) {
		errors = append(errors, fmt.Sprintf("CACHE_BACKEND must be one of: %s", strings.Join(validCacheBackends, ", ")))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// env reads typed values through a lookup, falling back to defaults on absent or malformed input.
type env struct {
	lookup lookupFunc
}

func (e env) get(key, defaultValue string) string {
	if value, ok := e.lookup(key); ok {
		return value
	}
	return defaultValue
}

func (e env) getInt(key string, defaultValue int) int {
	if value, ok := e.lookup(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (e env) getInt64(key string, defaultValue int64) int64 {
	if value, ok := e.lookup(key); ok {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (e env) getBool(key string, defaultValue bool) bool {
	if value, ok := e.lookup(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func (e env) getDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := e.lookup(key); ok {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
