package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Broker    BrokerConfig
	App       AppConfig
	Telemetry TelemetryConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// CacheConfig holds the Redis caching layer configuration.
type CacheConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	TTL      time.Duration
}

// BrokerConfig holds the click-event broker configuration. An empty
// URL disables event publishing.
type BrokerConfig struct {
	URL string
}

// AppConfig holds application-specific configuration.
type AppConfig struct {
	BaseURL           string // base URL for generated short links
	ShortCodeLength   int
	ShortCodeRetries  int
	DefaultExpiryDays int
	MinExpiryDays     int
	MaxExpiryDays     int
	MinURLLength      int
	MaxURLLength      int
	StorageTimeout    time.Duration // bound on each individual storage call
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	ServiceName  string
	Environment  string // "development", "staging", "production"
	OTLPEndpoint string // empty means traces are not exported
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "urlkit"),
			Password: getEnv("DB_PASSWORD", "urlkit_secret"),
			DBName:   getEnv("DB_NAME", "urlkit"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Cache: CacheConfig{
			Host:     getEnv("RDB_HOST", "localhost"),
			Port:     getEnv("RDB_PORT", "6379"),
			User:     getEnv("RDB_USER", ""),
			Password: getEnv("RDB_PASSWORD", ""),
			TTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),
		},
		Broker: BrokerConfig{
			URL: getEnv("BROKER_URL", ""),
		},
		App: AppConfig{
			BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
			ShortCodeLength:   getEnvInt("SHORT_CODE_LENGTH", 7),
			ShortCodeRetries:  getEnvInt("SHORT_CODE_MAX_RETRIES", 3),
			DefaultExpiryDays: getEnvInt("DEFAULT_EXPIRY_DAYS", 365),
			MinExpiryDays:     getEnvInt("MIN_EXPIRY_DAYS", 1),
			MaxExpiryDays:     getEnvInt("MAX_EXPIRY_DAYS", 3650),
			MinURLLength:      getEnvInt("MIN_URL_LENGTH", 3),
			MaxURLLength:      getEnvInt("MAX_URL_LENGTH", 2048),
			StorageTimeout:    getEnvDuration("STORAGE_TIMEOUT", 3*time.Second),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  getEnv("SERVICE_NAME", "urlkit-gateway"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
		},
	}, nil
}

// ConnectionString returns the PostgreSQL connection string.
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// ConnectionString returns the Redis connection string.
func (c *CacheConfig) ConnectionString() string {
	return fmt.Sprintf("redis://%s:%s@%s:%s/0", c.User, c.Password, c.Host, c.Port)
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
