package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Storage StorageConfig
	Alerts  AlertsConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// DBConfig holds the Postgres connection options.
type DBConfig struct {
	DSN string
}

// RedisConfig holds connection options for the rate-limiter backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig carries the JWT verification secret.
type AuthConfig struct {
	JWTSecret string
}

// StorageConfig holds S3-compatible object storage options for application
// attachments.
type StorageConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// AlertsConfig holds low-stock alerting options.
type AlertsConfig struct {
	CronSchedule string
	WebhookURL   string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from the
		// environment directly.
		_ = godotenv.Load()
	}

	redisDB, err := strconv.Atoi(getenvWithDefault("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		DB: DBConfig{
			DSN: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr:     getenvWithDefault("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
		Storage: StorageConfig{
			Endpoint:  os.Getenv("STORAGE_ENDPOINT"),
			Region:    getenvWithDefault("STORAGE_REGION", "auto"),
			Bucket:    os.Getenv("STORAGE_BUCKET"),
			AccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey: os.Getenv("STORAGE_SECRET_KEY"),
		},
		Alerts: AlertsConfig{
			CronSchedule: getenvWithDefault("LOW_STOCK_CRON", "0 7 * * *"),
			WebhookURL:   os.Getenv("LOW_STOCK_WEBHOOK_URL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.DB.DSN == "" {
		return errors.New("DATABASE_URL must be provided")
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must be provided")
	}

	return nil
}

// StorageEnabled reports whether attachment storage is configured.
func (c *Config) StorageEnabled() bool {
	return c.Storage.Bucket != "" && c.Storage.AccessKey != "" && c.Storage.SecretKey != ""
}

// AlertsEnabled reports whether the low-stock webhook is configured.
func (c *Config) AlertsEnabled() bool {
	return c.Alerts.WebhookURL != ""
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
