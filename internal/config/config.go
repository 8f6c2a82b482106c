package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the whole application configuration,
// populated from environment variables
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Esewa    EsewaConfig
	MinIO    MinIOConfig
	Jobs     JobConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	AccessTokenExpiry int // minutes
}

// =====================================================
// ESEWA CONFIGURATION
// =====================================================

type EsewaConfig struct {
	ProductCode   string // Merchant product code (e.g. "EPAYTEST")
	SecretKey     string // HMAC-SHA256 key
	FormURL       string // Checkout form endpoint
	StatusURL     string // Server-to-server status check base URL
	SuccessURL    string // Frontend redirect after success
	FailureURL    string // Frontend redirect after failure
	StatusTimeout time.Duration
}

type MinIOConfig struct {
	Endpoint  string // localhost:9000
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// JobConfig controls the background worker schedules
type JobConfig struct {
	StalePaymentCron      string
	PaymentTimeoutMinutes int
	StaleBatchSize        int
	StatementURLExpiry    time.Duration
}

// Load reads config from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Rentflow API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "rentflow"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenExpiry: getEnvInt("JWT_ACCESS_EXPIRY", 60*24),
		},
		Esewa: EsewaConfig{
			ProductCode:   getEnv("ESEWA_PRODUCT_CODE", ""),
			SecretKey:     getEnv("ESEWA_SECRET_KEY", ""),
			FormURL:       getEnv("ESEWA_FORM_URL", "https://rc-epay.esewa.com.np/api/epay/main/v2/form"),
			StatusURL:     getEnv("ESEWA_STATUS_URL", "https://rc.esewa.com.np"),
			SuccessURL:    getEnv("ESEWA_SUCCESS_URL", "http://localhost:3000/payment/success"),
			FailureURL:    getEnv("ESEWA_FAILURE_URL", "http://localhost:3000/payment/failure"),
			StatusTimeout: getEnvDuration("ESEWA_STATUS_TIMEOUT", 15*time.Second),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "rentflow-statements"),
			UseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
		},
		Jobs: JobConfig{
			StalePaymentCron:      getEnv("JOB_STALE_PAYMENT_CRON", "*/10 * * * *"),
			PaymentTimeoutMinutes: getEnvInt("PAYMENT_TIMEOUT_MINUTES", 30),
			StaleBatchSize:        getEnvInt("JOB_STALE_BATCH_SIZE", 100),
			StatementURLExpiry:    getEnvDuration("STATEMENT_URL_EXPIRY", 15*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	// The gateway cannot sign or verify anything without these
	if c.Esewa.ProductCode == "" {
		return fmt.Errorf("ESEWA_PRODUCT_CODE must be set")
	}
	if c.Esewa.SecretKey == "" {
		return fmt.Errorf("ESEWA_SECRET_KEY must be set")
	}

	if c.App.Environment == "production" {
		if c.JWT.Secret == "your-secret-key-change-in-production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD must be set in production")
		}
	}

	if c.Jobs.PaymentTimeoutMinutes <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT_MINUTES must be positive")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
