package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI          string
	MongoDbName       string
	MongoTransactions bool

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort        string
	ServiceApiPort string
	FrontendURL    string

	// Logging
	LogLevel  string
	LogFormat string
	LogOutput string

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	ResetTokenTTL   time.Duration
	EmailLogFile    string // also append outgoing mail to this file when set
	EmailMockRedis  bool   // also store outgoing mail in Redis for getTestEmail

	// Outbox
	OutboxInterval   time.Duration
	OutboxBatchSize  int
	OutboxMaxRetries int

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	ReportExportURLTTL time.Duration

	// Google sign-in
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// App Defaults
	AppName           string
	ExpenseBudget     float64
	DashboardCacheTTL time.Duration

	// Rate Limiting
	RateLimitRPS   float64
	RateLimitBurst int
}

// GoogleEnabled reports whether Google sign-in credentials are configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getSeconds := func(key, defaultValue string) (time.Duration, error) {
		seconds, err := strconv.ParseInt(getEnv(key, defaultValue), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "ledger")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "5000")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.FrontendURL = getEnv("FRONTEND_URL", "http://localhost:5173")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "console")
	cfg.LogOutput = getEnv("LOG_OUTPUT", "stdout")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@ledger.example.com")
	cfg.EmailLogFile = getEnv("EMAIL_LOG_FILE", "")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "ap-south-1")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", "")
	cfg.GoogleClientSecret = getEnv("GOOGLE_CLIENT_SECRET", "")
	cfg.GoogleRedirectURL = getEnv("GOOGLE_REDIRECT_URL", "")
	cfg.AppName = getEnv("APP_NAME", "Ledger")

	cfg.MongoTransactions, err = strconv.ParseBool(getEnv("MONGO_TRANSACTIONS", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid MONGO_TRANSACTIONS: %w", err)
	}

	cfg.EmailMockRedis, err = strconv.ParseBool(getEnv("EMAIL_MOCK_REDIS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid EMAIL_MOCK_REDIS: %w", err)
	}

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.JwtTTL, err = getSeconds("JWT_TTL_SECONDS", "86400")
	if err != nil {
		return nil, err
	}

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	resetTokenTTLMinutes, err := strconv.ParseInt(getEnv("RESET_TOKEN_TTL_MINUTES", "60"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RESET_TOKEN_TTL_MINUTES: %w", err)
	}
	cfg.ResetTokenTTL = time.Duration(resetTokenTTLMinutes) * time.Minute

	exportTTLMinutes, err := strconv.ParseInt(getEnv("REPORT_EXPORT_URL_TTL_MINUTES", "15"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_EXPORT_URL_TTL_MINUTES: %w", err)
	}
	cfg.ReportExportURLTTL = time.Duration(exportTTLMinutes) * time.Minute

	cfg.OutboxInterval, err = getSeconds("OUTBOX_INTERVAL_SECONDS", "5")
	if err != nil {
		return nil, err
	}
	cfg.OutboxBatchSize, err = strconv.Atoi(getEnv("OUTBOX_BATCH_SIZE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_BATCH_SIZE: %w", err)
	}
	cfg.OutboxMaxRetries, err = strconv.Atoi(getEnv("OUTBOX_MAX_RETRIES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_MAX_RETRIES: %w", err)
	}

	cfg.DashboardCacheTTL, err = getSeconds("DASHBOARD_CACHE_TTL_SECONDS", "60")
	if err != nil {
		return nil, err
	}

	cfg.ExpenseBudget, err = strconv.ParseFloat(getEnv("EXPENSE_BUDGET", "200000"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid EXPENSE_BUDGET: %w", err)
	}

	cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "2"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	return cfg, nil
}
