package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/db"
)

// Run modes selected with the -m flag.
const (
	RunModeAPI     = "api"
	RunModeMigrate = "migrate"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// Database. A non-empty DBURL selects Postgres; otherwise MySQL with the discrete settings.
	DBURL          string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBWaitAttempts int
	MigrateOnStart bool

	// Redis (optional, empty RedisAddr disables it)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort     string
	CorsOrigins []string

	// Rate Limiting
	RateLimitBucketSize     int
	RateLimitRefillRate     int // tokens per second
	AuthRateLimitBucketSize int
	AuthRateLimitRefillRate int // tokens per second
}

// DBSettings returns the connection settings for the database provider.
func (c *Config) DBSettings() db.Settings {
	return db.Settings{
		URL:      c.DBURL,
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Name:     c.DBName,
	}
}

// RedisEnabled reports whether a cache server is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// redisDisabled lists REDIS_HOST values that explicitly turn the cache off.
var redisDisabled = map[string]bool{"": true, "none": true, "false": true, "0": true}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || strings.TrimSpace(value) == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	// Database
	cfg.DBURL = strings.TrimSpace(getEnv("DB_URL", ""))
	cfg.DBHost = getEnv("DB_HOST", "database")
	cfg.DBPort = getEnv("DB_PORT", "3306")
	cfg.DBUser = getEnv("DB_USER", "webuser")
	cfg.DBPassword = getEnv("DB_PASSWORD", "webpass")
	cfg.DBName = getEnv("DB_NAME", "webapp")

	cfg.DBWaitAttempts, err = strconv.Atoi(getEnv("DB_WAIT_ATTEMPTS", strconv.Itoa(db.DefaultWaitAttempts)))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_WAIT_ATTEMPTS: %w", err)
	}
	cfg.MigrateOnStart, err = strconv.ParseBool(getEnv("MIGRATE_ON_START", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid MIGRATE_ON_START: %w", err)
	}

	// Redis
	redisHost := strings.TrimSpace(getEnv("REDIS_HOST", ""))
	if !redisDisabled[strings.ToLower(redisHost)] {
		cfg.RedisAddr = net.JoinHostPort(redisHost, getEnv("REDIS_PORT", "6379"))
	}
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	// JWT, only the API issues sessions
	if runMode == RunModeAPI {
		cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
		if err != nil {
			return nil, err
		}
	} else {
		cfg.JwtSecret = getEnv("JWT_SECRET", "")
	}
	jwtTTLSeconds, err := strconv.ParseInt(getEnv("JWT_TTL_SECONDS", "86400"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	// Server
	cfg.ApiPort = getEnv("API_PORT", "5000")
	for _, origin := range strings.Split(getEnv("CORS_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CorsOrigins = append(cfg.CorsOrigins, origin)
		}
	}

	// Rate Limiting
	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "40"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}
	cfg.AuthRateLimitBucketSize, err = strconv.Atoi(getEnv("AUTH_RATE_LIMIT_BUCKET_SIZE", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.AuthRateLimitRefillRate, err = strconv.Atoi(getEnv("AUTH_RATE_LIMIT_REFILL_RATE", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_RATE_LIMIT_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
