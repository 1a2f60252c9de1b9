package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// JWT Configuration
	JWT_SECRET         string
	JWT_ISSUER         string
	JWT_EXPIRY         time.Duration
	JWT_REFRESH_EXPIRY time.Duration
	// Redis Configuration
	REDIS_URL        string
	CHANGE_FEED      string // memory, redis or postgres
	COURSE_CACHE_TTL time.Duration
	// Scheduled jobs
	CRON_ENABLED           bool
	PROMO_SWEEP_SCHEDULE   string
	TIMER_SWEEP_SCHEDULE   string
	UNLOCK_NOTIFY_SCHEDULE string
	TOKEN_CLEANUP_SCHEDULE string
	NOTIF_CLEANUP_SCHEDULE string
	// Object storage (S3 compatible)
	SPACES_ACCESS_KEY string
	SPACES_SECRET_KEY string
	SPACES_BUCKET     string
	SPACES_REGION     string
	SPACES_ENDPOINT   string
	CERT_FONT_PATH    string
	// HTTP
	ALLOWED_ORIGINS string
	// Bootstrap admin
	ADMIN_EMAIL    string
	ADMIN_PASSWORD string
}

// IsProduction reports whether GO_ENV selects the production profile
func (e *EnviornmentVariable) IsProduction() bool {
	return e.GO_ENV == "production" || e.GO_ENV == "prod"
}

// DSN builds the Postgres connection string
func (e *EnviornmentVariable) DSN() string {
	return "host=" + e.DB_HOST +
		" user=" + e.DB_USER_NAME +
		" password=" + e.DB_PASSWORD +
		" dbname=" + e.DB_NAME +
		" port=" + e.DB_PORT +
		" sslmode=" + e.DB_SSL_MODE +
		" TimeZone=UTC"
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	goEnv := os.Getenv("GO_ENV")
	if jwtSecret == "" && (goEnv == "production" || goEnv == "prod") {
		return nil, errors.New("JWT_SECRET must be set in production")
	}

	changeFeed := strings.ToLower(getOr("CHANGE_FEED", "memory"))
	switch changeFeed {
	case "memory", "redis", "postgres":
	default:
		return nil, errors.New("CHANGE_FEED must be one of memory, redis, postgres")
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       goEnv,
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      getOr("DB_HOST", "localhost"),
		DB_PORT:      getOr("DB_PORT", "5432"),
		DB_SSL_MODE:  getOr("DB_SSL_MODE", "disable"),
		PORT:         port,
		// JWT
		JWT_SECRET:         jwtSecret,
		JWT_ISSUER:         getOr("JWT_ISSUER", "learnhub"),
		JWT_EXPIRY:         getDuration("JWT_EXPIRY", 15*time.Minute),
		JWT_REFRESH_EXPIRY: getDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		// Redis
		REDIS_URL:        os.Getenv("REDIS_URL"),
		CHANGE_FEED:      changeFeed,
		COURSE_CACHE_TTL: getDuration("COURSE_CACHE_TTL", 5*time.Minute),
		// Cron
		CRON_ENABLED:           getBool("CRON_ENABLED", true),
		PROMO_SWEEP_SCHEDULE:   getOr("PROMO_SWEEP_SCHEDULE", "0 * * * * *"),
		TIMER_SWEEP_SCHEDULE:   getOr("TIMER_SWEEP_SCHEDULE", "30 * * * * *"),
		UNLOCK_NOTIFY_SCHEDULE: getOr("UNLOCK_NOTIFY_SCHEDULE", "15 * * * * *"),
		TOKEN_CLEANUP_SCHEDULE: getOr("TOKEN_CLEANUP_SCHEDULE", "0 0 3 * * *"),
		NOTIF_CLEANUP_SCHEDULE: getOr("NOTIF_CLEANUP_SCHEDULE", "0 30 3 * * *"),
		// Spaces
		SPACES_ACCESS_KEY: os.Getenv("SPACES_ACCESS_KEY"),
		SPACES_SECRET_KEY: os.Getenv("SPACES_SECRET_KEY"),
		SPACES_BUCKET:     os.Getenv("SPACES_BUCKET"),
		SPACES_REGION:     getOr("SPACES_REGION", "us-east-1"),
		SPACES_ENDPOINT:   os.Getenv("SPACES_ENDPOINT"),
		CERT_FONT_PATH:    os.Getenv("CERT_FONT_PATH"),
		// HTTP
		ALLOWED_ORIGINS: getOr("ALLOWED_ORIGINS", "http://localhost:3000"),
		// Admin
		ADMIN_EMAIL:    os.Getenv("ADMIN_EMAIL"),
		ADMIN_PASSWORD: os.Getenv("ADMIN_PASSWORD"),
	}

	return envVariables, nil
}

func getOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}
