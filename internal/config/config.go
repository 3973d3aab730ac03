package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port string

	// StoreDriver is "postgres" or "memory". The memory store copies all of
	// its rows on every write, so it is only meant for tests and local runs.
	StoreDriver string
	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration
	// AdminBootstrapSecret enables POST /auth/bootstrap-admin when set
	AdminBootstrapSecret string

	AlertsEnabled bool
	RedisAddr     string
	AppURL        string
	SMTP          SMTPConfig

	StaticDir        string
	CORSAllowOrigins []string
}

// SMTPConfig is the outgoing mail server. An empty Host means mail is only logged.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Load reads configuration from the environment, after loading .env if present
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment only")
	}

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		StoreDriver:          getEnv("STORE_DRIVER", "postgres"),
		DatabaseURL:          databaseURL(),
		JWTSecret:            getEnv("JWT_SECRET", "change-me"),
		JWTTTL:               time.Duration(getEnvInt("JWT_TTL_HOURS", 72)) * time.Hour,
		AdminBootstrapSecret: os.Getenv("ADMIN_BOOTSTRAP_SECRET"),
		AlertsEnabled:        getEnvBool("ALERTS_ENABLED", false),
		RedisAddr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		AppURL:               strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnv("SMTP_PORT", "465"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "no-reply@carhub.local"),
		},
		StaticDir:        getEnv("STATIC_DIR", "static"),
		CORSAllowOrigins: strings.Split(getEnv("CORS_ALLOW_ORIGINS", "*"), ","),
	}
}

// databaseURL prefers DATABASE_URL and falls back to the DB_* parts
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "carhub"),
	)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return b
}
