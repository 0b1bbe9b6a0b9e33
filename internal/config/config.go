package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries everything the api and worker binaries need.
type Config struct {
	Port      string
	DBUser    string
	DBPass    string
	DBHost    string
	DBPort    string
	DBName    string
	RedisAddr string

	JWTSecret string

	ProviderBaseURL string
	ProviderAPIKey  string
	WebhookSecret   string

	Currency        string
	AutoReleaseDays int
	SweepEnabled    bool
	SweepBatchSize  int
	SweepInterval   int // minutes
}

// Load reads .env when present and falls back to real environment variables.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return Config{
		Port:      getEnv("PORT", "8080"),
		DBUser:    getEnv("DB_USER", "postgres"),
		DBPass:    getEnv("DB_PASSWORD", "postgres"),
		DBHost:    getEnv("DB_HOST", "localhost"),
		DBPort:    getEnv("DB_PORT", "5432"),
		DBName:    getEnv("DB_NAME", "otlob_wallet"),
		RedisAddr: getEnv("REDIS_ADDR", "127.0.0.1:6379"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		ProviderBaseURL: getEnv("FAWATERAK_BASE_URL", "https://staging.fawaterk.com/api/v2"),
		ProviderAPIKey:  getEnv("FAWATERAK_API_KEY", ""),
		WebhookSecret:   getEnv("FAWATERAK_WEBHOOK_SECRET", ""),

		Currency:        getEnv("WALLET_CURRENCY", "EGP"),
		AutoReleaseDays: getEnvInt("ESCROW_AUTO_RELEASE_DAYS", 7),
		SweepEnabled:    getEnvBool("ESCROW_AUTO_RELEASE_ENABLED", true),
		SweepBatchSize:  getEnvInt("ESCROW_SWEEP_BATCH_SIZE", 100),
		SweepInterval:   getEnvInt("ESCROW_SWEEP_INTERVAL_MINUTES", 60),
	}
}

// DSN builds the Postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return b
}
