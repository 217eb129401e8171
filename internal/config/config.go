package config

import (
	"fmt"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Port string

	DBUsername string
	DBPassword string
	DBHost     string
	DBPort     string
	DBDatabase string
	DBSchema   string

	StoreID       string
	StorePassword string
	PaymentAPI    string
	SuccessURL    string
	FailURL       string
	CancelURL     string

	// CompensationMode selects what a failed settlement does to the order:
	// "delete" removes payment and order, "cancel" flips them to
	// FAILED/CANCELLED instead.
	CompensationMode string

	// ReconcileInterval enables the abandoned-payment sweep when > 0.
	ReconcileInterval time.Duration
	ReconcileCutoff   time.Duration
}

func Load() Config {
	cfg := Config{
		Port: getEnv("PORT", "8080"),

		DBUsername: getEnv("DB_USERNAME", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBDatabase: getEnv("DB_DATABASE", "stitchkart"),
		DBSchema:   getEnv("DB_SCHEMA", "public"),

		StoreID:       os.Getenv("SSL_STORE_ID"),
		StorePassword: os.Getenv("SSL_STORE_PASSWORD"),
		PaymentAPI:    getEnv("SSL_PAYMENT_API", "https://sandbox.sslcommerz.com/gwprocess/v3/api.php"),
		SuccessURL:    os.Getenv("SSL_SUCCESS_URL"),
		FailURL:       os.Getenv("SSL_FAIL_URL"),
		CancelURL:     os.Getenv("SSL_CANCEL_URL"),

		CompensationMode: getEnv("COMPENSATION_MODE", "delete"),

		ReconcileCutoff: getDuration("RECONCILE_CUTOFF", 30*time.Minute),
	}

	if v := os.Getenv("RECONCILE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			cfg.ReconcileInterval = d
		}
	}

	return cfg
}

// DSN renders the postgres connection string in the form the pgx stdlib
// driver expects.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.DBUsername, c.DBPassword, c.DBHost, c.DBPort, c.DBDatabase, c.DBSchema,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
