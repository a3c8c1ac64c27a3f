package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingEnv = errors.New("missing required environment variables")

type Config struct {
	AppEnv  string
	AppPort string

	// Postgres backs the checkout handoff ledger. Leave DB_HOST empty to keep
	// handoffs in memory.
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	StorefrontBaseURL string
	StorefrontTimeout time.Duration
	StorefrontRPS     float64

	JWTSecret         string
	InternalSecretKey string

	PaymentRedirectURL string
	PaymentSuccessURL  string
	PaymentFailURL     string
}

// DBConfigured reports whether a Postgres connection was configured.
func (c *Config) DBConfigured() bool {
	return c.DBHost != ""
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:             envOr("APP_ENV", "development"),
		AppPort:            envOr("APP_PORT", "8080"),
		DBHost:             os.Getenv("DB_HOST"),
		DBUser:             os.Getenv("DB_USER"),
		DBPassword:         os.Getenv("DB_PASSWORD"),
		DBName:             os.Getenv("DB_NAME"),
		DBPort:             envOr("DB_PORT", "5432"),
		StorefrontBaseURL:  os.Getenv("STOREFRONT_BASE_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		InternalSecretKey:  os.Getenv("INTERNAL_SECRET_KEY"),
		PaymentRedirectURL: os.Getenv("PAYMENT_REDIRECT_URL"),
		PaymentSuccessURL:  os.Getenv("PAYMENT_SUCCESS_URL"),
		PaymentFailURL:     os.Getenv("PAYMENT_FAIL_URL"),
	}

	var missing []string
	for name, v := range map[string]string{
		"STOREFRONT_BASE_URL":  cfg.StorefrontBaseURL,
		"JWT_SECRET":           cfg.JWTSecret,
		"PAYMENT_REDIRECT_URL": cfg.PaymentRedirectURL,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	timeout, err := time.ParseDuration(envOr("STOREFRONT_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid STOREFRONT_TIMEOUT: %w", err)
	}
	cfg.StorefrontTimeout = timeout

	rps, err := strconv.ParseFloat(envOr("STOREFRONT_RPS", "50"), 64)
	if err != nil || rps < 0 {
		return nil, fmt.Errorf("invalid STOREFRONT_RPS %q", os.Getenv("STOREFRONT_RPS"))
	}
	cfg.StorefrontRPS = rps

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
