package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	AppBaseURL  string
	CORSOrigins []string

	DBUser     string
	DBPassword string
	DBName     string
	DBHost     string
	DBPort     string
	DBSSLMode  string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	// Paycrest off-ramp provider
	PaycrestAPIURL       string
	PaycrestClientID     string
	PaycrestClientSecret string
	PaycrestAllowedCIDRs []string

	// Kotani payout provider
	KotaniAPIURL string
	KotaniAPIKey string

	// Payment link signing
	HMACSecret string

	// Auth
	JWTVerifySecret string
	AdminAccessKey  string

	// Payment link rate limit (per IP)
	LinkRateLimit  int
	LinkRateWindow time.Duration

	// Reconciliation worker
	ReconcileInterval time.Duration
	ReconcileMinAge   time.Duration
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("APP_ENV", "development"),
		AppBaseURL:  getEnv("APP_BASE_URL", "http://localhost:8080"),
		CORSOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),

		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "nedapay"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		PaycrestAPIURL:       getEnv("PAYCREST_API_URL", "https://api.paycrest.io/v1"),
		PaycrestClientID:     getEnv("PAYCREST_CLIENT_ID", ""),
		PaycrestClientSecret: getEnv("PAYCREST_CLIENT_SECRET", ""),
		PaycrestAllowedCIDRs: getEnvAsSlice("PAYCREST_ALLOWED_CIDRS", nil),

		KotaniAPIURL: getEnv("KOTANI_API_URL", "https://api.kotanipay.io/v3"),
		KotaniAPIKey: getEnv("KOTANI_API_KEY", ""),

		HMACSecret: getEnv("HMAC_SECRET", ""),

		JWTVerifySecret: getEnv("JWT_VERIFY_SECRET", ""),
		AdminAccessKey:  getEnv("ADMIN_ACCESS_KEY", ""),

		LinkRateLimit:  getEnvAsInt("LINK_RATE_LIMIT", 10),
		LinkRateWindow: getEnvAsDuration("LINK_RATE_WINDOW", time.Minute),

		ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", 10*time.Minute),
		ReconcileMinAge:   getEnvAsDuration("RECONCILE_MIN_AGE", 15*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if val, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return val
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if val, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return val
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	val := getEnv(key, "")
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}
