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

type Config struct {
	Port              string
	DBUrl             string
	JWTSecret         string
	AppEnv            string
	EnableDocs        bool
	StoreDriver       string
	StoreTimeout      time.Duration
	IdempotencyWindow time.Duration
	BreakerFailures   uint32
	BreakerCooldown   time.Duration
	RedisAddr         string
	RedisChannel      string
	AllowedOrigins    string
	SeedUsersFile     string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DBUrl:             getEnv("DB_URL", ""),
		JWTSecret:         jwtSecret,
		AppEnv:            normalizeEnv(getEnv("APP_ENV", "production")),
		EnableDocs:        getEnvBool("ENABLE_API_DOCS", false),
		StoreDriver:       strings.ToLower(strings.TrimSpace(getEnv("STORE_DRIVER", "postgres"))),
		StoreTimeout:      getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		IdempotencyWindow: getEnvDuration("IDEMPOTENCY_WINDOW", 10*time.Minute),
		BreakerFailures:   uint32(getEnvInt("STORE_BREAKER_FAILURES", 5)),
		BreakerCooldown:   getEnvDuration("STORE_BREAKER_COOLDOWN", 30*time.Second),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisChannel:      getEnv("REDIS_CHANNEL", "network-events"),
		AllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", "*"),
		SeedUsersFile:     getEnv("SEED_USERS_FILE", ""),
	}

	switch cfg.StoreDriver {
	case "postgres":
		if cfg.DBUrl == "" {
			return nil, fmt.Errorf("DB_URL is required for the postgres store driver")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// getEnvDuration accepts Go duration strings ("750ms", "5s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return fallback
		}
		return time.Duration(seconds) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) DocsEnabled() bool {
	return c != nil && c.EnableDocs && c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
