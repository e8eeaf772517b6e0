package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Boundary API (the CMS that owns pages, widgets and content)
	BoundaryBaseURL string
	BoundaryToken   string
	BoundaryTimeout time.Duration

	// Preview pipeline
	PreviewTimeout  time.Duration
	PreviewCacheTTL time.Duration
	PreviewDebounce time.Duration

	// Redis
	EnableRedis bool
	RedisURL    string

	// Sessions
	MaxSessions int

	// JWT
	JWTSecret string

	// CORS
	CORSOrigins []string

	// Features
	EnableMetrics bool
}

func New() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Boundary API
		BoundaryBaseURL: getEnv("BOUNDARY_BASE_URL", "http://localhost:8081/api"),
		BoundaryToken:   getEnv("BOUNDARY_TOKEN", ""),
		BoundaryTimeout: getEnvAsDuration("BOUNDARY_TIMEOUT", 15*time.Second),

		// Preview pipeline
		PreviewTimeout:  getEnvAsDuration("PREVIEW_TIMEOUT", 10*time.Second),
		PreviewCacheTTL: getEnvAsDuration("PREVIEW_CACHE_TTL", 5*time.Minute),
		PreviewDebounce: getEnvAsDuration("PREVIEW_DEBOUNCE", 500*time.Millisecond),

		// Redis
		EnableRedis: getEnvAsBool("ENABLE_REDIS", false),
		RedisURL:    getEnv("REDIS_URL", "localhost:6379"),

		// Sessions
		MaxSessions: getEnvAsInt("MAX_SESSIONS", 100),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-this-in-production"),

		// CORS
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		// Features
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return valueStr == "true" || valueStr == "1"
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
