package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverRedis  = "redis"
	StoreDriverSQLite = "sqlite"
	StoreDriverMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	ServerPort     string
	GinMode        string
	LogLevel       string
	LogFormat      string
	BackendURL     string
	BackendTimeout time.Duration
	StoreDriver    string
	RedisURL       string
	SQLitePath     string
	// JWTSecret enables signature verification of backend-issued tokens.
	// Empty means tokens are decoded without verification; the backend
	// remains the authority on every forwarded call.
	JWTSecret        string
	QuestionsPerPage int
	// TimezoneCorrection is added to quiz start/end dates returned by the
	// backend list endpoint. Zero disables it.
	TimezoneCorrection  time.Duration
	SubmitRatePerMinute int
	MaxUploadBytes      int64
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string

	// CLI only.
	AccessToken string
	StudentID   string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		ServerPort:          getEnv("SERVER_PORT", "8090"),
		GinMode:             getEnv("GIN_MODE", "debug"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "pretty"),
		BackendURL:          strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8080"), "/"),
		BackendTimeout:      time.Duration(getEnvInt("BACKEND_TIMEOUT_SECONDS", 30)) * time.Second,
		StoreDriver:         getEnv("STORE_DRIVER", StoreDriverRedis),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SQLitePath:          getEnv("SQLITE_PATH", "quizdesk.db"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		QuestionsPerPage:    getEnvInt("QUESTIONS_PER_PAGE", 5),
		TimezoneCorrection:  time.Duration(getEnvInt("TIMEZONE_CORRECTION_HOURS", 7)) * time.Hour,
		SubmitRatePerMinute: getEnvInt("SUBMIT_RATE_PER_MINUTE", 10),
		MaxUploadBytes:      int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 20)) * 1024 * 1024,
		AllowedOrigins:      parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
		AccessToken:         getEnv("ACCESS_TOKEN", ""),
		StudentID:           getEnv("STUDENT_ID", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
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
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
