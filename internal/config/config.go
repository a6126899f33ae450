package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseDriver string // memory, postgres or sqlite
	DatabaseURL    string
	MigrateOnStart bool
	MigrationsDir  string

	// Redis (empty URL disables Redis-backed caching, locking and events)
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Game Settings
	GameWidth          int
	GameHeight         int
	FrameIntervalMs    int
	SessionIdleMinutes int

	// Scores
	ProfileLocking       string // none, local or redis
	StatsCacheTTLSeconds int
	StoreTimeoutSeconds  int

	// Security
	JWTSecret     string
	TokenTTLHours int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "memory")),
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/dropzone?sslmode=disable"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),
		MigrationsDir:  getEnv("MIGRATIONS_DIR", "migrations"),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Game Settings
		GameWidth:          getEnvInt("GAME_WIDTH", 800),
		GameHeight:         getEnvInt("GAME_HEIGHT", 600),
		FrameIntervalMs:    getEnvInt("FRAME_INTERVAL_MS", 16),
		SessionIdleMinutes: getEnvInt("SESSION_IDLE_MINUTES", 15),

		// Scores
		ProfileLocking:       strings.ToLower(getEnv("PROFILE_LOCKING", "local")),
		StatsCacheTTLSeconds: getEnvInt("STATS_CACHE_TTL_SECONDS", 3600),
		StoreTimeoutSeconds:  getEnvInt("STORE_TIMEOUT_SECONDS", 10),

		// Security
		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		TokenTTLHours: getEnvInt("TOKEN_TTL_HOURS", 24),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
