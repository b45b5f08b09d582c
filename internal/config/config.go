package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// MinJWTSecretLength is the HS256 key size
const MinJWTSecretLength = 32

// Config holds application configuration
type Config struct {
	DBDriver       string
	DBConnStr      string // postgres only
	SQLitePath     string // sqlite only
	GRPCPort       int
	JWTSecret      string
	TokenTTL       time.Duration
	LogLevel       string
	LogPretty      bool
	RateLimitRPS   float64
	RateLimitBurst int
	CacheTTL       time.Duration // 0 disables the analytics cache
	SeedDemo       bool
}

// Load reads configuration from environment variables, after an optional .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DBDriver:       getEnv("DB_DRIVER", DriverPostgres),
		DBConnStr:      postgresConnString(),
		SQLitePath:     getEnv("SQLITE_PATH", "./data/investdash.db"),
		GRPCPort:       getEnvAsInt("GRPC_PORT", 8080),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		TokenTTL:       getEnvAsDuration("TOKEN_TTL", 7*24*time.Hour),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogPretty:      getEnvAsBool("LOG_PRETTY", false),
		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 100),
		CacheTTL:       getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		SeedDemo:       getEnvAsBool("SEED_DEMO", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// postgresConnString prefers DB_CONN_STR and falls back to the DB_* parts
func postgresConnString() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "investdash"),
	)
}

// Validate checks if required configuration is present and consistent
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBConnStr == "" {
			return fmt.Errorf("DB_CONN_STR is required for the postgres driver")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER must be one of postgres, sqlite, memory, got %q", c.DBDriver)
	}

	if len(c.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretLength)
	}
	if c.GRPCPort <= 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("GRPC_PORT %d is out of range", c.GRPCPort)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive and RATE_LIMIT_BURST at least 1")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// CacheEnabled reports whether analytics results are cached.
// The cache is per instance, so deployments running several instances
// against one database should set CACHE_TTL=0.
func (c *Config) CacheEnabled() bool {
	return c.CacheTTL > 0
}
