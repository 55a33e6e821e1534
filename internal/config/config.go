package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config holds application configuration
type Config struct {
	// Server
	Env        string
	Port       string
	CORSOrigin string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Lockout
	LockoutThreshold int
	LockoutWindow    time.Duration
	LockoutDuration  time.Duration

	// Tokens
	ChallengeTTL        time.Duration
	SessionTTL          time.Duration
	LogoutRevealUnknown bool
	SweepInterval       time.Duration

	// Credentials
	TotpIssuer string
	TotpSkew   uint
	BcryptCost int

	// Response delay
	ResponseDelayMin time.Duration
	ResponseDelayMax time.Duration

	// Admin
	AdminAPIKey string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Server
		Env:        getEnv("ENV", "development"),
		Port:       getEnv("PORT", "8080"),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "loginpanel"),
		DBPassword: getEnv("DB_PASSWORD", "loginpanel"),
		DBName:     getEnv("DB_NAME", "loginpanel"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Lockout
		LockoutThreshold: getInt("LOCKOUT_THRESHOLD", 5),
		LockoutWindow:    getDuration("LOCKOUT_WINDOW", 15*time.Minute),
		LockoutDuration:  getDuration("LOCKOUT_DURATION", 15*time.Minute),

		// Tokens
		ChallengeTTL:        getDuration("CHALLENGE_TTL", 5*time.Minute),
		SessionTTL:          getDuration("SESSION_TTL", 0),
		LogoutRevealUnknown: getBool("LOGOUT_REVEAL_UNKNOWN", false),
		SweepInterval:       getDuration("SWEEP_INTERVAL", time.Minute),

		// Credentials
		TotpIssuer: getEnv("TOTP_ISSUER", "Panel"),
		TotpSkew:   uint(getInt("TOTP_SKEW", 1)),
		BcryptCost: getInt("BCRYPT_COST", bcrypt.DefaultCost),

		// Response delay
		ResponseDelayMin: getDuration("RESPONSE_DELAY_MIN", 100*time.Millisecond),
		ResponseDelayMax: getDuration("RESPONSE_DELAY_MAX", 400*time.Millisecond),

		// Admin
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}

	if config.BcryptCost < bcrypt.MinCost || config.BcryptCost > bcrypt.MaxCost {
		log.Printf("Warning: BCRYPT_COST %d out of range, falling back to %d\n", config.BcryptCost, bcrypt.DefaultCost)
		config.BcryptCost = bcrypt.DefaultCost
	}
	if config.ResponseDelayMax < config.ResponseDelayMin {
		log.Printf("Warning: RESPONSE_DELAY_MAX below RESPONSE_DELAY_MIN, using %s for both\n", config.ResponseDelayMin)
		config.ResponseDelayMax = config.ResponseDelayMin
	}

	return config, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %t\n", key, raw, defaultValue)
		return defaultValue
	}
	return b
}
