package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port string
	// Env is the deployment environment ("development" or "production").
	// Session cookies are only marked Secure outside development.
	Env string
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// AuthConfig holds session and token lifecycle configuration
type AuthConfig struct {
	// SessionTTL is the absolute lifetime of a session.
	SessionTTL time.Duration
	// SessionRenewalThreshold is the remaining-lifetime window inside which
	// a validated session has its expiry extended by SessionTTL again.
	SessionRenewalThreshold time.Duration
	// ResetTokenTTL is the lifetime of a password reset token.
	ResetTokenTTL time.Duration
}

// RateLimitConfig holds limits for the in-process rate limiters.
// The limiters are per-instance memory only; a multi-instance deployment
// gets per-instance limits, not a global one.
type RateLimitConfig struct {
	// GlobalWindow/GlobalMax throttle all traffic per client IP.
	GlobalWindow time.Duration
	GlobalMax    int
	// AuthWindow/AuthMax throttle credential-bearing endpoints
	// (login, register, forgot-password) per client IP.
	AuthWindow time.Duration
	AuthMax    int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "notesafe"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			SessionTTL:              getDurationEnv("SESSION_TTL", 30*24*time.Hour),
			SessionRenewalThreshold: getDurationEnv("SESSION_RENEWAL_THRESHOLD", 15*24*time.Hour),
			ResetTokenTTL:           getDurationEnv("RESET_TOKEN_TTL", 15*time.Minute),
		},
		RateLimit: RateLimitConfig{
			GlobalWindow: getDurationEnv("RATE_LIMIT_GLOBAL_WINDOW", time.Minute),
			GlobalMax:    getIntEnv("RATE_LIMIT_GLOBAL_MAX", 100),
			AuthWindow:   getDurationEnv("RATE_LIMIT_AUTH_WINDOW", time.Minute),
			AuthMax:      getIntEnv("RATE_LIMIT_AUTH_MAX", 5),
		},
	}
}

// IsProduction reports whether the server runs in the production environment
func (s *ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + d.Port +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.DBName +
		" sslmode=" + d.SSLMode
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv returns duration from environment variable or default.
// Values use time.ParseDuration syntax (e.g. "720h", "15m").
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getIntEnv returns an integer from environment variable or default
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
