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

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Admin console credentials
	Admin AdminConfig

	// Outbound email configuration
	SMTP SMTPConfig

	// Image upload configuration
	Upload UploadConfig

	// CORS configuration
	CORS CORSConfig

	// Redis configuration (optional, enables cross-instance fan-out)
	Redis RedisConfig

	// Amenity booking configuration
	Booking BookingConfig

	// Rate limiting configuration for public submissions
	RateLimit RateLimitConfig

	// Security configuration
	Security SecurityConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
	BaseURL     string // public URL used in links sent by email
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	AutoMigrate        bool
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// AdminConfig holds the single admin account used by the management console
type AdminConfig struct {
	Username string
	Password string
}

// SMTPConfig holds outbound mail configuration
type SMTPConfig struct {
	Mode             string // "dev" logs messages, "production" sends them
	Host             string
	Port             int
	Username         string
	Password         string
	FromName         string
	MaintenanceEmail string // recipient of maintenance request notifications
}

// UploadConfig holds configuration for stored images
type UploadConfig struct {
	Dir          string
	PublicPrefix string
	MaxBytes     int64
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address  string // empty disables the relay
	Password string
	DB       int
	PoolSize int
	Channel  string
}

// BookingConfig holds amenity booking settings
type BookingConfig struct {
	Timezone      string        // location used for timestamps sent without an offset
	RetentionDays int           // past bookings older than this are purged by the cron job
	LockTimeout   time.Duration // upper bound for the per-amenity commit transaction
}

// RateLimitConfig holds rate limiting configuration for unauthenticated submissions
type RateLimitConfig struct {
	VisitorRequests int
	VisitorWindow   time.Duration
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
	EnableAuditLog   bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "5000"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			BaseURL:     getEnv("BASE_URL", "http://localhost:5000"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
			AutoMigrate:        getEnvAsBool("DATABASE_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		SMTP: SMTPConfig{
			Mode:             getEnv("SMTP_MODE", "dev"),
			Host:             getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:             getEnvAsInt("SMTP_PORT", 587),
			Username:         getEnv("EMAIL_USER", ""),
			Password:         getEnv("EMAIL_PASS", ""),
			FromName:         getEnv("SMTP_FROM_NAME", "SmartHive"),
			MaintenanceEmail: getEnv("MAINTENANCE_EMAIL", ""),
		},
		Upload: UploadConfig{
			Dir:          getEnv("UPLOAD_DIR", "uploads"),
			PublicPrefix: getEnv("UPLOAD_PUBLIC_PREFIX", "/uploads"),
			MaxBytes:     int64(getEnvAsInt("UPLOAD_MAX_BYTES", 5<<20)),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 10),
			Channel:  getEnv("REDIS_EVENTS_CHANNEL", "smarthive:events"),
		},
		Booking: BookingConfig{
			Timezone:      getEnv("BOOKING_TIMEZONE", "UTC"),
			RetentionDays: getEnvAsInt("BOOKING_RETENTION_DAYS", 90),
			LockTimeout:   time.Duration(getEnvAsInt("BOOKING_LOCK_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			VisitorRequests: getEnvAsInt("VISITOR_RATE_LIMIT", 10),
			VisitorWindow:   time.Duration(getEnvAsInt("VISITOR_RATE_WINDOW_MINUTES", 10)) * time.Minute,
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 10),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			EnableAuditLog:   getEnvAsBool("ENABLE_AUDIT_LOGGING", true),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("invalid BOOKING_TIMEZONE %q: %w", c.Booking.Timezone, err)
	}

	if c.SMTP.Mode == "production" {
		if c.SMTP.Username == "" || c.SMTP.Password == "" {
			return fmt.Errorf("EMAIL_USER and EMAIL_PASS are required when SMTP_MODE is production")
		}
	} else if c.SMTP.Mode != "dev" {
		return fmt.Errorf("invalid SMTP mode: %s (must be 'dev' or 'production')", c.SMTP.Mode)
	}

	if c.Server.Environment == "production" && (c.Admin.Username == "" || c.Admin.Password == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD are required in production")
	}

	return nil
}

// BookingLocation returns the configured booking time zone, falling back to UTC
func (c *Config) BookingLocation() *time.Location {
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
