package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	OTP          OTPConfig
	Session      SessionConfig
	Registration RegistrationConfig
	Twilio       TwilioConfig
	Email        EmailConfig
	Identity     IdentityConfig
	Storage      StorageConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// IsDev reports whether the service runs outside production. Dev mode uses a
// fixed OTP code instead of a random one and skips outbound delivery.
func (c *ServerConfig) IsDev() bool {
	return c.Environment != "production"
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
	// VerifierMode selects how inbound access tokens are verified:
	// "local" checks the HMAC secret, "jwks" trusts the hosted identity
	// provider's published keys.
	VerifierMode string
	JWKSURL      string
}

type OTPConfig struct {
	Expiry         time.Duration
	ResendInterval time.Duration
	RateWindow     time.Duration
	MaxPerWindow   int
	MaxAttempts    int
}

type SessionConfig struct {
	MaxConcurrent int
	Expiry        time.Duration
	SweepInterval time.Duration
}

type RegistrationConfig struct {
	SessionTTL time.Duration
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

type EmailConfig struct {
	Enabled   bool
	APIKey    string
	FromEmail string
	FromName  string
}

type IdentityConfig struct {
	Enabled  bool
	PoolID   string
	ClientID string
}

type StorageConfig struct {
	Bucket       string
	PublicURL    string
	UploadExpiry time.Duration
}

func Load() (*Config, error) {
	// .env is optional in production
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "3001"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "auth"),
			Password: getEnv("DB_PASSWORD", "auth"),
			DBName:   getEnv("DB_NAME", "jobportal"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			AccessSecret:  getEnv("JWT_ACCESS_SECRET", "change-this-secret-in-production"),
			RefreshSecret: getEnv("JWT_REFRESH_SECRET", "change-this-refresh-secret-too"),
			AccessExpiry:  getDurationEnv("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: getDurationEnv("JWT_REFRESH_EXPIRY", 2*time.Hour),
			Issuer:        getEnv("JWT_ISSUER", "auth-service"),
			VerifierMode:  getEnv("JWT_VERIFIER_MODE", "local"),
			JWKSURL:       getEnv("JWT_JWKS_URL", ""),
		},
		OTP: OTPConfig{
			Expiry:         getDurationEnv("OTP_EXPIRY", 60*time.Second),
			ResendInterval: getDurationEnv("OTP_RESEND_INTERVAL", 60*time.Second),
			RateWindow:     getDurationEnv("OTP_RATE_WINDOW", 15*time.Minute),
			MaxPerWindow:   getIntEnv("OTP_MAX_PER_WINDOW", 3),
			MaxAttempts:    getIntEnv("OTP_MAX_ATTEMPTS", 3),
		},
		Session: SessionConfig{
			MaxConcurrent: getIntEnv("MAX_CONCURRENT_SESSIONS", 3),
			Expiry:        getDurationEnv("SESSION_EXPIRY", 24*time.Hour),
			SweepInterval: getDurationEnv("SESSION_SWEEP_INTERVAL", 24*time.Hour),
		},
		Registration: RegistrationConfig{
			SessionTTL: getDurationEnv("REGISTRATION_SESSION_TTL", 30*time.Minute),
		},
		Twilio: TwilioConfig{
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber: getEnv("TWILIO_PHONE_NUMBER", ""),
		},
		Email: EmailConfig{
			Enabled:   getBoolEnv("EMAIL_ENABLED", false),
			APIKey:    getEnv("RESEND_API_KEY", ""),
			FromEmail: getEnv("EMAIL_FROM", "noreply@aijobportal.com"),
			FromName:  getEnv("EMAIL_FROM_NAME", "AI Job Portal"),
		},
		Identity: IdentityConfig{
			Enabled:  getBoolEnv("IDENTITY_PROVIDER_ENABLED", false),
			PoolID:   getEnv("IDENTITY_POOL_ID", ""),
			ClientID: getEnv("IDENTITY_CLIENT_ID", ""),
		},
		Storage: StorageConfig{
			Bucket:       getEnv("STORAGE_BUCKET", "company-documents"),
			PublicURL:    getEnv("STORAGE_PUBLIC_URL", "http://localhost:9000/company-documents"),
			UploadExpiry: getDurationEnv("STORAGE_UPLOAD_EXPIRY", time.Hour),
		},
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
