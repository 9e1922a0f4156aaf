package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	APIVersion     string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	JWTSecret              string
	TokenExpiry            time.Duration
	RememberMeTokenExpiry  time.Duration
	TimingDelayBaseMs      int
	TimingDelayRandomMs    int
	LoginRateLimitPerMin   int
	SessionCleanupInterval time.Duration
	FailureRetention       time.Duration
}

// EmailConfig drives the optional lockout notification. An empty FromAddress disables it.
type EmailConfig struct {
	AWSRegion   string
	FromAddress string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")
	durations := &durationReader{}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "keystone"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 0)),
			MaxConnLifetime:   durations.get("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   durations.get("DB_MAX_CONN_IDLE_TIME", 30*time.Second),
			HealthCheckPeriod: durations.get("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "3000"),
			Env:            env,
			APIVersion:     getEnv("API_VERSION", "v1"),
			LogLevel:       getEnv("LOG_LEVEL", defaultLogLevel(env)),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    durations.get("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   durations.get("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    durations.get("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:              jwtSecret,
			TokenExpiry:            durations.get("JWT_EXPIRES_IN", 2*time.Hour),
			RememberMeTokenExpiry:  durations.get("JWT_REMEMBER_ME_EXPIRES_IN", 30*24*time.Hour),
			TimingDelayBaseMs:      getEnvAsInt("AUTH_TIMING_DELAY_BASE_MS", 0),
			TimingDelayRandomMs:    getEnvAsInt("AUTH_TIMING_DELAY_RANDOM_MS", 0),
			LoginRateLimitPerMin:   getEnvAsInt("LOGIN_RATE_LIMIT_PER_MINUTE", 20),
			SessionCleanupInterval: durations.get("SESSION_CLEANUP_INTERVAL", 1*time.Hour),
			FailureRetention:       durations.get("FAILURE_RETENTION", 90*24*time.Hour),
		},
		Email: EmailConfig{
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		},
	}

	if err := errors.Join(durations.errs...); err != nil {
		return nil, err
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.Auth.TokenExpiry <= 0 || cfg.Auth.RememberMeTokenExpiry <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRES_IN and JWT_REMEMBER_ME_EXPIRES_IN must be positive")
	}

	if cfg.Auth.SessionCleanupInterval <= 0 {
		return nil, fmt.Errorf("SESSION_CLEANUP_INTERVAL must be positive")
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// NotificationsEnabled reports whether lockout emails should be sent.
func (c *EmailConfig) NotificationsEnabled() bool {
	return c.FromAddress != ""
}

func defaultLogLevel(env string) string {
	if env == "development" {
		return "debug"
	}
	return "info"
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

// durationReader parses duration env vars and collects every invalid value so
// Load can report them together instead of silently using defaults.
type durationReader struct {
	errs []error
}

func (d *durationReader) get(key string, defaultVal time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultVal
	}

	duration, err := parseDuration(value)
	if err != nil {
		d.errs = append(d.errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return duration
}

// parseDuration accepts Go durations ("90m", "2h"), whole days ("30d") and
// bare integers as seconds ("7200"), the forms used for token lifetimes.
func parseDuration(value string) (time.Duration, error) {
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}

	if days, ok := strings.CutSuffix(value, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil {
			return time.Duration(n) * 24 * time.Hour, nil
		}
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	return 0, fmt.Errorf("invalid duration %q", value)
}

func splitList(value string) []string {
	if value == "" {
		return []string{}
	}
	items := strings.Split(value, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	originsStr := getEnv("ALLOWED_ORIGINS", getEnv("CORS_ORIGINS", ""))
	if env == "production" || originsStr != "" {
		return splitList(originsStr)
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
}
