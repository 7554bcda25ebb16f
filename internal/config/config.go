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

// Store backends
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Upstream modes
const (
	UpstreamHTTP  = "http"
	UpstreamLocal = "local"
)

type Config struct {
	Server   ServerConfig
	Governor GovernorConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	SQLite   SQLiteConfig
	Upstream UpstreamConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port               string
	Env                string
	LogLevel           string
	AllowedOrigins     []string
	TrustedProxies     []string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
	LoginRequestsPerM  int // per-IP requests per minute on /auth/login
	PublicRequestsPerM int // per-IP requests per minute on /v1
	AdminRequestsPerM  int // per-operator requests per minute on operator routes
}

// GovernorConfig mirrors models.RateLimitConfig as read from the environment
type GovernorConfig struct {
	MaxAttempts                int
	LockoutDuration            time.Duration
	ProgressiveDelayBase       time.Duration
	ProgressiveDelayMultiplier float64
	ProgressiveDelayMax        time.Duration
	FailureStreakReset         time.Duration
	WarningThreshold           int
	KeyPrefix                  string
}

type StoreConfig struct {
	Backend       string
	RecordTTL     time.Duration
	SweepInterval time.Duration
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
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SQLiteConfig struct {
	Path string
}

type UpstreamConfig struct {
	Mode            string
	URL             string
	Timeout         time.Duration
	IdentifierField string
}

type AuthConfig struct {
	JWTSecret         string
	AccessTokenExpiry time.Duration
	AdminIdentifier   string
	AdminPasswordHash string
	FailureFloor      time.Duration
	FailureJitter     time.Duration
}

// Load reads .env (if present) and the environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			Env:                env,
			LogLevel:           getEnv("LOG_LEVEL", "info"),
			AllowedOrigins:     parseAllowedOrigins(env),
			TrustedProxies:     getEnvAsList("TRUSTED_PROXIES"),
			ReadTimeout:        getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:       getEnvAsDuration("SERVER_WRITE_TIMEOUT", 0),
			IdleTimeout:        getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			LoginRequestsPerM:  getEnvAsInt("LOGIN_REQUESTS_PER_MINUTE", 20),
			PublicRequestsPerM: getEnvAsInt("PUBLIC_REQUESTS_PER_MINUTE", 120),
			AdminRequestsPerM:  getEnvAsInt("ADMIN_REQUESTS_PER_MINUTE", 60),
		},
		Governor: GovernorConfig{
			MaxAttempts:                getEnvAsInt("GOVERNOR_MAX_ATTEMPTS", 5),
			LockoutDuration:            getEnvAsDuration("GOVERNOR_LOCKOUT_DURATION", 15*time.Minute),
			ProgressiveDelayBase:       getEnvAsDuration("GOVERNOR_DELAY_BASE", 2*time.Second),
			ProgressiveDelayMultiplier: getEnvAsFloat("GOVERNOR_DELAY_MULTIPLIER", 2),
			ProgressiveDelayMax:        getEnvAsDuration("GOVERNOR_DELAY_MAX", 60*time.Second),
			FailureStreakReset:         getEnvAsDuration("GOVERNOR_STREAK_RESET", 15*time.Minute),
			WarningThreshold:           getEnvAsInt("GOVERNOR_WARNING_THRESHOLD", 2),
			KeyPrefix:                  getEnv("GOVERNOR_KEY_PREFIX", "ratelimit:"),
		},
		Store: StoreConfig{
			Backend:       strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
			RecordTTL:     getEnvAsDuration("STORE_RECORD_TTL", 24*time.Hour),
			SweepInterval: getEnvAsDuration("STORE_SWEEP_INTERVAL", 10*time.Minute),
		},
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "loginguard"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "loginguard.db"),
		},
		Upstream: UpstreamConfig{
			Mode:            strings.ToLower(getEnv("UPSTREAM_MODE", UpstreamLocal)),
			URL:             getEnv("UPSTREAM_URL", ""),
			Timeout:         getEnvAsDuration("UPSTREAM_TIMEOUT", 10*time.Second),
			IdentifierField: getEnv("UPSTREAM_IDENTIFIER_FIELD", "email"),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
			AdminIdentifier:   getEnv("ADMIN_IDENTIFIER", ""),
			AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			FailureFloor:      getEnvAsDuration("AUTH_FAILURE_FLOOR", 250*time.Millisecond),
			FailureJitter:     getEnvAsDuration("AUTH_FAILURE_JITTER", 100*time.Millisecond),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case StoreMemory, StoreRedis, StoreSQLite:
	case StorePostgres:
		if c.Database.Password == "" {
			errs = append(errs, errors.New("DB_PASSWORD is required when STORE_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be one of memory, redis, postgres, sqlite (got %q)", c.Store.Backend))
	}

	switch c.Upstream.Mode {
	case UpstreamHTTP:
		if c.Upstream.URL == "" {
			errs = append(errs, errors.New("UPSTREAM_URL is required when UPSTREAM_MODE=http"))
		}
	case UpstreamLocal:
		if c.Auth.AdminIdentifier == "" || c.Auth.AdminPasswordHash == "" {
			errs = append(errs, errors.New("ADMIN_IDENTIFIER and ADMIN_PASSWORD_HASH are required when UPSTREAM_MODE=local"))
		}
		if c.Auth.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required when UPSTREAM_MODE=local"))
		}
	default:
		errs = append(errs, fmt.Errorf("UPSTREAM_MODE must be http or local (got %q)", c.Upstream.Mode))
	}

	if c.Auth.JWTSecret != "" {
		if err := validateJWTSecret(c.Auth.JWTSecret, c.Server.Env); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Governor.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("GOVERNOR_MAX_ATTEMPTS must be positive (got %d)", c.Governor.MaxAttempts))
	}
	if c.Governor.ProgressiveDelayMultiplier <= 0 {
		errs = append(errs, fmt.Errorf("GOVERNOR_DELAY_MULTIPLIER must be positive (got %g)", c.Governor.ProgressiveDelayMultiplier))
	}
	if c.Store.RecordTTL > 0 && c.Store.RecordTTL < c.Governor.LockoutDuration {
		errs = append(errs, fmt.Errorf("STORE_RECORD_TTL (%s) must not be shorter than GOVERNOR_LOCKOUT_DURATION (%s)",
			c.Store.RecordTTL, c.Governor.LockoutDuration))
	}
	if c.Server.LoginRequestsPerM <= 0 || c.Server.PublicRequestsPerM <= 0 || c.Server.AdminRequestsPerM <= 0 {
		errs = append(errs, errors.New("LOGIN_, PUBLIC_ and ADMIN_REQUESTS_PER_MINUTE must be positive"))
	}

	return errors.Join(errs...)
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
		if strings.Trim(secretLower, "0123456789!-_") == weak {
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

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if origins := getEnvAsList("ALLOWED_ORIGINS"); origins != nil || env == "production" {
		return origins
	}

	// Development: allow local UI dev servers
	return []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
}
