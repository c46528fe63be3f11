package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Store      StoreConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	SQLite     SQLiteConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Sync       SyncConfig
	Attendance AttendanceConfig
	RateLimit  RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StoreConfig selects the record store backend and its key namespace.
type StoreConfig struct {
	Backend   string
	Namespace string
	Seed      bool
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SQLiteConfig locates the SQLite database file.
type SQLiteConfig struct {
	Path string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// SyncConfig tunes the real-time sync manager.
type SyncConfig struct {
	IntervalSeconds int
	LogCapacity     int
}

// AttendanceConfig holds the working-day rules.
type AttendanceConfig struct {
	LateAfter string
}

// RateLimitConfig throttles login attempts, in ulule/limiter's "<limit>-<period>" format.
type RateLimitConfig struct {
	Login string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	backend := strings.ToLower(getEnv("STORE_BACKEND", "memory"))
	switch backend {
	case "memory", "redis", "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q", backend)
	}

	lateAfter := getEnv("ATTENDANCE_LATE_AFTER", "09:30")
	if _, err := time.Parse("15:04", lateAfter); err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_LATE_AFTER: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "sales-crm"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Backend:   backend,
			Namespace: getEnv("STORE_NAMESPACE", "salescrm_"),
			Seed:      getEnvAsBool("STORE_SEED", true),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "data/sales-crm.db"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 480),
		},
		Sync: SyncConfig{
			IntervalSeconds: getEnvAsInt("SYNC_INTERVAL_SECONDS", 10),
			LogCapacity:     getEnvAsInt("SYNC_LOG_CAPACITY", 100),
		},
		Attendance: AttendanceConfig{
			LateAfter: lateAfter,
		},
		RateLimit: RateLimitConfig{
			Login: getEnv("RATE_LIMIT_LOGIN", "10-M"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Interval returns the polling period, defaulting to ten seconds.
func (s SyncConfig) Interval() time.Duration {
	if s.IntervalSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.IntervalSeconds) * time.Second
}

// Capacity returns the audit log bound, defaulting to 100 entries.
func (s SyncConfig) Capacity() int {
	if s.LogCapacity <= 0 {
		return 100
	}
	return s.LogCapacity
}

// LateCutoff returns the hour and minute after which a check-in counts as late.
func (a AttendanceConfig) LateCutoff() (hour, minute int) {
	t, err := time.Parse("15:04", a.LateAfter)
	if err != nil {
		return 9, 30
	}
	return t.Hour(), t.Minute()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
