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
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	SLA          SLAConfig
	Critical     CriticalConfig
	Attachment   AttachmentConfig
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

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer token parameters. Tokens are issued by the
// identity provider; the secret is shared with it.
type AuthConfig struct {
	JWTSecret             string
	Issuer                string
	AccessTokenTTLMinutes int
}

// NotificationConfig controls notification fan-out.
type NotificationConfig struct {
	// RedisChannel enables pub/sub fan-out when non-empty.
	RedisChannel string
	BaseURL      string
}

// SLAConfig controls the SLA monitor.
type SLAConfig struct {
	WarnRatio            float64
	SweepIntervalSeconds int
	SweepChunkSize       int
	LockTTLSeconds       int
	WorkerEnabled        bool
	CheckpointKey        string
	LockKey              string
}

// CriticalConfig holds the critical-ticket score weights.
type CriticalConfig struct {
	UserWeight int
	AreaWeight int
}

// AttachmentConfig bounds accepted uploads.
type AttachmentConfig struct {
	MaxBytes            int64
	AllowedContentTypes []string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	warnRatio, err := strconv.ParseFloat(getEnv("SLA_WARN_RATIO", "0.8"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SLA_WARN_RATIO: %w", err)
	}
	if warnRatio <= 0 || warnRatio > 1 {
		return nil, fmt.Errorf("invalid SLA_WARN_RATIO: %v not in (0,1]", warnRatio)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			Issuer:                getEnv("AUTH_ISSUER", "helpdesk"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Notification: NotificationConfig{
			RedisChannel: os.Getenv("NOTIFY_REDIS_CHANNEL"),
			BaseURL:      getEnv("NOTIFY_BASE_URL", ""),
		},
		SLA: SLAConfig{
			WarnRatio:            warnRatio,
			SweepIntervalSeconds: getEnvAsInt("SLA_SWEEP_INTERVAL_SECONDS", 300),
			SweepChunkSize:       getEnvAsInt("SLA_SWEEP_CHUNK_SIZE", 200),
			LockTTLSeconds:       getEnvAsInt("SLA_SWEEP_LOCK_TTL_SECONDS", 600),
			WorkerEnabled:        getEnvAsBool("SLA_WORKER_ENABLED", true),
			CheckpointKey:        getEnv("SLA_SWEEP_CHECKPOINT_KEY", "helpdesk:sla:checkpoint"),
			LockKey:              getEnv("SLA_SWEEP_LOCK_KEY", "helpdesk:sla:lock"),
		},
		Critical: CriticalConfig{
			UserWeight: getEnvAsInt("CRITICAL_USER_WEIGHT", 2),
			AreaWeight: getEnvAsInt("CRITICAL_AREA_WEIGHT", 1),
		},
		Attachment: AttachmentConfig{
			MaxBytes:            int64(getEnvAsInt("ATTACHMENT_MAX_BYTES", 10<<20)),
			AllowedContentTypes: getEnvAsList("ATTACHMENT_ALLOWED_TYPES", defaultAttachmentTypes),
		},
	}

	return cfg, nil
}

var defaultAttachmentTypes = []string{
	"image/png", "image/jpeg", "application/pdf", "text/plain",
	"application/zip", "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
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

// SweepInterval returns the SLA worker tick.
func (s SLAConfig) SweepInterval() time.Duration {
	if s.SweepIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.SweepIntervalSeconds) * time.Second
}

// LockTTL returns how long a sweep lock is held before it expires.
func (s SLAConfig) LockTTL() time.Duration {
	if s.LockTTLSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(s.LockTTLSeconds) * time.Second
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

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
