package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration of the legal service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	UnitOfWork   UnitOfWorkConfig
	SLA          SLAConfig
	Assignment   AssignmentConfig
	Kafka        KafkaConfig
}

// AppConfig covers the HTTP server.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig configures the request store. An empty DSN selects the in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig configures number sequences and the sweep lock. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig sets the zap level.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer token parameters. Tokens are issued by the
// identity provider; the service only verifies them.
type AuthConfig struct {
	JWTSecret             string
	Issuer                string
	AccessTokenTTLMinutes int
}

// NotificationConfig holds the addresses used by the notification logger.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// UnitOfWorkConfig bounds how long a transaction may run.
type UnitOfWorkConfig struct {
	TxTimeoutSeconds int
}

// SLAConfig controls the SLA tables and the background sweep.
type SLAConfig struct {
	PolicyFile           string
	RiskThresholdMinutes int
	SweepIntervalSeconds int
	SweepLockTTLSeconds  int
	SweepTimeoutSeconds  int
	SweepEnabled         bool
}

// AssignmentConfig tunes automatic provider matching.
type AssignmentConfig struct {
	MaxActivePerProvider int
}

// KafkaConfig enables the event publisher when brokers are set.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads the environment (and .env when present) and applies defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "legal-service"),
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
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			Issuer:                getEnv("AUTH_JWT_ISSUER", "legal-identity"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		UnitOfWork: UnitOfWorkConfig{
			TxTimeoutSeconds: getEnvAsInt("UOW_TX_TIMEOUT_SECONDS", 5),
		},
		SLA: SLAConfig{
			PolicyFile:           os.Getenv("SLA_POLICY_FILE"),
			RiskThresholdMinutes: getEnvAsInt("SLA_RISK_THRESHOLD_MINUTES", 120),
			SweepIntervalSeconds: getEnvAsInt("SLA_SWEEP_INTERVAL_SECONDS", 60),
			SweepLockTTLSeconds:  getEnvAsInt("SLA_SWEEP_LOCK_TTL_SECONDS", 55),
			SweepTimeoutSeconds:  getEnvAsInt("SLA_SWEEP_TIMEOUT_SECONDS", 30),
			SweepEnabled:         getEnvAsBool("SLA_SWEEP_ENABLED", true),
		},
		Assignment: AssignmentConfig{
			MaxActivePerProvider: getEnvAsInt("ASSIGNMENT_MAX_ACTIVE_PER_PROVIDER", 10),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "legal.requests"),
		},
	}

	return cfg, nil
}

// Addr is host:port.
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

// TxTimeout returns the transaction bound; zero disables it.
func (u UnitOfWorkConfig) TxTimeout() time.Duration {
	if u.TxTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(u.TxTimeoutSeconds) * time.Second
}

func (s SLAConfig) RiskThreshold() time.Duration {
	return time.Duration(s.RiskThresholdMinutes) * time.Minute
}

func (s SLAConfig) SweepInterval() time.Duration {
	if s.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.SweepIntervalSeconds) * time.Second
}

func (s SLAConfig) SweepLockTTL() time.Duration {
	if s.SweepLockTTLSeconds <= 0 {
		return s.SweepInterval()
	}
	return time.Duration(s.SweepLockTTLSeconds) * time.Second
}

func (s SLAConfig) SweepTimeout() time.Duration {
	if s.SweepTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.SweepTimeoutSeconds) * time.Second
}

// Enabled reports whether brokers are configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
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

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
