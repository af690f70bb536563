package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service and the wizard client.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Gateway      GatewayConfig
	Flow         FlowConfig
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
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr               string
	Password           string
	DB                 int
	IdempotencyTTLSecs int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines the wizard session token parameters.
type AuthConfig struct {
	SessionSecret       string
	SessionTTLMinutes   int
	RequireSessionToken bool
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// GatewayConfig configures the wizard's HTTP persistence client.
type GatewayConfig struct {
	BaseURL              string
	CallTimeoutSeconds   int
	CreateRetryAttempts  int
	CreateRetryBackoffMs int
}

// FlowConfig holds cancellation flow tunables.
type FlowConfig struct {
	// ForceVariant pins the downsell variant ("A" or "B"). Ignored by production builds.
	ForceVariant      string
	StrictPersistence bool
}

// Load reads configuration from environment variables, applying defaults where possible.
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

	forceVariant := strings.ToUpper(strings.TrimSpace(os.Getenv("FLOW_FORCE_VARIANT")))
	if forceVariant != "" && forceVariant != "A" && forceVariant != "B" {
		return nil, fmt.Errorf("invalid FLOW_FORCE_VARIANT %q: want A or B", forceVariant)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "cancellation-flow"),
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
			Addr:               getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:           os.Getenv("REDIS_PASSWORD"),
			DB:                 redisDB,
			IdempotencyTTLSecs: getEnvAsInt("REDIS_IDEMPOTENCY_TTL_SECONDS", 600),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			SessionSecret:       getEnv("AUTH_SESSION_SECRET", "dev-secret"),
			SessionTTLMinutes:   getEnvAsInt("AUTH_SESSION_TTL_MINUTES", 60),
			RequireSessionToken: getEnvAsBool("AUTH_REQUIRE_SESSION_TOKEN", false),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Gateway: GatewayConfig{
			BaseURL:              strings.TrimRight(getEnv("GATEWAY_BASE_URL", "http://127.0.0.1:8080"), "/"),
			CallTimeoutSeconds:   getEnvAsInt("GATEWAY_CALL_TIMEOUT_SECONDS", 10),
			CreateRetryAttempts:  getEnvAsInt("GATEWAY_CREATE_RETRY_ATTEMPTS", 3),
			CreateRetryBackoffMs: getEnvAsInt("GATEWAY_CREATE_RETRY_BACKOFF_MS", 200),
		},
		Flow: FlowConfig{
			ForceVariant:      forceVariant,
			StrictPersistence: getEnvAsBool("FLOW_STRICT_PERSISTENCE", false),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// IdempotencyTTL returns how long replayable write responses are kept.
func (r RedisConfig) IdempotencyTTL() time.Duration {
	if r.IdempotencyTTLSecs <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(r.IdempotencyTTLSecs) * time.Second
}

// CallTimeout bounds a single gateway round trip.
func (g GatewayConfig) CallTimeout() time.Duration {
	if g.CallTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(g.CallTimeoutSeconds) * time.Second
}

// CreateRetryBackoff is the base delay between record creation attempts.
func (g GatewayConfig) CreateRetryBackoff() time.Duration {
	return time.Duration(g.CreateRetryBackoffMs) * time.Millisecond
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
