package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Escalation EscalationConfig
	Delivery   DeliveryConfig
	Alerts     AlertsConfig
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
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// EscalationConfig tunes the escalation monitor.
type EscalationConfig struct {
	IntervalSeconds  int
	ThresholdSeconds int
	ScanTimeoutSec   int
}

// DeliveryConfig tunes the notification delivery channel. The websocket
// server binds its own address because it runs outside the fiber app.
type DeliveryConfig struct {
	WSAddr          string
	BacklogLimit    int
	PollIntervalSec int
	SendQueueSize   int
}

// AlertsConfig holds alert presentation defaults.
type AlertsConfig struct {
	SoundDefault bool
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "incident-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
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
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Escalation: EscalationConfig{
			IntervalSeconds:  getEnvAsInt("ESCALATION_INTERVAL_SECONDS", 30),
			ThresholdSeconds: getEnvAsInt("ESCALATION_THRESHOLD_SECONDS", 300),
			ScanTimeoutSec:   getEnvAsInt("ESCALATION_SCAN_TIMEOUT_SECONDS", 25),
		},
		Delivery: DeliveryConfig{
			WSAddr:          getEnv("DELIVERY_WS_ADDR", "0.0.0.0:8081"),
			BacklogLimit:    getEnvAsInt("DELIVERY_BACKLOG_LIMIT", 50),
			PollIntervalSec: getEnvAsInt("DELIVERY_POLL_INTERVAL_SECONDS", 20),
			SendQueueSize:   getEnvAsInt("DELIVERY_SEND_QUEUE_SIZE", 64),
		},
		Alerts: AlertsConfig{
			SoundDefault: getEnvAsBool("ALERTS_SOUND_DEFAULT", true),
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

// Interval returns the monitor tick period.
func (e EscalationConfig) Interval() time.Duration {
	return time.Duration(e.IntervalSeconds) * time.Second
}

// Threshold returns how long a critical notification may sit unacknowledged.
func (e EscalationConfig) Threshold() time.Duration {
	return time.Duration(e.ThresholdSeconds) * time.Second
}

// ScanTimeout bounds a single monitor pass.
func (e EscalationConfig) ScanTimeout() time.Duration {
	return time.Duration(e.ScanTimeoutSec) * time.Second
}

// PollInterval returns the degraded-mode polling period.
func (d DeliveryConfig) PollInterval() time.Duration {
	return time.Duration(d.PollIntervalSec) * time.Second
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
