package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration. FromEnv keeps main lean.
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string

	Redis RedisConfig

	// RegisterBaseURL is the external public register service.
	RegisterBaseURL string

	// NotifyBaseURL is the notification service that renders and delivers
	// messages.
	NotifyBaseURL string

	// DirectoryBaseURL is the external applicant directory.
	DirectoryBaseURL string

	// KafkaBrokers, when set, enables the Kafka audit sink alongside the
	// database store.
	KafkaBrokers []string

	// WithdrawalThreshold is how long an application may sit WithApplicant
	// before the sweep withdraws it.
	WithdrawalThreshold time.Duration

	// ConsultationPeriod and DecisionPeriod are the public register listing
	// windows used to compute expiry timestamps.
	ConsultationPeriod time.Duration
	DecisionPeriod     time.Duration

	// AuditBuffer is the audit publisher's channel capacity.
	AuditBuffer int
}

// RedisConfig configures the optional directory account cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables, with development
// defaults for everything except the database.
func FromEnv() Config {
	cfg := Config{
		Addr:                envOr("LARCH_ADDR", ":8080"),
		DatabaseURL:         os.Getenv("LARCH_DATABASE_URL"),
		JWTSigningKey:       envOr("LARCH_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		RegisterBaseURL:     envOr("LARCH_REGISTER_URL", "http://localhost:9090"),
		NotifyBaseURL:       envOr("LARCH_NOTIFY_URL", "http://localhost:9091"),
		DirectoryBaseURL:    envOr("LARCH_DIRECTORY_URL", "http://localhost:9092"),
		WithdrawalThreshold: durationOr("LARCH_WITHDRAWAL_THRESHOLD", 28*24*time.Hour),
		ConsultationPeriod:  durationOr("LARCH_CONSULTATION_PERIOD", 28*24*time.Hour),
		DecisionPeriod:      durationOr("LARCH_DECISION_PERIOD", 90*24*time.Hour),
		AuditBuffer:         256,
		Redis: RedisConfig{
			URL:          os.Getenv("LARCH_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
	if brokers := os.Getenv("LARCH_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
