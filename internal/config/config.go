// Package config reads process settings from the environment, after loading
// an optional .env file.
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

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Environment string
	ServiceName string
	HTTPAddr    string

	DBDriver    string
	DBPath      string
	PostgresDSN string

	RedisAddr   string
	SnapshotTTL time.Duration

	KafkaBrokers      []string
	KafkaPaymentTopic string
	KafkaEventsTopic  string
	KafkaGroupID      string
	PaymentWorkers    int

	JWTSecret     string
	WebhookSecret string

	CatalogFile string
	Tracing     string
}

// Load reads .env from the working directory when present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	var errs []error

	cfg := Config{
		Environment:       getenv("ENVIRONMENT", "dev"),
		ServiceName:       getenv("SERVICE_NAME", "groupcart"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		DBDriver:          strings.ToLower(getenv("DB_DRIVER", DriverSQLite)),
		DBPath:            getenv("DB_PATH", "./data/groupcart.db"),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		KafkaBrokers:      splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaPaymentTopic: getenv("KAFKA_PAYMENT_TOPIC", "payment.succeeded"),
		KafkaEventsTopic:  getenv("KAFKA_EVENTS_TOPIC", "groupcart.events"),
		KafkaGroupID:      getenv("KAFKA_GROUP_ID", "groupcart-payments"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		WebhookSecret:     os.Getenv("WEBHOOK_SECRET"),
		CatalogFile:       os.Getenv("CATALOG_FILE"),
		Tracing:           strings.ToLower(getenv("TRACING", "none")),
	}

	var err error
	if cfg.SnapshotTTL, err = getDuration("SNAPSHOT_TTL", 30*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.PaymentWorkers, err = getInt("PAYMENT_WORKERS", 4); err != nil {
		errs = append(errs, err)
	}

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver))
	}
	if c.JWTSecret == "" && !c.IsDev() {
		errs = append(errs, errors.New("JWT_SECRET is required outside dev"))
	}
	if c.Tracing != "none" && c.Tracing != "stdout" {
		errs = append(errs, fmt.Errorf("unknown TRACING %q", c.Tracing))
	}
	if c.PaymentWorkers <= 0 {
		errs = append(errs, errors.New("PAYMENT_WORKERS must be positive"))
	}
	return errors.Join(errs...)
}

// IsDev reports whether the process runs in the dev environment.
func (c Config) IsDev() bool {
	return c.Environment == "dev"
}

// KafkaEnabled reports whether brokers were configured.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", k, err)
	}
	return d, nil
}

func getInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", k, err)
	}
	return n, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
