// Package config loads service configuration from the environment so
// main stays lean.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration for the audit ledger service.
type Config struct {
	Addr string `env:"AUDITLEDGER_ADDR" envDefault:":8080"`

	PostgresDSN string `env:"AUDITLEDGER_POSTGRES_DSN"`
	RedisURL    string `env:"AUDITLEDGER_REDIS_URL"`

	KafkaBrokers  []string `env:"AUDITLEDGER_KAFKA_BROKERS" envSeparator:","`
	MutationTopic string   `env:"AUDITLEDGER_MUTATION_TOPIC" envDefault:"entity-mutations"`
	MirrorTopic   string   `env:"AUDITLEDGER_MIRROR_TOPIC" envDefault:"audit-events"`
	ConsumerGroup string   `env:"AUDITLEDGER_CONSUMER_GROUP" envDefault:"auditledger"`

	// SigningSecret is the master secret the event signing key is
	// derived from. Empty means signing is unavailable and every event
	// dead-letters; there is deliberately no development default.
	SigningSecret string `env:"AUDITLEDGER_SIGNING_SECRET"`
	JWTSigningKey string `env:"AUDITLEDGER_JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`

	ServiceName    string `env:"AUDITLEDGER_SERVICE_NAME" envDefault:"auditledger"`
	ServiceVersion string `env:"AUDITLEDGER_SERVICE_VERSION" envDefault:"dev"`
	Region         string `env:"AUDITLEDGER_REGION" envDefault:"local"`

	WriterMaxAttempts int           `env:"AUDITLEDGER_WRITER_MAX_ATTEMPTS" envDefault:"3"`
	HistoryCacheTTL   time.Duration `env:"AUDITLEDGER_HISTORY_CACHE_TTL" envDefault:"30s"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
