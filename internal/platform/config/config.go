package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server captures process-level configuration. Every field is read from a
// MARKETGATE_* environment variable.
type Server struct {
	Addr     string `env:"ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// ShutdownTimeout bounds graceful shutdown of the HTTP server and the
	// outbox relay.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Postgres PostgresConfig `envPrefix:"POSTGRES_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	CPI      CPIConfig      `envPrefix:"CPI_"`
	Kafka    KafkaConfig    `envPrefix:"KAFKA_"`

	// MarketPackDir optionally holds YAML packs that supersede the built-in
	// ones with a higher version.
	MarketPackDir string `env:"MARKET_PACK_DIR"`

	// OpsSampleRate is the fraction of operational audit events kept.
	OpsSampleRate float64 `env:"OPS_SAMPLE_RATE" envDefault:"0.1"`

	// OTELEndpoint enables tracing when set.
	OTELEndpoint string `env:"OTEL_ENDPOINT"`
}

// PostgresConfig selects the decision and audit stores. An empty DSN keeps
// both in memory.
type PostgresConfig struct {
	DSN          string        `env:"DSN"`
	MaxOpenConns int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLife  time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	TxTimeout    time.Duration `env:"TX_TIMEOUT" envDefault:"5s"`
}

// RedisConfig configures the shared CPI cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"2s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"500ms"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"500ms"`
}

// CPIConfig configures the live CPI source. An empty URL makes every
// rent-increase evaluation use the pack fallback value.
type CPIConfig struct {
	URL              string        `env:"URL"`
	Timeout          time.Duration `env:"TIMEOUT" envDefault:"2s"`
	CacheTTL         time.Duration `env:"CACHE_TTL" envDefault:"720h"`
	FailureThreshold int           `env:"FAILURE_THRESHOLD" envDefault:"5"`
	SuccessThreshold int           `env:"SUCCESS_THRESHOLD" envDefault:"3"`

	// StaticPercent serves a fixed CPI reading when no URL is set. Readings
	// from it are marked as fallbacks.
	StaticPercent float64 `env:"STATIC_PERCENT"`
}

// KafkaConfig configures the audit outbox relay. No brokers disables it and
// outbox rows stay in Postgres.
type KafkaConfig struct {
	Brokers         []string      `env:"BROKERS" envSeparator:","`
	ComplianceTopic string        `env:"COMPLIANCE_TOPIC" envDefault:"marketgate.audit.compliance"`
	OpsTopic        string        `env:"OPS_TOPIC" envDefault:"marketgate.audit.operations"`
	RelayInterval   time.Duration `env:"RELAY_INTERVAL" envDefault:"1s"`
	RelayBatchSize  int           `env:"RELAY_BATCH_SIZE" envDefault:"100"`
	Materialize     bool          `env:"MATERIALIZE" envDefault:"false"`
	ConsumerGroup   string        `env:"CONSUMER_GROUP" envDefault:"marketgate-audit"`
}

// FromEnv builds the configuration from MARKETGATE_* variables so main
// stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "MARKETGATE_"}); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
