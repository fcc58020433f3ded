package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 2*time.Second, cfg.CPI.Timeout)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "marketgate.audit.compliance", cfg.Kafka.ComplianceTopic)
	assert.Equal(t, 0.1, cfg.OpsSampleRate)
	assert.Zero(t, cfg.CPI.StaticPercent)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("MARKETGATE_ADDR", ":9090")
	t.Setenv("MARKETGATE_CPI_URL", "https://cpi.example.test/v1/cpi")
	t.Setenv("MARKETGATE_CPI_TIMEOUT", "750ms")
	t.Setenv("MARKETGATE_KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("MARKETGATE_POSTGRES_DSN", "postgres://localhost/marketgate?sslmode=disable")
	t.Setenv("MARKETGATE_CPI_STATIC_PERCENT", "3.1")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "https://cpi.example.test/v1/cpi", cfg.CPI.URL)
	assert.Equal(t, 750*time.Millisecond, cfg.CPI.Timeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.NotEmpty(t, cfg.Postgres.DSN)
	assert.Equal(t, 3.1, cfg.CPI.StaticPercent)
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv("MARKETGATE_CPI_TIMEOUT", "soon")
	_, err := FromEnv()
	assert.Error(t, err)
}
