package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8082", cfg.HTTPPort)
	assert.Equal(t, "basket-checkout", cfg.CheckoutTopic)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, uint64(3), cfg.RedeliveryMaxRetries)
}

func TestLoad_OverridesAndCredentials(t *testing.T) {
	t.Setenv("DB_HOST", "orderdb")
	t.Setenv("DB_PORT", "15432")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REQUEST_TIMEOUT", "750ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 750*time.Millisecond, cfg.RequestTimeout)

	creds := cfg.Credentials()
	assert.Equal(t, "orderdb", creds.Host)
	assert.Equal(t, 15432, creds.Port)
	assert.Equal(t, "disable", creds.SSLMode)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("DB_PORT", "five")

	_, err := Load()
	assert.Error(t, err)
}
