package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8084", cfg.HTTPPort)
	assert.Equal(t, "notification-service", cfg.ConsumerGroup)
	assert.Empty(t, cfg.ResendAPIKey)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RESEND_API_KEY", "re_123")
	t.Setenv("CONSUMER_GROUP", "notify-eu")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "re_123", cfg.ResendAPIKey)
	assert.Equal(t, "notify-eu", cfg.ConsumerGroup)
}
