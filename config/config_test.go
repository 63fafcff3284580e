package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, 45*time.Minute, cfg.DedupWindow())
	assert.Equal(t, 5, cfg.SyncMaxAttempts)
	assert.Equal(t, float64(60), cfg.DefaultInvoiceAmount)
	assert.False(t, cfg.RedisEnabled())
	assert.Nil(t, cfg.EncryptionKeyBytes())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DEDUP_WINDOW_MINUTES", "30")
	t.Setenv("ENCRYPTION_KEY", "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	t.Setenv("ENCRYPTION_KEY_ID", "5b1e0c9e-3f41-4c1a-9a57-0d4b7f2f8a11")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, 30*time.Minute, cfg.DedupWindow())
	assert.Len(t, cfg.EncryptionKeyBytes(), 32)
}

func TestLoad_RejectsShortKey(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "abcd")
	t.Setenv("ENCRYPTION_KEY_ID", "5b1e0c9e-3f41-4c1a-9a57-0d4b7f2f8a11")

	_, err := Load("does-not-exist.env")
	assert.Error(t, err)
}

func TestLoad_RequiresKeyID(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")

	_, err := Load("does-not-exist.env")
	assert.Error(t, err)
}
