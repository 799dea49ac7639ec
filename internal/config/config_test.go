package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 256, cfg.WS.SendBuffer)
	assert.EqualValues(t, 64<<10, cfg.WS.MaxMessageBytes)
	assert.Equal(t, 30*time.Second, cfg.WS.PingInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("WS_RATE_PER_SEC", "2.5")
	t.Setenv("WS_ALLOWED_ORIGINS", "app.example.com, *.example.org ,")
	t.Setenv("JWT_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.WS.RatePerSec)
	assert.Equal(t, []string{"app.example.com", "*.example.org"}, cfg.WS.AllowedOrigins)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("WS_SEND_BUFFER", "lots")
	_, err := Load()
	assert.ErrorContains(t, err, "WS_SEND_BUFFER")

	t.Setenv("WS_SEND_BUFFER", "")
	t.Setenv("STORE_DRIVER", "mongo")
	_, err = Load()
	assert.ErrorContains(t, err, "STORE_DRIVER")
}
