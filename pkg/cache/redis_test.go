package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/prefect-api/pkg/config"
)

func TestNewRedisDisabled(t *testing.T) {
	client, err := NewRedis(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRedisUnreachable(t *testing.T) {
	client, err := NewRedis(context.Background(), config.RedisConfig{
		Enabled:     true,
		Host:        "127.0.0.1",
		Port:        1,
		DialTimeout: 200 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "prefect:dashboard:2024-03-04", Key("prefect", "dashboard", "2024-03-04"))
	assert.Equal(t, "dashboard:*", Key("", "dashboard", "*"))
	assert.Equal(t, "prefect:dashboard", Key("prefect:", ":dashboard:", ""))
}
