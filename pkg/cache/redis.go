package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/prefect-api/pkg/config"
)

// NewRedis connects to Redis and verifies the connection. A disabled config
// yields a nil client so callers fall back to in-process behaviour.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", client.Options().Addr, err)
	}
	return client, nil
}

// Key joins parts under the namespace prefix, e.g. Key("prefect", "dashboard", "today").
func Key(prefix string, parts ...string) string {
	all := make([]string, 0, len(parts)+1)
	if prefix = strings.Trim(prefix, ":"); prefix != "" {
		all = append(all, prefix)
	}
	for _, p := range parts {
		if p = strings.Trim(p, ":"); p != "" {
			all = append(all, p)
		}
	}
	return strings.Join(all, ":")
}
