package realtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// RedisRelay publishes events through Redis pub/sub so every API instance's
// hub sees changes made on any other instance.
type RedisRelay struct {
	client *redis.Client
	prefix string
	local  Publisher
	logger *zap.Logger
}

// NewRedisRelay builds a relay that forwards received events to local.
func NewRedisRelay(client *redis.Client, prefix string, local Publisher, logger *zap.Logger) *RedisRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = "realtime"
	}
	return &RedisRelay{client: client, prefix: prefix, local: local, logger: logger.With(zap.String("component", "realtime_relay"))}
}

// Publish encodes ev and publishes it on the relay topic for its channel.
func (r *RedisRelay) Publish(ctx context.Context, ev Event) error {
	payload, err := msgpack.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode realtime event: %w", err)
	}
	if err := r.client.Publish(ctx, r.topic(ev.Channel), payload).Err(); err != nil {
		return fmt.Errorf("publish realtime event: %w", err)
	}
	return nil
}

// Run subscribes to every relay topic and forwards events until ctx ends.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, r.prefix+":*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe realtime relay: %w", err)
	}
	r.logger.Info("realtime relay subscribed", zap.String("pattern", r.prefix+":*"))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(ctx, []byte(msg.Payload))
		}
	}
}

func (r *RedisRelay) handle(ctx context.Context, payload []byte) {
	var ev Event
	if err := msgpack.Unmarshal(payload, &ev); err != nil {
		r.logger.Warn("discarding malformed realtime event", zap.Error(err))
		return
	}
	if err := r.local.Publish(ctx, ev); err != nil {
		r.logger.Warn("forward realtime event", zap.String("channel", ev.Channel), zap.Error(err))
	}
}

func (r *RedisRelay) topic(channel string) string {
	return r.prefix + ":" + channel
}
