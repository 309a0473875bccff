package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tphakala/audiophile/internal/logger"
	"github.com/tphakala/audiophile/internal/observability/metrics"
)

const sinkRedis = "redis"

// pingAttempts bounds the startup retries against a redis that is still coming up.
const pingAttempts = 5

// NewRedisClient parses url, connects and pings with retries.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	var lastErr error
	for i := range pingAttempts {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		lastErr = client.Ping(pctx).Err()
		cancel()
		if lastErr == nil {
			return client, nil
		}
		GetLogger().Warn("redis ping failed",
			logger.Int("attempt", i+1),
			logger.Int("max_attempts", pingAttempts),
			logger.Error(lastErr))
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	_ = client.Close()
	return nil, fmt.Errorf("redis ping failed after %d attempts: %w", pingAttempts, lastErr)
}

// RedisPublisher publishes events on a Redis pub/sub channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	metrics *metrics.NotifyMetrics
	owned   bool
}

// NewRedisPublisher publishes on channel using client. The client is not
// closed by Close unless owned is set.
func NewRedisPublisher(client redis.UniversalClient, channel string, owned bool, m *metrics.NotifyMetrics) *RedisPublisher {
	m.UpdateConnectionStatus(sinkRedis, true)
	return &RedisPublisher{client: client, channel: channel, metrics: m, owned: owned}
}

// Name returns "redis".
func (r *RedisPublisher) Name() string { return sinkRedis }

// Publish sends ev as JSON on the channel.
func (r *RedisPublisher) Publish(ctx context.Context, ev *Event) error {
	payload, err := ev.Marshal()
	if err != nil {
		return err
	}
	start := time.Now()
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish to %s: %w", r.channel, err)
	}
	r.metrics.RecordDelivery(sinkRedis, len(payload), time.Since(start))
	return nil
}

// Close closes the client when owned.
func (r *RedisPublisher) Close() error {
	r.metrics.UpdateConnectionStatus(sinkRedis, false)
	if r.owned {
		return r.client.Close()
	}
	return nil
}
