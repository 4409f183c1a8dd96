package events

import (
	"context"
	"fmt"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/cache"

	"github.com/go-redis/redis/v8"
)

// defaultStreamMaxLen approximate cap on the readings stream
const defaultStreamMaxLen = 100000

// RedisStreamSink XADDs each event to a Redis stream
type RedisStreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStreamSink(client *redis.Client, stream string) *RedisStreamSink {
	return &RedisStreamSink{client: client, stream: stream, maxLen: defaultStreamMaxLen}
}

func (s *RedisStreamSink) Emit(ctx context.Context, ev ReadingEvent) error {
	if _, err := cache.PublishJSONToStream(ctx, s.client, s.stream, s.maxLen, ev); err != nil {
		return fmt.Errorf("failed to publish reading to stream %s: %w", s.stream, err)
	}
	return nil
}

// Close is a no-op; the Redis client is owned by the caller
func (s *RedisStreamSink) Close() error { return nil }
