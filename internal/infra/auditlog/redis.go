package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/audit"
)

const defaultKeyPrefix = "regtech:audit:"

// RedisStore keeps each audit trail in a Redis list with a TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. ttl <= 0 keeps trails forever.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(ref string) string { return s.prefix + ref }

// Append pushes the event (RPUSH) and refreshes the TTL in one pipeline.
func (s *RedisStore) Append(ctx context.Context, ref string, e audit.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key(ref), data)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(ref), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

// List returns the whole trail (LRANGE 0 -1).
func (s *RedisStore) List(ctx context.Context, ref string) ([]audit.Event, error) {
	items, err := s.client.LRange(ctx, s.key(ref), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read audit trail: %w", err)
	}
	out := make([]audit.Event, 0, len(items))
	for _, it := range items {
		var e audit.Event
		if err := json.Unmarshal([]byte(it), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit event: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}
