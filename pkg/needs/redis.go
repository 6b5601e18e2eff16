package needs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "behov:"
	separator = "|"

	// mappings only matter while the causing message is still in flight,
	// a few days covers redeliveries comfortably
	mappingTTL = 7 * 24 * time.Hour
)

// RedisStore implements Store on Redis with a TTL per mapping.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &RedisStore{client: redis.NewClient(opts)}, nil
}

func (s *RedisStore) Save(ctx context.Context, messageID uuid.UUID, needTypes []string) error {
	err := s.client.Set(ctx, keyPrefix+messageID.String(), strings.Join(needTypes, separator), mappingTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to save needs mapping: %w", err)
	}

	return nil
}

func (s *RedisStore) Find(ctx context.Context, messageID uuid.UUID) ([]string, error) {
	value, err := s.client.Get(ctx, keyPrefix+messageID.String()).Result()
	if err == redis.Nil {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to look up needs mapping: %w", err)
	}

	return strings.Split(value, separator), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
