package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"pay-router.backend/internal/domain/entities"
)

const (
	resultKeyPrefix = "txn:result:"
	lockKeyPrefix   = "txn:lock:"
)

// releaseScript deletes the lock only when it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisResultStore keeps successful transaction results in Redis.
type RedisResultStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisResultStore creates a store whose cached results expire after ttl.
func NewRedisResultStore(client *redis.Client, ttl time.Duration) *RedisResultStore {
	return &RedisResultStore{client: client, ttl: ttl}
}

func (s *RedisResultStore) Get(ctx context.Context, transactionID string) (*entities.TransactionResult, error) {
	raw, err := s.client.Get(ctx, resultKeyPrefix+transactionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached result: %w", err)
	}

	var result entities.TransactionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode cached result: %w", err)
	}
	return &result, nil
}

func (s *RedisResultStore) Save(ctx context.Context, result *entities.TransactionResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return s.client.Set(ctx, resultKeyPrefix+result.TransactionID, raw, s.ttl).Err()
}

func (s *RedisResultStore) Acquire(ctx context.Context, transactionID string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, lockKeyPrefix+transactionID, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire transaction lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (s *RedisResultStore) Release(ctx context.Context, transactionID, token string) error {
	if err := releaseScript.Run(ctx, s.client, []string{lockKeyPrefix + transactionID}, token).Err(); err != nil {
		return fmt.Errorf("release transaction lock: %w", err)
	}
	return nil
}
