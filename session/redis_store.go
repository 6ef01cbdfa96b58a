package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/coordflow/types"
)

// RedisStore Redis 会话存储
// 状态以 JSON 存于 <prefix>session:<thread>；TTL 可选。
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisStore creates a Redis-backed session store and verifies the
// connection with a 5s ping.
func NewRedisStore(cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "coordflow:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: prefix + "session:",
		ttl:       cfg.TTL,
		logger:    logger.With(zap.String("component", "redis_session_store")),
	}, nil
}

func (s *RedisStore) key(threadID string) string {
	return s.keyPrefix + threadID
}

// Load fetches and decodes the thread state; a missing key yields a fresh
// empty state.
func (s *RedisStore) Load(ctx context.Context, threadID string) (*types.CoordinationState, error) {
	raw, err := s.client.Get(ctx, s.key(threadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.NewCoordinationState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis load failed: %w", err)
	}

	var state types.CoordinationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	return &state, nil
}

// Save encodes and writes the thread state.
func (s *RedisStore) Save(ctx context.Context, threadID string, state *types.CoordinationState) error {
	if threadID == "" || state == nil {
		return ErrInvalidInput
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	if err := s.client.Set(ctx, s.key(threadID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis save failed: %w", err)
	}
	s.logger.Debug("session saved",
		zap.String("thread_id", threadID),
		zap.Int("messages", len(state.Messages)),
	)
	return nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
