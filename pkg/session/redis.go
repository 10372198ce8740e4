package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore is the shared-instance backend: state as JSON values with
// the retention TTL applied by redis itself.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

const redisKeyPrefix = "voyagent:session:"

func newRedisStore(client *redis.Client, ttl time.Duration) *redisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisStore{client: client, ttl: ttl}
}

func (s *redisStore) Get(ctx context.Context, sessionID string) (*ConversationState, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session %s: %w", sessionID, err)
	}

	var state ConversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &state, nil
}

func (s *redisStore) Put(ctx context.Context, state *ConversationState) error {
	state.UpdatedAt = time.Now()
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", state.SessionID, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+state.SessionID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis put session %s: %w", state.SessionID, err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis delete session %s: %w", sessionID, err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
