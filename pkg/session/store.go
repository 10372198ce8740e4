package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidBackend = errors.New("session: unknown store backend")
	ErrInvalidConfig  = errors.New("session: invalid store configuration")
)

// Store holds per-conversation state. Get returns nil without error
// when a conversation is unknown; callers create state lazily. The
// engine depends only on this interface and receives a concrete
// backend by injection; there is no package-level store.
type Store interface {
	Get(ctx context.Context, sessionID string) (*ConversationState, error)
	Put(ctx context.Context, state *ConversationState) error
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// Backend selects a Store driver.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
	BackendSQLite Backend = "sqlite"
)

type storeConfig struct {
	ttl         time.Duration
	path        string
	redisClient *redis.Client
}

// Option configures NewStore.
type Option func(*storeConfig)

// WithTTL bounds how long idle conversation state is retained.
func WithTTL(ttl time.Duration) Option {
	return func(c *storeConfig) { c.ttl = ttl }
}

// WithPath sets the database file for the sqlite backend.
func WithPath(path string) Option {
	return func(c *storeConfig) { c.path = path }
}

// WithRedisClient supplies the client for the redis backend.
func WithRedisClient(client *redis.Client) Option {
	return func(c *storeConfig) { c.redisClient = client }
}

// NewStore builds the ephemeral or durable backend named by kind.
func NewStore(kind Backend, opts ...Option) (Store, error) {
	cfg := &storeConfig{ttl: 24 * time.Hour}
	for _, opt := range opts {
		opt(cfg)
	}

	switch kind {
	case BackendMemory:
		return newMemoryStore(cfg.ttl), nil
	case BackendRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return newRedisStore(cfg.redisClient, cfg.ttl), nil
	case BackendSQLite:
		if cfg.path == "" {
			return nil, ErrInvalidConfig
		}
		return newSQLiteStore(cfg.path, cfg.ttl)
	default:
		return nil, ErrInvalidBackend
	}
}
