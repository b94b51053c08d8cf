// Package persist stores the durable client-side records (user, theme,
// cookies) that survive process restarts.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Record keys.
const (
	KeyUser    = "user"
	KeyTheme   = "theme"
	KeyCookies = "cookies"
)

// Common errors.
var (
	ErrNotFound         = errors.New("record not found")
	ErrInvalidConfig    = errors.New("invalid storage configuration")
	ErrInvalidStoreType = errors.New("invalid storage driver")
)

// Store is a key/value store for serialized records.
type Store interface {
	// Load returns the raw record, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save writes the record, replacing any previous value.
	Save(ctx context.Context, key string, data []byte) error

	// Remove deletes the record. Removing a missing record is not an error.
	Remove(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}

// StoreType names a storage driver.
type StoreType string

const (
	StoreTypeFile   StoreType = "file"
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

// StoreOption configures a store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	dir         string
	redisClient *redis.Client
	redisPrefix string
	redisTTL    time.Duration
}

// WithDir sets the directory of the file store.
func WithDir(dir string) StoreOption {
	return func(c *storeConfig) { c.dir = dir }
}

// WithRedisClient sets the client of the redis store.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) { c.redisClient = client }
}

// WithRedisPrefix sets the key prefix of the redis store.
func WithRedisPrefix(prefix string) StoreOption {
	return func(c *storeConfig) { c.redisPrefix = prefix }
}

// WithRedisTTL sets an expiry on redis keys. Zero means no expiry.
func WithRedisTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) { c.redisTTL = ttl }
}

// NewStore creates a Store for the given driver.
// The file driver requires WithDir, the redis driver WithRedisClient.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	cfg := &storeConfig{redisPrefix: "tasksync:"}
	for _, opt := range opts {
		opt(cfg)
	}

	switch storeType {
	case StoreTypeFile, "":
		if cfg.dir == "" {
			return nil, ErrInvalidConfig
		}
		return &fileStore{dir: cfg.dir}, nil

	case StoreTypeMemory:
		return NewMemoryStore(), nil

	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return &redisStore{
			client: cfg.redisClient,
			prefix: cfg.redisPrefix,
			ttl:    cfg.redisTTL,
		}, nil

	default:
		return nil, ErrInvalidStoreType
	}
}

// LoadJSON loads key and decodes it into v.
func LoadJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Load(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// SaveJSON encodes v and saves it under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Save(ctx, key, data)
}
