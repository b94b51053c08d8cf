package config

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"tasksync/internal/persist"
)

// OpenStore opens the record store selected by storage.driver.
// The file driver keeps records in the config directory, creating it.
func (c *Config) OpenStore() (persist.Store, error) {
	driver := persist.StoreType(c.Storage.Driver)
	switch driver {
	case persist.StoreTypeFile, "":
		if err := c.EnsureDir(); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		return persist.NewStore(persist.StoreTypeFile, persist.WithDir(c.Dir))

	case persist.StoreTypeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.Storage.RedisAddr,
			Password: c.Storage.RedisPassword,
			DB:       c.Storage.RedisDB,
		})
		return persist.NewStore(persist.StoreTypeRedis,
			persist.WithRedisClient(client),
			persist.WithRedisTTL(c.Storage.RedisTTL),
		)

	default:
		return persist.NewStore(driver)
	}
}
