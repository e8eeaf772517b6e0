package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// defaultOperationTimeout is the timeout for individual Redis operations
	defaultOperationTimeout = 5 * time.Second

	previewExpiration = 5 * time.Minute
	schemaExpiration  = 30 * time.Minute
)

// Cache is an optional shared layer under the in-process preview cache. When
// disabled every operation is a no-op and reads miss.
type Cache struct {
	client  *redis.Client
	enabled bool
}

func NewCache(addr string, enable bool) (*Cache, error) {
	if !enable {
		return &Cache{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{
		client:  client,
		enabled: true,
	}, nil
}

// operationContext creates a context with timeout for Redis operations
func (c *Cache) operationContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), defaultOperationTimeout)
}

func (c *Cache) Set(key string, value interface{}, expiration time.Duration) error {
	if !c.enabled {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, jsonData, expiration).Err()
}

func (c *Cache) Get(key string, dest interface{}) error {
	if !c.enabled {
		return fmt.Errorf("cache disabled")
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return fmt.Errorf("key not found")
	} else if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func (c *Cache) Delete(key string) error {
	if !c.enabled {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	return c.client.Del(ctx, key).Err()
}

func (c *Cache) DeletePattern(pattern string) error {
	if !c.enabled {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *Cache) FlushAll() error {
	if !c.enabled {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	return c.client.FlushAll(ctx).Err()
}

func (c *Cache) Close() error {
	if !c.enabled {
		return nil
	}
	return c.client.Close()
}

func previewKey(widgetID uint, instanceKey string) string {
	return fmt.Sprintf("preview:%d:%s", widgetID, instanceKey)
}

func (c *Cache) CachePreview(widgetID uint, instanceKey string, payload interface{}) error {
	return c.Set(previewKey(widgetID, instanceKey), payload, previewExpiration)
}

func (c *Cache) GetCachedPreview(widgetID uint, instanceKey string, dest interface{}) error {
	return c.Get(previewKey(widgetID, instanceKey), dest)
}

func (c *Cache) InvalidatePreview(widgetID uint, instanceKey string) error {
	return c.Delete(previewKey(widgetID, instanceKey))
}

// InvalidatePreviews drops every cached preview. Used on schema refresh, when
// stale previews could reference widget fields that no longer exist.
func (c *Cache) InvalidatePreviews() error {
	return c.DeletePattern("preview:*")
}

func (c *Cache) CacheWidgetSchemas(schemas interface{}) error {
	return c.Set("widget:schemas", schemas, schemaExpiration)
}

func (c *Cache) GetCachedWidgetSchemas(dest interface{}) error {
	return c.Get("widget:schemas", dest)
}

func (c *Cache) InvalidateWidgetSchemas() error {
	return c.Delete("widget:schemas")
}
