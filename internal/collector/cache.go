package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/coffeeliuwei/stock-training/internal/model"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores fetch responses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache implements Cache on a Redis server.
type RedisCache struct {
	client *goredis.Client
}

// NewRedisCache connects and pings the server.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logrus.Infof("redis cache connected to %s", addr)
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Close() error { return c.client.Close() }

// CachedFetcher serves repeated daily requests from a Cache. Cache failures
// are logged and fall through to the wrapped fetcher.
type CachedFetcher struct {
	Fetcher
	Cache Cache
	TTL   time.Duration
}

// NewCachedFetcher wraps f.
func NewCachedFetcher(f Fetcher, c Cache, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{Fetcher: f, Cache: c, TTL: ttl}
}

func (f *CachedFetcher) cacheKey(code string, start, end time.Time) string {
	return fmt.Sprintf("stockchart:daily:%s:%s:%s:%s", f.Fetcher.Name(), code,
		start.Format(model.TradeDateLayout), end.Format(model.TradeDateLayout))
}

func (f *CachedFetcher) FetchDaily(ctx context.Context, code string, start, end time.Time) ([]model.RawBar, error) {
	key := f.cacheKey(code, start, end)
	cached, err := f.Cache.Get(ctx, key)
	switch {
	case err == nil:
		var bars []model.RawBar
		if err := json.Unmarshal(cached, &bars); err == nil {
			logrus.Debugf("cache hit %s", key)
			return bars, nil
		}
		logrus.Warnf("cache entry %s unreadable, refetching", key)
	case !errors.Is(err, ErrCacheMiss):
		logrus.Warnf("cache get %s: %v", key, err)
	}

	bars, err := f.Fetcher.FetchDaily(ctx, code, start, end)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(bars); err == nil {
		if err := f.Cache.Set(ctx, key, payload, f.TTL); err != nil {
			logrus.Warnf("cache set %s: %v", key, err)
		}
	}
	return bars, nil
}
