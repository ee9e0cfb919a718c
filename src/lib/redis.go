package lib

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient(url string) *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

// StatusCache keeps terminal payment statuses keyed by external reference so
// polling clients do not hit the database on every attempt.
type StatusCache struct {
	rd  *redis.Client
	ttl time.Duration
}

func NewStatusCache(rd *redis.Client, ttl time.Duration) *StatusCache {
	if rd == nil {
		return nil
	}
	return &StatusCache{rd: rd, ttl: ttl}
}

func StatusCacheKey(ref string) string {
	return fmt.Sprintf("payment:status:%s", ref)
}

// Get returns the cached JSON document for ref. A miss is not an error.
func (c *StatusCache) Get(ctx context.Context, ref string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	val, err := c.rd.Get(ctx, StatusCacheKey(ref)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("[redis] Error reading %s: %s\n", StatusCacheKey(ref), err.Error())
		return nil, false
	}
	return val, true
}

func (c *StatusCache) Set(ctx context.Context, ref string, doc []byte) {
	if c == nil {
		return
	}
	if err := c.rd.SetEx(ctx, StatusCacheKey(ref), doc, c.ttl).Err(); err != nil {
		log.Printf("[redis] Error writing %s: %s\n", StatusCacheKey(ref), err.Error())
	}
}

func (c *StatusCache) Invalidate(ctx context.Context, ref string) {
	if c == nil {
		return
	}
	if err := c.rd.Del(ctx, StatusCacheKey(ref)).Err(); err != nil {
		log.Printf("[redis] Error deleting %s: %s\n", StatusCacheKey(ref), err.Error())
	}
}
