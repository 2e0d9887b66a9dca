package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rushteam/ratingkit/core"
)

// RedisStore 是 Redis 实现的 core.Store，用于从 Redis key 读取模型产物。
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 连接 Redis 并执行一次 Ping
func NewRedisStore(ctx context.Context, addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "redis ping failed", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient 使用已有客户端创建（测试或共享连接池）
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Name() string { return "redis" }

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrStoreNotFound
	}
	return val, err
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// RedisLocation 是解析后的 redis://host:port/db/key 地址
type RedisLocation struct {
	Addr string
	DB   int
	Key  string
}

// ParseRedisURL 解析 redis://host:port/db/key 形式的产物地址。
// db 段可省略（redis://host:port/key），此时使用 0 号库。
func ParseRedisURL(raw string) (*RedisLocation, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if u.Scheme != "redis" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("redis url %q has no host", raw)
	}
	path := strings.TrimPrefix(u.Path, "/")
	if path == "" {
		return nil, fmt.Errorf("redis url %q has no key", raw)
	}
	loc := &RedisLocation{Addr: u.Host}
	if db, key, ok := strings.Cut(path, "/"); ok {
		if n, err := strconv.Atoi(db); err == nil {
			loc.DB = n
			loc.Key = key
		} else {
			loc.Key = path
		}
	} else {
		loc.Key = path
	}
	if loc.Key == "" {
		return nil, fmt.Errorf("redis url %q has no key", raw)
	}
	return loc, nil
}
