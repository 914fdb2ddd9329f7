/*
 * @Description: 缓存服务接口及 Redis 实现，目前主要用于分享链接的下载计数
 * @Author: 安知鱼
 * @Date: 2025-06-20 15:17:47
 * @LastEditTime: 2025-10-20 17:48:33
 * @LastEditors: 安知鱼
 */
package utility

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheService 定义了缓存服务的接口。
// Get 在键不存在时返回空字符串和 nil 错误。
type CacheService interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key ...string) error
	// IncrementWithTTL 原子地把计数加一；计数是新建的时同时设置过期时间，已有计数的过期时间保持不变。
	IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// incrWithTTLScript 在一次往返中完成 INCR 和首次 PEXPIRE，避免进程在两步之间退出留下永不过期的计数
var incrWithTTLScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 and tonumber(ARGV[1]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// redisCacheService 是 CacheService 的 Redis 实现
type redisCacheService struct {
	client *redis.Client
}

// NewCacheService 是 redisCacheService 的构造函数，通过依赖注入接收 Redis 客户端
func NewCacheService(client *redis.Client) CacheService {
	return &redisCacheService{
		client: client,
	}
}

func (s *redisCacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *redisCacheService) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (s *redisCacheService) Delete(ctx context.Context, key ...string) error {
	if len(key) == 0 {
		return nil
	}
	return s.client.Del(ctx, key...).Err()
}

func (s *redisCacheService) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return incrWithTTLScript.Run(ctx, s.client, []string{key}, ttl.Milliseconds()).Int64()
}
