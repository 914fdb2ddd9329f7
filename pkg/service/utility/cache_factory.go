/*
 * @Description: 下载计数缓存工厂，Redis 可用且允许执行脚本时使用 Redis，否则使用内存缓存
 * @Author: 安知鱼
 * @Date: 2025-10-05 00:00:00
 * @LastEditTime: 2025-10-21 11:02:45
 * @LastEditors: 安知鱼
 */
package utility

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// scriptLoadTimeout 是启动时预加载计数脚本的超时时间
const scriptLoadTimeout = 3 * time.Second

// CacheServiceType 缓存服务类型
type CacheServiceType string

const (
	CacheTypeRedis  CacheServiceType = "redis"
	CacheTypeMemory CacheServiceType = "memory"
)

// NewCacheServiceWithFallback 为下载计数选择缓存后端。
// redisClient 为 nil 时直接使用内存缓存；否则预加载 IncrementWithTTL 依赖的 Lua 脚本，
// 加载失败（连接中断、托管 Redis 禁用了 EVAL 等）同样降级到内存缓存。
// 内存缓存下计数只在当前进程内有效，重启后归零。
func NewCacheServiceWithFallback(ctx context.Context, redisClient *redis.Client) CacheService {
	if redisClient == nil {
		log.Println("🔄 下载计数使用内存缓存（未配置 Redis）")
		return NewMemoryCacheService()
	}

	loadCtx, cancel := context.WithTimeout(ctx, scriptLoadTimeout)
	defer cancel()
	if err := incrWithTTLScript.Load(loadCtx, redisClient).Err(); err != nil {
		log.Printf("⚠️  Redis 无法加载计数脚本: %v，下载计数降级到内存缓存", err)
		return NewMemoryCacheService()
	}

	log.Println("✅ 下载计数使用 Redis 缓存")
	return NewCacheService(redisClient)
}

// GetCacheServiceType 获取当前使用的缓存类型
func GetCacheServiceType(svc CacheService) CacheServiceType {
	if _, ok := svc.(*redisCacheService); ok {
		return CacheTypeRedis
	}
	return CacheTypeMemory
}
