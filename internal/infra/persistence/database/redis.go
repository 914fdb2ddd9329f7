/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-15 11:30:55
 * @LastEditTime: 2025-10-20 18:20:31
 * @LastEditors: 安知鱼
 */
package database

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anzhiyu-c/anheyu-drop/pkg/config"

	"github.com/redis/go-redis/v9"
)

// RedisOptions 根据配置构造 Redis 连接参数。
// Redis.Addr 可以是 host:port，也可以是 redis:// 或 rediss:// URL，URL 中的密码和库号优先于单独的配置项。
func RedisOptions(cfg *config.Config) (*redis.Options, error) {
	addr := strings.TrimSpace(cfg.GetString(config.KeyRedisAddr))
	if addr == "" {
		return nil, nil
	}

	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("解析 Redis 地址失败: %w", err)
		}
		return opts, nil
	}

	return &redis.Options{
		Addr:        addr,
		Password:    cfg.GetString(config.KeyRedisPassword),
		DB:          cfg.GetInt(config.KeyRedisDB),
		DialTimeout: 3 * time.Second,
	}, nil
}

// NewRedisClient 接收配置并返回 Redis 客户端或 nil（用于自动降级）。
// 未配置或连接失败时返回 nil 而不是 error，由上层降级到内存缓存；只有地址格式错误才返回 error。
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := RedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		log.Println("⚠️  Redis 地址未配置，将使用内存缓存")
		return nil, nil
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Printf("⚠️  连接 Redis (%s, DB %d) 失败: %v，将使用内存缓存", opts.Addr, opts.DB, err)
		rdb.Close()
		return nil, nil
	}

	log.Printf("✅ 成功连接到 Redis (%s, DB %d)", opts.Addr, opts.DB)
	return rdb, nil
}
