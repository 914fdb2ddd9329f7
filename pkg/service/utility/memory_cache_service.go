/*
 * @Description: 内存缓存服务实现（用于 Redis 不可用时的降级方案）
 * @Author: 安知鱼
 * @Date: 2025-10-05 00:00:00
 * @LastEditTime: 2025-10-19 21:34:52
 * @LastEditors: 安知鱼
 */
package utility

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// cacheItem 缓存项结构
type cacheItem struct {
	value      string
	expiration time.Time
	hasExpiry  bool
}

// isExpired 检查是否过期
func (item *cacheItem) isExpired() bool {
	if !item.hasExpiry {
		return false
	}
	return time.Now().After(item.expiration)
}

// memoryCacheService 是基于内存的缓存服务实现
type memoryCacheService struct {
	data     sync.Map
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

// NewMemoryCacheService 创建内存缓存服务实例
func NewMemoryCacheService() CacheService {
	svc := &memoryCacheService{
		ticker: time.NewTicker(1 * time.Minute), // 每分钟清理一次过期数据
		done:   make(chan struct{}),
	}

	// 启动后台清理任务
	go svc.cleanupExpired()

	return svc
}

// cleanupExpired 定期清理过期的缓存项
func (s *memoryCacheService) cleanupExpired() {
	for {
		select {
		case <-s.ticker.C:
			s.data.Range(func(key, value interface{}) bool {
				if item, ok := value.(*cacheItem); ok && item.isExpired() {
					s.data.CompareAndDelete(key, value)
				}
				return true
			})
		case <-s.done:
			return
		}
	}
}

// Stop 停止清理任务
func (s *memoryCacheService) Stop() {
	s.stopOnce.Do(func() {
		s.ticker.Stop()
		close(s.done)
	})
}

// Set 设置缓存
func (s *memoryCacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	item := &cacheItem{
		value:     fmt.Sprintf("%v", value),
		hasExpiry: expiration > 0,
	}

	if expiration > 0 {
		item.expiration = time.Now().Add(expiration)
	}

	s.data.Store(key, item)
	return nil
}

// Get 获取缓存
func (s *memoryCacheService) Get(ctx context.Context, key string) (string, error) {
	value, ok := s.data.Load(key)
	if !ok {
		return "", nil // Key 不存在，返回空字符串
	}

	item, ok := value.(*cacheItem)
	if !ok {
		return "", nil
	}

	// 检查是否过期
	if item.isExpired() {
		s.data.CompareAndDelete(key, value)
		return "", nil
	}

	return item.value, nil
}

// Delete 删除缓存
func (s *memoryCacheService) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		s.data.Delete(key)
	}
	return nil
}

// IncrementWithTTL 原子地把计数加一，计数新建（或旧值已过期）时设置过期时间
func (s *memoryCacheService) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	fresh := newCounterItem(1, ttl)
	for {
		value, loaded := s.data.LoadOrStore(key, fresh)
		if !loaded {
			return 1, nil
		}

		item := value.(*cacheItem)
		if item.isExpired() {
			if s.data.CompareAndSwap(key, value, fresh) {
				return 1, nil
			}
			continue
		}

		current, err := strconv.ParseInt(item.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("键 '%s' 的值不是整数: %w", key, err)
		}

		next := &cacheItem{
			value:      strconv.FormatInt(current+1, 10),
			expiration: item.expiration,
			hasExpiry:  item.hasExpiry,
		}
		if s.data.CompareAndSwap(key, value, next) {
			return current + 1, nil
		}
		// CAS 失败，重试
	}
}

func newCounterItem(n int64, ttl time.Duration) *cacheItem {
	item := &cacheItem{value: strconv.FormatInt(n, 10)}
	if ttl > 0 {
		item.expiration = time.Now().Add(ttl)
		item.hasExpiry = true
	}
	return item
}
