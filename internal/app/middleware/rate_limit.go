/*
 * @Description: 上传频率限制中间件
 * @Author: 安知鱼
 * @Date: 2025-10-20 11:26:40
 * @LastEditTime: 2025-10-21 10:12:37
 * @LastEditors: 安知鱼
 */
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/anzhiyu-c/anheyu-drop/pkg/response"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// limiterIdleTTL 是单个IP的限流器在无访问后被回收的时间
	limiterIdleTTL = 10 * time.Minute
	// limiterSweepInterval 是两次回收之间的最小间隔
	limiterSweepInterval = 5 * time.Minute
)

// ipRateLimiter 为每个IP维护一个令牌桶，空闲的桶在后续请求时顺带回收，不需要后台协程
type ipRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterInfo
	every     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// limiterInfo 存储限流器及其最后访问时间
type limiterInfo struct {
	limiter      *rate.Limiter
	lastAccessed time.Time
}

func newIPRateLimiter(requestsPerMinute, burst int) *ipRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ipRateLimiter{
		limiters:  make(map[string]*limiterInfo),
		every:     rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// reserve 为 ip 预留一个令牌，返回需要等待的时间；0 表示可以立即处理
func (i *ipRateLimiter) reserve(ip string) time.Duration {
	now := i.now()

	i.mu.Lock()
	defer i.mu.Unlock()

	if now.Sub(i.lastSweep) > limiterSweepInterval {
		for key, info := range i.limiters {
			if now.Sub(info.lastAccessed) > limiterIdleTTL {
				delete(i.limiters, key)
			}
		}
		i.lastSweep = now
	}

	info, exists := i.limiters[ip]
	if !exists {
		info = &limiterInfo{limiter: rate.NewLimiter(i.every, i.burst)}
		i.limiters[ip] = info
	}
	info.lastAccessed = now

	r := info.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		// 被拒绝的请求不消耗令牌
		r.CancelAt(now)
		return delay
	}
	return 0
}

// UploadRateLimit 限制每个IP地址的上传频率。
// 客户端IP取自 c.ClientIP()，只有来自受信任代理的转发头才会生效。
// requestsPerMinute <= 0 时不做限制；被拒绝的请求带有 Retry-After 头。
func UploadRateLimit(requestsPerMinute, burst int) gin.HandlerFunc {
	if requestsPerMinute <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	limiter := newIPRateLimiter(requestsPerMinute, burst)

	return func(c *gin.Context) {
		if delay := limiter.reserve(c.ClientIP()); delay > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			response.Fail(c, http.StatusTooManyRequests, "上传过于频繁，请稍后再试")
			c.Abort()
			return
		}
		c.Next()
	}
}
