package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anoixa/photogram/api/common"
	"github.com/anoixa/photogram/cache"
	"github.com/anoixa/photogram/utils/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter 按客户端 IP 的令牌桶限流
type IPRateLimiter struct {
	rps        float64
	burst      int
	expireTime time.Duration
	limiterMap *sync.Map
	stopOnce   sync.Once
	stopChan   chan struct{}
}

// NewIPRateLimiter 创建 IP 限流器并启动过期条目清理
func NewIPRateLimiter(rps float64, burst int, expireTime time.Duration) *IPRateLimiter {
	if expireTime <= 0 {
		expireTime = 10 * time.Minute
	}
	limiter := &IPRateLimiter{
		rps:        rps,
		burst:      burst,
		expireTime: expireTime,
		limiterMap: &sync.Map{},
		stopChan:   make(chan struct{}),
	}
	go limiter.cleanupStaleClients()
	return limiter
}

// Allow 消耗 key 的一个令牌
func (rl *IPRateLimiter) Allow(key string) bool {
	val, _ := rl.limiterMap.LoadOrStore(key, &clientLimiter{
		limiter:  rate.NewLimiter(rate.Limit(rl.rps), rl.burst),
		lastSeen: time.Now(),
	})
	client := val.(*clientLimiter)

	client.mu.Lock()
	client.lastSeen = time.Now()
	client.mu.Unlock()

	return client.limiter.Allow()
}

// Middleware 返回 Gin 中间件
func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(getClientIP(c)) {
			common.RespondErrorAbort(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}

// StopCleanup 停止后台清理，可重复调用
func (rl *IPRateLimiter) StopCleanup() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

func (rl *IPRateLimiter) cleanupStaleClients() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.limiterMap.Range(func(key, value interface{}) bool {
				client := value.(*clientLimiter)
				client.mu.Lock()
				stale := time.Since(client.lastSeen) > rl.expireTime
				client.mu.Unlock()
				if stale {
					rl.limiterMap.Delete(key)
				}
				return true
			})
		case <-rl.stopChan:
			return
		}
	}
}

// getClientIP Get the client's real IP address
func getClientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
		ips := strings.Split(ip, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

// WindowLimiter 固定窗口计数限流，计数保存在缓存中，多实例部署时使用 redis 共享
type WindowLimiter struct {
	cache  cache.Provider
	scope  string
	times  int
	window time.Duration
	log    *zap.Logger
}

// NewWindowLimiter 每个用户在 window 内最多 times 次
func NewWindowLimiter(provider cache.Provider, scope string, times int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		cache:  provider,
		scope:  scope,
		times:  times,
		window: window,
		log:    logger.Named("ratelimit"),
	}
}

// Middleware 必须放在 Authenticate 之后，按用户计数
// 缓存不可用时放行
func (wl *WindowLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getClientIP(c)
		if userID := c.GetUint(ContextUserIDKey); userID != 0 {
			key = fmt.Sprintf("user:%d", userID)
		}

		count, err := wl.cache.Incr(c.Request.Context(), cache.RateLimit.Build(wl.scope, key), wl.window)
		if err != nil {
			wl.log.Warn("Rate limit counter unavailable", zap.String("scope", wl.scope), zap.Error(err))
			c.Next()
			return
		}
		if count > int64(wl.times) {
			c.Header("Retry-After", fmt.Sprintf("%d", int(wl.window.Seconds()+0.5)))
			common.RespondErrorAbort(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}
