package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/anoixa/photogram/api/common"
	"github.com/anoixa/photogram/utils/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimiter 按作用域限制同时处理的请求数
type ConcurrencyLimiter struct {
	scope string
	slots *semaphore.Weighted
	log   *zap.Logger
}

// NewConcurrencyLimiter scope 用于日志和指标标签，slots 非正数时取 100
func NewConcurrencyLimiter(scope string, slots int64) *ConcurrencyLimiter {
	if slots <= 0 {
		slots = 100
	}
	return &ConcurrencyLimiter{
		scope: scope,
		slots: semaphore.NewWeighted(slots),
		log:   logger.Named("limiter").With(zap.String("scope", scope)),
	}
}

// Middleware 没有空位时立即返回 503
func (cl *ConcurrencyLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cl.slots.TryAcquire(1) {
			cl.reject(c, "busy")
			common.RespondErrorAbort(c, http.StatusServiceUnavailable, "Server is busy, please try again later")
			return
		}
		defer cl.slots.Release(1)
		c.Next()
	}
}

// MiddlewareWithBlock 排队等待空位，超过 wait 返回 503；排队期间客户端断开返回 499
func (cl *ConcurrencyLimiter) MiddlewareWithBlock(wait time.Duration) gin.HandlerFunc {
	if wait <= 0 {
		wait = 10 * time.Second
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
		defer cancel()

		if err := cl.slots.Acquire(ctx, 1); err != nil {
			if errors.Is(c.Request.Context().Err(), context.Canceled) {
				cl.reject(c, "client_gone")
				c.AbortWithStatus(common.StatusClientClosedRequest)
				return
			}
			cl.reject(c, "queue_timeout")
			common.RespondErrorAbort(c, http.StatusServiceUnavailable, "Request timed out waiting for server resources")
			return
		}
		defer cl.slots.Release(1)
		c.Next()
	}
}

func (cl *ConcurrencyLimiter) reject(c *gin.Context, reason string) {
	limiterRejectionsTotal.WithLabelValues(cl.scope, reason).Inc()
	cl.log.Debug("Request rejected by concurrency limiter",
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path))
}
