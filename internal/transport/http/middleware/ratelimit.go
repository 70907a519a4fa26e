package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-gin-gorm-useradmin/internal/core/throttle"
	resp "go-gin-gorm-useradmin/internal/transport/http/response"
)

// RateLimit 全局令牌桶限速
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeTooManyRequests, "too many requests"))
	}
}

// RateLimitPerIP 每 IP 令牌桶，ClientIP 受 trusted proxies 约束；空闲一分钟的 IP 会被清理
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	lim := throttle.NewLocalRateLimiter(rps, burst, time.Minute)
	return func(c *gin.Context) {
		if ok, _, _ := lim.Allow(c.Request.Context(), c.ClientIP()); ok {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeTooManyRequests, "too many requests"))
	}
}

// KeyFunc 从请求里取节流 key；返回空串表示不节流
type KeyFunc func(c *gin.Context) string

// Throttle 按 key 节流（登录 / 改密）。计数后端出错时放行并记 warn
func Throttle(lim throttle.Limiter, key KeyFunc, l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		k := key(c)
		if k == "" {
			c.Next()
			return
		}
		ok, wait, err := lim.Allow(c.Request.Context(), k)
		if err != nil {
			l.Warn("throttle backend error", zap.String("key", k), zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusOK, resp.Fail(resp.CodeTooManyRequests, "too many attempts",
				gin.H{"retry_after_ms": wait.Milliseconds()}))
			return
		}
		c.Next()
	}
}
