package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-gin-gorm-useradmin/internal/core/config"
	"go-gin-gorm-useradmin/internal/core/server"
	mdw "go-gin-gorm-useradmin/internal/transport/http/middleware"
	resp "go-gin-gorm-useradmin/internal/transport/http/response"
)

type Options struct {
	Name        string
	Mode        string
	CORSOrigins []string
	// TrustedProxies 为空时 ClientIP 只取连接对端地址
	TrustedProxies []string
	Tracing        bool
	Limits         config.Limits
	// Health 为空时 /health 只回 ok
	Health func(ctx context.Context) error
}

// baseEngine 两个进程共用的中间件链 + /health + /metrics
func baseEngine(l *zap.Logger, engine string, o Options) *gin.Engine {
	r := server.NewRouter(l, server.Options{
		Name:        o.Name,
		Mode:        o.Mode,
		CORSOrigins: o.CORSOrigins,
		Tracing:     o.Tracing,
		OnPanic:     mdw.PanicEnvelope,

		TrustedProxies: o.TrustedProxies,
	})

	lim := o.Limits
	r.Use(
		mdw.RequestID(),
		mdw.Metrics(engine),
		mdw.AccessLog(l),
		mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst),
		mdw.RateLimitPerIP(rate.Limit(lim.PerIPRPS), lim.PerIPBurst),
		mdw.ConcurrencyLimit(lim.MaxInFlight),
		mdw.MaxBodyBytes(lim.MaxBodyMB<<20),
		mdw.Timeout(time.Duration(lim.TimeoutSec)*time.Second),
	)

	r.GET("/health", health(o.Health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func health(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusOK, resp.Error(resp.CodeUnavailable, "database unavailable"))
				return
			}
		}
		c.JSON(http.StatusOK, resp.OK(gin.H{"ok": 1}))
	}
}
