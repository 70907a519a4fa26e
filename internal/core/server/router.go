package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

type Options struct {
	Name        string
	Mode        string   // gin.DebugMode / gin.ReleaseMode / gin.TestMode
	CORSOrigins []string // 为空时允许所有来源
	Tracing     bool
	OnPanic     gin.RecoveryFunc // 为空时回 500 状态码
	// TrustedProxies 为空时不信任任何代理，ClientIP 只取连接对端地址
	TrustedProxies []string
}

// NewRouter 基础引擎：otel 链路 → CORS → panic 恢复（写 zap，带堆栈）
func NewRouter(l *zap.Logger, o Options) *gin.Engine {
	if o.Mode != "" {
		gin.SetMode(o.Mode)
	}
	r := gin.New()
	if err := r.SetTrustedProxies(o.TrustedProxies); err != nil {
		l.Warn("invalid trusted proxies, forwarding headers ignored",
			zap.Strings("trusted_proxies", o.TrustedProxies), zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	if o.Tracing {
		r.Use(otelgin.Middleware(o.Name))
	}
	r.Use(cors.New(corsConfig(o.CORSOrigins)))
	if o.OnPanic != nil {
		r.Use(ginzap.CustomRecoveryWithZap(l, true, o.OnPanic))
	} else {
		r.Use(ginzap.RecoveryWithZap(l, true))
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: len(origins) > 0,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

// GinMode app.env → gin 模式
func GinMode(env string) string {
	switch env {
	case "dev", "local", "":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    rt,
		WriteTimeout:   wt,
		IdleTimeout:    it,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }

// HumanURL 启动日志里打印可点击地址
func HumanURL(host string, port int) string {
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}
