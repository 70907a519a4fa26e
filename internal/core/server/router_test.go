package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewRouterRecoversPanics(t *testing.T) {
	r := NewRouter(zap.NewNop(), Options{Name: "t", Mode: gin.TestMode})
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestNewRouterCustomPanicHandler(t *testing.T) {
	r := NewRouter(zap.NewNop(), Options{Mode: gin.TestMode, OnPanic: func(c *gin.Context, _ any) {
		c.AbortWithStatusJSON(http.StatusOK, gin.H{"code": 500})
	}})
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":500}`, w.Body.String())
}

func TestNewRouterCORS(t *testing.T) {
	r := NewRouter(zap.NewNop(), Options{Mode: gin.TestMode, CORSOrigins: []string{"http://admin.local"}})
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://admin.local")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "http://admin.local", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.local")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNewRouterTrustedProxies(t *testing.T) {
	clientIP := func(r *gin.Engine, remote, xff string) string {
		req := httptest.NewRequest(http.MethodGet, "/ip", nil)
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", xff)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Body.String()
	}
	ip := func(c *gin.Context) { c.String(http.StatusOK, c.ClientIP()) }

	// 默认不信任转发头
	r := NewRouter(zap.NewNop(), Options{Mode: gin.TestMode})
	r.GET("/ip", ip)
	assert.Equal(t, "203.0.113.9", clientIP(r, "203.0.113.9:4000", "198.51.100.1"))

	r = NewRouter(zap.NewNop(), Options{Mode: gin.TestMode, TrustedProxies: []string{"10.0.0.0/8"}})
	r.GET("/ip", ip)
	assert.Equal(t, "198.51.100.1", clientIP(r, "10.1.2.3:4000", "198.51.100.1"))
	assert.Equal(t, "203.0.113.9", clientIP(r, "203.0.113.9:4000", "198.51.100.1"))

	// 非法配置退化为不信任
	r = NewRouter(zap.NewNop(), Options{Mode: gin.TestMode, TrustedProxies: []string{"not-an-ip"}})
	r.GET("/ip", ip)
	assert.Equal(t, "10.1.2.3", clientIP(r, "10.1.2.3:4000", "198.51.100.1"))
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "0.0.0.0:8080", Addr("0.0.0.0", 8080))
	assert.Equal(t, "http://127.0.0.1:8081", HumanURL("0.0.0.0", 8081))
	assert.Equal(t, "http://api.local:80", HumanURL("api.local", 80))
	assert.Equal(t, gin.ReleaseMode, GinMode("prod"))
	assert.Equal(t, gin.DebugMode, GinMode("dev"))

	srv := BuildServer(":0", http.NotFoundHandler(), time.Second, 2*time.Second, 3*time.Second)
	assert.Equal(t, 2*time.Second, srv.WriteTimeout)
	assert.Equal(t, 1<<20, srv.MaxHeaderBytes)
}
