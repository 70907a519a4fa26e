package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"go-gin-gorm-useradmin/internal/core/auth"
	"go-gin-gorm-useradmin/internal/core/throttle"
	"go-gin-gorm-useradmin/internal/domain"
	"go-gin-gorm-useradmin/internal/transport/http/ez"
)

func init() { gin.SetMode(gin.TestMode) }

func code(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var env struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Code
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthJWT(t *testing.T) {
	j := &auth.JWTer{Secret: []byte("s3cret"), Issuer: "test", TTL: time.Minute}
	r := gin.New()
	r.GET("/any", AuthJWT(j), func(c *gin.Context) {
		p, _ := ez.PrincipalOf(c)
		c.JSON(http.StatusOK, gin.H{"code": 0, "id": p.ID})
	})

	userTok, err := j.Issue(domain.Principal{ID: 7, AccessType: domain.AccessUser})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/any", nil)
	assert.Equal(t, 401, code(t, serve(r, req)))

	req = httptest.NewRequest(http.MethodGet, "/any", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	assert.Equal(t, 401, code(t, serve(r, req)))

	req = httptest.NewRequest(http.MethodGet, "/any", nil)
	req.Header.Set("Authorization", "Bearer "+userTok)
	w := serve(r, req)
	assert.Equal(t, 0, code(t, w))
	assert.Contains(t, w.Body.String(), `"id":7`)
}

type stubLimiter struct {
	ok   bool
	wait time.Duration
	err  error
	keys []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	s.keys = append(s.keys, key)
	return s.ok, s.wait, s.err
}

var _ throttle.Limiter = (*stubLimiter)(nil)

func TestThrottle(t *testing.T) {
	keyByIP := func(c *gin.Context) string { return "login:" + c.ClientIP() }
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"code": 0}) }

	t.Run("rejects with retry-after", func(t *testing.T) {
		lim := &stubLimiter{ok: false, wait: 1500 * time.Millisecond}
		r := gin.New()
		r.POST("/login", Throttle(lim, keyByIP, zap.NewNop()), ok)

		w := serve(r, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, 429, code(t, w))
		assert.Equal(t, "2", w.Header().Get("Retry-After"))
		assert.Equal(t, []string{"login:192.0.2.1"}, lim.keys)
	})

	t.Run("fails open on backend error", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		lim := &stubLimiter{err: errors.New("redis down")}
		r := gin.New()
		r.POST("/login", Throttle(lim, keyByIP, zap.New(core)), ok)

		assert.Equal(t, 0, code(t, serve(r, httptest.NewRequest(http.MethodPost, "/login", nil))))
		assert.Equal(t, 1, logs.FilterMessage("throttle backend error").Len())
	})

	t.Run("local limiter", func(t *testing.T) {
		r := gin.New()
		r.POST("/login", Throttle(throttle.NewLocalLimiter(2, time.Minute), keyByIP, zap.NewNop()), ok)
		for i := 0; i < 2; i++ {
			assert.Equal(t, 0, code(t, serve(r, httptest.NewRequest(http.MethodPost, "/login", nil))))
		}
		assert.Equal(t, 429, code(t, serve(r, httptest.NewRequest(http.MethodPost, "/login", nil))))
	})
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(1, 1))
	r.GET("/", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"code": 0}) })

	assert.Equal(t, 0, code(t, serve(r, httptest.NewRequest(http.MethodGet, "/", nil))))
	assert.Equal(t, 429, code(t, serve(r, httptest.NewRequest(http.MethodGet, "/", nil))))
}

func TestRateLimitPerIP(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitPerIP(1, 1))
	r.GET("/", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"code": 0}) })

	a := httptest.NewRequest(http.MethodGet, "/", nil)
	a.RemoteAddr = "10.0.0.1:1234"
	b := httptest.NewRequest(http.MethodGet, "/", nil)
	b.RemoteAddr = "10.0.0.2:1234"

	assert.Equal(t, 0, code(t, serve(r, a)))
	assert.Equal(t, 429, code(t, serve(r, a)))
	assert.Equal(t, 0, code(t, serve(r, b)))

	// 未配置 trusted proxies 时伪造 X-Forwarded-For 换不来新桶
	spoofed := httptest.NewRequest(http.MethodGet, "/", nil)
	spoofed.RemoteAddr = "10.0.0.1:1234"
	spoofed.Header.Set("X-Forwarded-For", "198.51.100.7")
	assert.Equal(t, 429, code(t, serve(r, spoofed)))

	off := gin.New()
	off.Use(RateLimitPerIP(0, 0))
	off.GET("/", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"code": 0}) })
	for i := 0; i < 3; i++ {
		assert.Equal(t, 0, code(t, serve(off, httptest.NewRequest(http.MethodGet, "/", nil))))
	}
}

func TestTimeoutWritesEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) { <-c.Request.Context().Done() })

	assert.Equal(t, 504, code(t, serve(r, httptest.NewRequest(http.MethodGet, "/slow", nil))))
}

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.Use(MaxBodyBytes(8))
	r.POST("/", func(c *gin.Context) {
		var in map[string]any
		err := c.ShouldBindJSON(&in)
		var tooLarge *http.MaxBytesError
		c.JSON(http.StatusOK, gin.H{"code": 0, "too_large": errors.As(err, &tooLarge)})
	})
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"much too long"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Contains(t, serve(r, req).Body.String(), `"too_large":true`)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyRequestID)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get(KeyRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(KeyRequestID, "abc-123")
	assert.Equal(t, "abc-123", serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(KeyRequestID, strings.Repeat("x", 65))
	assert.Len(t, serve(r, req).Body.String(), 36)
}

func TestAccessLogMasksSecrets(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.New(core)))
	r.GET("/users", func(c *gin.Context) {
		ez.SetPrincipal(c, domain.Principal{ID: 3, AccessType: domain.AccessAdmin})
		c.Status(http.StatusOK)
	})
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	serve(r, httptest.NewRequest(http.MethodGet, "/users?page=2&password=hunter2&re_password=hunter2", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/fail", nil))

	entries := logs.FilterMessage("HTTP").All()
	require.Len(t, entries, 2)

	ctx := entries[0].ContextMap()
	q := ctx["query"].(map[string][]string)
	assert.Equal(t, []string{"****"}, q["password"])
	assert.Equal(t, []string{"****"}, q["re_password"])
	assert.Equal(t, []string{"2"}, q["page"])
	assert.Equal(t, int64(3), ctx["principal_id"])
	assert.Equal(t, "/users", ctx["path"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestConcurrencyLimitCancelledWhileQueued(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	r := gin.New()
	r.Use(ConcurrencyLimit(1))
	r.GET("/", func(c *gin.Context) {
		if c.Query("hold") == "1" {
			close(entered)
			<-release
		}
		c.JSON(http.StatusOK, gin.H{"code": 0})
	})

	done := make(chan struct{})
	go func() {
		serve(r, httptest.NewRequest(http.MethodGet, "/?hold=1", nil))
		close(done)
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	assert.Equal(t, 503, code(t, serve(r, req)))

	close(release)
	<-done
}
