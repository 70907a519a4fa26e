// Package throttle 按 key 计数的固定窗口节流，用于登录和改密接口防爆破。
// 配置了 Redis 时多实例共享计数，否则退化为进程内令牌桶。
package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter Allow 返回是否放行；拒绝时 retryAfter 给出建议等待时长
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}

// ---------- Redis 固定窗口 ----------

type RedisLimiter struct {
	RDB    *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
}

func NewRedisClient(addr, pass string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func NewRedisLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{RDB: rdb, Prefix: prefix, Limit: limit, Window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.Prefix + key
	pipe := l.RDB.TxPipeline()
	incr := pipe.Incr(ctx, k)
	// 只在窗口首个请求时设置过期
	pipe.ExpireNX(ctx, k, l.Window)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}
	if incr.Val() <= int64(l.Limit) {
		return true, 0, nil
	}
	wait := ttl.Val()
	if wait < 0 {
		wait = l.Window
	}
	return false, wait, nil
}

// ---------- 进程内令牌桶 ----------

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// LocalLimiter 每个 key 一个令牌桶；空闲超过 idle 的桶在 Allow 时顺带清理
type LocalLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	buckets   map[string]*bucket

	now func() time.Time
}

// NewLocalLimiter 每 window 补充 limit 个令牌，桶容量 limit
func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	if limit <= 0 {
		limit = 1
	}
	return NewLocalRateLimiter(rate.Every(window/time.Duration(limit)), limit, window)
}

// NewLocalRateLimiter 按 rps / burst 构建；idle 内无请求的 key 会被清理。
// idle 至少取桶回满所需时长，清理不会让被限的 key 提前拿到满桶
func NewLocalRateLimiter(r rate.Limit, burst int, idle time.Duration) *LocalLimiter {
	if burst <= 0 {
		burst = 1
	}
	if idle <= 0 {
		idle = time.Minute
	}
	if r > 0 && r != rate.Inf {
		if refill := time.Duration(float64(burst) / float64(r) * float64(time.Second)); idle < refill {
			idle = refill
		}
	}
	return &LocalLimiter{
		limit:   r,
		burst:   burst,
		idle:    idle,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	now := l.now()
	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	r := b.lim.ReserveN(now, 1)
	d := r.DelayFrom(now)
	if d > 0 {
		r.CancelAt(now)
	}
	l.mu.Unlock()

	if d > 0 {
		return false, d, nil
	}
	return true, 0, nil
}

// sweep 至多每 idle 扫一次；调用方持有 mu
func (l *LocalLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	l.lastSweep = now
	for k, b := range l.buckets {
		if now.Sub(b.seen) >= l.idle {
			delete(l.buckets, k)
		}
	}
}

// Len 当前保留的 key 数
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
