package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/cppla/wallpress/utils"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

type localLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// RateLimiter counts requests per client IP in a Redis fixed window shared by
// every instance. When Redis is unavailable it falls back to an in-process
// token bucket so a Redis outage neither blocks nor unthrottles writes.
type RateLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration

	mu    sync.Mutex
	local map[string]*localLimiter
}

// NewRateLimiter allows perMinute requests per key and minute. client may be nil.
func NewRateLimiter(client *redis.Client, prefix string, perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RateLimiter{
		client: client,
		prefix: prefix,
		limit:  perMinute,
		window: time.Minute,
		local:  map[string]*localLimiter{},
	}
}

// Allow reports whether key is within its quota.
func (l *RateLimiter) Allow(ctx context.Context, key string) bool {
	if key == "" {
		key = "unknown"
	}
	if l.client != nil {
		allowed, err := l.allowRedis(ctx, key)
		if err == nil {
			return allowed
		}
		utils.Sugar.Debugw("rate limit redis unavailable, using local limiter", "err", err)
	}
	return l.allowLocal(key)
}

func (l *RateLimiter) allowRedis(ctx context.Context, key string) (bool, error) {
	windowMs := l.window.Milliseconds()
	slot := time.Now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return false, err
	}
	return count <= int64(l.limit), nil
}

func (l *RateLimiter) allowLocal(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for k, ll := range l.local {
		if now.After(ll.expires) {
			delete(l.local, k)
		}
	}

	ll, ok := l.local[key]
	if !ok {
		ll = &localLimiter{
			limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(l.limit)), l.limit),
		}
		l.local[key] = ll
	}
	ll.expires = now.Add(5 * time.Minute)
	return ll.limiter.Allow()
}

// Middleware limits requests per client IP.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !l.Allow(ctx.Request.Context(), ctx.ClientIP()) {
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
