package security

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

var (
	corsHeaders = strings.Join([]string{
		"Content-Type", "Content-Length", "Accept-Encoding", "Authorization",
		"Accept", "Origin", "Cache-Control", "X-Requested-With",
	}, ", ")
	corsMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}, ", ")
)

// CORS 只回显白名单中的 Origin，预检请求直接返回 204
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			}
		}
		h.Set("Access-Control-Allow-Headers", corsHeaders)
		h.Set("Access-Control-Allow-Methods", corsMethods)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

var secureHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "1; mode=block"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
}

// Secure 写入常用安全响应头，HTTPS 请求额外加 HSTS
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, kv := range secureHeaders {
			c.Header(kv[0], kv[1])
		}
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors 按客户端 IP 保存令牌桶，长时间不活跃的条目由 sweep 清掉
type visitors struct {
	mu      sync.Mutex
	entries map[string]*visitor
	limit   rate.Limit
	burst   int
	expiry  time.Duration
}

func newVisitors(maxRequests int, window time.Duration) *visitors {
	expiry := 3 * window
	if expiry < time.Minute {
		expiry = time.Minute
	}
	return &visitors{
		entries: make(map[string]*visitor),
		limit:   rate.Every(window / time.Duration(maxRequests)),
		burst:   maxRequests,
		expiry:  expiry,
	}
}

func (v *visitors) allow(key string, now time.Time) bool {
	v.mu.Lock()
	e, ok := v.entries[key]
	if !ok {
		e = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.entries[key] = e
	}
	e.lastSeen = now
	v.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// sweep 删除 expiry 内没有请求的条目，返回删除数量
func (v *visitors) sweep(now time.Time) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	removed := 0
	for key, e := range v.entries {
		if now.Sub(e.lastSeen) > v.expiry {
			delete(v.entries, key)
			removed++
		}
	}
	return removed
}

func (v *visitors) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}

// run 定期清理，ctx 结束时返回
func (v *visitors) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			v.sweep(now)
		}
	}
}

// RateLimiter 按客户端 IP 限制 window 内最多 maxRequests 次请求，maxRequests <= 0 表示不限流。
// 后台清理协程随 ctx 结束而退出。
func RateLimiter(ctx context.Context, maxRequests int, window time.Duration) gin.HandlerFunc {
	if maxRequests <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	v := newVisitors(maxRequests, window)
	go v.run(ctx, time.Minute)

	return func(c *gin.Context) {
		if !v.allow(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "too many requests",
			})
			return
		}
		c.Next()
	}
}
