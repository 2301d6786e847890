package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// slidingWindow 按 key 记录窗口内的请求时间
type slidingWindow struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	store  map[string][]time.Time
}

func newSlidingWindow(max int, window time.Duration) *slidingWindow {
	w := &slidingWindow{max: max, window: window, store: make(map[string][]time.Time)}
	// 定期清理过期数据
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			w.mu.Lock()
			cutoff := time.Now().Add(-w.window)
			for key, ts := range w.store {
				if ts = prune(ts, cutoff); len(ts) == 0 {
					delete(w.store, key)
				} else {
					w.store[key] = ts
				}
			}
			w.mu.Unlock()
		}
	}()
	return w
}

// allow 记录一次请求，超过上限返回 false
func (w *slidingWindow) allow(key string, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	ts := prune(w.store[key], now.Add(-w.window))
	if len(ts) >= w.max {
		w.store[key] = ts
		return false
	}
	w.store[key] = append(ts, now)
	return true
}

func prune(ts []time.Time, cutoff time.Time) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

func tooManyRequests(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"code":    http.StatusTooManyRequests,
		"message": message,
	})
}

// LoginRateLimit 登录接口限流中间件
// 每 IP 在 window 内最多 maxAttempts 次尝试，超过则返回 429
func LoginRateLimit(maxAttempts int, window time.Duration) gin.HandlerFunc {
	limiter := newSlidingWindow(maxAttempts, window)
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP(), time.Now()) {
			tooManyRequests(c, "登录尝试过于频繁，请稍后再试")
			return
		}
		c.Next()
	}
}

// WriteRateLimit 写接口按用户限流，须挂在 JWTAuth 之后
// GET/HEAD/OPTIONS 不计数，maxRequests <= 0 时不限流
func WriteRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	if maxRequests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := newSlidingWindow(maxRequests, window)
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		key := c.ClientIP()
		if id := GetCurrentUserID(c); id != 0 {
			key = fmt.Sprintf("user:%d", id)
		}
		if !limiter.allow(key, time.Now()) {
			tooManyRequests(c, "操作过于频繁，请稍后再试")
			return
		}
		c.Next()
	}
}
