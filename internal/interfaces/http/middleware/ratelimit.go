// Phase 11 - 接口层: HTTP Middleware - 速率限制中间件
// 文件: internal/interfaces/http/middleware/ratelimit.go
// 功能定位: 限制每个调用方触发 LLM 流水线的频率
// 核心实现:
//   - TokenBucketLimiter: 内存令牌桶，按 Key 分桶，后台清理空闲桶
//   - 限流键: 已认证时为 API Key 指纹，否则为客户端 IP
//   - 响应头: X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset
//   - 超限返回 429 + Retry-After
// 依赖关系:
//   - 被依赖: internal/interfaces/http/router.go
package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

// RateLimiter decides whether a request with the given key may proceed.
type RateLimiter interface {
	Allow(key string) (bool, RateLimitInfo)
}

// RateLimitInfo is the limiter state reported in response headers.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// KeyFunc extracts the rate limit key from a request.
type KeyFunc func(r *http.Request) string

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// TokenBucketLimiter allows rate requests per second per key with bursts of
// up to burst requests.
type TokenBucketLimiter struct {
	rate            float64
	burst           int
	cleanupInterval time.Duration

	mu      sync.RWMutex
	buckets map[string]*tokenBucket
	stop    chan struct{}
	once    sync.Once
	now     func() time.Time
}

func NewTokenBucketLimiter(rate float64, burst int, cleanupInterval time.Duration) *TokenBucketLimiter {
	if burst < 1 {
		burst = 1
	}
	if rate <= 0 {
		rate = 1
	}
	l := &TokenBucketLimiter{
		rate:            rate,
		burst:           burst,
		cleanupInterval: cleanupInterval,
		buckets:         make(map[string]*tokenBucket),
		stop:            make(chan struct{}),
		now:             time.Now,
	}
	if cleanupInterval > 0 {
		go l.cleanupLoop()
	}
	return l
}

func (l *TokenBucketLimiter) Allow(key string) (bool, RateLimitInfo) {
	now := l.now()

	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if !ok {
		l.mu.Lock()
		if b, ok = l.buckets[key]; !ok {
			b = &tokenBucket{tokens: float64(l.burst), lastRefill: now}
			l.buckets[key] = b
		}
		l.mu.Unlock()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.lastRefill).Seconds() * l.rate
	if b.tokens > float64(l.burst) {
		b.tokens = float64(l.burst)
	}
	b.lastRefill = now

	info := RateLimitInfo{Limit: l.burst, ResetAt: now.Add(time.Duration(float64(time.Second) / l.rate))}
	if b.tokens >= 1 {
		b.tokens--
		info.Remaining = int(b.tokens)
		return true, info
	}
	return false, info
}

func (l *TokenBucketLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

// cleanup drops buckets idle for a whole interval; they would be full anyway.
func (l *TokenBucketLimiter) cleanup() {
	threshold := l.now().Add(-l.cleanupInterval)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		b.mu.Lock()
		if b.lastRefill.Before(threshold) {
			delete(l.buckets, key)
		}
		b.mu.Unlock()
	}
}

func (l *TokenBucketLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *TokenBucketLimiter) BucketCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}

// RateLimit returns middleware enforcing limiter.  keyFunc defaults to
// ClientKey.
func RateLimit(limiter RateLimiter, keyFunc KeyFunc) func(http.Handler) http.Handler {
	if keyFunc == nil {
		keyFunc = ClientKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, info := limiter.Allow(keyFunc(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !allowed {
				retryAfter := int(time.Until(info.ResetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, string(errors.ErrCodeTooManyRequests), "rate limit exceeded, please retry later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey keys by API key fingerprint when authenticated, else by client
// IP.  RealIP has already rewritten RemoteAddr from proxy headers.
func ClientKey(r *http.Request) string {
	if id := ContextGetAPIKeyID(r.Context()); id != "" {
		return "key:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

//Personal.AI order the ending
