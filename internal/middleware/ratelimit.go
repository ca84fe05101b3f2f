package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ShivamG1979/FeedBack-Backeng/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	rateLimitKeyPrefix = "feedback:ratelimit:"
	redisLimitTimeout  = 100 * time.Millisecond
	idleLimiterTTL     = 10 * time.Minute
)

// bucketScript refills a token bucket stored in two keys and takes one token.
// ARGV: rate, capacity, now (seconds). Returns {allowed, tokens_left, retry_after}.
var bucketScript = redis.NewScript(`
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = math.ceil(capacity / rate * 2)

local tokens = tonumber(redis.call("get", KEYS[1])) or capacity
local last = tonumber(redis.call("get", KEYS[2])) or now
tokens = math.min(capacity, tokens + math.max(0, now - last) * rate)

if tokens < 1 then
    return { 0, tostring(tokens), tostring((1 - tokens) / rate) }
end

tokens = tokens - 1
redis.call("set", KEYS[1], tokens, "EX", ttl)
redis.call("set", KEYS[2], now, "EX", ttl)
return { 1, tostring(tokens), "0" }
`)

type bucketDecision struct {
	allowed    bool
	remaining  int
	retryAfter time.Duration
}

// clientLimiter is shared by every in-flight request of one client.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// limiterStore holds the in-memory buckets used without redis or when redis fails.
type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	sweep    sync.Once
}

var localStore = &limiterStore{limiters: make(map[string]*clientLimiter)}

func (s *limiterStore) get(key string, r rate.Limit, burst int) *rate.Limiter {
	s.sweep.Do(func() { go s.evictIdle(idleLimiterTTL) })

	s.mu.Lock()
	cl, ok := s.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(r, burst)}
		s.limiters[key] = cl
	}
	s.mu.Unlock()

	cl.lastSeen.Store(time.Now().UnixNano())
	return cl.limiter
}

func (s *limiterStore) evictIdle(ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for now := range ticker.C {
		s.evictBefore(now.Add(-ttl))
	}
}

func (s *limiterStore) evictBefore(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cl := range s.limiters {
		if cl.lastSeen.Load() < cutoff.UnixNano() {
			delete(s.limiters, key)
		}
	}
}

// RateLimitMiddleware enforces a per-client token bucket in redis. When redis is
// nil or failing it falls back to an in-memory bucket instead of rejecting.
func RateLimitMiddleware(rdb *redis.Client, requestsPerSecond int) gin.HandlerFunc {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	limit := strconv.Itoa(requestsPerSecond)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		c.Header("X-RateLimit-Limit", limit)

		decision, err := takeToken(c.Request.Context(), rdb, clientIP, requestsPerSecond)
		if err != nil {
			if rdb != nil {
				logger.Warn("redis rate limit failed, switching to local fallback",
					zap.Error(err),
					zap.String("ip", clientIP))
			}
			decision = takeLocalToken(clientIP, requestsPerSecond)
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(decision.retryAfter).Unix(), 10))
		if !decision.allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests"})
			return
		}
		c.Next()
	}
}

var errNoRedis = errors.New("redis rate limiting disabled")

func takeToken(ctx context.Context, rdb *redis.Client, clientIP string, rps int) (bucketDecision, error) {
	if rdb == nil {
		return bucketDecision{}, errNoRedis
	}

	ctx, cancel := context.WithTimeout(ctx, redisLimitTimeout)
	defer cancel()

	key := rateLimitKeyPrefix + clientIP
	now := float64(time.Now().UnixMicro()) / 1e6
	res, err := bucketScript.Run(ctx, rdb, []string{key + ":tokens", key + ":ts"}, rps, rps, now).Slice()
	if err != nil {
		return bucketDecision{}, err
	}
	if len(res) != 3 {
		// malformed reply, let the request through
		return bucketDecision{allowed: true, remaining: rps}, nil
	}

	allowed, _ := res[0].(int64)
	remaining := parseScriptFloat(res[1])
	retryAfter := parseScriptFloat(res[2])
	return bucketDecision{
		allowed:    allowed == 1,
		remaining:  int(remaining),
		retryAfter: time.Duration(retryAfter * float64(time.Second)),
	}, nil
}

func takeLocalToken(clientIP string, rps int) bucketDecision {
	limiter := localStore.get(clientIP, rate.Limit(rps), rps)
	if !limiter.Allow() {
		return bucketDecision{retryAfter: time.Second}
	}
	return bucketDecision{allowed: true, remaining: int(limiter.Tokens())}
}

// parseScriptFloat reads the string-encoded numbers the script returns; Lua
// numbers would otherwise be truncated to integers by redis.
func parseScriptFloat(v any) float64 {
	s, _ := v.(string)
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
