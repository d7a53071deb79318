// Package ratelimit implements a Redis-backed token bucket for the
// submit endpoint, adapted from the teacher's rate.Limiter
// (internal/rate/limiter.go). The teacher's GET-then-SET pipeline has a
// check-then-act race between concurrent requests for the same client;
// here the refill-and-consume step runs as a single Lua script via
// go-redis's Eval, the same atomicity technique store/redisstore uses
// for job claims.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rps = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(data[1])
local lastRefill = tonumber(data[2])

if tokens == nil then
  tokens = burst
  lastRefill = now
end

local elapsed = now - lastRefill
if elapsed > 0 then
  tokens = math.min(burst, tokens + elapsed * rps)
  lastRefill = now
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", key, "tokens", tokens, "last_refill", lastRefill)
redis.call("EXPIRE", key, 60)

return {allowed, tostring(tokens)}
`)

// Limiter is a per-identity token bucket.
type Limiter struct {
	rdb   *redis.Client
	rps   int
	burst int
}

// NewLimiter builds a Limiter allowing rps tokens/second up to burst.
func NewLimiter(rdb *redis.Client, rps, burst int) *Limiter {
	return &Limiter{rdb: rdb, rps: rps, burst: burst}
}

// Allow reports whether identity (typically an API key or client id) may
// proceed, and if not, how long the caller should wait before retrying.
func (l *Limiter) Allow(ctx context.Context, identity string) (bool, time.Duration, error) {
	key := fmt.Sprintf("ae:ratelimit:%s", identity)
	now := float64(time.Now().UnixMilli()) / 1000.0

	res, err := tokenBucketScript.Run(ctx, l.rdb, []string{key}, l.rps, l.burst, now).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit: evaluate token bucket: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("ratelimit: unexpected script result %v", res)
	}

	allowed, _ := values[0].(int64)
	if allowed == 1 {
		return true, 0, nil
	}

	retryAfter := time.Second
	if l.rps > 0 {
		retryAfter = time.Duration(float64(time.Second) / float64(l.rps))
	}
	return false, retryAfter, nil
}

// Reset clears the bucket for identity.
func (l *Limiter) Reset(ctx context.Context, identity string) error {
	key := fmt.Sprintf("ae:ratelimit:%s", identity)
	return l.rdb.Del(ctx, key).Err()
}
