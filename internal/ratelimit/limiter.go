// Package ratelimit implements fixed-window request limits and cooldowns in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	PurposeSignup = "signup"
	PurposeLogin  = "login"
	PurposeVerify = "verify"
	PurposeResend = "resend"
)

// allowScript increments the window counter and starts the window on first hit.
var allowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// Rule allows Max attempts per Window.
type Rule struct {
	Max    int
	Window time.Duration
}

type Limiter struct {
	client redis.UniversalClient
	rules  map[string]Rule
	prefix string
}

func NewLimiter(client redis.UniversalClient, rules map[string]Rule) *Limiter {
	return &Limiter{
		client: client,
		rules:  rules,
		prefix: "rl:",
	}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// AllowWithPurpose counts one attempt for key under purpose and reports
// whether it fits the purpose's rule. Purposes without a rule are unlimited.
func (l *Limiter) AllowWithPurpose(ctx context.Context, purpose, key string) (bool, error) {
	rule, ok := l.rules[purpose]
	if !ok || rule.Max <= 0 {
		return true, nil
	}

	key = normalizeKey(key)
	if key == "" {
		return false, nil
	}

	seconds := int(rule.Window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}

	redisKey := l.prefix + purpose + ":" + key
	count, err := allowScript.Run(ctx, l.client, []string{redisKey}, seconds).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", purpose, err)
	}

	return count <= rule.Max, nil
}

// Cooldown reports whether key may perform purpose now, and if so blocks it
// for d.
func (l *Limiter) Cooldown(ctx context.Context, purpose, key string, d time.Duration) (bool, error) {
	if d <= 0 {
		return true, nil
	}

	redisKey := l.prefix + "cooldown:" + purpose + ":" + normalizeKey(key)
	ok, err := l.client.SetNX(ctx, redisKey, 1, d).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown %s: %w", purpose, err)
	}
	return ok, nil
}

// Reset clears the counter for key under purpose.
func (l *Limiter) Reset(ctx context.Context, purpose, key string) error {
	return l.client.Del(ctx, l.prefix+purpose+":"+normalizeKey(key)).Err()
}
