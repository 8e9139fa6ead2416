package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// ClassGeneral covers ordinary API reads and writes.
const ClassGeneral = "general"

const keyPrefix = "ratelimit:"

// Counter is the fixed-window primitive backing the limiter. *redis.Client implements it.
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Rule caps requests per window for one operation class.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts requests per (class, client) in fixed windows.
type Limiter struct {
	counter Counter
	rules   map[string]Rule
}

func NewLimiter(counter Counter, rules map[string]Rule) *Limiter {
	return &Limiter{counter: counter, rules: rules}
}

// Allow records one request for key under class. Classes without a rule are unlimited.
func (l *Limiter) Allow(ctx context.Context, class, key string) (Decision, error) {
	rule, ok := l.rules[class]
	if !ok || rule.Limit <= 0 {
		return Decision{Allowed: true}, nil
	}
	count, ttl, err := l.counter.IncrWindow(ctx, keyPrefix+class+":"+key, rule.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("increment rate counter: %w", err)
	}
	if ttl <= 0 {
		ttl = rule.Window
	}
	remaining := rule.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{
		Allowed:   count <= int64(rule.Limit),
		Limit:     rule.Limit,
		Remaining: remaining,
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d, nil
}
