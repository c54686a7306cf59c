// Package limiter implements a Redis-backed cooldown breaker guarding calls
// to an external inference engine: repeated failures open the breaker with
// exponentially growing backoff, and a caller checks IsOpen before retrying
// rather than hammering a collaborator that is already down. Adapted from
// the teacher's per-provider/model AI circuit breaker, generalized from an
// LLM provider/model pair to an arbitrary (engine, variant) key -- here the
// neural OCR engine and its inference device.
package limiter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Adaptive is a Redis-backed breaker keyed by (engine, variant), plus a
// local in-process inflight semaphore per key.
type Adaptive struct {
	rdb         *redis.Client
	maxInflight int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	mu          sync.Mutex
	sem         map[string]chan struct{}
}

// Options configures an Adaptive breaker.
type Options struct {
	RedisURL    string
	MaxInflight int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func New(opts Options) (*Adaptive, error) {
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 2
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 30 * time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Minute
	}
	ro, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("limiter: parse redis url: %w", err)
	}
	c := redis.NewClient(ro)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("limiter: redis ping: %w", err)
	}
	return &Adaptive{
		rdb: c, maxInflight: opts.MaxInflight,
		baseBackoff: opts.BaseBackoff, maxBackoff: opts.MaxBackoff,
		sem: map[string]chan struct{}{},
	}, nil
}

func (a *Adaptive) key(engine, variant string) string {
	return fmt.Sprintf("hybridocr:breaker:%s:%s", strings.ToLower(engine), strings.ToLower(variant))
}

// IsOpen reports whether the breaker for (engine, variant) is in cooldown.
func (a *Adaptive) IsOpen(ctx context.Context, engine, variant string) bool {
	k := a.key(engine, variant)
	ts, err := a.rdb.Get(ctx, k).Int64()
	if err != nil {
		return false
	}
	return time.Now().Unix() < ts
}

// Open records a failure and extends the cooldown with exponential backoff.
func (a *Adaptive) Open(ctx context.Context, engine, variant string) {
	k := a.key(engine, variant)
	cntKey := k + ":attempts"
	attempts, _ := a.rdb.Incr(ctx, cntKey).Result()
	if attempts < 1 {
		attempts = 1
	}
	d := a.baseBackoff * (1 << (attempts - 1))
	if d > a.maxBackoff {
		d = a.maxBackoff
	}
	until := time.Now().Add(d).Unix()
	_ = a.rdb.Set(ctx, k, until, d).Err()
}

// Close resets the breaker for (engine, variant) after a successful call.
func (a *Adaptive) Close(ctx context.Context, engine, variant string) {
	k := a.key(engine, variant)
	_ = a.rdb.Del(ctx, k, k+":attempts").Err()
}

// Allow reserves a local in-process inflight slot for (engine, variant).
// Returns a release function and true if allowed; false if saturated.
func (a *Adaptive) Allow(engine, variant string) (func(), bool) {
	key := strings.ToLower(engine) + ":" + strings.ToLower(variant)
	a.mu.Lock()
	ch, ok := a.sem[key]
	if !ok {
		ch = make(chan struct{}, a.maxInflight)
		a.sem[key] = ch
	}
	a.mu.Unlock()
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, true
	default:
		return func() {}, false
	}
}

// CloseClient releases the underlying Redis client.
func (a *Adaptive) CloseClient() error { return a.rdb.Close() }

