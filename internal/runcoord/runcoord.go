// Package runcoord provides optional Redis-backed coordination across
// concurrent invocations of the pipeline against a shared input set: an
// idempotency marker so the same file isn't reprocessed by two
// simultaneous runs, and a pending-count gauge feed for metrics. Adapted
// from the idempotency (IsIdemDone/MarkIdemDone) and Depths gauge-feed
// methods of the teacher's internal/queue/redis.go, with the
// stream/consumer-group/delayed-ZSET/DLQ machinery dropped -- this
// pipeline has no distributed job queue, only an optional guard against
// double-processing the same file.
package runcoord

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Coordinator guards against duplicate concurrent processing of the same
// input file across multiple pipeline invocations sharing one Redis
// instance. A nil *Coordinator is valid and treats every key as not-done,
// for single-invocation runs where HYBRIDOCR_REDIS_URL is unset.
type Coordinator struct {
	client      *redis.Client
	idemPrefix  string
	pendingKey  string
}

// Connect dials Redis and verifies connectivity. Callers should treat a
// nil url as "coordination disabled" and skip calling Connect entirely.
func Connect(url string) (*Coordinator, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("runcoord: parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("runcoord: redis ping: %w", err)
	}
	return &Coordinator{
		client:     client,
		idemPrefix: "hybridocr:idem:done:",
		pendingKey: "hybridocr:pending",
	}, nil
}

// IsDone reports whether a file (identified by an idempotency key, e.g. a
// content hash) has already been processed by another run.
func (c *Coordinator) IsDone(ctx context.Context, key string) (bool, error) {
	if c == nil || key == "" {
		return false, nil
	}
	exists, err := c.client.Exists(ctx, c.idemPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("runcoord: check idempotency: %w", err)
	}
	return exists == 1, nil
}

// MarkDone records a file as processed, expiring the marker after ttl so a
// stale run's markers don't accumulate forever.
func (c *Coordinator) MarkDone(ctx context.Context, key string, ttl time.Duration) error {
	if c == nil || key == "" {
		return nil
	}
	if err := c.client.Set(ctx, c.idemPrefix+key, 1, ttl).Err(); err != nil {
		return fmt.Errorf("runcoord: mark done: %w", err)
	}
	return nil
}

// IncrPending increments the shared pending-file counter by delta (negative
// to decrement), used to feed the runcoord queue-depth metric across
// concurrently running processes.
func (c *Coordinator) IncrPending(ctx context.Context, delta int64) error {
	if c == nil {
		return nil
	}
	if err := c.client.IncrBy(ctx, c.pendingKey, delta).Err(); err != nil {
		return fmt.Errorf("runcoord: incr pending: %w", err)
	}
	return nil
}

// PendingCount reads the current shared pending-file count.
func (c *Coordinator) PendingCount(ctx context.Context) (int64, error) {
	if c == nil {
		return 0, nil
	}
	v, err := c.client.Get(ctx, c.pendingKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("runcoord: read pending: %w", err)
	}
	return v, nil
}

// Close releases the underlying Redis client.
func (c *Coordinator) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
