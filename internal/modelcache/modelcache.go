// Package modelcache implements a process-wide, TTL-expiring singleton
// guarding a handle to the neural model set. Grounded on the in-process
// mutex+map state machine in the teacher's rate limiter and the TTL/expiry
// bookkeeping pattern in its Redis-backed circuit breaker, adapted to a
// purely in-process lock since model weights never leave the process.
package modelcache

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// ModelHandle is an opaque borrowed reference to the loaded neural model
// set, valid for the duration of one caller's use.
type ModelHandle struct {
	Device string
	Loaded time.Time
}

// Loader loads the neural model set for a device. It is an external
// collaborator (the neural engine's model-loading operation).
type Loader interface {
	LoadModels(ctx context.Context, device string) (ModelHandle, error)
}

// MemoryStats mirrors the §4.5 memory_stats() report.
type MemoryStats struct {
	Device         string
	AllocatedBytes uint64
	ReservedBytes  uint64
	ModelsLoaded   bool
	CacheTTL       time.Duration
}

// Cache is the singleton model cache. One Cache instance is created per
// process by the CLI's dependency wiring (cmd/hybridocr) and handed to the
// Scheduler; it is not a package-level global so tests can use independent
// instances.
type Cache struct {
	loader Loader
	ttl    time.Duration

	mu        sync.Mutex
	creating  sync.Mutex
	handle    *ModelHandle
	loadedAt  time.Time
}

const DefaultTTL = 30 * time.Minute

func New(loader Loader, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{loader: loader, ttl: ttl}
}

// GetModels returns a handle, loading on miss. Uses double-checked locking:
// the fast path (cache hit) only takes the cheap mu lock; the slow path
// (cache miss) takes the separate creating lock so model loading never
// blocks concurrent cache-hit readers.
func (c *Cache) GetModels(ctx context.Context, device string) (ModelHandle, time.Duration, error) {
	if h, ok := c.peek(); ok {
		return h, 0, nil
	}

	c.creating.Lock()
	defer c.creating.Unlock()

	// Re-check after acquiring the creation lock: another goroutine may have
	// populated the cache while we waited.
	if h, ok := c.peek(); ok {
		return h, 0, nil
	}

	start := time.Now()
	h, err := c.loader.LoadModels(ctx, device)
	if err != nil {
		return ModelHandle{}, 0, err
	}
	loadDuration := time.Since(start)

	c.mu.Lock()
	c.handle = &h
	c.loadedAt = time.Now()
	c.mu.Unlock()

	return h, loadDuration, nil
}

func (c *Cache) peek() (ModelHandle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return ModelHandle{}, false
	}
	if time.Since(c.loadedAt) > c.ttl {
		c.handle = nil
		return ModelHandle{}, false
	}
	return *c.handle, true
}

// IsLoaded reports current cache presence without triggering a load.
func (c *Cache) IsLoaded() bool {
	_, ok := c.peek()
	return ok
}

// Evict removes the handle and forces a GC generation, simulating the
// accelerator empty-cache call the Python source issues when available.
func (c *Cache) Evict() {
	c.mu.Lock()
	c.handle = nil
	c.mu.Unlock()
	runtime.GC()
}

// CleanupBetweenDocuments requests inter-sub-batch cleanup without evicting
// the resident model.
func (c *Cache) CleanupBetweenDocuments() {
	runtime.GC()
}

// MemoryStats reports cache state for diagnostics/metrics.
func (c *Cache) MemoryStats(device string) MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		Device:         device,
		AllocatedBytes: m.Alloc,
		ReservedBytes:  m.Sys,
		ModelsLoaded:   c.IsLoaded(),
		CacheTTL:       c.ttl,
	}
}
