package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohae/deepcopy"
	"golang.org/x/sync/singleflight"

	"github.com/sasquatch989/mockingj/pkg/logging"
	"github.com/sasquatch989/mockingj/pkg/metrics"
)

// DefaultTTL is how long an entry lives when no TTL is configured.
const DefaultTTL = 300 * time.Second

// Entry is one stored value.
type Entry struct {
	Key       string
	Value     any
	CreatedAt time.Time
	// TTL of zero never expires.
	TTL time.Duration
}

func (e *Entry) expired(now time.Time) bool {
	return e.TTL > 0 && !now.Before(e.CreatedAt.Add(e.TTL))
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries   int           `json:"entries"`
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Evictions int64         `json:"evictions"`
	TTL       time.Duration `json:"ttl"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics reports hits, misses and evictions to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithLogger sets the logger used by the sweeper.
func WithLogger(log *slog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	// epoch advances on Clear and Invalidate so generations that started
	// before a reset never store their result.
	epoch uint64

	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	metrics *metrics.Metrics
	log     *slog.Logger

	sweepMu   sync.Mutex
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// New creates a cache whose entries live for ttl. A negative ttl selects
// DefaultTTL; zero disables expiry.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl < 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		now:     time.Now,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns a copy of the live value stored under key.
func (c *Cache) Get(key string) (any, bool) {
	v, ok := c.lookup(key)
	if !ok {
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.CacheHit()
	return deepcopy.Copy(v), true
}

// lookup returns the stored value without copying. An expired entry is
// removed on the way.
func (c *Cache) lookup(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expired(c.now()) {
		return e.Value, true
	}

	c.mu.Lock()
	// Another goroutine may have replaced the entry meanwhile.
	if cur, ok := c.entries[key]; ok && cur == e {
		delete(c.entries, key)
		c.evicted(1)
	}
	n := len(c.entries)
	c.mu.Unlock()
	c.metrics.SetCacheEntries(n)
	return nil, false
}

// Set stores a copy of value under key, replacing any previous entry.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = &Entry{Key: key, Value: deepcopy.Copy(value), CreatedAt: c.now(), TTL: c.ttl}
	n := len(c.entries)
	c.mu.Unlock()
	c.metrics.SetCacheEntries(n)
}

// GetOrGenerate returns the live value for key or, on a miss, calls generate
// and stores its result. Concurrent misses on the same key share a single
// call. Errors from generate are returned and nothing is stored. The returned
// value is always a private copy.
func (c *Cache) GetOrGenerate(ctx context.Context, key string, generate func() (any, error)) (any, error) {
	for {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		ch := c.group.DoChan(key, func() (any, error) {
			if v, ok := c.lookup(key); ok {
				return v, nil
			}
			c.mu.RLock()
			epoch := c.epoch
			c.mu.RUnlock()

			c.misses.Add(1)
			c.metrics.CacheMiss()
			v, err := generate()
			if err != nil {
				return nil, err
			}
			c.store(key, v, epoch)
			return v, nil
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				// The shared call ran under another caller's context. If
				// that one was cancelled and ours was not, try again.
				if isContextErr(res.Err) && ctx.Err() == nil {
					continue
				}
				return nil, res.Err
			}
			return deepcopy.Copy(res.Val), nil
		}
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Cache) store(key string, v any, epoch uint64) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.entries[key] = &Entry{Key: key, Value: v, CreatedAt: c.now(), TTL: c.ttl}
	n := len(c.entries)
	c.mu.Unlock()
	c.metrics.SetCacheEntries(n)
}

// Invalidate removes every entry whose key starts with prefix and returns how
// many were removed. Other entries are untouched.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	removed := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			removed++
		}
	}
	c.epoch++
	n := len(c.entries)
	c.mu.Unlock()

	c.evicted(removed)
	c.metrics.SetCacheEntries(n)
	return removed
}

// Clear removes every entry and returns how many were removed.
func (c *Cache) Clear() int {
	c.mu.Lock()
	removed := len(c.entries)
	c.entries = make(map[string]*Entry)
	c.epoch++
	c.mu.Unlock()

	c.evicted(removed)
	c.metrics.SetCacheEntries(0)
	return removed
}

// Sweep removes expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	n := len(c.entries)
	c.mu.Unlock()

	c.evicted(removed)
	c.metrics.SetCacheEntries(n)
	return removed
}

func (c *Cache) evicted(n int) {
	if n > 0 {
		c.evictions.Add(int64(n))
		c.metrics.CacheEvicted(n)
	}
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries:   c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		TTL:       c.ttl,
	}
}

// StartSweeper runs Sweep every interval until Stop is called. Calling it
// while a sweeper is already running does nothing.
func (c *Cache) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		return
	}
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	if c.stopCh != nil {
		return
	}
	c.stopCh = make(chan struct{})
	c.stoppedCh = make(chan struct{})
	go c.sweep(interval, c.stopCh, c.stoppedCh)
}

func (c *Cache) sweep(interval time.Duration, stopCh <-chan struct{}, stoppedCh chan<- struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(stoppedCh)

	for {
		select {
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.log.Debug("swept expired cache entries", "removed", n)
			}
		case <-stopCh:
			return
		}
	}
}

// Stop halts the sweeper and waits for it to exit.
func (c *Cache) Stop() {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	if c.stopCh == nil {
		return
	}
	close(c.stopCh)
	<-c.stoppedCh
	c.stopCh, c.stoppedCh = nil, nil
}
