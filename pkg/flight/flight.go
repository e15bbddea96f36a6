package flight

import (
	"sync"
	"time"
)

// Cache runs work at most once per key at a time and keeps successful
// results for the configured expiry. Failed results are not cached, so the
// next Get tries again.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	finished map[K]entry[V]
	pending  map[K]*call[V]

	work func(K) (V, error)
	ttl  time.Duration
	now  func() time.Time
}

type entry[V any] struct {
	val      V
	deadline time.Time // zero => never expires
}

type call[V any] struct {
	val  V
	err  error
	done chan struct{}
}

func NewCache[K comparable, V any](work func(K) (V, error)) *Cache[K, V] {
	return &Cache[K, V]{
		finished: make(map[K]entry[V]),
		pending:  make(map[K]*call[V]),
		work:     work,
		now:      time.Now,
	}
}

// Expiry sets how long future results are kept. d <= 0 keeps them forever.
func (c *Cache[K, V]) Expiry(d time.Duration) {
	c.mu.Lock()
	c.ttl = d
	c.mu.Unlock()
}

// Get returns the cached value for k, joining an in-flight load when there
// is one.
func (c *Cache[K, V]) Get(k K) (V, error) {
	c.mu.Lock()
	if e, ok := c.finished[k]; ok {
		if e.deadline.IsZero() || c.now().Before(e.deadline) {
			c.mu.Unlock()
			return e.val, nil
		}
		delete(c.finished, k)
	}

	if p, ok := c.pending[k]; ok {
		c.mu.Unlock()
		<-p.done
		return p.val, p.err
	}

	p := &call[V]{done: make(chan struct{})}
	c.pending[k] = p
	c.mu.Unlock()

	p.val, p.err = c.work(k)

	c.mu.Lock()
	if p.err == nil {
		e := entry[V]{val: p.val}
		if c.ttl > 0 {
			e.deadline = c.now().Add(c.ttl)
		}
		c.finished[k] = e
	}
	delete(c.pending, k)
	close(p.done)
	c.mu.Unlock()

	return p.val, p.err
}

// Forget drops the cached value for k. An in-flight load is not affected.
func (c *Cache[K, V]) Forget(k K) {
	c.mu.Lock()
	delete(c.finished, k)
	c.mu.Unlock()
}
