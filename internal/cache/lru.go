// internal/cache/lru.go
//
// Tiny LRU cache with optional per-entry expiry.  Used by the in-memory
// form-instance store and by the view engine for parsed template sets.
// Safe for concurrent use.  No external deps; good for a few thousand
// entries.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a least-recently-used cache keyed by K.  A zero ttl disables
// expiry.
type LRU[K comparable, V any] struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	now  func() time.Time
	ll   *list.List
	dict map[K]*list.Element
}

type entry[K comparable, V any] struct {
	key K
	val V
	exp time.Time
}

// New returns an LRU with the given capacity and ttl.  Panics on cap < 1.
func New[K comparable, V any](capacity int, ttl time.Duration) *LRU[K, V] {
	if capacity < 1 {
		panic("cache: capacity must be ≥1")
	}
	return &LRU[K, V]{
		cap:  capacity,
		ttl:  ttl,
		now:  time.Now,
		ll:   list.New(),
		dict: make(map[K]*list.Element, capacity),
	}
}

// Get retrieves a value and marks it MRU.  Expired entries are dropped.
func (c *LRU[K, V]) Get(key K) (val V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ele, hit := c.dict[key]
	if !hit {
		return val, false
	}
	e := ele.Value.(*entry[K, V])
	if c.ttl > 0 && c.now().After(e.exp) {
		c.removeElement(ele)
		return val, false
	}
	c.ll.MoveToFront(ele)
	return e.val, true
}

// Add inserts or updates a value and refreshes its expiry.
func (c *LRU[K, V]) Add(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	exp := c.now().Add(c.ttl)
	if ele, hit := c.dict[key]; hit {
		e := ele.Value.(*entry[K, V])
		e.val, e.exp = val, exp
		c.ll.MoveToFront(ele)
		return
	}
	ele := c.ll.PushFront(&entry[K, V]{key: key, val: val, exp: exp})
	c.dict[key] = ele
	if c.ll.Len() > c.cap {
		c.removeElement(c.ll.Back())
	}
}

// Remove deletes key.  Missing keys are ignored.
func (c *LRU[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, hit := c.dict[key]; hit {
		c.removeElement(ele)
	}
}

// Len reports current size, expired entries included until touched.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *LRU[K, V]) removeElement(ele *list.Element) {
	c.ll.Remove(ele)
	delete(c.dict, ele.Value.(*entry[K, V]).key)
}
