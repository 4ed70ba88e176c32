package msgcall

import (
	"sync"
)

// cache is a concurrent get-or-build cache. Each key is built at most
// once: concurrent callers asking for a key that is being built wait
// for the first builder and share its result, including its error.
type cache[K comparable, V any] struct {
	m sync.Map // K -> *cacheEntry[V]
}

type cacheEntry[V any] struct {
	once sync.Once
	val  V
	err  error
}

// Get returns the cached value for k, calling build to produce it if
// no value has been built yet.
//
// build must not call Get with the same key, or it will deadlock.
func (c *cache[K, V]) Get(k K, build func() (V, error)) (V, error) {
	ent, ok := c.m.Load(k)
	if !ok {
		ent, _ = c.m.LoadOrStore(k, &cacheEntry[V]{})
	}
	e := ent.(*cacheEntry[V])
	e.once.Do(func() {
		e.val, e.err = build()
	})
	return e.val, e.err
}

// Len returns the number of keys in the cache.
func (c *cache[K, V]) Len() int {
	n := 0
	c.m.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}
