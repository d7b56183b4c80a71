package cache

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Loader fills an LRUCache on misses. Concurrent misses for the same key
// share one call to the load function.
type Loader[T any] struct {
	cache *LRUCache[T]
	group singleflight.Group
}

func NewLoader[T any](c *LRUCache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

func (l *Loader[T]) Cache() *LRUCache[T] { return l.cache }

// Get returns the cached value for key or calls load. The second result
// reports whether the value came from the cache. Failed loads are not cached;
// whatever load returned is passed back with the error.
//
// Only callers that missed within the same cache generation share a load, so
// a caller arriving after Invalidate never receives data read before it. The
// shared load is detached from the caller's cancellation.
func (l *Loader[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, bool, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, true, nil
	}

	gen := l.cache.Generation()
	flight := fmt.Sprintf("%s#%d", key, gen)
	v, err, _ := l.group.Do(flight, func() (any, error) {
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		l.cache.SetIfGeneration(key, v, gen)
		return v, nil
	})
	if err != nil {
		t, _ := v.(T)
		return t, false, err
	}
	return v.(T), false, nil
}

// Invalidate drops every cached value.
func (l *Loader[T]) Invalidate() {
	l.cache.Clear()
}
