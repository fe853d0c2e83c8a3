// Package dedupe remembers the reply given to each accepted Idempotency-Key
// so a retried request gets the original answer without storing the note
// twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSize = 10_000

// Deduper maps keys to the result first recorded for them.
type Deduper[V any] interface {
	// Lookup returns the value recorded for key, if any.
	Lookup(ctx context.Context, key string) (V, bool)

	// Record stores v under key unless the key is already present, in which
	// case the existing value wins and is returned with false.
	Record(ctx context.Context, key string, v V) (V, bool)

	// Forget drops key so a later request may record it afresh.
	Forget(ctx context.Context, key string)

	Size() int64
}

type entry[V any] struct {
	key   string
	value V
}

// inMemoryDeduper keeps keys in insertion order. In bounded mode the oldest
// key is evicted once maxSize is reached.
type inMemoryDeduper[V any] struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front = oldest
	maxSize int        // <= 0 means unbounded
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper[V any](opts ...Option) Deduper[V] {
	s := settings{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(&s)
	}

	return &inMemoryDeduper[V]{
		maxSize: s.maxSize,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (d *inMemoryDeduper[V]) Lookup(_ context.Context, key string) (V, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		return el.Value.(entry[V]).value, true
	}
	var zero V
	return zero, false
}

func (d *inMemoryDeduper[V]) Record(_ context.Context, key string, v V) (V, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		return el.Value.(entry[V]).value, false
	}

	if d.maxSize > 0 {
		for d.order.Len() >= d.maxSize {
			oldest := d.order.Front()
			d.order.Remove(oldest)
			delete(d.seen, oldest.Value.(entry[V]).key)
		}
	}

	d.seen[key] = d.order.PushBack(entry[V]{key: key, value: v})
	return v, true
}

func (d *inMemoryDeduper[V]) Forget(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
	}
}

func (d *inMemoryDeduper[V]) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
