// Package dedupe defines the interface for idempotency tracking.
package dedupe

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Deduper maps a content key (a payload hash) to the submission id that first carried it.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records id for it if not.
	// When key was already seen it returns the recorded id and true.
	SeenAndRecord(ctx context.Context, key, id string) (string, bool)

	// Unrecord forgets key so the same content can be submitted again.
	// Used when a submission was recorded but could not be enqueued.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryDeduper is bounded by size and entry age; the oldest entry is evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    *expirable.LRU[string, string]
	maxSize int
	ttl     time.Duration
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
		ttl:     10 * time.Minute,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = expirable.NewLRU[string, string](d.maxSize, nil, d.ttl)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, key, id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.seen.Get(key); ok {
		return prev, true
	}
	d.seen.Add(key, id)
	return "", false
}

func (d *inMemoryDeduper) Unrecord(ctx context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen.Remove(key)
}

// Size returns the current number of entries, expired ones excluded.
func (d *inMemoryDeduper) Size() int64 {
	return int64(d.seen.Len())
}
