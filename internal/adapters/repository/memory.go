package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/redstone/internal/domain/types"
	"github.com/okian/redstone/pkg/metrics"
)

// MemoryStore keeps price state in a map. Updates lock only the feeds they touch,
// so writers on disjoint feeds proceed in parallel. UpdateAll excludes every
// other update.
type MemoryStore struct {
	mu    sync.RWMutex
	byKey map[string]types.PriceState

	updateMu sync.RWMutex
	keyLocks sync.Map // string -> *sync.Mutex

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	closed   bool
}

var _ PriceStore = (*MemoryStore)(nil)

// NewMemoryStore constructs an in-memory store with configuration options.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byKey:                 make(map[string]types.PriceState),
		metricsUpdateInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.stopChan = make(chan struct{})
	metrics.UpdateFeedsStored(len(s.byKey))
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the metrics goroutine.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.stopChan)
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// Get implements PriceStore.Get.
func (s *MemoryStore) Get(ctx context.Context, key string) (types.PriceState, error) {
	defer observeQuery(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byKey[key]
	if !ok {
		return types.PriceState{}, ErrNotFound
	}
	return st, nil
}

// GetMany implements PriceStore.GetMany.
func (s *MemoryStore) GetMany(ctx context.Context, keys []string) ([]*types.PriceState, error) {
	defer observeQuery(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(keys), nil
}

// Update implements PriceStore.Update.
func (s *MemoryStore) Update(ctx context.Context, keys []string, fn UpdateFunc) error {
	defer observeUpdate(time.Now())

	if err := checkKeys(keys); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.updateMu.RLock()
	defer s.updateMu.RUnlock()
	unlock := s.lockKeys(keys)
	defer unlock()

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	current := s.snapshot(keys)
	s.mu.RUnlock()

	return s.apply(keys, current, fn)
}

// UpdateAll implements PriceStore.UpdateAll.
func (s *MemoryStore) UpdateAll(ctx context.Context, keys []string, fn UpdateFunc) error {
	defer observeUpdate(time.Now())

	if err := checkKeys(keys); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	all := appendMissing(keys, s.sortedKeys())
	current := s.snapshot(all)
	s.mu.RUnlock()

	return s.apply(all, current, fn)
}

// apply runs fn over current and stores its result under keys.
func (s *MemoryStore) apply(keys []string, current []*types.PriceState, fn UpdateFunc) error {
	next, err := fn(current)
	if err != nil {
		return err
	}
	if err := checkResult(keys, next); err != nil {
		return err
	}

	s.mu.Lock()
	for i, k := range keys {
		if next[i] == nil {
			delete(s.byKey, k)
			continue
		}
		s.byKey[k] = *next[i]
	}
	s.mu.Unlock()
	return nil
}

// Keys implements PriceStore.Keys.
func (s *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedKeys(), nil
}

// sortedKeys lists the stored keys; callers hold s.mu.
func (s *MemoryStore) sortedKeys() []string {
	out := make([]string, 0, len(s.byKey))
	for k := range s.byKey {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Count implements PriceStore.Count.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// snapshot copies the states for keys; callers hold s.mu.
func (s *MemoryStore) snapshot(keys []string) []*types.PriceState {
	out := make([]*types.PriceState, len(keys))
	for i, k := range keys {
		if st, ok := s.byKey[k]; ok {
			cp := st
			out[i] = &cp
		}
	}
	return out
}

// lockKeys acquires the per-key mutexes in sorted order and returns the release func.
func (s *MemoryStore) lockKeys(keys []string) func() {
	ordered := sortedCopy(keys)
	locks := make([]*sync.Mutex, len(ordered))
	for i, k := range ordered {
		m, _ := s.keyLocks.LoadOrStore(k, &sync.Mutex{})
		locks[i] = m.(*sync.Mutex)
		locks[i].Lock()
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateFeedsStored(s.Count(ctx))
			}
		}
	}()
}

func observeQuery(start time.Time) {
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

func observeUpdate(start time.Time) {
	metrics.RecordStoreUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
}
