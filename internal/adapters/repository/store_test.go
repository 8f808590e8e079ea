package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/okian/redstone/internal/domain/types"
)

type storeFactory func(t testing.TB) PriceStore

func drivers() map[string]storeFactory {
	out := map[string]storeFactory{
		"memory": func(t testing.TB) PriceStore {
			return NewMemoryStore(context.Background(), WithMetricsUpdateInterval(10*time.Millisecond))
		},
		"bolt": func(t testing.TB) PriceStore {
			s, err := NewBoltStore(filepath.Join(t.TempDir(), "prices.db"))
			if err != nil {
				t.Fatalf("open bolt: %v", err)
			}
			return s
		},
	}
	if addr := os.Getenv("REDSTONE_TEST_REDIS_ADDR"); addr != "" {
		out["redis"] = func(t testing.TB) PriceStore {
			s, err := NewRedisStore(RedisConfig{Address: addr, Prefix: "redstone-test-" + uuid.NewString()})
			if err != nil {
				t.Fatalf("connect redis: %v", err)
			}
			return s
		}
	}
	return out
}

func state(v uint64, pkgTs, writeTs uint64) *types.PriceState {
	return &types.PriceState{Value: *uint256.NewInt(v), PackageTimestamp: pkgTs, WriteTimestamp: writeTs}
}

func put(ctx context.Context, t testing.TB, s PriceStore, key string, st *types.PriceState) {
	t.Helper()
	err := s.Update(ctx, []string{key}, func([]*types.PriceState) ([]*types.PriceState, error) {
		return []*types.PriceState{st}, nil
	})
	if err != nil {
		t.Fatalf("put %s: %v", key, err)
	}
}

func TestPriceStore_BasicOperations(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			if n := s.Count(ctx); n != 0 {
				t.Errorf("expected count 0, got %d", n)
			}
			if _, err := s.Get(ctx, "ETH"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}

			put(ctx, t, s, "ETH", state(42, 1000, 2000))
			got, err := s.Get(ctx, "ETH")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Value.Uint64() != 42 || got.PackageTimestamp != 1000 || got.WriteTimestamp != 2000 {
				t.Errorf("unexpected state %+v", got)
			}
			if n := s.Count(ctx); n != 1 {
				t.Errorf("expected count 1, got %d", n)
			}

			many, err := s.GetMany(ctx, []string{"BTC", "ETH"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if many[0] != nil {
				t.Errorf("expected nil for BTC, got %+v", many[0])
			}
			if many[1] == nil || many[1].Value.Uint64() != 42 {
				t.Errorf("unexpected ETH state %+v", many[1])
			}
		})
	}
}

func TestPriceStore_UpdateSeesCurrentState(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			put(ctx, t, s, "BTC", state(1, 10, 20))

			var seen []*types.PriceState
			err := s.Update(ctx, []string{"ETH", "BTC"}, func(cur []*types.PriceState) ([]*types.PriceState, error) {
				seen = cur
				return []*types.PriceState{state(5, 11, 21), state(6, 11, 21)}, nil
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(seen) != 2 || seen[0] != nil || seen[1] == nil || seen[1].Value.Uint64() != 1 {
				t.Errorf("fn saw unexpected state %+v", seen)
			}

			keys, err := s.Keys(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fmt.Sprint(keys) != "[BTC ETH]" {
				t.Errorf("expected [BTC ETH], got %v", keys)
			}
		})
	}
}

func TestPriceStore_UpdateDeletesNilEntries(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			put(ctx, t, s, "ETH", state(1, 1, 1))
			put(ctx, t, s, "BTC", state(2, 1, 1))

			err := s.Update(ctx, []string{"ETH"}, func([]*types.PriceState) ([]*types.PriceState, error) {
				return []*types.PriceState{nil}, nil
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := s.Get(ctx, "ETH"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ETH deleted, got %v", err)
			}
			if n := s.Count(ctx); n != 1 {
				t.Errorf("expected count 1, got %d", n)
			}
		})
	}
}

func TestPriceStore_UpdateAllListsStoredKeys(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			put(ctx, t, s, "BTC", state(2, 1, 1))
			put(ctx, t, s, "AVAX", state(3, 1, 1))

			var seen []*types.PriceState
			err := s.UpdateAll(ctx, []string{"ETH", "BTC"}, func(cur []*types.PriceState) ([]*types.PriceState, error) {
				seen = cur
				return []*types.PriceState{state(5, 2, 2), state(6, 2, 2), state(0, 2, 2)}, nil
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(seen) != 3 || seen[0] != nil || seen[1].Value.Uint64() != 2 || seen[2].Value.Uint64() != 3 {
				t.Fatalf("fn saw unexpected state %+v", seen)
			}

			many, err := s.GetMany(ctx, []string{"ETH", "BTC", "AVAX"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i, want := range []uint64{5, 6, 0} {
				if many[i] == nil || many[i].Value.Uint64() != want || many[i].PackageTimestamp != 2 {
					t.Errorf("key %d: expected value %d at ts 2, got %+v", i, want, many[i])
				}
			}
		})
	}
}

func TestPriceStore_UpdateAllIsAtomicWithNewKeys(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			put(ctx, t, s, "BTC", state(2, 1, 1))

			entered := make(chan struct{})
			release := make(chan struct{})
			var once sync.Once
			var sawSOL bool

			done := make(chan error, 1)
			go func() {
				done <- s.UpdateAll(ctx, []string{"ETH"}, func(cur []*types.PriceState) ([]*types.PriceState, error) {
					once.Do(func() {
						close(entered)
						<-release
					})
					sawSOL = len(cur) == 3
					next := make([]*types.PriceState, len(cur))
					for i := range next {
						next[i] = state(0, 2, 2)
					}
					next[0] = state(5, 2, 2)
					return next, nil
				})
			}()

			<-entered
			written := make(chan struct{})
			go func() {
				defer close(written)
				put(ctx, t, s, "SOL", state(7, 1, 1))
			}()
			time.Sleep(20 * time.Millisecond)
			close(release)

			if err := <-done; err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			<-written

			sol, err := s.Get(ctx, "SOL")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			switch {
			case sawSOL && sol.Value.Uint64() != 0:
				t.Errorf("SOL was listed but not cleared: %+v", sol)
			case !sawSOL && sol.Value.Uint64() != 7:
				t.Errorf("SOL was not listed yet its write was lost: %+v", sol)
			}
		})
	}
}

func TestPriceStore_FailedUpdateWritesNothing(t *testing.T) {
	boom := errors.New("boom")
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			put(ctx, t, s, "ETH", state(1, 1, 1))
			err := s.Update(ctx, []string{"ETH", "BTC"}, func([]*types.PriceState) ([]*types.PriceState, error) {
				return nil, boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}
			got, err := s.Get(ctx, "ETH")
			if err != nil || got.Value.Uint64() != 1 {
				t.Errorf("ETH changed: %+v %v", got, err)
			}
			if _, err := s.Get(ctx, "BTC"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected BTC absent, got %v", err)
			}

			err = s.Update(ctx, []string{"ETH"}, func([]*types.PriceState) ([]*types.PriceState, error) {
				return []*types.PriceState{state(1, 1, 1), state(2, 2, 2)}, nil
			})
			if !errors.Is(err, ErrResultLength) {
				t.Errorf("expected ErrResultLength, got %v", err)
			}
		})
	}
}

func TestPriceStore_RejectsBadKeys(t *testing.T) {
	noop := func(cur []*types.PriceState) ([]*types.PriceState, error) { return cur, nil }
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			if err := s.Update(ctx, []string{"ETH", "ETH"}, noop); !errors.Is(err, ErrDuplicateKey) {
				t.Errorf("expected ErrDuplicateKey, got %v", err)
			}
			if err := s.Update(ctx, []string{""}, noop); !errors.Is(err, ErrEmptyKey) {
				t.Errorf("expected ErrEmptyKey, got %v", err)
			}
		})
	}
}

func TestPriceStore_ConcurrentIncrements(t *testing.T) {
	const (
		writers = 8
		rounds  = 50
	)
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			var wg sync.WaitGroup
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < rounds; i++ {
						err := s.Update(ctx, []string{"ETH", "BTC"}, func(cur []*types.PriceState) ([]*types.PriceState, error) {
							next := make([]*types.PriceState, len(cur))
							for j, st := range cur {
								n := uint64(0)
								if st != nil {
									n = st.Value.Uint64()
								}
								next[j] = state(n+1, n+1, n+1)
							}
							return next, nil
						})
						if err != nil {
							t.Errorf("update: %v", err)
							return
						}
					}
				}()
			}
			wg.Wait()

			for _, k := range []string{"ETH", "BTC"} {
				got, err := s.Get(ctx, k)
				if err != nil {
					t.Fatalf("get %s: %v", k, err)
				}
				if got.Value.Uint64() != writers*rounds {
					t.Errorf("%s: expected %d, got %d", k, writers*rounds, got.Value.Uint64())
				}
			}
		})
	}
}

func TestMemoryStore_CloseBehavior(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(ctx, WithInitialState(map[string]types.PriceState{"ETH": *state(7, 1, 1)}))

	if n := s.Count(ctx); n != 1 {
		t.Errorf("expected seeded count 1, got %d", n)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	err := s.Update(ctx, []string{"ETH"}, func(cur []*types.PriceState) ([]*types.PriceState, error) { return cur, nil })
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestMemoryStore_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewMemoryStore(ctx)
	defer s.Close()
	cancel()

	err := s.Update(ctx, []string{"ETH"}, func(cur []*types.PriceState) ([]*types.PriceState, error) { return cur, nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCodec_RoundTripsMaxValue(t *testing.T) {
	st := &types.PriceState{PackageTimestamp: 1707738270000, WriteTimestamp: 1707738271}
	st.Value.SetAllOne()

	raw, err := encodeState(st)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeState(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Value.Eq(&st.Value) || got.PackageTimestamp != st.PackageTimestamp || got.WriteTimestamp != st.WriteTimestamp {
		t.Errorf("round trip mismatch: %+v", got)
	}

	if _, err := decodeState([]byte{0xff, 0x00}); !errors.Is(err, ErrCorruptState) {
		t.Errorf("expected ErrCorruptState, got %v", err)
	}
}

func BenchmarkPriceStore_Update(b *testing.B) {
	for name, open := range drivers() {
		b.Run(name, func(b *testing.B) {
			ctx := context.Background()
			s := open(b)
			defer s.Close()
			keys := []string{"ETH", "BTC", "AVAX"}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ts := uint64(i + 1)
				err := s.Update(ctx, keys, func(cur []*types.PriceState) ([]*types.PriceState, error) {
					return []*types.PriceState{state(ts, ts, ts), state(ts, ts, ts), state(ts, ts, ts)}, nil
				})
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkPriceStore_ParallelDisjointFeeds(b *testing.B) {
	ctx := context.Background()
	s := NewMemoryStore(ctx)
	defer s.Close()

	b.RunParallel(func(pb *testing.PB) {
		key := uuid.NewString()
		i := uint64(0)
		for pb.Next() {
			i++
			_ = s.Update(ctx, []string{key}, func([]*types.PriceState) ([]*types.PriceState, error) {
				return []*types.PriceState{state(i, i, i)}, nil
			})
		}
	})
}
