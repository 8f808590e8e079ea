package repository

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/okian/redstone/internal/domain/types"
)

var pricesBucket = []byte("prices")

// BoltStore persists price state in a single bbolt file. bbolt serialises
// writers, so an Update holds every feed it names until commit.
type BoltStore struct {
	db           *bolt.DB
	databasePath string
}

var _ PriceStore = (*BoltStore)(nil)

// NewBoltStore opens (or creates) the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.Wrapf(err, "could not create directory %s", dir)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, errors.New("cannot obtain database lock, database may be in use by another process")
		}
		return nil, errors.Wrap(err, "could not open bolt database")
	}

	s := &BoltStore{db: db, databasePath: path}
	if err := s.update(func(tx *bolt.Tx) error {
		return createBuckets(tx, pricesBucket)
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// DatabasePath at which this database writes files.
func (s *BoltStore) DatabasePath() string {
	return s.databasePath
}

// Close closes the underlying boltdb database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) update(fn func(*bolt.Tx) error) error {
	return s.db.Update(fn)
}

func (s *BoltStore) view(fn func(*bolt.Tx) error) error {
	return s.db.View(fn)
}

func createBuckets(tx *bolt.Tx, buckets ...[]byte) error {
	for _, bucket := range buckets {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return err
		}
	}
	return nil
}

// Get implements PriceStore.Get.
func (s *BoltStore) Get(ctx context.Context, key string) (types.PriceState, error) {
	defer observeQuery(time.Now())

	var out types.PriceState
	err := s.view(func(tx *bolt.Tx) error {
		raw := tx.Bucket(pricesBucket).Get([]byte(key))
		if raw == nil {
			return ErrNotFound
		}
		st, err := decodeState(raw)
		if err != nil {
			return errors.Wrapf(err, "feed %s", key)
		}
		out = st
		return nil
	})
	return out, err
}

// GetMany implements PriceStore.GetMany.
func (s *BoltStore) GetMany(ctx context.Context, keys []string) ([]*types.PriceState, error) {
	defer observeQuery(time.Now())

	var out []*types.PriceState
	err := s.view(func(tx *bolt.Tx) error {
		var err error
		out, err = readStates(tx.Bucket(pricesBucket), keys)
		return err
	})
	return out, err
}

// Update implements PriceStore.Update.
func (s *BoltStore) Update(ctx context.Context, keys []string, fn UpdateFunc) error {
	return s.updateKeys(ctx, keys, false, fn)
}

// UpdateAll implements PriceStore.UpdateAll. The bucket is listed inside the
// write transaction.
func (s *BoltStore) UpdateAll(ctx context.Context, keys []string, fn UpdateFunc) error {
	return s.updateKeys(ctx, keys, true, fn)
}

func (s *BoltStore) updateKeys(ctx context.Context, keys []string, all bool, fn UpdateFunc) error {
	defer observeUpdate(time.Now())

	if err := checkKeys(keys); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(pricesBucket)
		if all {
			keys = appendMissing(keys, bucketKeys(bkt))
		}
		current, err := readStates(bkt, keys)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if err := checkResult(keys, next); err != nil {
			return err
		}
		for i, k := range keys {
			if next[i] == nil {
				if err := bkt.Delete([]byte(k)); err != nil {
					return errors.Wrapf(err, "could not delete feed %s", k)
				}
				continue
			}
			enc, err := encodeState(next[i])
			if err != nil {
				return errors.Wrapf(err, "could not encode feed %s", k)
			}
			if err := bkt.Put([]byte(k), enc); err != nil {
				return errors.Wrapf(err, "could not save feed %s", k)
			}
		}
		return nil
	})
}

// Keys implements PriceStore.Keys.
func (s *BoltStore) Keys(ctx context.Context) ([]string, error) {
	var out []string
	err := s.view(func(tx *bolt.Tx) error {
		out = bucketKeys(tx.Bucket(pricesBucket))
		return nil
	})
	return out, err
}

// bucketKeys lists the keys of bkt; bbolt iterates in byte order.
func bucketKeys(bkt *bolt.Bucket) []string {
	var out []string
	c := bkt.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		out = append(out, string(k))
	}
	return out
}

// Count implements PriceStore.Count.
func (s *BoltStore) Count(ctx context.Context) int {
	n := 0
	_ = s.view(func(tx *bolt.Tx) error {
		n = tx.Bucket(pricesBucket).Stats().KeyN
		return nil
	})
	return n
}

func readStates(bkt *bolt.Bucket, keys []string) ([]*types.PriceState, error) {
	out := make([]*types.PriceState, len(keys))
	for i, k := range keys {
		raw := bkt.Get([]byte(k))
		if raw == nil {
			continue
		}
		st, err := decodeState(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "feed %s", k)
		}
		out[i] = &st
	}
	return out, nil
}
