package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/okian/redstone/internal/domain/types"
)

// ErrConflict is returned when optimistic retries are exhausted.
var ErrConflict = errors.New("price update lost too many races")

const redisMaxRetries = 64

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// RedisStore keeps one key per feed plus a set indexing the feeds. Update runs
// under WATCH on every touched key, so fn may be invoked again after a lost race
// and must not have side effects.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ PriceStore = (*RedisStore)(nil)

// NewRedisStore connects and pings the server.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Address == "" {
		cfg.Address = "localhost:6379"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "redstone"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, prefix: cfg.Prefix}, nil
}

func (s *RedisStore) priceKey(key string) string { return s.prefix + ":price:" + key }
func (s *RedisStore) indexKey() string           { return s.prefix + ":feeds" }

func (s *RedisStore) priceKeys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = s.priceKey(k)
	}
	return out
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Get implements PriceStore.Get.
func (s *RedisStore) Get(ctx context.Context, key string) (types.PriceState, error) {
	defer observeQuery(time.Now())

	raw, err := s.client.Get(ctx, s.priceKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.PriceState{}, ErrNotFound
	}
	if err != nil {
		return types.PriceState{}, fmt.Errorf("redis get %s: %w", key, err)
	}
	return decodeState(raw)
}

// GetMany implements PriceStore.GetMany.
func (s *RedisStore) GetMany(ctx context.Context, keys []string) ([]*types.PriceState, error) {
	defer observeQuery(time.Now())

	if len(keys) == 0 {
		return []*types.PriceState{}, nil
	}
	return s.mget(ctx, s.client, keys)
}

type mgetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func (s *RedisStore) mget(ctx context.Context, c mgetter, keys []string) ([]*types.PriceState, error) {
	vals, err := c.MGet(ctx, s.priceKeys(keys)...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	out := make([]*types.PriceState, len(keys))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		st, err := decodeState([]byte(str))
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", keys[i], err)
		}
		out[i] = &st
	}
	return out, nil
}

// Update implements PriceStore.Update.
func (s *RedisStore) Update(ctx context.Context, keys []string, fn UpdateFunc) error {
	return s.updateKeys(ctx, keys, false, fn)
}

// UpdateAll implements PriceStore.UpdateAll. The feed index is watched with the
// keys, so a feed added by another writer restarts the transaction.
func (s *RedisStore) UpdateAll(ctx context.Context, keys []string, fn UpdateFunc) error {
	return s.updateKeys(ctx, keys, true, fn)
}

func (s *RedisStore) updateKeys(ctx context.Context, keys []string, all bool, fn UpdateFunc) error {
	defer observeUpdate(time.Now())

	if err := checkKeys(keys); err != nil {
		return err
	}
	watched := s.priceKeys(keys)
	if all {
		watched = append(watched, s.indexKey())
	}

	txf := func(tx *redis.Tx) error {
		txKeys := keys
		if all {
			stored, err := tx.SMembers(ctx, s.indexKey()).Result()
			if err != nil {
				return fmt.Errorf("redis smembers: %w", err)
			}
			sort.Strings(stored)
			txKeys = appendMissing(keys, stored)
			if extra := s.priceKeys(txKeys[len(keys):]); len(extra) > 0 {
				if err := tx.Watch(ctx, extra...).Err(); err != nil {
					return fmt.Errorf("redis watch: %w", err)
				}
			}
		}

		current, err := s.mget(ctx, tx, txKeys)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if err := checkResult(txKeys, next); err != nil {
			return err
		}
		encoded := make([][]byte, len(txKeys))
		for i, st := range next {
			if st == nil {
				continue
			}
			if encoded[i], err = encodeState(st); err != nil {
				return fmt.Errorf("encode feed %s: %w", txKeys[i], err)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, k := range txKeys {
				if encoded[i] == nil {
					pipe.Del(ctx, s.priceKey(k))
					pipe.SRem(ctx, s.indexKey(), k)
					continue
				}
				pipe.Set(ctx, s.priceKey(k), encoded[i], 0)
				pipe.SAdd(ctx, s.indexKey(), k)
			}
			return nil
		})
		return err
	}

	for i := 0; i < redisMaxRetries; i++ {
		err := s.client.Watch(ctx, txf, watched...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return ErrConflict
}

// Keys implements PriceStore.Keys.
func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Count implements PriceStore.Count.
func (s *RedisStore) Count(ctx context.Context) int {
	n, err := s.client.SCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0
	}
	return int(n)
}
