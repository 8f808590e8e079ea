// Package repository persists the per-feed price state written by the oracle.
package repository

import (
	"context"
	"sort"

	"github.com/okian/redstone/internal/domain/types"
)

// UpdateFunc receives the stored state of each key (nil when absent) and returns
// the states to persist, in the same order. A nil entry deletes the key.
// Returning an error aborts the update without writing anything.
type UpdateFunc func(current []*types.PriceState) ([]*types.PriceState, error)

// PriceStore provides read/write access to feed price state.
type PriceStore interface {
	// Get returns the state stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (types.PriceState, error)
	// GetMany returns one entry per key, nil for keys without state.
	GetMany(ctx context.Context, keys []string) ([]*types.PriceState, error)
	// Update runs fn while holding exclusive access to every key and applies its result atomically.
	Update(ctx context.Context, keys []string, fn UpdateFunc) error
	// UpdateAll is Update over keys followed by every other stored key in
	// ascending order. The stored keys are listed inside the same critical
	// section, so a key written concurrently is either listed or written after.
	UpdateAll(ctx context.Context, keys []string, fn UpdateFunc) error
	// Keys lists every stored key in ascending order.
	Keys(ctx context.Context) ([]string, error)
	// Count returns the number of stored keys.
	Count(ctx context.Context) int
	Close() error
}

// checkKeys rejects empty and repeated keys.
func checkKeys(keys []string) error {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			return ErrEmptyKey
		}
		if _, ok := seen[k]; ok {
			return ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}
	return nil
}

func checkResult(keys []string, next []*types.PriceState) error {
	if len(next) != len(keys) {
		return ErrResultLength
	}
	return nil
}

// appendMissing appends every element of extra not already in keys.
func appendMissing(keys, extra []string) []string {
	out := append([]string(nil), keys...)
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		seen[k] = struct{}{}
	}
	for _, k := range extra {
		if _, ok := seen[k]; !ok {
			out = append(out, k)
			seen[k] = struct{}{}
		}
	}
	return out
}

func sortedCopy(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	return out
}
