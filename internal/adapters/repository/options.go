package repository

import (
	"time"

	"github.com/okian/redstone/internal/domain/types"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithInitialState seeds the store before it starts serving.
func WithInitialState(states map[string]types.PriceState) Option {
	return func(s *MemoryStore) {
		for k, v := range states {
			s.byKey[k] = v
		}
	}
}
