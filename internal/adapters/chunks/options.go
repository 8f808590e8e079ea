package chunks

import (
	"time"

	"github.com/okian/redstone/pkg/logger"
)

// Option applies a configuration option to the Relay.
type Option func(*Relay)

// WithCapacity bounds how many payload hashes are buffered at once.
// The least recently touched buffer is evicted first.
func WithCapacity(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithResultTTL sets how long computed get results stay reusable. A cached
// result is not checked against the block time again, so it can be up to ttl
// older than a fresh computation would allow.
func WithResultTTL(ttl time.Duration) Option {
	return func(r *Relay) {
		if ttl > 0 {
			r.resultTTL = ttl
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(r *Relay) {
		if l != nil {
			r.logger = l
		}
	}
}
