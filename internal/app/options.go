package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/redstone/internal/adapters/repository"
	"github.com/okian/redstone/internal/config"
	"github.com/okian/redstone/internal/domain/chain"
	"github.com/okian/redstone/internal/domain/crypto"
	"github.com/okian/redstone/internal/domain/guard"
	"github.com/okian/redstone/internal/domain/types"
	"github.com/okian/redstone/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWriteTimeout bounds each queued write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.writeTimeout = d
		}
	}
}

// WithWorkerCount sets the number of submission workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued submissions.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the payload hash cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDedupeTTL sets how long an identical payload is refused.
func WithDedupeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.dedupeTTL = ttl
		}
	}
}

// WithStatusTTL sets how long submission statuses stay queryable.
func WithStatusTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.statusTTL = ttl
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the price store. The service closes it on Stop.
func WithStore(store repository.PriceStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithStrategy sets the host chain strategy.
func WithStrategy(st chain.Strategy) Option {
	return func(s *Service) {
		if st != nil {
			s.strategy = st
		}
	}
}

// WithBackend overrides the strategy's signature recovery backend.
func WithBackend(b crypto.Backend) Option {
	return func(s *Service) {
		if b != nil {
			s.backend = b
		}
	}
}

// WithSigners sets the authorised signers and the per-feed quorum.
func WithSigners(threshold uint8, signers ...types.Address) Option {
	return func(s *Service) {
		s.threshold = threshold
		s.signers = append([]types.Address(nil), signers...)
	}
}

// WithTimestampBounds sets the accepted package age and lead in milliseconds.
func WithTimestampBounds(maxDelayMs, maxAheadMs uint64) Option {
	return func(s *Service) {
		s.maxDelayMs = maxDelayMs
		s.maxAheadMs = maxAheadMs
	}
}

// WithParallelism sets how many signatures are recovered concurrently per payload.
func WithParallelism(n int) Option {
	return func(s *Service) {
		s.parallelism = n
	}
}

// WithGuard sets the write acceptance policy.
func WithGuard(g guard.Guard) Option {
	return func(s *Service) {
		s.guard = g
	}
}

// WithClearDroppedFeeds zeroes stored feeds that a write does not mention.
func WithClearDroppedFeeds(enabled bool) Option {
	return func(s *Service) {
		s.clearDropped = enabled
	}
}

// FromConfig translates a validated Config into service options. The store is
// opened here so the caller can report connection failures before serving.
func FromConfig(ctx context.Context, cfg *config.Config, chainOpts ...chain.Option) ([]Option, error) {
	strategy, backend, err := cfg.Strategy(chainOpts...)
	if err != nil {
		return nil, err
	}
	signers, err := cfg.SignerAddresses()
	if err != nil {
		return nil, err
	}
	g, err := cfg.Guard()
	if err != nil {
		return nil, err
	}
	store, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	return []Option{
		WithStrategy(strategy),
		WithBackend(backend),
		WithSigners(cfg.Oracle.SignerCountThreshold, signers...),
		WithTimestampBounds(cfg.Oracle.MaxTimestampDelayMs, cfg.Oracle.MaxTimestampAheadMs),
		WithParallelism(cfg.Oracle.Parallelism),
		WithGuard(g),
		WithClearDroppedFeeds(cfg.Adapter.ClearDroppedFeeds),
		WithStore(store),
		WithWorkerCount(cfg.Worker.Count),
		WithWriteTimeout(cfg.Worker.WriteTimeout),
		WithQueueSize(cfg.Queue.Size),
		WithDedupeSize(cfg.Dedupe.Size),
		WithDedupeTTL(cfg.Dedupe.TTL),
		WithStatusTTL(cfg.Dedupe.TTL),
	}, nil
}

// OpenStore opens the configured price store driver.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (repository.PriceStore, error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return repository.NewMemoryStore(ctx), nil
	case config.DriverBolt:
		return repository.NewBoltStore(cfg.BoltPath)
	case config.DriverRedis:
		return repository.NewRedisStore(repository.RedisConfig{
			Address: cfg.RedisAddr,
			DB:      cfg.RedisDB,
			Prefix:  cfg.RedisPrefix,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStorageDriver, cfg.Driver)
	}
}
