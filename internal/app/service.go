// Package service wires the oracle core to price storage and exposes the
// operations the HTTP API depends on.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/okian/redstone/internal/adapters/mq/queue"
	"github.com/okian/redstone/internal/adapters/mq/worker"
	"github.com/okian/redstone/internal/adapters/repository"
	"github.com/okian/redstone/internal/domain/chain"
	"github.com/okian/redstone/internal/domain/crypto"
	"github.com/okian/redstone/internal/domain/dedupe"
	"github.com/okian/redstone/internal/domain/guard"
	"github.com/okian/redstone/internal/domain/processor"
	"github.com/okian/redstone/internal/domain/protocol"
	"github.com/okian/redstone/internal/domain/types"
	"github.com/okian/redstone/internal/domain/validator"
	"github.com/okian/redstone/pkg/logger"
	"github.com/okian/redstone/pkg/metrics"
)

// Service is the price adapter of one host deployment.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.PriceStore
	processor *processor.Processor
	strategy  chain.Strategy
	backend   crypto.Backend
	guard     guard.Guard

	// Oracle configuration
	signers      []types.Address
	threshold    uint8
	maxDelayMs   uint64
	maxAheadMs   uint64
	parallelism  int
	clearDropped bool

	// Async submissions
	deduper  dedupe.Deduper
	queue    *queue.InMemoryQueue
	pool     *worker.Pool
	statuses *cache.Cache

	workerCount  int
	writeTimeout time.Duration
	queueSize    int
	dedupeSize   int
	dedupeTTL    time.Duration
	statusTTL    time.Duration

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. Price operations work immediately; submissions
// need Start.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		maxDelayMs:  validator.DefaultMaxTimestampDelayMs,
		maxAheadMs:  validator.DefaultMaxTimestampAheadMs,
		parallelism: 1,
		workerCount: runtime.NumCPU(),
		queueSize:   10000,
		dedupeSize:  100000,
		dedupeTTL:   10 * time.Minute,
		statusTTL:   10 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if err := validator.VerifySigners(s.signers, s.threshold); err != nil {
		return nil, err
	}
	if s.strategy == nil {
		st, err := chain.Lookup(chain.Casper)
		if err != nil {
			return nil, err
		}
		s.strategy = st
	}
	if s.backend == nil {
		s.backend = s.strategy.Backend()
	}

	s.processor = processor.New(protocol.NewDecoder(
		protocol.WithBackend(s.backend),
		protocol.WithParallelism(s.parallelism),
	))
	if s.store == nil {
		s.store = repository.NewMemoryStore(context.Background())
	}
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
		dedupe.WithTTL(s.dedupeTTL),
	)
	s.statuses = cache.New(s.statusTTL, s.statusTTL)
	return s, nil
}

// Start launches the submission queue and worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting price adapter",
		logger.String("chain", s.strategy.Name()),
		logger.String("backend", s.backend.Name()),
		logger.String("guard", s.guard.Mode.String()),
	)

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s,
		worker.WithLogger(s.logger.Named("worker")),
		worker.WithWriteTimeout(s.writeTimeout),
	)
	// Workers outlive ctx so that Stop can drain what was accepted.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "price adapter started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("signers", len(s.signers)),
		logger.Int("threshold", int(s.threshold)),
	)
	return nil
}

// Stop refuses new submissions, drains the queued ones, then closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	if s.started {
		s.logger.Info(ctx, "stopping price adapter...")
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
		s.cancel()
		s.started = false
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "closing price store", logger.Error(err))
		}
		s.store = nil
	}
	s.logger.Info(ctx, "price adapter stopped")
}

// Strategy returns the host chain strategy.
func (s *Service) Strategy() chain.Strategy { return s.strategy }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"chain":       s.strategy.Name(),
		"backend":     s.backend.Name(),
		"guardMode":   s.guard.Mode.String(),
		"signerCount": len(s.signers),
		"threshold":   int(s.threshold),
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"dedupeCount": s.deduper.Size(),
	}
	if s.store != nil {
		feeds := s.store.Count(ctx)
		stats["feedsStored"] = feeds
		metrics.UpdateFeedsStored(feeds)
	}
	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["busyWorkers"] = s.pool.Busy()
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}
	return stats
}
