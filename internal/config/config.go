// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Nested sections map to dotted koanf keys (oracle.signers, http.addr, ...).
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/okian/redstone/internal/domain/chain"
	"github.com/okian/redstone/internal/domain/crypto"
	"github.com/okian/redstone/internal/domain/guard"
	"github.com/okian/redstone/internal/domain/types"
	"github.com/okian/redstone/internal/domain/validator"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverBolt   = "bolt"
	DriverRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	HTTP    HTTPConfig    `koanf:"http"`
	Chain   ChainConfig   `koanf:"chain"`
	Oracle  OracleConfig  `koanf:"oracle"`
	Adapter AdapterConfig `koanf:"adapter"`
	Storage StorageConfig `koanf:"storage"`
	Chunks  ChunksConfig  `koanf:"chunks"`
	Queue   QueueConfig   `koanf:"queue"`
	Worker  WorkerConfig  `koanf:"worker"`
	Dedupe  DedupeConfig  `koanf:"dedupe"`
}

type HTTPConfig struct {
	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// RateLimit is the sustained requests per second; zero disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

type ChainConfig struct {
	// Name selects the host strategy: casper, stylus, solana, stellar, radix, starknet.
	Name string `koanf:"name"`
}

type OracleConfig struct {
	Signers              []string `koanf:"signers"`
	SignerCountThreshold uint8    `koanf:"signer_count_threshold"`
	MaxTimestampDelayMs  uint64   `koanf:"max_timestamp_delay_ms"`
	MaxTimestampAheadMs  uint64   `koanf:"max_timestamp_ahead_ms"`
	// Parallelism above 1 recovers signers concurrently.
	Parallelism int `koanf:"parallelism"`
	// CryptoBackend overrides the chain default: geth or decred.
	CryptoBackend string `koanf:"crypto_backend"`
}

type AdapterConfig struct {
	TrustedUpdaters             []string `koanf:"trusted_updaters"`
	MinIntervalBetweenUpdatesMs uint64   `koanf:"min_interval_between_updates_ms"`
	// GuardMode is cadence or monotonic.
	GuardMode string `koanf:"guard_mode"`
	// ClearDroppedFeeds zeroes stored feeds missing from a write.
	ClearDroppedFeeds bool `koanf:"clear_dropped_feeds"`
}

type StorageConfig struct {
	Driver    string `koanf:"driver"`
	BoltPath  string `koanf:"bolt_path"`
	RedisAddr string `koanf:"redis_addr"`
	RedisDB   int    `koanf:"redis_db"`
	// RedisPrefix namespaces every key the service writes.
	RedisPrefix string `koanf:"redis_prefix"`
}

type ChunksConfig struct {
	// Capacity bounds the number of payload hashes buffered at once.
	Capacity  int           `koanf:"capacity"`
	ResultTTL time.Duration `koanf:"result_ttl"`
}

type QueueConfig struct {
	Size int `koanf:"size"`
}

// WorkerConfig sizes the submission pool. WriteTimeout bounds one queued
// write; zero disables the bound.
type WorkerConfig struct {
	Count        int           `koanf:"count"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type DedupeConfig struct {
	Size int           `koanf:"size"`
	TTL  time.Duration `koanf:"ttl"`
}

// DefaultSigners is the RedStone primary production signer set.
var DefaultSigners = []string{
	"0x8BB8F32Df04c8b654987DAaeD53D6B6091e3B774",
	"0xdEB22f54738d54976C4c0fe5ce6d408E40d88499",
	"0x51Ce04Be4b3E32572C4Ec9135221d0691Ba7d202",
	"0xDD682daEC5A90dD295d14DA4b0bec9281017b5bE",
	"0x9c5AE89C4Af6aA32cE58588DBaF90d18a855B6de",
}

// New creates a Config with defaults. The context is reserved for loaders
// that need it and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		HTTP: HTTPConfig{
			Addr:         ":9080",
			RateLimit:    200,
			RateBurst:    400,
			MaxBodyBytes: 1 << 20,
		},
		Chain: ChainConfig{Name: chain.Casper},
		Oracle: OracleConfig{
			Signers:              append([]string(nil), DefaultSigners...),
			SignerCountThreshold: 3,
			MaxTimestampDelayMs:  validator.DefaultMaxTimestampDelayMs,
			MaxTimestampAheadMs:  validator.DefaultMaxTimestampAheadMs,
			Parallelism:          runtime.NumCPU(),
		},
		Adapter: AdapterConfig{
			MinIntervalBetweenUpdatesMs: 40_000,
			GuardMode:                   guard.ModeCadence.String(),
			ClearDroppedFeeds:           true,
		},
		Storage: StorageConfig{
			Driver:      DriverMemory,
			BoltPath:    "redstone.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "redstone",
		},
		Chunks: ChunksConfig{
			Capacity:  1024,
			ResultTTL: 5 * time.Minute,
		},
		Queue:  QueueConfig{Size: 10_000},
		Worker: WorkerConfig{Count: runtime.NumCPU(), WriteTimeout: 10 * time.Second},
		Dedupe: DedupeConfig{Size: 100_000, TTL: 10 * time.Minute},
	}
}

// SignerAddresses parses Oracle.Signers.
func (c *Config) SignerAddresses() ([]types.Address, error) {
	return parseAddresses("oracle.signers", c.Oracle.Signers)
}

// TrustedUpdaterAddresses parses Adapter.TrustedUpdaters.
func (c *Config) TrustedUpdaterAddresses() ([]types.Address, error) {
	return parseAddresses("adapter.trusted_updaters", c.Adapter.TrustedUpdaters)
}

// Guard builds the update policy.
func (c *Config) Guard() (guard.Guard, error) {
	mode, err := guard.ParseMode(c.Adapter.GuardMode)
	if err != nil {
		return guard.Guard{}, fmt.Errorf("%w: adapter.guard_mode: %w", ErrInvalidConfig, err)
	}
	trusted, err := c.TrustedUpdaterAddresses()
	if err != nil {
		return guard.Guard{}, err
	}
	return guard.Guard{
		Mode:            mode,
		MinInterval:     c.Adapter.MinIntervalBetweenUpdatesMs,
		TrustedUpdaters: trusted,
	}, nil
}

// Strategy resolves the configured chain, applying the crypto backend override.
func (c *Config) Strategy(opts ...chain.Option) (chain.Strategy, crypto.Backend, error) {
	s, err := chain.Lookup(c.Chain.Name, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: chain.name: %w", ErrInvalidConfig, err)
	}
	backend := s.Backend()
	if c.Oracle.CryptoBackend != "" {
		backend, err = crypto.BackendByName(c.Oracle.CryptoBackend)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: oracle.crypto_backend: %w", ErrInvalidConfig, err)
		}
	}
	return s, backend, nil
}

// Validate checks every field that would otherwise fail at first use.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("%w: http.addr must not be empty", ErrInvalidConfig)
	}
	signers, err := c.SignerAddresses()
	if err != nil {
		return err
	}
	if err := validator.VerifySigners(signers, c.Oracle.SignerCountThreshold); err != nil {
		return fmt.Errorf("%w: oracle: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Guard(); err != nil {
		return err
	}
	if _, _, err := c.Strategy(); err != nil {
		return err
	}
	switch c.Storage.Driver {
	case DriverMemory, DriverRedis:
	case DriverBolt:
		if c.Storage.BoltPath == "" {
			return fmt.Errorf("%w: storage.bolt_path must not be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage.driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	if c.Chunks.Capacity < 1 || c.Queue.Size < 1 || c.Worker.Count < 1 || c.Dedupe.Size < 1 {
		return fmt.Errorf("%w: chunks.capacity, queue.size, worker.count and dedupe.size must be positive", ErrInvalidConfig)
	}
	return nil
}

func parseAddresses(key string, raw []string) ([]types.Address, error) {
	out := make([]types.Address, 0, len(raw))
	for _, s := range raw {
		a, err := types.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
		out = append(out, a)
	}
	return out, nil
}
