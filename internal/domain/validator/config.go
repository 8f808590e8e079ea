// Package validator holds the per-call processing configuration and the checks it drives.
package validator

import (
	"github.com/okian/redstone/internal/domain/errs"
	"github.com/okian/redstone/internal/domain/types"
)

const (
	// DefaultMaxTimestampDelayMs is how far a package may lag the block time.
	DefaultMaxTimestampDelayMs uint64 = 15 * 60 * 1000
	// DefaultMaxTimestampAheadMs is how far a package may lead the block time.
	DefaultMaxTimestampAheadMs uint64 = 3 * 60 * 1000
)

// Config is built fresh for every processing call and never mutated during it.
type Config struct {
	SignerCountThreshold uint8
	Signers              []types.Address
	// FeedIDs defines the order of the aggregated values.
	FeedIDs             []types.FeedID
	BlockTimestamp      uint64
	MaxTimestampDelayMs uint64
	MaxTimestampAheadMs uint64
}

// Option overrides a Config default.
type Option func(*Config)

// WithMaxTimestampDelay overrides the staleness bound in milliseconds.
func WithMaxTimestampDelay(ms uint64) Option {
	return func(c *Config) { c.MaxTimestampDelayMs = ms }
}

// WithMaxTimestampAhead overrides the clock drift bound in milliseconds.
func WithMaxTimestampAhead(ms uint64) Option {
	return func(c *Config) { c.MaxTimestampAheadMs = ms }
}

// NewConfig builds a Config with protocol default time bounds.
func NewConfig(threshold uint8, signers []types.Address, feedIDs []types.FeedID, blockTimestamp uint64, opts ...Option) Config {
	c := Config{
		SignerCountThreshold: threshold,
		Signers:              signers,
		FeedIDs:              feedIDs,
		BlockTimestamp:       blockTimestamp,
		MaxTimestampDelayMs:  DefaultMaxTimestampDelayMs,
		MaxTimestampAheadMs:  DefaultMaxTimestampAheadMs,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Verify checks the signer set: non-empty, no duplicates, threshold within its size.
func (c Config) Verify() error {
	return VerifySigners(c.Signers, c.SignerCountThreshold)
}

// VerifySigners is the signer configuration check hosts run before storing a signer set.
func VerifySigners(signers []types.Address, threshold uint8) error {
	if len(signers) == 0 {
		return errs.SignersMustNotBeEmpty()
	}
	if int(threshold) > len(signers) {
		return errs.WrongSignerCountThresholdValue(threshold)
	}
	for i := range signers {
		for j := i + 1; j < len(signers); j++ {
			if signers[i].EqualFold(signers[j]) {
				return errs.DuplicateSigner(signers[i].Hex())
			}
		}
	}
	return nil
}
