package validator

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/okian/redstone/internal/domain/errs"
	"github.com/okian/redstone/internal/domain/types"
)

// FeedIndex returns the position of id in FeedIDs.
func (c Config) FeedIndex(id *types.FeedID) (int, bool) {
	for i := range c.FeedIDs {
		if c.FeedIDs[i].Eq(id) {
			return i, true
		}
	}
	return -1, false
}

// SignerIndex returns the position of signer in Signers, comparing case-insensitively.
func (c Config) SignerIndex(signer types.Address) (int, bool) {
	for i, s := range c.Signers {
		if s.EqualFold(signer) {
			return i, true
		}
	}
	return -1, false
}

// ValidateTimestamp accepts ts inside [block - delay, block + ahead] and returns it.
// index identifies the data package in error codes.
func (c Config) ValidateTimestamp(index int, ts uint64) (uint64, error) {
	if saturatingAdd(ts, c.MaxTimestampDelayMs) < c.BlockTimestamp {
		return 0, errs.TimestampTooOld(index, ts)
	}
	if ts > saturatingAdd(c.BlockTimestamp, c.MaxTimestampAheadMs) {
		return 0, errs.TimestampTooFuture(index, ts)
	}
	return ts, nil
}

// ValidateSignerCountThreshold drops missing cells of feed row index and
// requires at least SignerCountThreshold values to remain.
func (c Config) ValidateSignerCountThreshold(index int, row []*uint256.Int) ([]*uint256.Int, error) {
	values := make([]*uint256.Int, 0, len(row))
	for _, v := range row {
		if v != nil {
			values = append(values, v)
		}
	}
	if len(values) < int(c.SignerCountThreshold) {
		feed := ""
		if index >= 0 && index < len(c.FeedIDs) {
			feed = types.FeedName(&c.FeedIDs[index])
		}
		return nil, errs.InsufficientSignerCount(index, len(values), feed)
	}
	return values, nil
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
