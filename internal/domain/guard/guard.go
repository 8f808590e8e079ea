// Package guard decides whether a freshly processed price may overwrite the
// stored state of a feed. It never performs the write itself.
package guard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/redstone/internal/domain/errs"
	"github.com/okian/redstone/internal/domain/types"
)

// Trust classifies the caller of a write.
type Trust int

const (
	Untrusted Trust = iota
	Trusted
)

func (t Trust) String() string {
	if t == Trusted {
		return "trusted"
	}
	return "untrusted"
}

// VerifierFor returns Trusted when sender is one of trusted.
func VerifierFor(sender types.Address, trusted []types.Address) Trust {
	for _, t := range trusted {
		if t.EqualFold(sender) {
			return Trusted
		}
	}
	return Untrusted
}

// VerifyTimestamp applies the update cadence rules in order:
//
//  1. newPackage must be strictly greater than lastPackage;
//  2. for untrusted callers with a previous write, now must be strictly after
//     lastWrite and at least minInterval milliseconds past it.
//
// nil pointers mean the feed has no previous value of that kind.
func VerifyTimestamp(trust Trust, now uint64, lastWrite *uint64, minInterval uint64, lastPackage *uint64, newPackage uint64) error {
	if lastPackage != nil && newPackage <= *lastPackage {
		return errs.DataTimestampMustBeGreaterThanBefore()
	}
	if trust == Trusted || lastWrite == nil {
		return nil
	}
	if now <= *lastWrite || now-*lastWrite < minInterval {
		return errs.CurrentTimestampMustBeGreaterThanLatestUpdateTimestamp()
	}
	return nil
}

// Mode selects the rule set a Guard enforces.
type Mode int

const (
	// ModeCadence enforces VerifyTimestamp.
	ModeCadence Mode = iota
	// ModeMonotonic only requires the package timestamp to grow, for every caller.
	ModeMonotonic
)

var ErrUnknownMode = errors.New("unknown guard mode")

func (m Mode) String() string {
	switch m {
	case ModeCadence:
		return "cadence"
	case ModeMonotonic:
		return "monotonic"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "cadence" or "monotonic"; the empty string is cadence.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cadence":
		return ModeCadence, nil
	case "monotonic":
		return ModeMonotonic, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Guard holds the per-deployment update policy.
type Guard struct {
	Mode            Mode
	MinInterval     uint64
	TrustedUpdaters []types.Address
}

// Check decides whether sender may replace prev with a value attested at newPackage.
// now is the host clock in milliseconds; prev is nil for a feed never written.
func (g Guard) Check(sender types.Address, now uint64, prev *types.PriceState, newPackage uint64) error {
	if g.Mode == ModeMonotonic {
		if prev != nil && newPackage <= prev.PackageTimestamp {
			return errs.TimestampMustBeGreaterThanBefore()
		}
		return nil
	}

	var lastWrite, lastPackage *uint64
	if prev != nil {
		lastPackage = &prev.PackageTimestamp
		if prev.HasWrite() {
			lastWrite = &prev.WriteTimestamp
		}
	}
	return VerifyTimestamp(VerifierFor(sender, g.TrustedUpdaters), now, lastWrite, g.MinInterval, lastPackage, newPackage)
}
