// Package chain describes the host environments the oracle core can be embedded in.
// A Strategy is picked at runtime from configuration.
package chain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/redstone/internal/domain/crypto"
	"github.com/okian/redstone/internal/domain/errs"
	"github.com/okian/redstone/internal/domain/types"
)

// Built-in strategy names.
const (
	Casper   = "casper"
	Stylus   = "stylus"
	Solana   = "solana"
	Stellar  = "stellar"
	Radix    = "radix"
	Starknet = "starknet"
)

var ErrUnknownChain = errors.New("unknown chain")

// Strategy is the host specific glue around the core.
type Strategy interface {
	Name() string
	// Now returns the host clock in milliseconds.
	Now() uint64
	Backend() crypto.Backend
	// FeedKey returns the storage key of a feed.
	FeedKey(id *types.FeedID) string
	// HostError renders a core error the way the host reports reverts.
	HostError(err error) error
}

// Clock returns the current time.
type Clock func() time.Time

// Option configures a strategy returned by Lookup.
type Option func(*strategy)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *strategy) {
		if c != nil {
			s.clock = c
		}
	}
}

// HostError wraps a core error with its host specific rendering.
// errors.Is and errs.Code still see the core error.
type HostError struct {
	Chain   string
	Message string
	Err     error
}

func (e *HostError) Error() string { return e.Chain + ": " + e.Message }

func (e *HostError) Unwrap() error { return e.Err }

type feedKeyFunc func(id *types.FeedID) string

type strategy struct {
	name      string
	backend   crypto.Backend
	feedKey   feedKeyFunc
	render    func(code uint16, err error) string
	clock     Clock
	precision time.Duration
}

func (s *strategy) Name() string { return s.name }

func (s *strategy) Now() uint64 {
	now := s.clock()
	if s.precision > time.Millisecond {
		now = now.Truncate(s.precision)
	}
	return uint64(now.UnixMilli())
}

func (s *strategy) Backend() crypto.Backend { return s.backend }

func (s *strategy) FeedKey(id *types.FeedID) string { return s.feedKey(id) }

func (s *strategy) HostError(err error) error {
	if err == nil {
		return nil
	}
	code, ok := errs.Code(err)
	if !ok {
		return err
	}
	return &HostError{Chain: s.name, Message: s.render(code, err), Err: err}
}

// asciiKey keys printable feeds by name and falls back to the hex form.
func asciiKey(id *types.FeedID) string {
	if name, ok := types.PrintableName(id); ok {
		return name
	}
	return hexKey(id)
}

func hexKey(id *types.FeedID) string {
	b := types.FeedWireBytes(id)
	return "0x" + hex.EncodeToString(b[:])
}

type builder func() *strategy

var builtins = map[string]builder{
	// User error codes as returned by the Casper runtime.
	Casper: func() *strategy {
		return &strategy{
			name:    Casper,
			backend: crypto.DecredBackend{},
			feedKey: asciiKey,
			render:  func(code uint16, _ error) string { return fmt.Sprintf("User error: %d", code) },
		}
	},
	// Block timestamps are whole seconds.
	Stylus: func() *strategy {
		return &strategy{
			name:      Stylus,
			backend:   crypto.GethBackend{},
			feedKey:   hexKey,
			render:    func(_ uint16, err error) string { return "revert: " + err.Error() },
			precision: time.Second,
		}
	},
	Solana: func() *strategy {
		return &strategy{
			name:    Solana,
			backend: crypto.DecredBackend{},
			feedKey: hexKey,
			render:  func(code uint16, _ error) string { return fmt.Sprintf("custom program error: 0x%x", code) },
		}
	},
	// Ledger close times are whole seconds.
	Stellar: func() *strategy {
		return &strategy{
			name:      Stellar,
			backend:   crypto.GethBackend{},
			feedKey:   asciiKey,
			render:    func(code uint16, _ error) string { return fmt.Sprintf("Error(Contract, #%d)", code) },
			precision: time.Second,
		}
	},
	Radix: func() *strategy {
		return &strategy{
			name:    Radix,
			backend: crypto.DecredBackend{},
			feedKey: asciiKey,
			render:  func(_ uint16, err error) string { return "panicked at '" + err.Error() + "'" },
		}
	},
	Starknet: func() *strategy {
		return &strategy{
			name:    Starknet,
			backend: crypto.GethBackend{},
			feedKey: hexKey,
			render:  func(code uint16, _ error) string { return fmt.Sprintf("Failure reason: 0x%x", code) },
		}
	},
}

// Names lists the built-in strategies in sorted order.
func Names() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the built-in strategy called name (case-insensitive).
func Lookup(name string, opts ...Option) (Strategy, error) {
	build, ok := builtins[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChain, name)
	}
	s := build()
	s.clock = time.Now
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}
