// Package types contains the oracle data model shared across the application
package types

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

const (
	// AddressLength is the size of a signer address.
	AddressLength = 20
	// FeedIDLength is the width of a feed id on the wire.
	FeedIDLength = 32
)

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidFeedID  = errors.New("invalid feed id")
)

// Value is an opaque 256-bit unsigned price.
type Value = uint256.Int

// FeedID identifies a price series. It is the ASCII name packed big-endian
// with the trailing zero padding removed, so "ETH" is 0x455448.
type FeedID = uint256.Int

// FeedIDFromBytes builds a feed id from its wire form, dropping trailing zero bytes.
// Inputs longer than 32 bytes after stripping are rejected.
func FeedIDFromBytes(b []byte) (FeedID, error) {
	stripped := bytes.TrimRight(b, "\x00")
	if len(stripped) > FeedIDLength {
		return FeedID{}, fmt.Errorf("%w: %d bytes", ErrInvalidFeedID, len(stripped))
	}
	var id FeedID
	id.SetBytes(stripped)
	return id, nil
}

// FeedIDFromString converts a feed name such as "ETH" or "BTC/USD".
func FeedIDFromString(name string) (FeedID, error) {
	if name == "" {
		return FeedID{}, fmt.Errorf("%w: empty name", ErrInvalidFeedID)
	}
	return FeedIDFromBytes([]byte(name))
}

// MustFeedID is FeedIDFromString that panics; intended for constants and tests.
func MustFeedID(name string) FeedID {
	id, err := FeedIDFromString(name)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseFeedID accepts either a 0x-prefixed hex id or an ASCII feed name.
func ParseFeedID(s string) (FeedID, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits := s[2:]
		if len(digits)%2 == 1 {
			digits = "0" + digits
		}
		raw, err := hex.DecodeString(digits)
		if err != nil || len(raw) == 0 || len(raw) > FeedIDLength {
			return FeedID{}, fmt.Errorf("%w: %q", ErrInvalidFeedID, s)
		}
		var id FeedID
		id.SetBytes(raw)
		return id, nil
	}
	return FeedIDFromString(s)
}

// FeedName renders a feed id as ASCII, skipping non-printable bytes.
func FeedName(id *FeedID) string {
	raw := id.Bytes()
	var sb strings.Builder
	for _, c := range raw {
		if c >= 0x20 && c < 0x7f {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// PrintableName returns the ASCII form of id when every significant byte is
// printable. Unlike FeedName it never maps two ids to the same string.
func PrintableName(id *FeedID) (string, bool) {
	raw := id.Bytes()
	if len(raw) == 0 {
		return "", false
	}
	for _, c := range raw {
		if c < 0x20 || c >= 0x7f {
			return "", false
		}
	}
	return string(raw), true
}

// FeedWireBytes returns the 32-byte wire form of a feed id (left aligned, zero padded).
func FeedWireBytes(id *FeedID) [FeedIDLength]byte {
	var out [FeedIDLength]byte
	copy(out[:], id.Bytes())
	return out
}

// Address is a 20-byte Ethereum-style signer address.
type Address [AddressLength]byte

// ParseAddress decodes a hex address with or without 0x, in any case.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != AddressLength {
		return Address{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidAddress, AddressLength, len(raw))
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

// MustAddress is ParseAddress that panics.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) String() string { return a.Hex() }

// EqualFold compares two addresses byte by byte after ASCII lowercasing.
func (a Address) EqualFold(b Address) bool {
	for i := range a {
		if lower(a[i]) != lower(b[i]) {
			return false
		}
	}
	return true
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// DataPoint is a single attested value for one feed.
type DataPoint struct {
	FeedID FeedID
	Value  Value
}

// DataPackage is one signer's attestation. The current protocol carries exactly one point.
type DataPackage struct {
	Signer     Address
	Timestamp  uint64
	DataPoints []DataPoint
}

// Payload is the decoded list of packages, most recently appended first.
type Payload struct {
	DataPackages []DataPackage
}

// ProcessorResult is the outcome of processing one payload.
type ProcessorResult struct {
	MinTimestamp uint64
	Values       []Value
}

// PriceState is the persisted state of one feed. WriteTimestamp 0 means never written.
type PriceState struct {
	Value            Value
	PackageTimestamp uint64
	WriteTimestamp   uint64
}

// HasWrite reports whether the state carries a previous write time.
func (s PriceState) HasWrite() bool { return s.WriteTimestamp != 0 }
