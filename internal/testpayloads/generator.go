// Package testpayloads builds deterministic, correctly signed RedStone payloads
// and drives them against a running service.
package testpayloads

import (
	"crypto/ecdsa"
	"fmt"
	"slices"

	gcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/okian/redstone/internal/domain/protocol"
	"github.com/okian/redstone/internal/domain/types"
)

// Point is one signed observation: Signer indexes the key slice passed to Payload.
type Point struct {
	Feed   string
	Value  uint64
	Signer int
}

// Sample is a set of points sharing one timestamp.
type Sample struct {
	Timestamp uint64
	Points    []Point
	// ValueSize is the declared value width in bytes; zero means 32.
	ValueSize int
	Metadata  []byte
}

// Key returns the deterministic private key with index i; every byte equals i+1.
func Key(i int) (*ecdsa.PrivateKey, error) {
	if i < 0 || i > 0xfe {
		return nil, fmt.Errorf("key index %d out of range", i)
	}
	raw := make([]byte, 32)
	for j := range raw {
		raw[j] = byte(i + 1)
	}
	return gcrypto.ToECDSA(raw)
}

// Keys returns the first n deterministic keys.
func Keys(n int) ([]*ecdsa.PrivateKey, error) {
	keys := make([]*ecdsa.PrivateKey, n)
	for i := range keys {
		k, err := Key(i)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	return keys, nil
}

// Signers returns the addresses of keys in order.
func Signers(keys []*ecdsa.PrivateKey) []types.Address {
	out := make([]types.Address, len(keys))
	for i, k := range keys {
		out[i] = types.Address(gcrypto.PubkeyToAddress(k.PublicKey))
	}
	return out
}

// Spread returns a sample where signer i reports base[feed]+i for every feed.
// Feeds are emitted in sorted order so the payload is stable.
func Spread(timestamp uint64, base map[string]uint64, signers int) Sample {
	feeds := make([]string, 0, len(base))
	for f := range base {
		feeds = append(feeds, f)
	}
	slices.Sort(feeds)

	s := Sample{Timestamp: timestamp}
	for _, f := range feeds {
		for i := 0; i < signers; i++ {
			s.Points = append(s.Points, Point{Feed: f, Value: base[f] + uint64(i), Signer: i})
		}
	}
	return s
}

// SpreadMedian is the aggregate of a Spread feed with the given base and signer count.
func SpreadMedian(base uint64, signers int) uint64 {
	return base + uint64(signers-1)/2
}

// Payload signs every point with its signer's key and encodes the payload.
func (s Sample) Payload(keys []*ecdsa.PrivateKey) ([]byte, error) {
	packages := make([][]byte, 0, len(s.Points))
	for i, p := range s.Points {
		if p.Signer < 0 || p.Signer >= len(keys) {
			return nil, fmt.Errorf("point %d: no key for signer %d", i, p.Signer)
		}
		feed, err := types.FeedIDFromString(p.Feed)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		pkg, err := protocol.SignPackage(protocol.PackageSpec{
			FeedID:    feed,
			Value:     uint256.NewInt(p.Value),
			Timestamp: s.Timestamp,
			ValueSize: s.ValueSize,
		}, keys[p.Signer])
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		packages = append(packages, pkg)
	}
	return protocol.EncodePayload(packages, s.Metadata)
}
