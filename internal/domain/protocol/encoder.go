package protocol

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"

	gcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/okian/redstone/internal/domain/crypto"
	"github.com/okian/redstone/internal/domain/types"
)

var (
	ErrValueTooWide     = errors.New("value does not fit the declared size")
	ErrTooManyPackages  = errors.New("too many data packages")
	ErrMetadataTooLarge = errors.New("unsigned metadata too large")
)

// PackageSpec describes one data package to sign.
type PackageSpec struct {
	FeedID    types.FeedID
	Value     *uint256.Int
	Timestamp uint64
	// ValueSize defaults to DefaultValueSize.
	ValueSize int
}

// SignableBytes returns the bytes a signer signs for spec.
func SignableBytes(spec PackageSpec) ([]byte, error) {
	size := spec.ValueSize
	if size <= 0 {
		size = DefaultValueSize
	}
	value := spec.Value
	if value == nil {
		value = new(uint256.Int)
	}
	if value.ByteLen() > size || size > 32 {
		return nil, fmt.Errorf("%w: %d bytes into %d", ErrValueTooWide, value.ByteLen(), size)
	}

	feed := types.FeedWireBytes(&spec.FeedID)
	out := make([]byte, 0, signableSize(1, uint64(size)))
	out = append(out, feed[:]...)
	out = append(out, value.PaddedBytes(size)...)
	out = appendUint(out, spec.Timestamp, TimestampLength)
	out = appendUint(out, uint64(size), DataPointValueByteSizeLength)
	out = appendUint(out, 1, DataPointsCountLength)
	return out, nil
}

// SignPackage encodes spec and appends a signature made with key (v is 27 or 28).
func SignPackage(spec PackageSpec, key *ecdsa.PrivateKey) ([]byte, error) {
	signable, err := SignableBytes(spec)
	if err != nil {
		return nil, err
	}
	sig, err := gcrypto.Sign(crypto.Keccak256(signable), key)
	if err != nil {
		return nil, fmt.Errorf("sign data package: %w", err)
	}
	sig[SignatureLength-1] += 27
	return append(signable, sig...), nil
}

// EncodePayload joins signed packages, the package count, unsigned metadata and the marker.
func EncodePayload(packages [][]byte, unsignedMetadata []byte) ([]byte, error) {
	if len(packages) >= 1<<(8*DataPackagesCountLength) {
		return nil, fmt.Errorf("%w: %d", ErrTooManyPackages, len(packages))
	}
	if len(unsignedMetadata) >= 1<<(8*UnsignedMetadataSizeLength) {
		return nil, fmt.Errorf("%w: %d bytes", ErrMetadataTooLarge, len(unsignedMetadata))
	}

	var out []byte
	for _, p := range packages {
		out = append(out, p...)
	}
	out = appendUint(out, uint64(len(packages)), DataPackagesCountLength)
	out = append(out, unsignedMetadata...)
	out = appendUint(out, uint64(len(unsignedMetadata)), UnsignedMetadataSizeLength)
	return append(out, Marker[:]...), nil
}

func appendUint(dst []byte, v uint64, width int) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(dst, buf[8-width:]...)
}
