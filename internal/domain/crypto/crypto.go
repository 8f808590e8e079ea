// Package crypto derives signer addresses from RedStone data package signatures.
//
// The derivation is fixed: keccak256(message), secp256k1 public key recovery,
// keccak256(uncompressed key without its prefix byte), last 20 bytes. Only the
// recovery step is delegated to a Backend so hosts can pick an implementation.
package crypto

import (
	"golang.org/x/crypto/sha3"

	"github.com/okian/redstone/internal/domain/errs"
	"github.com/okian/redstone/internal/domain/types"
)

const (
	// SignatureLength is r || s || v.
	SignatureLength = 65
	// HashLength is the keccak256 digest size.
	HashLength = 32

	compactLength  = 64
	ecdsaVOffset   = 27
	maxRecoveryID  = 3
	uncompressedPK = 65
)

// Backend recovers an uncompressed 65-byte secp256k1 public key from a digest,
// the 64-byte compact signature r || s and a recovery id in [0, 3].
type Backend interface {
	Name() string
	RecoverPublicKey(hash, rs []byte, recoveryID byte) ([]byte, error)
}

// Keccak256 hashes data with the legacy (pre-NIST) Keccak-256.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}

// RecoverAddress returns the address that produced signature over message.
func RecoverAddress(backend Backend, message, signature []byte) (types.Address, error) {
	if len(signature) != SignatureLength {
		return types.Address{}, errs.CryptographicError(len(signature))
	}

	v := signature[compactLength]
	if v >= ecdsaVOffset {
		v -= ecdsaVOffset
	}
	if v > maxRecoveryID {
		return types.Address{}, errs.CryptographicError(int(v))
	}

	hash := Keccak256(message)
	key, err := backend.RecoverPublicKey(hash, signature[:compactLength], v)
	if err != nil || len(key) != uncompressedPK {
		return types.Address{}, errs.CryptographicError(len(hash))
	}
	return PublicKeyToAddress(key), nil
}

// PublicKeyToAddress converts an uncompressed public key into its address.
func PublicKeyToAddress(uncompressed []byte) types.Address {
	var addr types.Address
	copy(addr[:], Keccak256(uncompressed[1:])[HashLength-types.AddressLength:])
	return addr
}
