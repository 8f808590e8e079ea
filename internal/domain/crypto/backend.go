package crypto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	gcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	BackendGeth   = "geth"
	BackendDecred = "decred"
)

var (
	ErrUnknownBackend = errors.New("unknown crypto backend")
	ErrInvalidInput   = errors.New("invalid recovery input")
)

// GethBackend recovers keys with go-ethereum's secp256k1 bindings.
type GethBackend struct{}

func (GethBackend) Name() string { return BackendGeth }

func (GethBackend) RecoverPublicKey(hash, rs []byte, recoveryID byte) ([]byte, error) {
	if len(hash) != HashLength || len(rs) != compactLength {
		return nil, ErrInvalidInput
	}
	sig := make([]byte, SignatureLength)
	copy(sig, rs)
	sig[compactLength] = recoveryID
	return gcrypto.Ecrecover(hash, sig)
}

// DecredBackend recovers keys with the pure Go decred secp256k1 implementation.
type DecredBackend struct{}

func (DecredBackend) Name() string { return BackendDecred }

func (DecredBackend) RecoverPublicKey(hash, rs []byte, recoveryID byte) ([]byte, error) {
	if len(hash) != HashLength || len(rs) != compactLength {
		return nil, ErrInvalidInput
	}
	// decred expects the recovery code first, offset by 27, uncompressed key flag unset.
	compact := make([]byte, SignatureLength)
	compact[0] = ecdsaVOffset + recoveryID
	copy(compact[1:], rs)

	pub, _, err := ecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, err
	}
	return pub.SerializeUncompressed(), nil
}

// BackendByName resolves "geth" or "decred".
func BackendByName(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BackendGeth:
		return GethBackend{}, nil
	case BackendDecred:
		return DecredBackend{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// Default is the backend used when none is injected.
func Default() Backend { return GethBackend{} }
