package repository

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/okian/redstone/internal/domain/types"
)

// storedState is the persisted form of types.PriceState.
type storedState struct {
	Value            []byte
	PackageTimestamp uint64
	WriteTimestamp   uint64
}

func encodeState(s *types.PriceState) ([]byte, error) {
	return rlp.EncodeToBytes(storedState{
		Value:            s.Value.Bytes(),
		PackageTimestamp: s.PackageTimestamp,
		WriteTimestamp:   s.WriteTimestamp,
	})
}

func decodeState(b []byte) (types.PriceState, error) {
	var st storedState
	if err := rlp.DecodeBytes(b, &st); err != nil {
		return types.PriceState{}, fmt.Errorf("%w: %w", ErrCorruptState, err)
	}
	if len(st.Value) > 32 {
		return types.PriceState{}, fmt.Errorf("%w: value of %d bytes", ErrCorruptState, len(st.Value))
	}
	var out types.PriceState
	out.Value = *new(uint256.Int).SetBytes(st.Value)
	out.PackageTimestamp = st.PackageTimestamp
	out.WriteTimestamp = st.WriteTimestamp
	return out, nil
}
