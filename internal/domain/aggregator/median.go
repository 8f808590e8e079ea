// Package aggregator reduces the values attested by several signers to one value per feed.
package aggregator

import (
	"slices"

	"github.com/holiman/uint256"

	"github.com/okian/redstone/internal/domain/errs"
)

// Median returns the median of values. Even-sized inputs average the two central
// values without overflowing 256 bits. The input slice is not modified.
func Median(values []*uint256.Int) (*uint256.Int, error) {
	switch len(values) {
	case 0:
		return nil, errs.ArrayIsEmpty()
	case 1:
		return new(uint256.Int).Set(values[0]), nil
	case 2:
		return Avg(values[0], values[1]), nil
	case 3:
		return new(uint256.Int).Set(middleOfThree(values[0], values[1], values[2])), nil
	}

	sorted := slices.Clone(values)
	slices.SortFunc(sorted, func(a, b *uint256.Int) int { return a.Cmp(b) })

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return Avg(sorted[mid-1], sorted[mid]), nil
	}
	return new(uint256.Int).Set(sorted[mid]), nil
}

// Avg computes (a>>1) + (b>>1) + ((a%2 + b%2)>>1), which equals floor((a+b)/2)
// and never wraps.
func Avg(a, b *uint256.Int) *uint256.Int {
	half := new(uint256.Int).Rsh(a, 1)
	half.Add(half, new(uint256.Int).Rsh(b, 1))

	carry := uint256.NewInt(a.Uint64()&1 + b.Uint64()&1)
	carry.Rsh(carry, 1)
	return half.Add(half, carry)
}

func middleOfThree(a, b, c *uint256.Int) *uint256.Int {
	if between(a, b, c) {
		return b
	}
	if between(b, a, c) {
		return a
	}
	return c
}

// between reports whether mid lies between lo and hi in either order.
func between(lo, mid, hi *uint256.Int) bool {
	return (!mid.Lt(lo) && !mid.Gt(hi)) || (!mid.Lt(hi) && !mid.Gt(lo))
}
