// Package trim implements the tail-first cursor the payload decoder is built on.
//
// Every read removes bytes from the END of the buffer. Asking for more bytes
// than remain returns everything that is left and empties the cursor.
package trim

import (
	"math"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/okian/redstone/internal/domain/errs"
)

// Cursor is a byte buffer consumed from its end.
type Cursor struct {
	buf []byte
}

// New wraps b. The cursor never writes into b.
func New(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// Len returns the number of bytes left.
func (c *Cursor) Len() int { return len(c.buf) }

// Bytes returns the remaining bytes without consuming them.
func (c *Cursor) Bytes() []byte { return c.buf }

// Clone returns an independent cursor over the same remaining bytes.
func (c *Cursor) Clone() *Cursor {
	return &Cursor{buf: c.buf}
}

// TrimEnd removes and returns the last n bytes.
func (c *Cursor) TrimEnd(n int) []byte {
	if n < 0 {
		n = 0
	}
	if n >= len(c.buf) {
		out := c.buf
		c.buf = c.buf[:0]
		return out
	}
	cut := len(c.buf) - n
	out := c.buf[cut:]
	c.buf = c.buf[:cut:cut]
	return out
}

// TrimU256 reads the last n bytes as a big-endian unsigned integer.
// Widths above 32 bytes are accepted as long as the value fits.
func (c *Cursor) TrimU256(n int) (*uint256.Int, error) {
	return toU256(c.TrimEnd(n))
}

// TrimU64 reads the last n bytes as a big-endian uint64.
func (c *Cursor) TrimU64(n int) (uint64, error) {
	v, err := c.TrimU256(n)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, errs.NumberOverflow(v)
	}
	return v.Uint64(), nil
}

// TrimInt reads the last n bytes as a non-negative int.
func (c *Cursor) TrimInt(n int) (int, error) {
	v, err := c.TrimU256(n)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() || v.Uint64() > math.MaxInt {
		return 0, errs.NumberOverflow(v)
	}
	return int(v.Uint64()), nil
}

func toU256(b []byte) (*uint256.Int, error) {
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	b = b[i:]
	if len(b) > 32 {
		return nil, errs.NumberOverflow(new(big.Int).SetBytes(b))
	}
	return new(uint256.Int).SetBytes(b), nil
}
