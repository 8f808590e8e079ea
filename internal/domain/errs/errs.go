// Package errs defines the oracle error taxonomy.
//
// Every error carries a small numeric code that hosts surface verbatim, so the
// codes below are part of the protocol and must not change.
package errs

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// Sentinel kinds. Use errors.Is(err, errs.ErrTimestampTooOld) and friends.
var (
	ErrContract                  = errors.New("contract error")
	ErrNumberOverflow            = errors.New("number overflow")
	ErrArrayIsEmpty              = errors.New("array is empty")
	ErrCryptographic             = errors.New("cryptographic error")
	ErrSizeNotSupported          = errors.New("size not supported")
	ErrWrongRedStoneMarker       = errors.New("wrong redstone marker")
	ErrNonEmptyPayloadRemainder  = errors.New("non empty payload remainder")
	ErrInsufficientSignerCount   = errors.New("insufficient signer count")
	ErrTimestampTooOld           = errors.New("timestamp too old")
	ErrTimestampTooFuture        = errors.New("timestamp too future")
	ErrDataTimestampNotIncreased = errors.New("data timestamp not increased")
	ErrUpdateTooEarly            = errors.New("update too early")
)

const (
	codeNumberOverflow           = 509
	codeArrayIsEmpty             = 510
	codeWrongRedStoneMarker      = 511
	codeNonEmptyPayloadRemainder = 512
	codeSizeNotSupportedBase     = 600
	codeCryptographicBase        = 700
	codeTimestampTooOldBase      = 1000
	codeTimestampTooFutureBase   = 1050
	codeDataTimestampNotIncrease = 1101
	codeUpdateTooEarly           = 1102
	codeInsufficientSignersBase  = 2000
)

// Error is an oracle failure with a stable numeric code.
type Error struct {
	kind    error
	code    uint16
	message string
}

func (e *Error) Error() string { return e.message }

// Code returns the stable numeric code.
func (e *Error) Code() uint16 { return e.code }

// Unwrap exposes the sentinel kind to errors.Is.
func (e *Error) Unwrap() error { return e.kind }

// Code extracts the numeric code from err, looking through wrapping.
func Code(err error) (uint16, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.code, true
	}
	return 0, false
}

func newError(kind error, code int, format string, args ...any) *Error {
	return &Error{kind: kind, code: uint16(code), message: fmt.Sprintf(format, args...)}
}

// NumberOverflow reports a value that does not fit the target integer width.
// The value is rendered in decimal.
func NumberOverflow(value fmt.Stringer) *Error {
	return newError(ErrNumberOverflow, codeNumberOverflow, "Number overflow: %s", value)
}

func ArrayIsEmpty() *Error {
	return newError(ErrArrayIsEmpty, codeArrayIsEmpty, "Array is empty")
}

// CryptographicError reports a malformed signature, recovery byte or hash.
func CryptographicError(n int) *Error {
	return newError(ErrCryptographic, codeCryptographicBase+n, "Cryptographic Error: %d", n)
}

// SizeNotSupported reports an unsupported data point count.
func SizeNotSupported(n int) *Error {
	return newError(ErrSizeNotSupported, codeSizeNotSupportedBase+n, "Size not supported: %d", n)
}

func WrongRedStoneMarker(marker []byte) *Error {
	return newError(ErrWrongRedStoneMarker, codeWrongRedStoneMarker, "Wrong RedStone marker: %s", hex.EncodeToString(marker))
}

func NonEmptyPayloadRemainder(rest []byte) *Error {
	return newError(ErrNonEmptyPayloadRemainder, codeNonEmptyPayloadRemainder, "Non empty payload remainder: %s", hex.EncodeToString(rest))
}

// InsufficientSignerCount reports that feed #index collected only count values.
// feed is the ASCII rendering of the feed id.
func InsufficientSignerCount(index, count int, feed string) *Error {
	return newError(ErrInsufficientSignerCount, codeInsufficientSignersBase+index*10+count,
		"Insufficient signer count %d for #%d (%s)", count, index, feed)
}

func TimestampTooOld(index int, ts uint64) *Error {
	return newError(ErrTimestampTooOld, codeTimestampTooOldBase+index, "Timestamp %d is too old for #%d", ts, index)
}

func TimestampTooFuture(index int, ts uint64) *Error {
	return newError(ErrTimestampTooFuture, codeTimestampTooFutureBase+index, "Timestamp %d is too future for #%d", ts, index)
}

// DataTimestampMustBeGreaterThanBefore is raised when a package timestamp does not advance.
func DataTimestampMustBeGreaterThanBefore() *Error {
	return newError(ErrDataTimestampNotIncreased, codeDataTimestampNotIncrease, "Data timestamp must be greater than before")
}

// CurrentTimestampMustBeGreaterThanLatestUpdateTimestamp is raised when an untrusted
// updater writes before the minimum interval has elapsed.
func CurrentTimestampMustBeGreaterThanLatestUpdateTimestamp() *Error {
	return newError(ErrUpdateTooEarly, codeUpdateTooEarly, "Current timestamp must be greater than latest update timestamp")
}

// Contract builds a host-specific error with its own one-byte code.
func Contract(code uint8, message string) *Error {
	return newError(ErrContract, int(code), "Contract error: %s", message)
}
