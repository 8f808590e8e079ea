package chunks

import "errors"

var (
	// ErrEmptyHash is returned when a chunk carries no payload hash.
	ErrEmptyHash = errors.New("payload hash must not be empty")
	// ErrUnknownMode is returned by ParseMode for anything but get or write.
	ErrUnknownMode = errors.New("unknown chunk mode")
)
