package repository

import "errors"

// Sentinel kinds for price store errors.
var (
	ErrNotFound     = errors.New("price state not found")
	ErrEmptyKey     = errors.New("empty feed key")
	ErrDuplicateKey = errors.New("feed key repeated in update")
	ErrResultLength = errors.New("update result does not match the key count")
	ErrCorruptState = errors.New("stored price state is corrupt")
	ErrClosed       = errors.New("price store closed")
)
