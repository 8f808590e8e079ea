package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted           = errors.New("service not running")
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrEmptyPayload         = errors.New("empty payload")
	ErrUnknownStorageDriver = errors.New("unknown storage driver")
)
