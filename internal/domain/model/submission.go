// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/redstone/internal/domain/types"
)

// Submission is a payload accepted for asynchronous writing.
type Submission struct {
	ID          string        // server assigned uuid
	PayloadHash string        // hex keccak256 of Payload, used for idempotency
	Sender      types.Address // updater the write is attributed to
	FeedIDs     []types.FeedID
	Payload     []byte
	ReceivedAt  time.Time
}

// SubmissionState is the lifecycle stage of a submission.
type SubmissionState string

const (
	SubmissionQueued  SubmissionState = "queued"
	SubmissionWritten SubmissionState = "written"
	SubmissionFailed  SubmissionState = "failed"
)

// SubmissionStatus is what clients poll after a 202.
type SubmissionStatus struct {
	ID        string          `json:"id"`
	State     SubmissionState `json:"state"`
	Code      uint16          `json:"code,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp uint64          `json:"timestamp,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Done reports whether the submission reached a terminal state.
func (s SubmissionStatus) Done() bool {
	return s.State == SubmissionWritten || s.State == SubmissionFailed
}
