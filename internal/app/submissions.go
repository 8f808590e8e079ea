package service

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/okian/redstone/internal/domain/crypto"
	"github.com/okian/redstone/internal/domain/errs"
	"github.com/okian/redstone/internal/domain/model"
	"github.com/okian/redstone/internal/domain/types"
	"github.com/okian/redstone/pkg/logger"
	"github.com/okian/redstone/pkg/metrics"
)

// Submit queues a write. A payload already submitted within the dedupe TTL is
// not queued again; its original status is returned with duplicate set.
func (s *Service) Submit(ctx context.Context, sender types.Address, feedIDs []types.FeedID, payload []byte) (status model.SubmissionStatus, duplicate bool, err error) {
	// Held until the submission is queued so Stop cannot close the queue in between.
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.SubmissionStatus{}, false, ErrNotStarted
	}
	if len(payload) == 0 {
		return model.SubmissionStatus{}, false, ErrEmptyPayload
	}

	hash := "0x" + hex.EncodeToString(crypto.Keccak256(payload))
	id := uuid.NewString()
	if prev, seen := s.deduper.SeenAndRecord(ctx, hash, id); seen {
		metrics.RecordSubmissionDuplicate()
		st, ok := s.SubmissionStatus(prev)
		if !ok {
			st = model.SubmissionStatus{ID: prev, State: model.SubmissionQueued}
		}
		return st, true, nil
	}

	sub := model.Submission{
		ID:          id,
		PayloadHash: hash,
		Sender:      sender,
		FeedIDs:     append([]types.FeedID(nil), feedIDs...),
		Payload:     append([]byte(nil), payload...),
		ReceivedAt:  time.Now(),
	}
	status = s.setStatus(model.SubmissionStatus{ID: id, State: model.SubmissionQueued})

	if err := s.queue.Enqueue(ctx, sub); err != nil {
		s.deduper.Unrecord(ctx, hash)
		s.statuses.Delete(id)
		s.logger.Warn(ctx, "submission rejected", logger.String("hash", hash), logger.Error(err))
		return model.SubmissionStatus{}, false, err
	}
	metrics.RecordSubmissionAccepted()
	return status, false, nil
}

// SubmissionStatus returns the last known status of a submission.
func (s *Service) SubmissionStatus(id string) (model.SubmissionStatus, bool) {
	v, ok := s.statuses.Get(id)
	if !ok {
		return model.SubmissionStatus{}, false
	}
	return v.(model.SubmissionStatus), true
}

// WriteSubmission implements worker.Writer.
func (s *Service) WriteSubmission(ctx context.Context, sub model.Submission) error { //nolint:gocritic // hugeParam: matches the worker contract
	res, err := s.WritePrices(ctx, sub.Sender, sub.FeedIDs, sub.Payload)
	st := model.SubmissionStatus{ID: sub.ID, State: model.SubmissionWritten, Timestamp: res.MinTimestamp}
	if err != nil {
		st.State = model.SubmissionFailed
		st.Timestamp = 0
		st.Error = err.Error()
		if code, ok := errs.Code(err); ok {
			st.Code = code
		}
	}
	s.setStatus(st)
	return err
}

func (s *Service) setStatus(st model.SubmissionStatus) model.SubmissionStatus {
	st.UpdatedAt = time.Now()
	s.statuses.Set(st.ID, st, cache.DefaultExpiration)
	return st
}
