package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/redstone/internal/adapters/repository"
	"github.com/okian/redstone/internal/domain/errs"
	"github.com/okian/redstone/internal/domain/types"
	"github.com/okian/redstone/internal/domain/validator"
	"github.com/okian/redstone/pkg/logger"
	"github.com/okian/redstone/pkg/metrics"
)

// GetPrices processes payload against the host clock without touching storage.
func (s *Service) GetPrices(ctx context.Context, feedIDs []types.FeedID, payload []byte) (types.ProcessorResult, error) {
	res, _, err := s.process("get", feedIDs, payload)
	if err != nil {
		return types.ProcessorResult{}, s.strategy.HostError(err)
	}
	return res, nil
}

// WritePrices processes payload and stores one value per feed. The guard runs
// for every feed it touches, and either all feeds are written or none is.
// With dropped-feed clearing on, stored feeds absent from feedIDs are reset to
// zero at the same package timestamp.
func (s *Service) WritePrices(ctx context.Context, sender types.Address, feedIDs []types.FeedID, payload []byte) (types.ProcessorResult, error) {
	res, now, err := s.process("write", feedIDs, payload)
	if err != nil {
		return types.ProcessorResult{}, s.strategy.HostError(err)
	}

	keys := s.feedKeys(feedIDs)
	written := len(keys)
	update := s.store.Update
	if s.clearDropped {
		update = s.store.UpdateAll
	}

	touched := written
	err = update(ctx, keys, func(current []*types.PriceState) ([]*types.PriceState, error) {
		touched = len(current)
		next := make([]*types.PriceState, len(current))
		for i, prev := range current {
			if err := s.guard.Check(sender, now, prev, res.MinTimestamp); err != nil {
				return nil, err
			}
			st := &types.PriceState{PackageTimestamp: res.MinTimestamp, WriteTimestamp: now}
			if i < written {
				st.Value = res.Values[i]
			}
			next[i] = st
		}
		return next, nil
	})
	if err != nil {
		if code, ok := errs.Code(err); ok {
			metrics.RecordGuardRejection(code)
			metrics.RecordPayloadError("write", code)
			return types.ProcessorResult{}, s.strategy.HostError(err)
		}
		return types.ProcessorResult{}, fmt.Errorf("write prices: %w", err)
	}

	metrics.RecordPricesWritten(written)
	s.logger.Debug(ctx, "prices written",
		logger.String("sender", sender.Hex()),
		logger.Int("feeds", written),
		logger.Int("cleared", touched-written),
		logger.Uint64("packageTimestamp", res.MinTimestamp),
	)
	return res, nil
}

// ReadPrices returns the stored values in feedIDs order. A feed never written,
// or cleared, fails with MissingDataFeedValue for its index.
func (s *Service) ReadPrices(ctx context.Context, feedIDs []types.FeedID) ([]types.Value, error) {
	states, err := s.store.GetMany(ctx, s.feedKeys(feedIDs))
	if err != nil {
		return nil, fmt.Errorf("read prices: %w", err)
	}
	out := make([]types.Value, len(feedIDs))
	for i, st := range states {
		if st == nil || st.Value.IsZero() {
			return nil, s.strategy.HostError(errs.MissingDataFeedValue(i, types.FeedName(&feedIDs[i])))
		}
		out[i] = st.Value
	}
	return out, nil
}

// ReadTimestamp returns the newest stored package timestamp, zero when nothing was written.
func (s *Service) ReadTimestamp(ctx context.Context) (uint64, error) {
	keys, err := s.store.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("read timestamp: %w", err)
	}
	states, err := s.store.GetMany(ctx, keys)
	if err != nil {
		return 0, fmt.Errorf("read timestamp: %w", err)
	}
	var latest uint64
	for _, st := range states {
		if st != nil && st.PackageTimestamp > latest {
			latest = st.PackageTimestamp
		}
	}
	return latest, nil
}

// ReadPriceData returns the full stored state of one feed.
func (s *Service) ReadPriceData(ctx context.Context, feedID types.FeedID) (types.PriceState, error) {
	st, err := s.store.Get(ctx, s.strategy.FeedKey(&feedID))
	if errors.Is(err, repository.ErrNotFound) || (err == nil && st.Value.IsZero()) {
		return types.PriceState{}, s.strategy.HostError(errs.MissingDataFeedValue(0, types.FeedName(&feedID)))
	}
	if err != nil {
		return types.PriceState{}, fmt.Errorf("read price data: %w", err)
	}
	return st, nil
}

// process runs the core pipeline and returns the host time it used.
func (s *Service) process(op string, feedIDs []types.FeedID, payload []byte) (types.ProcessorResult, uint64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	now := s.strategy.Now()
	if len(feedIDs) == 0 {
		err := errs.ArrayIsEmpty()
		metrics.RecordPayloadError(op, err.Code())
		return types.ProcessorResult{}, now, err
	}

	res, err := s.processor.ProcessPayload(s.validatorConfig(feedIDs, now), payload)
	if err != nil {
		code, _ := errs.Code(err)
		metrics.RecordPayloadError(op, code)
		return types.ProcessorResult{}, now, err
	}
	metrics.RecordPayloadProcessed(op)
	return res, now, nil
}

func (s *Service) validatorConfig(feedIDs []types.FeedID, now uint64) validator.Config {
	return validator.NewConfig(s.threshold, s.signers, feedIDs, now,
		validator.WithMaxTimestampDelay(s.maxDelayMs),
		validator.WithMaxTimestampAhead(s.maxAheadMs),
	)
}

func (s *Service) feedKeys(feedIDs []types.FeedID) []string {
	keys := make([]string, len(feedIDs))
	for i := range feedIDs {
		keys[i] = s.strategy.FeedKey(&feedIDs[i])
	}
	return keys
}
