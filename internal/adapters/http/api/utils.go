package api

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/okian/redstone/internal/domain/types"
)

// feedList is a JSON array of feed ids, each an ASCII name or 0x-prefixed hex.
type feedList []string

func (f feedList) parse() ([]types.FeedID, error) {
	out := make([]types.FeedID, len(f))
	for i, s := range f {
		id, err := types.ParseFeedID(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%w: feed_ids[%d]: %w", ErrBadRequest, i, err)
		}
		out[i] = id
	}
	return out, nil
}

// parseFeedQuery splits a comma separated feed_ids query value.
func parseFeedQuery(raw string) ([]types.FeedID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: feed_ids is required", ErrBadRequest)
	}
	return feedList(strings.Split(raw, ",")).parse()
}

// parseSender prefers the header value over the body field. Both empty is the zero address.
func parseSender(header, field string) (types.Address, error) {
	raw := strings.TrimSpace(header)
	if raw == "" {
		raw = strings.TrimSpace(field)
	}
	if raw == "" {
		return types.Address{}, nil
	}
	a, err := types.ParseAddress(raw)
	if err != nil {
		return types.Address{}, fmt.Errorf("%w: sender: %w", ErrBadRequest, err)
	}
	return a, nil
}

func decimals(values []types.Value) []string {
	out := make([]string, len(values))
	for i := range values {
		out[i] = values[i].Dec()
	}
	return out
}

// payloadRequest is the body of POST /v1/prices/get, /v1/prices/write and /v1/submissions.
type payloadRequest struct {
	FeedIDs feedList      `json:"feed_ids"`
	Payload hexutil.Bytes `json:"payload"`
	Sender  string        `json:"sender,omitempty"`
}

type pricesResponse struct {
	Timestamp uint64   `json:"timestamp,omitempty"`
	Values    []string `json:"values"`
}

type priceDataResponse struct {
	FeedID           string `json:"feed_id"`
	Value            string `json:"value"`
	PackageTimestamp uint64 `json:"package_timestamp"`
	WriteTimestamp   uint64 `json:"write_timestamp"`
}

type timestampResponse struct {
	Timestamp uint64 `json:"timestamp"`
}
