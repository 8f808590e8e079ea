// Package chunks reassembles payloads too large for a single host call.
//
// A payload is split into at most MaxChunkNumber chunks and sent one chunk per
// call together with the Keccak-256 hash of the whole payload. Every call
// stores its chunk and checks whether the concatenation of the stored chunks
// hashes to the announced value. Until it does the call succeeds as pending;
// the call that completes the payload runs it through the price adapter.
package chunks

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/patrickmn/go-cache"

	"github.com/okian/redstone/internal/domain/chain"
	"github.com/okian/redstone/internal/domain/crypto"
	"github.com/okian/redstone/internal/domain/errs"
	"github.com/okian/redstone/internal/domain/types"
	"github.com/okian/redstone/pkg/logger"
	"github.com/okian/redstone/pkg/metrics"
)

// MaxChunkNumber is the number of chunk slots kept per payload hash.
const MaxChunkNumber = 8

// Mode selects what happens to a completed payload.
type Mode uint8

const (
	// ModeGet computes prices without storing them and caches the result per hash.
	ModeGet Mode = iota
	// ModeWrite stores prices through the adapter's guarded write path.
	ModeWrite
)

func (m Mode) String() string {
	if m == ModeWrite {
		return "write"
	}
	return "get"
}

// ParseMode parses "get" or "write", case insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "get", "":
		return ModeGet, nil
	case "write":
		return ModeWrite, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Prices is the part of the price adapter the relay forwards completed payloads to.
type Prices interface {
	GetPrices(ctx context.Context, feedIDs []types.FeedID, payload []byte) (types.ProcessorResult, error)
	WritePrices(ctx context.Context, sender types.Address, feedIDs []types.FeedID, payload []byte) (types.ProcessorResult, error)
	Strategy() chain.Strategy
}

// Chunk is one relay call.
type Chunk struct {
	Index   int
	Hash    []byte
	Data    []byte
	FeedIDs []types.FeedID
	Sender  types.Address
	Mode    Mode
}

// Result of one relay call. Pending is set while the stored chunks do not yet
// hash to the announced value; Timestamp and Values are then empty.
type Result struct {
	Pending   bool
	Timestamp uint64
	Values    []types.Value
}

type slots [MaxChunkNumber][]byte

// computed is one cached get result for a payload hash.
type computed struct {
	timestamp uint64
	feeds     []types.FeedID
	values    []types.Value
}

// Relay buffers chunks per payload hash.
type Relay struct {
	mu        sync.Mutex
	buffers   *lru.Cache[string, *slots]
	results   *cache.Cache
	prices    Prices
	capacity  int
	resultTTL time.Duration
	logger    logger.Logger
}

// New creates a Relay forwarding completed payloads to prices.
func New(prices Prices, opts ...Option) (*Relay, error) {
	r := &Relay{
		prices:    prices,
		capacity:  1024,
		resultTTL: 5 * time.Minute,
		logger:    logger.Get().Named("chunks"),
	}
	for _, opt := range opts {
		opt(r)
	}

	buffers, err := lru.New[string, *slots](r.capacity)
	if err != nil {
		return nil, fmt.Errorf("create chunk buffer: %w", err)
	}
	r.buffers = buffers
	r.results = cache.New(r.resultTTL, 2*r.resultTTL)
	return r, nil
}

// Len returns the number of payload hashes currently buffered.
func (r *Relay) Len() int {
	return r.buffers.Len()
}

// Stored returns the concatenation of the chunks buffered for hash.
func (r *Relay) Stored(hash []byte) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.buffers.Peek(hex.EncodeToString(hash))
	if !ok {
		return nil, false
	}
	return bytes.Join(s[:], nil), true
}

// Process stores c and, when the buffered chunks form the announced payload,
// processes it in c.Mode. An index outside the chunk slots fails with
// IndexRangeExceeded.
func (r *Relay) Process(ctx context.Context, c Chunk) (Result, error) {
	metrics.RecordChunkReceived()

	if c.Index < 0 || c.Index >= MaxChunkNumber {
		return Result{}, r.prices.Strategy().HostError(errs.IndexRangeExceeded(c.Index))
	}
	if len(c.Hash) == 0 {
		return Result{}, ErrEmptyHash
	}

	key := hex.EncodeToString(c.Hash)
	payload := r.store(key, c.Index, c.Data)
	if !bytes.Equal(crypto.Keccak256(payload), c.Hash) {
		return Result{Pending: true}, nil
	}

	metrics.RecordChunksCompleted()
	r.logger.Debug(ctx, "chunked payload complete",
		logger.String("hash", key),
		logger.String("mode", c.Mode.String()),
		logger.Int("bytes", len(payload)),
	)

	var (
		res types.ProcessorResult
		err error
	)
	if c.Mode == ModeWrite {
		res, err = r.prices.WritePrices(ctx, c.Sender, c.FeedIDs, payload)
	} else {
		res, err = r.getAndSave(ctx, key, c.FeedIDs, payload)
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Timestamp: res.MinTimestamp, Values: res.Values}, nil
}

// store sets one slot and returns the concatenated payload.
func (r *Relay) store(key string, index int, data []byte) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.buffers.Get(key)
	if !ok {
		s = new(slots)
	}
	s[index] = append([]byte(nil), data...)
	r.buffers.Add(key, s)
	metrics.UpdateChunkBuffersOpen(r.buffers.Len())

	return bytes.Join(s[:], nil)
}

// getAndSave answers from the newest cached result for key that covers every
// requested feed, computing and caching a fresh one otherwise. Cached results
// are served until the result TTL expires, even when the payload timestamps
// would no longer validate against the current block time.
func (r *Relay) getAndSave(ctx context.Context, key string, feedIDs []types.FeedID, payload []byte) (types.ProcessorResult, error) {
	var history []computed
	if v, ok := r.results.Get(key); ok {
		history = v.([]computed)
	}

	for i := len(history) - 1; i >= 0; i-- {
		if values, ok := history[i].project(feedIDs); ok {
			metrics.RecordChunkResultHit()
			return types.ProcessorResult{MinTimestamp: history[i].timestamp, Values: values}, nil
		}
	}
	metrics.RecordChunkResultMiss()

	res, err := r.prices.GetPrices(ctx, feedIDs, payload)
	if err != nil {
		return types.ProcessorResult{}, err
	}

	entry := computed{
		timestamp: res.MinTimestamp,
		feeds:     append([]types.FeedID(nil), feedIDs...),
		values:    append([]types.Value(nil), res.Values...),
	}
	r.mu.Lock()
	if v, ok := r.results.Get(key); ok {
		history = v.([]computed)
	}
	r.results.SetDefault(key, append(history[:len(history):len(history)], entry))
	r.mu.Unlock()

	return res, nil
}

// project returns the cached values for feedIDs, in feedIDs order, when every
// one of them was part of the cached computation.
func (c computed) project(feedIDs []types.FeedID) ([]types.Value, bool) {
	if len(feedIDs) == 0 {
		return nil, false
	}
	out := make([]types.Value, len(feedIDs))
	for i := range feedIDs {
		j := c.indexOf(&feedIDs[i])
		if j < 0 {
			return nil, false
		}
		out[i] = c.values[j]
	}
	return out, true
}

func (c computed) indexOf(id *types.FeedID) int {
	for i := range c.feeds {
		if c.feeds[i].Eq(id) {
			return i
		}
	}
	return -1
}
