package chunks_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/redstone/internal/adapters/chunks"
	"github.com/okian/redstone/internal/domain/chain"
	"github.com/okian/redstone/internal/domain/crypto"
	"github.com/okian/redstone/internal/domain/errs"
	"github.com/okian/redstone/internal/domain/types"
	"github.com/okian/redstone/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakePrices records what reaches the adapter and answers with one value per feed.
type fakePrices struct {
	mu       sync.Mutex
	strategy chain.Strategy
	gets     int
	writes   int
	payloads [][]byte
	fail     error
}

func newFakePrices() *fakePrices {
	s, err := chain.Lookup(chain.Casper)
	if err != nil {
		panic(err)
	}
	return &fakePrices{strategy: s}
}

func (f *fakePrices) result(feedIDs []types.FeedID) types.ProcessorResult {
	values := make([]types.Value, len(feedIDs))
	for i := range feedIDs {
		values[i] = feedIDs[i]
	}
	return types.ProcessorResult{MinTimestamp: 1707738270000, Values: values}
}

func (f *fakePrices) GetPrices(_ context.Context, feedIDs []types.FeedID, payload []byte) (types.ProcessorResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	f.payloads = append(f.payloads, payload)
	if f.fail != nil {
		return types.ProcessorResult{}, f.fail
	}
	return f.result(feedIDs), nil
}

func (f *fakePrices) WritePrices(_ context.Context, _ types.Address, feedIDs []types.FeedID, payload []byte) (types.ProcessorResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	f.payloads = append(f.payloads, payload)
	if f.fail != nil {
		return types.ProcessorResult{}, f.fail
	}
	return f.result(feedIDs), nil
}

func (f *fakePrices) Strategy() chain.Strategy { return f.strategy }

func split(payload []byte, size int) [][]byte {
	var out [][]byte
	for len(payload) > size {
		out = append(out, payload[:size])
		payload = payload[size:]
	}
	return append(out, payload)
}

func feeds(names ...string) []types.FeedID {
	out := make([]types.FeedID, len(names))
	for i, n := range names {
		out[i] = types.MustFeedID(n)
	}
	return out
}

func TestRelay(t *testing.T) {
	Convey("Given a relay and a payload split into four chunks", t, func() {
		ctx := context.Background()
		prices := newFakePrices()
		relay, err := chunks.New(prices, chunks.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)

		payload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
		hash := crypto.Keccak256(payload)
		parts := split(payload, 3)
		So(len(parts), ShouldEqual, 4)

		send := func(i int, mode chunks.Mode, ids []types.FeedID) (chunks.Result, error) {
			return relay.Process(ctx, chunks.Chunk{Index: i, Hash: hash, Data: parts[i], FeedIDs: ids, Mode: mode})
		}

		Convey("When the index is outside the chunk slots", func() {
			for _, index := range []int{8, 9, -1} {
				_, err := relay.Process(ctx, chunks.Chunk{Index: index, Hash: hash, Data: parts[0]})
				code, ok := errs.Code(err)
				So(ok, ShouldBeTrue)
				So(code, ShouldEqual, 230)
			}

			Convey("Then the error is rendered as a host revert", func() {
				_, err := relay.Process(ctx, chunks.Chunk{Index: 9, Hash: hash})
				So(err.Error(), ShouldEqual, "casper: User error: 230")
				So(relay.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the hash is empty", func() {
			_, err := relay.Process(ctx, chunks.Chunk{Index: 0, Data: parts[0]})

			Convey("Then the chunk is rejected", func() {
				So(errors.Is(err, chunks.ErrEmptyHash), ShouldBeTrue)
			})
		})

		Convey("When only some chunks arrived", func() {
			for _, i := range []int{2, 0, 1} {
				res, err := send(i, chunks.ModeWrite, feeds("ETH"))
				So(err, ShouldBeNil)
				So(res.Pending, ShouldBeTrue)
			}

			Convey("Then nothing is processed and the chunks are buffered", func() {
				So(prices.writes, ShouldEqual, 0)
				stored, ok := relay.Stored(hash)
				So(ok, ShouldBeTrue)
				So(stored, ShouldResemble, payload[:9])
				So(relay.Len(), ShouldEqual, 1)
			})
		})

		Convey("When every chunk arrives in any order in write mode", func() {
			order := rand.Perm(len(parts))
			var last chunks.Result
			for n, i := range order {
				res, err := send(i, chunks.ModeWrite, feeds("ETH", "BTC"))
				So(err, ShouldBeNil)
				if n < len(order)-1 {
					So(res.Pending, ShouldBeTrue)
				}
				last = res
			}

			Convey("Then the reassembled payload is written once", func() {
				So(last.Pending, ShouldBeFalse)
				So(last.Timestamp, ShouldEqual, 1707738270000)
				So(len(last.Values), ShouldEqual, 2)
				So(prices.writes, ShouldEqual, 1)
				So(prices.payloads[0], ShouldResemble, payload)
			})
		})

		Convey("When a chunk is overwritten with different bytes", func() {
			for i := range parts {
				_, err := send(i, chunks.ModeGet, feeds("ETH"))
				So(err, ShouldBeNil)
			}
			res, err := relay.Process(ctx, chunks.Chunk{Index: 1, Hash: hash, Data: []byte{0xff}, FeedIDs: feeds("ETH")})

			Convey("Then the mismatch is a silent pending result", func() {
				So(err, ShouldBeNil)
				So(res.Pending, ShouldBeTrue)
				So(prices.gets, ShouldEqual, 1)
			})
		})

		Convey("When get mode completes repeatedly", func() {
			for i := 0; i < len(parts)-1; i++ {
				_, err := send(i, chunks.ModeGet, feeds("ETH", "BTC"))
				So(err, ShouldBeNil)
			}
			first, err := send(len(parts)-1, chunks.ModeGet, feeds("ETH", "BTC"))
			So(err, ShouldBeNil)
			So(first.Pending, ShouldBeFalse)

			Convey("Then a request covered by the cached result is answered from it", func() {
				res, err := send(0, chunks.ModeGet, feeds("BTC"))
				So(err, ShouldBeNil)
				So(prices.gets, ShouldEqual, 1)
				So(len(res.Values), ShouldEqual, 1)
				btc := types.MustFeedID("BTC")
				So(res.Values[0].Eq(&btc), ShouldBeTrue)
			})

			Convey("Then a request for an uncovered feed is computed again", func() {
				_, err := send(0, chunks.ModeGet, feeds("ETH", "AVAX"))
				So(err, ShouldBeNil)
				So(prices.gets, ShouldEqual, 2)

				_, err = send(0, chunks.ModeGet, feeds("AVAX"))
				So(err, ShouldBeNil)
				So(prices.gets, ShouldEqual, 2)
			})

			Convey("Then write mode still reaches the adapter", func() {
				_, err := send(0, chunks.ModeWrite, feeds("ETH"))
				So(err, ShouldBeNil)
				So(prices.writes, ShouldEqual, 1)
			})
		})

		Convey("When the adapter rejects the completed payload", func() {
			prices.fail = errs.WrongRedStoneMarker([]byte{0, 0, 0})
			var err error
			for i := range parts {
				_, err = send(i, chunks.ModeGet, feeds("ETH"))
			}

			Convey("Then the error is returned and nothing is cached", func() {
				code, ok := errs.Code(err)
				So(ok, ShouldBeTrue)
				So(code, ShouldEqual, 511)

				prices.fail = nil
				_, err = send(0, chunks.ModeGet, feeds("ETH"))
				So(err, ShouldBeNil)
				So(prices.gets, ShouldEqual, 2)
			})
		})
	})
}

func TestRelayResultTTL(t *testing.T) {
	Convey("Given a relay with a short result TTL and a completed get", t, func() {
		ctx := context.Background()
		prices := newFakePrices()
		relay, err := chunks.New(prices, chunks.WithResultTTL(30*time.Millisecond), chunks.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)

		payload := []byte{9, 8, 7}
		chunk := chunks.Chunk{Index: 0, Hash: crypto.Keccak256(payload), Data: payload, FeedIDs: feeds("ETH")}
		_, err = relay.Process(ctx, chunk)
		So(err, ShouldBeNil)

		prices.fail = errs.TimestampTooOld(0, 1707738270000)

		Convey("Then the cached result is served while the adapter would now reject it", func() {
			res, err := relay.Process(ctx, chunk)
			So(err, ShouldBeNil)
			So(res.Timestamp, ShouldEqual, 1707738270000)
			So(prices.gets, ShouldEqual, 1)

			Convey("And after the TTL the payload is processed again", func() {
				time.Sleep(60 * time.Millisecond)
				_, err := relay.Process(ctx, chunk)
				So(err, ShouldNotBeNil)
				So(prices.gets, ShouldEqual, 2)
			})
		})
	})
}

func TestRelayCapacity(t *testing.T) {
	Convey("Given a relay holding a single buffer", t, func() {
		relay, err := chunks.New(newFakePrices(), chunks.WithCapacity(1), chunks.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)
		ctx := context.Background()

		_, err = relay.Process(ctx, chunks.Chunk{Index: 0, Hash: []byte{1}, Data: []byte{1}})
		So(err, ShouldBeNil)
		_, err = relay.Process(ctx, chunks.Chunk{Index: 0, Hash: []byte{2}, Data: []byte{2}})
		So(err, ShouldBeNil)

		Convey("Then the older hash is evicted", func() {
			So(relay.Len(), ShouldEqual, 1)
			_, ok := relay.Stored([]byte{1})
			So(ok, ShouldBeFalse)
			_, ok = relay.Stored([]byte{2})
			So(ok, ShouldBeTrue)
		})
	})
}

func TestParseMode(t *testing.T) {
	Convey("Given mode names", t, func() {
		m, err := chunks.ParseMode("WRITE")
		So(err, ShouldBeNil)
		So(m, ShouldEqual, chunks.ModeWrite)

		m, err = chunks.ParseMode("")
		So(err, ShouldBeNil)
		So(m, ShouldEqual, chunks.ModeGet)

		_, err = chunks.ParseMode("delete")
		So(errors.Is(err, chunks.ErrUnknownMode), ShouldBeTrue)
	})
}
