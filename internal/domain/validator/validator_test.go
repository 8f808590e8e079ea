package validator_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/redstone/internal/domain/errs"
	"github.com/okian/redstone/internal/domain/types"
	"github.com/okian/redstone/internal/domain/validator"
)

const (
	blockTimestamp = 2000000000000
	signer1        = "1ea62d73edf8ac05dfcea1a34b9796e937a29eff"
	signer2        = "109b4a318a4f5ddcbca6349b45f881b4137deafb"
)

func testConfig() validator.Config {
	return validator.NewConfig(2,
		[]types.Address{types.MustAddress(signer1), types.MustAddress(signer2)},
		[]types.FeedID{types.MustFeedID("ETH"), types.MustFeedID("BTC")},
		blockTimestamp)
}

func row(values ...int) []*uint256.Int {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		if v >= 0 {
			out[i] = uint256.NewInt(uint64(v))
		}
	}
	return out
}

func TestIndexes(t *testing.T) {
	Convey("Given the test configuration", t, func() {
		cfg := testConfig()

		Convey("Feed indexes follow the configured order", func() {
			eth, btc, avax := types.MustFeedID("ETH"), types.MustFeedID("BTC"), types.MustFeedID("AVAX")
			i, ok := cfg.FeedIndex(&eth)
			So(ok, ShouldBeTrue)
			So(i, ShouldEqual, 0)

			i, ok = cfg.FeedIndex(&btc)
			So(ok, ShouldBeTrue)
			So(i, ShouldEqual, 1)

			_, ok = cfg.FeedIndex(&avax)
			So(ok, ShouldBeFalse)

			wrong := uint256.NewInt(0x778680)
			_, ok = cfg.FeedIndex(wrong)
			So(ok, ShouldBeFalse)
		})

		Convey("Signer indexes ignore hex case", func() {
			i, ok := cfg.SignerIndex(types.MustAddress(strings.ToUpper(signer1)))
			So(ok, ShouldBeTrue)
			So(i, ShouldEqual, 0)

			i, ok = cfg.SignerIndex(types.MustAddress(signer2))
			So(ok, ShouldBeTrue)
			So(i, ShouldEqual, 1)

			_, ok = cfg.SignerIndex(types.MustAddress(strings.ReplaceAll(signer2, "0", "1")))
			So(ok, ShouldBeFalse)
		})
	})
}

func TestValidateTimestamp(t *testing.T) {
	Convey("Given the test configuration", t, func() {
		cfg := testConfig()
		delay, ahead := validator.DefaultMaxTimestampDelayMs, validator.DefaultMaxTimestampAheadMs

		Convey("Timestamps inside the window pass unchanged", func() {
			for i, ts := range []uint64{blockTimestamp, blockTimestamp + 60000, blockTimestamp + ahead, blockTimestamp - delay, blockTimestamp - 60000} {
				got, err := cfg.ValidateTimestamp(i, ts)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, ts)
			}
		})

		Convey("One millisecond past the ahead bound is too future", func() {
			_, err := cfg.ValidateTimestamp(0, blockTimestamp+ahead+1)
			So(err.Error(), ShouldEqual, "Timestamp 2000000180001 is too future for #0")
			So(errors.Is(err, errs.ErrTimestampTooFuture), ShouldBeTrue)
		})

		Convey("One millisecond before the delay bound is too old", func() {
			_, err := cfg.ValidateTimestamp(1, blockTimestamp-delay-1)
			So(err.Error(), ShouldEqual, "Timestamp 1999999099999 is too old for #1")
			code, _ := errs.Code(err)
			So(code, ShouldEqual, 1001)
		})

		Convey("Zero is too old", func() {
			_, err := cfg.ValidateTimestamp(2, 0)
			So(err.Error(), ShouldEqual, "Timestamp 0 is too old for #2")
		})

		Convey("Far future timestamps are too future", func() {
			_, err := cfg.ValidateTimestamp(3, 2*blockTimestamp)
			So(err.Error(), ShouldEqual, "Timestamp 4000000000000 is too future for #3")
			code, _ := errs.Code(err)
			So(code, ShouldEqual, 1053)
		})

		Convey("A zero block timestamp rejects real timestamps as future", func() {
			cfg.BlockTimestamp = 0
			_, err := cfg.ValidateTimestamp(4, blockTimestamp)
			So(err.Error(), ShouldEqual, "Timestamp 2000000000000 is too future for #4")
		})

		Convey("Overrides change the window", func() {
			narrow := validator.NewConfig(1, cfg.Signers, cfg.FeedIDs, blockTimestamp,
				validator.WithMaxTimestampDelay(10), validator.WithMaxTimestampAhead(5))
			_, err := narrow.ValidateTimestamp(0, blockTimestamp-10)
			So(err, ShouldBeNil)
			_, err = narrow.ValidateTimestamp(0, blockTimestamp-11)
			So(errors.Is(err, errs.ErrTimestampTooOld), ShouldBeTrue)
			_, err = narrow.ValidateTimestamp(0, blockTimestamp+6)
			So(errors.Is(err, errs.ErrTimestampTooFuture), ShouldBeTrue)
		})

		Convey("Maximal values do not wrap around", func() {
			huge := validator.NewConfig(1, cfg.Signers, cfg.FeedIDs, ^uint64(0))
			_, err := huge.ValidateTimestamp(0, ^uint64(0))
			So(err, ShouldBeNil)
		})
	})
}

func TestValidateSignerCountThreshold(t *testing.T) {
	Convey("Given the test configuration with threshold 2", t, func() {
		cfg := testConfig()

		Convey("An empty row fails for ETH", func() {
			_, err := cfg.ValidateSignerCountThreshold(0, nil)
			So(err.Error(), ShouldEqual, "Insufficient signer count 0 for #0 (ETH)")
			code, _ := errs.Code(err)
			So(code, ShouldEqual, 2000)
		})

		Convey("A single value fails for BTC", func() {
			_, err := cfg.ValidateSignerCountThreshold(1, row(1))
			So(err.Error(), ShouldEqual, "Insufficient signer count 1 for #1 (BTC)")
			code, _ := errs.Code(err)
			So(code, ShouldEqual, 2011)
		})

		Convey("Missing cells do not count", func() {
			_, err := cfg.ValidateSignerCountThreshold(1, row(-1, 1, -1))
			So(err.Error(), ShouldEqual, "Insufficient signer count 1 for #1 (BTC)")
		})

		Convey("Rows meeting the threshold keep their present values in order", func() {
			for _, c := range []struct {
				in   []*uint256.Int
				want []uint64
			}{
				{row(1, 2), []uint64{1, 2}},
				{row(-1, 1, -1, 2), []uint64{1, 2}},
				{row(1, -1, -1, 2, 3, -1, 4, -1), []uint64{1, 2, 3, 4}},
			} {
				for threshold := 0; threshold <= len(c.want); threshold++ {
					cfg.SignerCountThreshold = uint8(threshold)
					got, err := cfg.ValidateSignerCountThreshold(0, c.in)
					So(err, ShouldBeNil)
					So(got, ShouldHaveLength, len(c.want))
					for i, v := range got {
						So(v.Uint64(), ShouldEqual, c.want[i])
					}
				}
			}
		})
	})
}

func TestVerifySigners(t *testing.T) {
	Convey("Given signer sets", t, func() {
		a, b := types.MustAddress(signer1), types.MustAddress(signer2)

		Convey("A valid set passes", func() {
			So(validator.VerifySigners([]types.Address{a, b}, 2), ShouldBeNil)
			So(testConfig().Verify(), ShouldBeNil)
		})

		Convey("An empty set fails with code 241", func() {
			code, _ := errs.Code(validator.VerifySigners(nil, 0))
			So(code, ShouldEqual, 241)
		})

		Convey("A threshold above the set size fails with code 240", func() {
			err := validator.VerifySigners([]types.Address{a}, 2)
			code, _ := errs.Code(err)
			So(code, ShouldEqual, 240)
			So(err.Error(), ShouldEqual, "Contract error: Wrong signer count threshold value: 2")
		})

		Convey("Duplicates are rejected", func() {
			err := validator.VerifySigners([]types.Address{a, b, a}, 1)
			So(errors.Is(err, errs.ErrContract), ShouldBeTrue)
		})
	})
}
