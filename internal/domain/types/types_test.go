package types_test

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/redstone/internal/domain/types"
)

func TestFeedID(t *testing.T) {
	Convey("Given feed names", t, func() {
		Convey("When converting ETH", func() {
			id := types.MustFeedID("ETH")

			Convey("Then it is the packed ASCII value", func() {
				So(id.Hex(), ShouldEqual, "0x455448")
				So(types.FeedName(&id), ShouldEqual, "ETH")
			})

			Convey("Then its wire form is left aligned and zero padded", func() {
				wire := types.FeedWireBytes(&id)
				So(wire[:3], ShouldResemble, []byte("ETH"))
				So(wire[3:], ShouldResemble, make([]byte, 29))
			})
		})

		Convey("When decoding a padded wire id", func() {
			wire := append([]byte("BTC"), make([]byte, 29)...)
			id, err := types.FeedIDFromBytes(wire)

			Convey("Then trailing zeros are stripped", func() {
				So(err, ShouldBeNil)
				So(types.FeedName(&id), ShouldEqual, "BTC")
				want := types.MustFeedID("BTC")
				So(id.Eq(&want), ShouldBeTrue)
			})
		})

		Convey("When an id holds unprintable bytes", func() {
			odd, err := types.ParseFeedID("0x01455448")
			So(err, ShouldBeNil)

			Convey("Then it has no printable name", func() {
				_, ok := types.PrintableName(&odd)
				So(ok, ShouldBeFalse)
				eth := types.MustFeedID("ETH")
				name, ok := types.PrintableName(&eth)
				So(ok, ShouldBeTrue)
				So(name, ShouldEqual, "ETH")
			})
		})

		Convey("When parsing hex and names", func() {
			fromHex, err := types.ParseFeedID("0x455448")
			So(err, ShouldBeNil)
			fromName, err := types.ParseFeedID(" ETH ")
			So(err, ShouldBeNil)
			So(fromHex.Eq(&fromName), ShouldBeTrue)
		})

		Convey("When the name is empty or too long", func() {
			_, err := types.FeedIDFromString("")
			So(errors.Is(err, types.ErrInvalidFeedID), ShouldBeTrue)

			_, err = types.FeedIDFromString("0123456789abcdef0123456789abcdef0")
			So(errors.Is(err, types.ErrInvalidFeedID), ShouldBeTrue)

			_, err = types.ParseFeedID("0xzz")
			So(errors.Is(err, types.ErrInvalidFeedID), ShouldBeTrue)
		})
	})
}

func TestAddress(t *testing.T) {
	Convey("Given hex addresses", t, func() {
		Convey("When parsing with and without prefix in mixed case", func() {
			a, err := types.ParseAddress("0x1ea62d73edf8ac05dfcea1a34b9796e937a29eff")
			So(err, ShouldBeNil)
			b, err := types.ParseAddress("1EA62D73EDF8AC05DFCEA1A34B9796E937A29EFF")
			So(err, ShouldBeNil)

			Convey("Then both decode to the same bytes", func() {
				So(a, ShouldResemble, b)
				So(a.Hex(), ShouldEqual, "0x1ea62d73edf8ac05dfcea1a34b9796e937a29eff")
			})
		})

		Convey("When the length is wrong", func() {
			_, err := types.ParseAddress("0x1234")
			So(errors.Is(err, types.ErrInvalidAddress), ShouldBeTrue)
		})

		Convey("When comparing bytes that differ only by ASCII case", func() {
			var a, b types.Address
			a[0], b[0] = 'A', 'a'
			So(a.EqualFold(b), ShouldBeTrue)
			b[1] = 0xff
			So(a.EqualFold(b), ShouldBeFalse)
		})
	})
}

func TestPriceState(t *testing.T) {
	Convey("A zero write timestamp means no previous write", t, func() {
		So(types.PriceState{}.HasWrite(), ShouldBeFalse)
		So(types.PriceState{WriteTimestamp: 1}.HasWrite(), ShouldBeTrue)
	})
}
