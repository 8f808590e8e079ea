package testpayloads

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/redstone/internal/domain/protocol"
	"github.com/okian/redstone/internal/domain/types"
)

func TestKeys(t *testing.T) {
	Convey("Keys are deterministic and distinct", t, func() {
		a, err := Keys(3)
		So(err, ShouldBeNil)
		b, err := Keys(3)
		So(err, ShouldBeNil)
		So(Signers(a), ShouldResemble, Signers(b))

		signers := Signers(a)
		So(signers[0], ShouldNotResemble, signers[1])
		So(signers[1], ShouldNotResemble, signers[2])
	})

	Convey("Indexes outside a byte are rejected", t, func() {
		_, err := Key(-1)
		So(err, ShouldNotBeNil)
		_, err = Key(255)
		So(err, ShouldNotBeNil)
	})
}

func TestSpreadPayload(t *testing.T) {
	Convey("Given a spread sample over three signers", t, func() {
		keys, err := Keys(3)
		So(err, ShouldBeNil)
		sample := Spread(1707738270000, map[string]uint64{"ETH": 100, "BTC": 200}, 3)
		So(sample.Points, ShouldHaveLength, 6)
		So(sample.Points[0].Feed, ShouldEqual, "BTC")
		So(SpreadMedian(100, 3), ShouldEqual, 101)
		So(SpreadMedian(100, 4), ShouldEqual, 101)

		Convey("The payload decodes to one package per point, last first", func() {
			raw, err := sample.Payload(keys)
			So(err, ShouldBeNil)

			payload, err := protocol.Decode(raw)
			So(err, ShouldBeNil)
			So(payload.DataPackages, ShouldHaveLength, 6)

			last := payload.DataPackages[0]
			So(types.FeedName(&last.DataPoints[0].FeedID), ShouldEqual, "ETH")
			So(last.DataPoints[0].Value.Uint64(), ShouldEqual, 102)
			So(last.Signer, ShouldResemble, Signers(keys)[2])
			So(last.Timestamp, ShouldEqual, 1707738270000)
		})

		Convey("A point without a key fails", func() {
			sample.Points[0].Signer = 3
			_, err := sample.Payload(keys)
			So(err, ShouldNotBeNil)
		})
	})
}
