package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerOutput(t *testing.T) {
	convey.Convey("Given a json logger writing into a buffer", t, func() {
		var buf bytes.Buffer
		convey.So(InitWith(&buf, FormatJSON), convey.ShouldBeNil)
		ctx := context.Background()

		convey.Convey("Info records carry fields and the caller source", func() {
			Get().Info(ctx, "payload processed",
				Uint64("min_timestamp", 1707144580000),
				Hex("hash", []byte{0xde, 0xad}),
				Error(errors.New("boom")))

			out := buf.String()
			convey.So(out, convey.ShouldContainSubstring, `"msg":"payload processed"`)
			convey.So(out, convey.ShouldContainSubstring, `"min_timestamp":1707144580000`)
			convey.So(out, convey.ShouldContainSubstring, `"hash":"0xdead"`)
			convey.So(out, convey.ShouldContainSubstring, `"source":"logger_test.go`)
		})

		convey.Convey("Named loggers tag the component", func() {
			Named("decoder").Warn(ctx, "odd package")
			convey.So(buf.String(), convey.ShouldContainSubstring, `"component":"decoder"`)
		})

		convey.Convey("Debug is filtered at the default level", func() {
			Get().Debug(ctx, "hidden")
			convey.So(buf.String(), convey.ShouldBeEmpty)

			convey.So(SetLevelString("debug"), convey.ShouldBeNil)
			Get().Debug(ctx, "shown")
			convey.So(buf.String(), convey.ShouldContainSubstring, "shown")
		})
	})
}

func TestSetLevelString(t *testing.T) {
	convey.Convey("SetLevelString accepts known levels and rejects others", t, func() {
		for _, lvl := range []string{"debug", "INFO", " warn ", "warning", "error", ""} {
			convey.So(SetLevelString(lvl), convey.ShouldBeNil)
		}
		err := SetLevelString("verbose")
		convey.So(err, convey.ShouldNotBeNil)
		convey.So(strings.Contains(err.Error(), "verbose"), convey.ShouldBeTrue)
	})
}

func TestInitWithUnknownFormat(t *testing.T) {
	convey.Convey("An unknown format is rejected", t, func() {
		convey.So(InitWith(&bytes.Buffer{}, "xml"), convey.ShouldNotBeNil)
	})
}

func TestNop(t *testing.T) {
	convey.Convey("Nop logger swallows everything", t, func() {
		l := Nop().Named("x")
		convey.So(func() { l.Error(context.Background(), "nothing") }, convey.ShouldNotPanic)
	})
}
