package config_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/redstone/internal/config"
	"github.com/okian/redstone/internal/domain/guard"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.HTTP.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Oracle.Signers, convey.ShouldResemble, config.DefaultSigners)
				convey.So(cfg.Adapter.ClearDroppedFeeds, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("REDSTONE_HTTP__ADDR", ":8080")
			_ = os.Setenv("REDSTONE_LOG_LEVEL", "debug")
			_ = os.Setenv("REDSTONE_ORACLE__SIGNERS", "0x1ea62d73edf8ac05dfcea1a34b9796e937a29eff,0x109b4a318a4f5ddcbca6349b45f881b4137deafb")
			_ = os.Setenv("REDSTONE_ORACLE__SIGNER_COUNT_THRESHOLD", "2")
			_ = os.Setenv("REDSTONE_ADAPTER__GUARD_MODE", "monotonic")
			_ = os.Setenv("REDSTONE_CHUNKS__RESULT_TTL", "30s")
			_ = os.Setenv("REDSTONE_WORKER__COUNT", "3")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.HTTP.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.Oracle.Signers, convey.ShouldHaveLength, 2)
				convey.So(cfg.Oracle.SignerCountThreshold, convey.ShouldEqual, 2)
				convey.So(cfg.Adapter.GuardMode, convey.ShouldEqual, guard.ModeMonotonic.String())
				convey.So(cfg.Chunks.ResultTTL, convey.ShouldEqual, 30*time.Second)
				convey.So(cfg.Worker.Count, convey.ShouldEqual, 3)
				convey.So(cfg.Queue.Size, convey.ShouldEqual, 10_000)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(`
http:
  addr: ":9090"
  rate_limit: 5
chain:
  name: stylus
storage:
  driver: bolt
  bolt_path: /tmp/redstone-test.db
oracle:
  signers:
    - "0x1ea62d73edf8ac05dfcea1a34b9796e937a29eff"
  signer_count_threshold: 1
adapter:
  min_interval_between_updates_ms: 1000
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv(config.EnvConfigPath, tmpFile)

			convey.Convey("Then it should load from the file", func() {
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.HTTP.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.HTTP.RateLimit, convey.ShouldEqual, 5)
				convey.So(cfg.HTTP.RateBurst, convey.ShouldEqual, 400)
				convey.So(cfg.Chain.Name, convey.ShouldEqual, "stylus")
				convey.So(cfg.Storage.Driver, convey.ShouldEqual, config.DriverBolt)
				convey.So(cfg.Oracle.Signers, convey.ShouldHaveLength, 1)
				convey.So(cfg.Adapter.MinIntervalBetweenUpdatesMs, convey.ShouldEqual, 1000)
			})

			convey.Convey("Then env vars still take precedence", func() {
				_ = os.Setenv("REDSTONE_HTTP__ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.HTTP.Addr, convey.ShouldEqual, ":7070")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv(config.EnvConfigPath, "/non/existent/file.yaml")
			_, err := config.Load(ctx)

			convey.Convey("Then it fails to load", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a value does not parse", func() {
			_ = os.Setenv("REDSTONE_WORKER__COUNT", "not_a_number")
			_, err := config.Load(ctx)

			convey.Convey("Then it fails to load", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the result is invalid", func() {
			_ = os.Setenv("REDSTONE_ORACLE__SIGNER_COUNT_THRESHOLD", "9")
			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, config.EnvPrefix) {
			_ = os.Unsetenv(name)
		}
	}
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "redstone-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	return f.Name()
}
