package main

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/redstone/internal/testpayloads"
)

// defaultFeeds are used when no --feed is given.
var defaultFeeds = []string{"ETH=250000000000", "BTC=4800000000000"}

var (
	// URLFlag is the base URL of the service.
	URLFlag = &cli.StringFlag{
		Name:    "url",
		Usage:   "Base URL of the service",
		Value:   "http://localhost:9080",
		EnvVars: []string{"REDSTONE_URL"},
	}
	// FeedFlag is a feed and the base value its signers report around.
	FeedFlag = &cli.StringSliceFlag{
		Name:  "feed",
		Usage: "Feed and base value as NAME=VALUE; signer i reports VALUE+i (default: ETH and BTC)",
	}
	// SignersFlag is how many deterministic test keys sign.
	SignersFlag = &cli.IntFlag{
		Name:  "signers",
		Usage: "Number of deterministic test keys signing every point",
		Value: 5,
	}
	TimestampFlag = &cli.Uint64Flag{
		Name:  "timestamp",
		Usage: "Package timestamp in milliseconds (default: now)",
	}
	MetadataFlag = &cli.StringFlag{
		Name:  "metadata",
		Usage: "Unsigned metadata appended to the payload",
	}
	OutputFlag = &cli.StringFlag{
		Name:  "output",
		Usage: "Write the hex payload to this file instead of stdout",
	}
	RoundsFlag = &cli.IntFlag{
		Name:  "rounds",
		Usage: "Number of write rounds",
		Value: 3,
	}
	IntervalFlag = &cli.DurationFlag{
		Name:  "interval",
		Usage: "Pause between rounds; must respect the service update interval",
		Value: time.Second,
	}
	GetsFlag = &cli.IntFlag{
		Name:  "gets",
		Usage: "Stateless get requests per round",
		Value: 100,
	}
	WorkersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "Concurrent get workers",
		Value: 8,
	}
	ModeFlag = &cli.StringFlag{
		Name:  "mode",
		Usage: "How rounds are written: write, submit or chunks",
		Value: testpayloads.ModeWrite,
	}
	ChunksFlag = &cli.IntFlag{
		Name:  "chunks",
		Usage: "Number of chunks in chunks mode (at most 8)",
		Value: 2,
	}
	UpdaterFlag = &cli.StringFlag{
		Name:  "updater",
		Usage: "Address sent as X-Updater with writes",
	}
	TimeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "HTTP request timeout",
		Value: 30 * time.Second,
	}
	VerboseFlag = &cli.BoolFlag{
		Name:  "verbose",
		Usage: "Log every verified round",
	}
)
