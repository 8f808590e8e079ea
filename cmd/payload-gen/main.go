// Command payload-gen builds signed RedStone payloads from deterministic test
// keys and drives them against a running oracle service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/okian/redstone/internal/testpayloads"
	"github.com/okian/redstone/pkg/logger"
)

const filePermission = 0o600

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func newApp() *cli.App {
	// StringSliceFlag keeps parsed values on the flag; each app gets its own copy.
	feed := *FeedFlag

	app := &cli.App{}
	app.Name = "payload-gen"
	app.Usage = "generates signed RedStone payloads and exercises an oracle service"
	app.Before = func(*cli.Context) error {
		return logger.Init()
	}
	app.Commands = []*cli.Command{
		{
			Name:   "signers",
			Usage:  "prints the addresses of the deterministic test keys, for oracle.signers",
			Flags:  []cli.Flag{SignersFlag},
			Action: printSigners,
		},
		{
			Name:   "generate",
			Usage:  "writes one signed payload as 0x-prefixed hex",
			Flags:  []cli.Flag{&feed, SignersFlag, TimestampFlag, MetadataFlag, OutputFlag},
			Action: generate,
		},
		{
			Name:  "run",
			Usage: "writes rounds of fresh payloads and verifies the stored medians",
			Flags: []cli.Flag{
				URLFlag, &feed, SignersFlag, RoundsFlag, IntervalFlag, GetsFlag,
				WorkersFlag, ModeFlag, ChunksFlag, UpdaterFlag, TimeoutFlag, VerboseFlag,
			},
			Action: run,
		},
	}
	return app
}

func printSigners(cliCtx *cli.Context) error {
	keys, err := testpayloads.Keys(cliCtx.Int(SignersFlag.Name))
	if err != nil {
		return err
	}
	for _, a := range testpayloads.Signers(keys) {
		fmt.Fprintln(cliCtx.App.Writer, a.Hex())
	}
	return nil
}

func generate(cliCtx *cli.Context) error {
	feeds, err := feedsFrom(cliCtx)
	if err != nil {
		return err
	}
	signers := cliCtx.Int(SignersFlag.Name)
	keys, err := testpayloads.Keys(signers)
	if err != nil {
		return err
	}

	ts := cliCtx.Uint64(TimestampFlag.Name)
	if ts == 0 {
		ts = uint64(time.Now().UnixMilli())
	}
	sample := testpayloads.Spread(ts, feeds, signers)
	sample.Metadata = []byte(cliCtx.String(MetadataFlag.Name))

	payload, err := sample.Payload(keys)
	if err != nil {
		return err
	}
	out := hexutil.Encode(payload)

	if path := cliCtx.String(OutputFlag.Name); path != "" {
		if err := os.WriteFile(path, []byte(out+"\n"), filePermission); err != nil {
			return fmt.Errorf("failed to write payload: %w", err)
		}
		return nil
	}
	_, err = fmt.Fprintln(cliCtx.App.Writer, out)
	return err
}

func run(cliCtx *cli.Context) error {
	feeds, err := feedsFrom(cliCtx)
	if err != nil {
		return err
	}
	_, err = testpayloads.Run(cliCtx.Context, &testpayloads.Config{
		BaseURL:  cliCtx.String(URLFlag.Name),
		Feeds:    feeds,
		Signers:  cliCtx.Int(SignersFlag.Name),
		Rounds:   cliCtx.Int(RoundsFlag.Name),
		Interval: cliCtx.Duration(IntervalFlag.Name),
		Gets:     cliCtx.Int(GetsFlag.Name),
		Workers:  cliCtx.Int(WorkersFlag.Name),
		Mode:     cliCtx.String(ModeFlag.Name),
		Chunks:   cliCtx.Int(ChunksFlag.Name),
		Updater:  cliCtx.String(UpdaterFlag.Name),
		Timeout:  cliCtx.Duration(TimeoutFlag.Name),
		Verbose:  cliCtx.Bool(VerboseFlag.Name),
	})
	return err
}

func feedsFrom(cliCtx *cli.Context) (map[string]uint64, error) {
	if !cliCtx.IsSet(FeedFlag.Name) {
		return parseFeeds(defaultFeeds)
	}
	return parseFeeds(cliCtx.StringSlice(FeedFlag.Name))
}

// parseFeeds parses NAME=VALUE pairs.
func parseFeeds(raw []string) (map[string]uint64, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("at least one --%s is required", FeedFlag.Name)
	}
	out := make(map[string]uint64, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid feed %q, want NAME=VALUE", kv)
		}
		v, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for feed %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}
