package testpayloads

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/redstone/internal/domain/crypto"
	"github.com/okian/redstone/pkg/logger"
)

// Runner defaults.
const (
	defaultTimeout    = 30 * time.Second
	defaultChunks     = 2
	maxChunks         = 8
	statusPollBackoff = 20 * time.Millisecond
)

// ErrVerification is returned when stored values differ from the expected medians.
var ErrVerification = errors.New("read-back verification failed")

// Run writes cfg.Rounds freshly signed payloads to the service and checks that
// every read returns the medians the payloads imply.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	applyDefaults(cfg)
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("payload-gen")

	log.Info(ctx, "starting payload run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("mode", cfg.Mode),
		logger.Int("rounds", cfg.Rounds),
		logger.Int("signers", cfg.Signers),
		logger.Int("feeds", len(cfg.Feeds)),
		logger.Int("gets", cfg.Gets),
		logger.Int("workers", cfg.Workers),
	)

	keys, err := Keys(cfg.Signers)
	if err != nil {
		return stats, err
	}
	client := NewClient(cfg.BaseURL, cfg.Timeout, cfg.Updater)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	feeds := make([]string, 0, len(cfg.Feeds))
	for f := range cfg.Feeds {
		feeds = append(feeds, f)
	}
	slices.Sort(feeds)
	want := make([]string, len(feeds))
	for i, f := range feeds {
		want[i] = strconv.FormatUint(SpreadMedian(cfg.Feeds[f], cfg.Signers), 10)
	}

	for r := 0; r < cfg.Rounds; r++ {
		if r > 0 && cfg.Interval > 0 {
			select {
			case <-ctx.Done():
				return finish(stats), ctx.Err()
			case <-time.After(cfg.Interval):
			}
		}

		ts := uint64(time.Now().UnixMilli())
		payload, err := Spread(ts, cfg.Feeds, cfg.Signers).Payload(keys)
		if err != nil {
			return finish(stats), err
		}
		stats.Rounds++

		runGets(ctx, client, cfg, feeds, payload, want, stats)

		if err := write(ctx, client, cfg, feeds, payload); err != nil {
			stats.WritesFailed++
			log.Warn(ctx, "write failed", logger.Int("round", r), logger.Error(err))
			continue
		}
		stats.WritesOK++

		got, err := client.ReadPrices(ctx, feeds)
		if err != nil || !slices.Equal(got.Values, want) {
			stats.Mismatches++
			log.Warn(ctx, "read-back mismatch", logger.Int("round", r), logger.Any("got", got.Values), logger.Any("want", want))
			continue
		}
		if latest, err := client.ReadTimestamp(ctx); err != nil || latest != ts {
			stats.Mismatches++
			log.Warn(ctx, "timestamp mismatch", logger.Int("round", r), logger.Uint64("got", latest), logger.Uint64("want", ts))
			continue
		}
		if cfg.Verbose {
			log.Info(ctx, "round verified", logger.Int("round", r), logger.Uint64("timestamp", ts))
		}
	}

	finish(stats)
	displayFinalStats(ctx, log, stats)
	if stats.Mismatches > 0 {
		return stats, fmt.Errorf("%w: %d mismatches", ErrVerification, stats.Mismatches)
	}
	return stats, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Signers < 1 {
		cfg.Signers = 1
	}
	if cfg.Rounds < 1 {
		cfg.Rounds = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeWrite
	}
	if cfg.Chunks < 1 {
		cfg.Chunks = defaultChunks
	}
	if cfg.Chunks > maxChunks {
		cfg.Chunks = maxChunks
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
}

func finish(stats *Stats) *Stats {
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	return stats
}

// runGets issues cfg.Gets stateless get calls across cfg.Workers workers.
func runGets(ctx context.Context, client *Client, cfg *Config, feeds []string, payload []byte, want []string, stats *Stats) {
	if cfg.Gets <= 0 {
		return
	}
	var ok, failed, mismatched int64

	jobs := make(chan struct{}, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				res, err := client.GetPrices(ctx, feeds, payload)
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
				case !slices.Equal(res.Values, want):
					atomic.AddInt64(&mismatched, 1)
				default:
					atomic.AddInt64(&ok, 1)
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < cfg.Gets; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- struct{}{}:
			}
		}
	}()
	wg.Wait()

	stats.GetsOK += int(ok)
	stats.GetsFailed += int(failed)
	stats.Mismatches += int(mismatched)
}

// write stores payload through the configured endpoint and waits until it is applied.
func write(ctx context.Context, client *Client, cfg *Config, feeds []string, payload []byte) error {
	switch cfg.Mode {
	case ModeWrite:
		_, err := client.WritePrices(ctx, feeds, payload)
		return err

	case ModeSubmit:
		sub, err := client.Submit(ctx, feeds, payload)
		if err != nil {
			return err
		}
		deadline := time.Now().Add(cfg.Timeout)
		for sub.State == "queued" {
			if time.Now().After(deadline) {
				return fmt.Errorf("submission %s still queued after %s", sub.ID, cfg.Timeout)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(statusPollBackoff):
			}
			if sub, err = client.Submission(ctx, sub.ID); err != nil {
				return err
			}
		}
		if sub.State != "written" {
			return fmt.Errorf("submission %s %s: code %d: %s", sub.ID, sub.State, sub.Code, sub.Error)
		}
		return nil

	case ModeChunks:
		hash := crypto.Keccak256(payload)
		parts := Split(payload, cfg.Chunks)
		for i, part := range parts {
			res, err := client.Chunk(ctx, hash, i, part, feeds, ModeWrite)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			if last := i == len(parts)-1; last == res.Pending {
				return fmt.Errorf("chunk %d: unexpected pending=%t", i, res.Pending)
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}

// Split cuts payload into n pieces of near equal size; the last piece takes the remainder.
func Split(payload []byte, n int) [][]byte {
	if n < 1 {
		n = 1
	}
	if n > len(payload) {
		n = max(len(payload), 1)
	}
	size := len(payload) / n
	out := make([][]byte, 0, n)
	for i := 0; i < n-1; i++ {
		out = append(out, payload[i*size:(i+1)*size])
	}
	return append(out, payload[(n-1)*size:])
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var getsPerSecond float64
	if stats.Duration > 0 {
		getsPerSecond = float64(stats.GetsOK+stats.GetsFailed) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("rounds", stats.Rounds),
		logger.Int("writesOK", stats.WritesOK),
		logger.Int("writesFailed", stats.WritesFailed),
		logger.Int("getsOK", stats.GetsOK),
		logger.Int("getsFailed", stats.GetsFailed),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("getsPerSecond", getsPerSecond),
	)
}
