package testpayloads

import "time"

// Write modes of the runner.
const (
	ModeWrite  = "write"  // POST /v1/prices/write
	ModeSubmit = "submit" // POST /v1/submissions, then poll the status
	ModeChunks = "chunks" // POST /v1/chunks in write mode
)

// Config holds configuration for a load run against a service.
type Config struct {
	BaseURL  string            // Base URL of the service
	Feeds    map[string]uint64 // base value per feed; signer i reports base+i
	Signers  int               // number of deterministic keys that sign
	Rounds   int               // number of write rounds
	Interval time.Duration     // pause between rounds
	Gets     int               // stateless get requests per round
	Workers  int               // concurrent get workers
	Mode     string            // how each round is written
	Chunks   int               // chunk count in chunks mode
	Updater  string            // X-Updater header sent with writes
	Timeout  time.Duration     // HTTP request timeout
	Verbose  bool              // Enable verbose logging
}

// Stats holds run statistics.
type Stats struct {
	Rounds       int
	GetsOK       int
	GetsFailed   int
	WritesOK     int
	WritesFailed int
	Mismatches   int
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
}
