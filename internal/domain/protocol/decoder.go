package protocol

import (
	"bytes"

	"golang.org/x/sync/errgroup"

	"github.com/okian/redstone/internal/domain/crypto"
	"github.com/okian/redstone/internal/domain/errs"
	"github.com/okian/redstone/internal/domain/trim"
	"github.com/okian/redstone/internal/domain/types"
)

// Decoder turns raw payload bytes into data packages.
type Decoder struct {
	backend     crypto.Backend
	parallelism int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithBackend sets the signature recovery backend.
func WithBackend(b crypto.Backend) Option {
	return func(d *Decoder) {
		if b != nil {
			d.backend = b
		}
	}
}

// WithParallelism recovers up to n signers concurrently. Values below 2 decode sequentially.
func WithParallelism(n int) Option {
	return func(d *Decoder) {
		d.parallelism = n
	}
}

// NewDecoder creates a decoder, by default sequential over the go-ethereum backend.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		backend:     crypto.Default(),
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDecoder = NewDecoder()

// Decode parses payload with the default decoder.
func Decode(payload []byte) (types.Payload, error) {
	return defaultDecoder.Decode(payload)
}

// Backend returns the recovery backend in use.
func (d *Decoder) Backend() crypto.Backend { return d.backend }

// Decode parses payload. Packages are returned last-appended first.
func (d *Decoder) Decode(payload []byte) (types.Payload, error) {
	c := trim.New(payload)

	if marker := c.TrimEnd(MarkerLength); !bytes.Equal(marker, Marker[:]) {
		return types.Payload{}, errs.WrongRedStoneMarker(marker)
	}

	count, err := trimMetadata(c)
	if err != nil {
		return types.Payload{}, err
	}

	var packages []types.DataPackage
	if d.parallelism > 1 {
		packages, err = d.decodeParallel(c, count)
	} else {
		packages, err = d.decodeSequential(c, count)
	}
	if err != nil {
		return types.Payload{}, err
	}

	if c.Len() != 0 {
		return types.Payload{}, errs.NonEmptyPayloadRemainder(c.Bytes())
	}
	return types.Payload{DataPackages: packages}, nil
}

func trimMetadata(c *trim.Cursor) (int, error) {
	metadataSize, err := c.TrimInt(UnsignedMetadataSizeLength)
	if err != nil {
		return 0, err
	}
	c.TrimEnd(metadataSize)
	return c.TrimInt(DataPackagesCountLength)
}

// rawPackage is a package whose signer has not been recovered yet.
// err holds a failure that the byte layout produced after the signature was read.
type rawPackage struct {
	signature []byte
	signable  []byte
	timestamp uint64
	points    []types.DataPoint
	err       error
}

func (d *Decoder) decodeSequential(c *trim.Cursor, count int) ([]types.DataPackage, error) {
	packages := make([]types.DataPackage, 0, count)
	for i := 0; i < count; i++ {
		raw := trimDataPackage(c)
		signer, err := crypto.RecoverAddress(d.backend, raw.signable, raw.signature)
		if err != nil {
			return nil, err
		}
		if raw.err != nil {
			return nil, raw.err
		}
		packages = append(packages, types.DataPackage{Signer: signer, Timestamp: raw.timestamp, DataPoints: raw.points})
	}
	return packages, nil
}

// decodeParallel splits the packages first and recovers signers concurrently.
// Errors are reported in package order, exactly as decodeSequential would.
func (d *Decoder) decodeParallel(c *trim.Cursor, count int) ([]types.DataPackage, error) {
	raws := make([]rawPackage, 0, count)
	for i := 0; i < count; i++ {
		raw := trimDataPackage(c)
		raws = append(raws, raw)
		if raw.err != nil {
			break
		}
	}

	signers := make([]types.Address, len(raws))
	recoverErrs := make([]error, len(raws))

	var g errgroup.Group
	g.SetLimit(d.parallelism)
	for i := range raws {
		g.Go(func() error {
			signers[i], recoverErrs[i] = crypto.RecoverAddress(d.backend, raws[i].signable, raws[i].signature)
			return nil
		})
	}
	_ = g.Wait()

	packages := make([]types.DataPackage, 0, len(raws))
	for i, raw := range raws {
		if recoverErrs[i] != nil {
			return nil, recoverErrs[i]
		}
		if raw.err != nil {
			return nil, raw.err
		}
		packages = append(packages, types.DataPackage{Signer: signers[i], Timestamp: raw.timestamp, DataPoints: raw.points})
	}
	return packages, nil
}

func trimDataPackage(c *trim.Cursor) rawPackage {
	var raw rawPackage
	raw.signature = c.TrimEnd(SignatureLength)
	signed := c.Clone()

	// The three header fields are at most 6 bytes wide, so they cannot overflow.
	pointCount, _ := c.TrimU64(DataPointsCountLength)
	valueSize, _ := c.TrimU64(DataPointValueByteSizeLength)
	raw.timestamp, _ = c.TrimU64(TimestampLength)

	size := signableSize(pointCount, valueSize)
	if size > uint64(signed.Len()) {
		size = uint64(signed.Len())
	}
	raw.signable = signed.TrimEnd(int(size))

	raw.points, raw.err = trimDataPoints(c, pointCount, valueSize)
	return raw
}

func trimDataPoints(c *trim.Cursor, count, valueSize uint64) ([]types.DataPoint, error) {
	if count != 1 {
		return nil, errs.SizeNotSupported(int(count))
	}
	if valueSize > uint64(c.Len()) {
		valueSize = uint64(c.Len())
	}

	value, err := c.TrimU256(int(valueSize))
	if err != nil {
		return nil, err
	}
	feedID, err := types.FeedIDFromBytes(c.TrimEnd(DataFeedIDLength))
	if err != nil {
		return nil, err
	}
	return []types.DataPoint{{FeedID: feedID, Value: *value}}, nil
}
