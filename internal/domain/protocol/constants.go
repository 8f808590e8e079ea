// Package protocol decodes and encodes the RedStone payload wire format.
//
// A payload is read from its end:
//
//	packages... | package count (2) | unsigned metadata | metadata size (3) | marker (9)
//
// and every data package is read from its end as well:
//
//	[feed id (32) | value]... | timestamp (6) | value size (4) | point count (3) | signature (65)
//
// All integers are big-endian and unsigned.
package protocol

const (
	MarkerLength                 = 9
	UnsignedMetadataSizeLength   = 3
	DataPackagesCountLength      = 2
	DataPointsCountLength        = 3
	SignatureLength              = 65
	DataPointValueByteSizeLength = 4
	DataFeedIDLength             = 32
	TimestampLength              = 6

	// DefaultValueSize is the value width used by RedStone nodes.
	DefaultValueSize = 32
)

// Marker terminates every RedStone payload.
var Marker = [MarkerLength]byte{0x00, 0x00, 0x02, 0xed, 0x57, 0x01, 0x1e, 0x00, 0x00}

// signableSize is the number of bytes covered by a package signature.
func signableSize(count, valueSize uint64) uint64 {
	return count*(valueSize+DataFeedIDLength) +
		DataPointValueByteSizeLength + TimestampLength + DataPointsCountLength
}
