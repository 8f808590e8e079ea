// Package processor turns a configuration and a raw payload into one aggregated
// value per requested feed.
package processor

import (
	"github.com/okian/redstone/internal/domain/aggregator"
	"github.com/okian/redstone/internal/domain/errs"
	"github.com/okian/redstone/internal/domain/protocol"
	"github.com/okian/redstone/internal/domain/types"
	"github.com/okian/redstone/internal/domain/validator"
)

// Processor runs the decode, validate and aggregate pipeline.
type Processor struct {
	decoder *protocol.Decoder
}

// New returns a processor using decoder, or the default sequential decoder when nil.
func New(decoder *protocol.Decoder) *Processor {
	if decoder == nil {
		decoder = protocol.NewDecoder()
	}
	return &Processor{decoder: decoder}
}

var defaultProcessor = New(nil)

// ProcessPayload processes payload with the default decoder.
func ProcessPayload(cfg validator.Config, payload []byte) (types.ProcessorResult, error) {
	return defaultProcessor.ProcessPayload(cfg, payload)
}

// ProcessPayload decodes payload, validates every package timestamp against cfg
// and aggregates the values of cfg.FeedIDs. The first failure is returned.
func (p *Processor) ProcessPayload(cfg validator.Config, payload []byte) (types.ProcessorResult, error) {
	decoded, err := p.decoder.Decode(payload)
	if err != nil {
		return types.ProcessorResult{}, err
	}
	return MakeResult(cfg, decoded)
}

// MakeResult validates and aggregates an already decoded payload.
// A payload without packages has no minimum timestamp and fails as empty.
func MakeResult(cfg validator.Config, payload types.Payload) (types.ProcessorResult, error) {
	if len(payload.DataPackages) == 0 {
		return types.ProcessorResult{}, errs.ArrayIsEmpty()
	}

	var minTimestamp uint64
	for i, pkg := range payload.DataPackages {
		ts, err := cfg.ValidateTimestamp(i, pkg.Timestamp)
		if err != nil {
			return types.ProcessorResult{}, err
		}
		if i == 0 || ts < minTimestamp {
			minTimestamp = ts
		}
	}

	values, err := aggregator.Aggregate(cfg, payload.DataPackages)
	if err != nil {
		return types.ProcessorResult{}, err
	}

	return types.ProcessorResult{MinTimestamp: minTimestamp, Values: values}, nil
}
