package aggregator

import (
	"github.com/holiman/uint256"

	"github.com/okian/redstone/internal/domain/types"
	"github.com/okian/redstone/internal/domain/validator"
)

// Matrix holds one row per configured feed and one column per configured signer.
// A nil cell means the signer attested nothing for that feed.
type Matrix [][]*uint256.Int

// Aggregate returns one median value per cfg.FeedIDs entry, in that order.
func Aggregate(cfg validator.Config, packages []types.DataPackage) ([]types.Value, error) {
	return AggregateMatrix(cfg, MakeValueSignerMatrix(cfg, packages))
}

// MakeValueSignerMatrix places every known signer's value for every requested feed.
// Unknown signers and unrequested feeds are skipped. A later package overwrites
// an earlier one for the same cell.
func MakeValueSignerMatrix(cfg validator.Config, packages []types.DataPackage) Matrix {
	m := make(Matrix, len(cfg.FeedIDs))
	for i := range m {
		m[i] = make([]*uint256.Int, len(cfg.Signers))
	}

	for _, pkg := range packages {
		signer, ok := cfg.SignerIndex(pkg.Signer)
		if !ok {
			continue
		}
		for j := range pkg.DataPoints {
			point := &pkg.DataPoints[j]
			feed, ok := cfg.FeedIndex(&point.FeedID)
			if !ok {
				continue
			}
			m[feed][signer] = new(uint256.Int).Set(&point.Value)
		}
	}
	return m
}

// AggregateMatrix enforces the signer threshold on each row and takes its median.
func AggregateMatrix(cfg validator.Config, m Matrix) ([]types.Value, error) {
	out := make([]types.Value, len(m))
	for i, row := range m {
		values, err := cfg.ValidateSignerCountThreshold(i, row)
		if err != nil {
			return nil, err
		}
		median, err := Median(values)
		if err != nil {
			return nil, err
		}
		out[i] = *median
	}
	return out, nil
}
