// Package specificity derives, for each reference in a ReferenceSet,
// a "specific" profile that subtracts the signal shared with its
// nearest neighbors, floored by the feature's background prior
// (spec.md §4.3 "Specificity derivation").
package specificity

import (
	"math"

	"github.com/tkonopka/phenoscoring/internal/phenoerr"
	"github.com/tkonopka/phenoscoring/internal/refset"
)

// constantFeatureRange is the range threshold below which a feature
// carries no discriminative signal across the non-null reference
// panel and is dropped from the working matrix prior to the
// per-reference pass.
const constantFeatureRange = 1e-16

// NeighborRank is a persisted (reference, neighbor, rank) row, ranks
// numbered 1..k in nearest-first order.
type NeighborRank struct {
	Reference string
	Neighbor  string
	Rank      int
}

// ProfileRow is a persisted (reference, feature, value, specific)
// row. Value is the reference's own value for feature; Specific is
// the value floored/adjusted against its neighbor average.
type ProfileRow struct {
	Reference string
	Feature   string
	Value     float64
	Specific  float64
}

// Build runs the full specificity derivation over rs: for every
// non-null reference it finds its k nearest neighbors, persists their
// ranks, and derives a specific profile; the null reference is
// persisted with Specific equal to each feature's prior.
func Build(rs *refset.ReferenceSet, k int) ([]ProfileRow, []NeighborRank, error) {
	features := rs.Features()
	null := rs.NullReference()

	rows := make([]ProfileRow, 0, len(features)*len(rs.References()))
	ranks := make([]NeighborRank, 0)

	// Null column: every feature, full (unreduced) set.
	for _, f := range features {
		self, err := rs.GetByID(f, null)
		if err != nil {
			return nil, nil, err
		}
		prior, err := rs.FeaturePrior(f)
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, ProfileRow{Reference: null, Feature: f, Value: self, Specific: prior})
	}

	working := reduceFeatures(rs, features, null)

	for _, r := range rs.References() {
		if r == null {
			continue
		}
		neighbors, err := rs.NearestNeighbors(r, k)
		if err != nil {
			return nil, nil, err
		}
		for i, n := range neighbors {
			ranks = append(ranks, NeighborRank{Reference: r, Neighbor: n, Rank: i + 1})
		}

		avg, err := rs.GetAverage(neighbors)
		if err != nil {
			return nil, nil, err
		}

		for _, f := range working {
			idx, ok := rs.FeatureIndex(f)
			if !ok {
				return nil, nil, phenoerr.New(phenoerr.UnknownTerm, f, nil)
			}
			self, err := rs.GetByID(f, r)
			if err != nil {
				return nil, nil, err
			}
			nei := avg[idx]
			prior, err := rs.FeaturePrior(f)
			if err != nil {
				return nil, nil, err
			}
			nullV, err := rs.GetByID(f, null)
			if err != nil {
				return nil, nil, err
			}

			var specific float64
			if self < prior {
				specific = math.Max(self, prior+math.Min(0, self-nei))
			} else {
				specific = math.Max(prior, self-nei)
			}

			if self == nullV && specific == prior {
				continue
			}
			rows = append(rows, ProfileRow{Reference: r, Feature: f, Value: self, Specific: specific})
		}
	}

	return rows, ranks, nil
}

// reduceFeatures drops features whose value range across all non-null
// references is at or below constantFeatureRange.
func reduceFeatures(rs *refset.ReferenceSet, features []string, null string) []string {
	refs := rs.References()
	out := make([]string, 0, len(features))
	for _, f := range features {
		idx, ok := rs.FeatureIndex(f)
		if !ok {
			continue
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, r := range refs {
			if r == null {
				continue
			}
			c, ok := rs.ReferenceIndex(r)
			if !ok {
				continue
			}
			v := rs.Get(idx, c)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi-lo > constantFeatureRange {
			out = append(out, f)
		}
	}
	return out
}
