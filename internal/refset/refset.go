// Package refset implements the reference set: a column-oriented
// dense matrix of reference phenotype profiles, with feature and
// reference priors and cosine-distance nearest-neighbor search
// (spec.md §4.3).
package refset

import (
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/tkonopka/phenoscoring/internal/phenoerr"
	"github.com/tkonopka/phenoscoring/internal/repr"
)

// ReferenceSet is a rectangular [features × references] matrix of
// probabilities, built once from parsed references and immutable
// during scoring.
type ReferenceSet struct {
	features   []string
	featureIdx map[string]int
	refs       []string
	refIdx     map[string]int
	null       string

	data *mat.Dense // rows = features, cols = refs

	refPriors   []float64
	refPriorMap map[string]float64

	featPriors   []float64
	featPriorMap map[string]float64

	// parents[i] holds the row indices of feature i's ontology
	// parents, set by LearnOBO. nil until learned.
	parents [][]int

	norms []float64 // precomputed column L2 norms
}

// New builds an empty ReferenceSet over the given feature and
// reference id sets. null must be present in refs.
func New(features, refs []string, null string) (*ReferenceSet, error) {
	featureIdx := make(map[string]int, len(features))
	for i, f := range features {
		featureIdx[f] = i
	}
	refIdx := make(map[string]int, len(refs))
	for i, r := range refs {
		refIdx[r] = i
	}
	if _, ok := refIdx[null]; !ok {
		return nil, phenoerr.New(phenoerr.UnknownReference, null, nil)
	}

	return &ReferenceSet{
		features:    features,
		featureIdx:  featureIdx,
		refs:        refs,
		refIdx:      refIdx,
		null:        null,
		data:        mat.NewDense(len(features), len(refs), nil),
		refPriors:   make([]float64, len(refs)),
		refPriorMap: make(map[string]float64, len(refs)),
		featPriors:  make([]float64, len(features)),
		featPriorMap: make(map[string]float64, len(features)),
	}, nil
}

// Features returns the ordered feature (row) ids.
func (rs *ReferenceSet) Features() []string { return rs.features }

// References returns the ordered reference (column) ids.
func (rs *ReferenceSet) References() []string { return rs.refs }

// NullReference returns the distinguished null reference id.
func (rs *ReferenceSet) NullReference() string { return rs.null }

// Get returns the matrix cell at (row, col).
func (rs *ReferenceSet) Get(row, col int) float64 { return rs.data.At(row, col) }

// GetByID returns the probability of feature in reference.
func (rs *ReferenceSet) GetByID(feature, reference string) (float64, error) {
	r, ok := rs.featureIdx[feature]
	if !ok {
		return 0, phenoerr.New(phenoerr.UnknownTerm, feature, nil)
	}
	c, ok := rs.refIdx[reference]
	if !ok {
		return 0, phenoerr.New(phenoerr.UnknownReference, reference, nil)
	}
	return rs.data.At(r, c), nil
}

// FeatureIndex returns the row index for feature, or false if unknown.
func (rs *ReferenceSet) FeatureIndex(feature string) (int, bool) {
	i, ok := rs.featureIdx[feature]
	return i, ok
}

// ReferenceIndex returns the column index for reference, or false if
// unknown.
func (rs *ReferenceSet) ReferenceIndex(reference string) (int, bool) {
	i, ok := rs.refIdx[reference]
	return i, ok
}

// Add copies a representation into the column whose id matches
// rp.Name. Features of rp that are not part of this set's feature
// index are ignored, since a Representation may carry ontology
// features broader than the reference panel.
func (rs *ReferenceSet) Add(rp *repr.Representation) error {
	col, ok := rs.refIdx[rp.Name]
	if !ok {
		return phenoerr.New(phenoerr.IncompatibleRepresentation, rp.Name, nil)
	}
	for _, k := range rp.Keys() {
		row, ok := rs.featureIdx[k]
		if !ok {
			continue
		}
		v, _ := rp.Get(k)
		rs.data.Set(row, col, v)
	}
	rs.norms = nil
	return nil
}

// SetReferencePriors assigns reference priors by name. Names not
// present in the column index are rejected.
func (rs *ReferenceSet) SetReferencePriors(priors map[string]float64) error {
	for name, p := range priors {
		col, ok := rs.refIdx[name]
		if !ok {
			return phenoerr.New(phenoerr.UnknownReference, name, nil)
		}
		rs.refPriors[col] = p
		rs.refPriorMap[name] = p
	}
	return nil
}

// ReferencePrior returns the prior probability of reference.
func (rs *ReferenceSet) ReferencePrior(reference string) (float64, error) {
	p, ok := rs.refPriorMap[reference]
	if !ok {
		return 0, phenoerr.New(phenoerr.UnknownReference, reference, nil)
	}
	return p, nil
}

// FeaturePrior returns the prior probability (background frequency)
// of feature.
func (rs *ReferenceSet) FeaturePrior(feature string) (float64, error) {
	p, ok := rs.featPriorMap[feature]
	if !ok {
		return 0, phenoerr.New(phenoerr.UnknownTerm, feature, nil)
	}
	return p, nil
}

// FeaturePriorAt returns the prior probability for feature row i,
// avoiding a name lookup on the inference engine's hot path.
func (rs *ReferenceSet) FeaturePriorAt(i int) float64 {
	return rs.featPriors[i]
}

// Prep computes feature priors. If external is non-nil it is used
// directly (by feature id, missing ids default to 0); otherwise each
// row's prior is derived from a weighted column sum: for row r, let
// S = Σ_c data[r,c]·priorᶜ; if S == 0 the prior is floored at
// 1/max(Σ priors, |rows|), otherwise it is S/Σ priors.
func (rs *ReferenceSet) Prep(external map[string]float64) {
	if external != nil {
		for i, f := range rs.features {
			p := external[f]
			rs.featPriors[i] = p
			rs.featPriorMap[f] = p
		}
		return
	}

	sumPriors := 0.0
	for _, p := range rs.refPriors {
		sumPriors += p
	}
	floor := sumPriors
	if float64(len(rs.features)) > floor {
		floor = float64(len(rs.features))
	}

	nr, _ := rs.data.Dims()
	priorVec := mat.NewVecDense(len(rs.refPriors), rs.refPriors)
	for r := 0; r < nr; r++ {
		s := mat.Dot(rs.data.RowView(r), priorVec)
		var p float64
		if s == 0 {
			p = 1 / floor
		} else {
			p = s / sumPriors
		}
		rs.featPriors[r] = p
		rs.featPriorMap[rs.features[r]] = p
	}
}

// LearnOBO materializes parents[i] as the row indices of feature i's
// ontology parents, for use by the inference engine's false-positive
// ancestor search.
func (rs *ReferenceSet) LearnOBO(parentsOf func(id string) ([]string, error)) error {
	parents := make([][]int, len(rs.features))
	for i, f := range rs.features {
		ps, err := parentsOf(f)
		if err != nil {
			return err
		}
		idx := make([]int, 0, len(ps))
		for _, p := range ps {
			if j, ok := rs.featureIdx[p]; ok {
				idx = append(idx, j)
			}
		}
		parents[i] = idx
	}
	rs.parents = parents
	return nil
}

// ParentRows returns the row indices of feature row i's ontology
// parents, as set by LearnOBO. Returns nil, false if LearnOBO has not
// been called or i has no parents within the reference set's feature
// panel.
func (rs *ReferenceSet) ParentRows(i int) ([]int, bool) {
	if rs.parents == nil {
		return nil, false
	}
	return rs.parents[i], len(rs.parents[i]) > 0
}

func (rs *ReferenceSet) ensureNorms() {
	if rs.norms != nil {
		return
	}
	_, nc := rs.data.Dims()
	norms := make([]float64, nc)
	for c := 0; c < nc; c++ {
		norms[c] = mat.Norm(rs.data.ColView(c), 2)
	}
	rs.norms = norms
}

// NearestNeighbors returns the names of the k references whose
// columns are closest to source's column by cosine distance
// (1 - cos similarity). source is never included in its own result.
// Ties are broken by column insertion order.
func (rs *ReferenceSet) NearestNeighbors(source string, k int) ([]string, error) {
	srcCol, ok := rs.refIdx[source]
	if !ok {
		return nil, phenoerr.New(phenoerr.UnknownReference, source, nil)
	}
	rs.ensureNorms()

	_, nc := rs.data.Dims()
	srcVec := rs.data.ColView(srcCol)
	type cand struct {
		col  int
		dist float64
	}
	cands := make([]cand, 0, nc-1)
	for c := 0; c < nc; c++ {
		if c == srcCol {
			continue
		}
		dot := mat.Dot(srcVec, rs.data.ColView(c))
		denom := rs.norms[srcCol] * rs.norms[c]
		var dist float64
		if denom == 0 {
			dist = 1
		} else {
			dist = 1 - dot/denom
		}
		cands = append(cands, cand{col: c, dist: dist})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].dist < cands[j].dist
	})

	if k > len(cands) {
		k = len(cands)
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = rs.refs[cands[i].col]
	}
	return out, nil
}

// GetAverage returns a per-feature weighted mean over the given
// reference columns, weighted by their reference priors.
func (rs *ReferenceSet) GetAverage(refs []string) ([]float64, error) {
	nr, _ := rs.data.Dims()
	out := make([]float64, nr)
	if len(refs) == 0 {
		return out, nil
	}

	cols := make([]int, len(refs))
	weights := make([]float64, len(refs))
	var sumW float64
	for i, name := range refs {
		c, ok := rs.refIdx[name]
		if !ok {
			return nil, phenoerr.New(phenoerr.UnknownReference, name, nil)
		}
		cols[i] = c
		weights[i] = rs.refPriors[c]
		sumW += weights[i]
	}
	if sumW == 0 {
		return out, nil
	}
	x := make([]float64, len(cols))
	for r := 0; r < nr; r++ {
		for i, c := range cols {
			x[i] = rs.data.At(r, c)
		}
		out[r] = stat.Mean(x, weights)
	}
	return out, nil
}
