// Package inference implements the Bayesian scoring of a model
// profile against reference columns: per-feature evidence
// classification (TP/FP/TN/FN/Neutral), false-positive ancestor
// softening, and chain evaluation (spec.md §4.5).
package inference

import (
	"math"
	"sync"

	"github.com/tkonopka/phenoscoring/internal/evidence"
	"github.com/tkonopka/phenoscoring/internal/phenoerr"
	"github.com/tkonopka/phenoscoring/internal/refset"
	"github.com/tkonopka/phenoscoring/internal/repr"
)

// ancestorKey identifies a cached false-positive ancestor search by
// the pair (feature row, reference column), since many models query
// the same reference for the same feature.
type ancestorKey struct {
	row, col int
}

type ancestorResult struct {
	row   int
	found bool
}

// Engine runs inference against a fixed ReferenceSet. Engines are
// safe for concurrent use across goroutines; the ancestor cache is
// guarded by a mutex.
type Engine struct {
	rs        *refset.ReferenceSet
	fpPenalty float64

	mu    sync.Mutex
	cache map[ancestorKey]ancestorResult
}

// New returns an Engine that scores models against rs, softening
// false positives with the given penalty scalar.
func New(rs *refset.ReferenceSet, fpPenalty float64) *Engine {
	return &Engine{rs: rs, fpPenalty: fpPenalty, cache: make(map[ancestorKey]ancestorResult)}
}

// findAncestor returns the row index of feature row's nearest
// "positive ancestor" in reference column col: the closest is_a
// ancestor whose reference value exceeds its own feature prior. Among
// multiple parent branches the most enriched (lowest -value/prior)
// is chosen. Results are memoized per (row, col).
func (e *Engine) findAncestor(row, col int) (int, bool) {
	key := ancestorKey{row, col}

	e.mu.Lock()
	if r, ok := e.cache[key]; ok {
		e.mu.Unlock()
		return r.row, r.found
	}
	e.mu.Unlock()

	parents, ok := e.rs.ParentRows(row)
	var result ancestorResult
	if !ok {
		result = ancestorResult{found: false}
	} else {
		bestRow := -1
		bestRatio := math.Inf(1)
		for _, p := range parents {
			prior := e.rs.FeaturePriorAt(p)
			val := e.rs.Get(p, col)
			var candRow int
			var candVal, candPrior float64
			if val > prior {
				candRow, candVal, candPrior = p, val, prior
			} else {
				aRow, aFound := e.findAncestor(p, col)
				if !aFound {
					continue
				}
				candRow, candVal, candPrior = aRow, e.rs.Get(aRow, col), e.rs.FeaturePriorAt(aRow)
			}
			ratio := -candVal / candPrior
			if bestRow == -1 || ratio < bestRatio {
				bestRow, bestRatio = candRow, ratio
			}
		}
		if bestRow == -1 {
			result = ancestorResult{found: false}
		} else {
			result = ancestorResult{row: bestRow, found: true}
		}
	}

	e.mu.Lock()
	e.cache[key] = result
	e.mu.Unlock()
	return result.row, result.found
}

// datum classifies one feature observation and returns the (tpr, fpr)
// pair actually submitted to the evidence chain, plus the
// classification code for explanation mode.
func (e *Engine) datum(row, col int, mv float64) (evidence.Datum, evidence.Code) {
	bg := e.rs.FeaturePriorAt(row)

	if mv == bg {
		return evidence.Datum{TPR: bg, FPR: bg}, evidence.CodeNeutral
	}
	rv := e.rs.Get(row, col)
	if rv == bg {
		return evidence.Datum{TPR: bg, FPR: bg}, evidence.CodeNeutral
	}

	var tpr, fpr, alpha float64
	var code evidence.Code

	switch {
	case mv > bg && rv > bg:
		code = evidence.CodeTP
		tpr, fpr = mv, bg
		alpha = (rv - bg) / (1 - bg)

	case mv > bg && rv < bg:
		code = evidence.CodeFP
		ancRow, found := e.findAncestor(row, col)
		var ab, av float64
		if found {
			ab = e.rs.FeaturePriorAt(ancRow)
			av = e.rs.Get(ancRow, col)
		} else {
			ab, av = 1, 1
		}
		beta := math.Tanh(e.fpPenalty * math.Log10(ab/bg))
		beta = clamp01(beta)
		tpr0 := evidence.EstimateUpdate(ab, bg, mv)*(1-beta) + ab*beta
		fpr0 := ab
		tpr = tpr0 * (1 - mv)
		fpr = fpr0 * (1 - bg)
		if av > bg {
			alpha = (av - bg) / (1 - bg)
		} else {
			alpha = 0
		}

	case mv < bg && rv > bg:
		code = evidence.CodeFN
		tpr, fpr = 1-bg, 1-mv
		alpha = (rv - bg) / (1 - bg)

	default: // mv < bg && rv < bg
		code = evidence.CodeTN
		tpr, fpr = 1-mv, 1-bg
		alpha = (bg - rv) / bg
	}

	finalTPR := alpha*tpr + (1-alpha)*fpr
	finalFPR := alpha*fpr + (1-alpha)*fpr
	return evidence.Datum{TPR: finalTPR, FPR: finalFPR}, code
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// ReferencePrior exposes the underlying reference set's prior for
// reference, for callers (the scheduler) that need enrichment ratios
// without reaching into the ReferenceSet directly.
func (e *Engine) ReferencePrior(reference string) (float64, error) {
	return e.rs.ReferencePrior(reference)
}

// Chain builds the lean evidence chain for model against reference.
func (e *Engine) Chain(model *repr.Representation, reference string) (evidence.Chain, error) {
	col, ok := e.rs.ReferenceIndex(reference)
	if !ok {
		return evidence.Chain{}, phenoerr.New(phenoerr.UnknownReference, reference, nil)
	}
	prior, err := e.rs.ReferencePrior(reference)
	if err != nil {
		return evidence.Chain{}, err
	}

	data := make([]evidence.Datum, 0, model.Len())
	for _, f := range model.Keys() {
		row, ok := e.rs.FeatureIndex(f)
		if !ok {
			return evidence.Chain{}, phenoerr.New(phenoerr.UnknownTerm, f, nil)
		}
		mv, _ := model.Get(f)
		d, code := e.datum(row, col, mv)
		if code == evidence.CodeNeutral {
			continue
		}
		data = append(data, d)
	}
	return evidence.Chain{Prior: prior, Data: data}, nil
}

// Explain builds the verbose evidence chain for model against
// reference, annotating each contributing feature with its
// classification and raw inputs.
func (e *Engine) Explain(model *repr.Representation, reference string) (evidence.ExplainChain, error) {
	col, ok := e.rs.ReferenceIndex(reference)
	if !ok {
		return evidence.ExplainChain{}, phenoerr.New(phenoerr.UnknownReference, reference, nil)
	}
	prior, err := e.rs.ReferencePrior(reference)
	if err != nil {
		return evidence.ExplainChain{}, err
	}

	chain := evidence.ExplainChain{Prior: prior}
	for _, f := range model.Keys() {
		row, ok := e.rs.FeatureIndex(f)
		if !ok {
			return evidence.ExplainChain{}, phenoerr.New(phenoerr.UnknownTerm, f, nil)
		}
		mv, _ := model.Get(f)
		bg := e.rs.FeaturePriorAt(row)
		rv := e.rs.Get(row, col)
		d, code := e.datum(row, col, mv)
		chain.Add(evidence.FeatureRecord{
			Feature:    f,
			Code:       code,
			ModelValue: mv,
			RefValue:   rv,
			Background: bg,
			TPR:        d.TPR,
			FPR:        d.FPR,
		})
	}
	return chain, nil
}

// Infer evaluates model against every reference in targets (or every
// reference in the set when targets is nil) and returns a map from
// reference name to posterior.
func (e *Engine) Infer(model *repr.Representation, targets []string) (map[string]float64, error) {
	refs := targets
	if refs == nil {
		refs = e.rs.References()
	}
	out := make(map[string]float64, len(refs))
	for _, r := range refs {
		c, err := e.Chain(model, r)
		if err != nil {
			return nil, err
		}
		out[r] = c.Evaluate()
	}
	return out, nil
}
