// Package evidence implements the numerically stable Bayesian update
// used to combine a prior probability with a list of (TPR, FPR)
// evidence pairs (spec.md §4.4).
package evidence

import "math"

// clampRange bounds the log2 exponent of the combined likelihood
// ratio to avoid overflow/underflow in 2^logR.
const clampRange = 512.0

// Datum is a single piece of evidence: a true-positive rate and a
// false-positive rate, with 0 < TPR, FPR ≤ 1. Pairs with TPR == FPR
// carry no evidence and are skipped.
type Datum struct {
	TPR float64
	FPR float64
}

// UpdateSingle applies the single-step closed form of the Bayesian
// update: p' = (tpr*p) / ((tpr-fpr)*p + fpr). When tpr == fpr the
// prior passes through unchanged.
func UpdateSingle(p, tpr, fpr float64) float64 {
	if tpr == fpr {
		return p
	}
	return (tpr * p) / ((tpr-fpr)*p + fpr)
}

// Update combines a prior p with a list of evidence data. The
// combined likelihood ratio r = ∏ᵢ(fprᵢ/tprᵢ) is computed in log2
// space to avoid overflow/underflow, clamped to ±clampRange, then
// exponentiated: p' = p / ((1-r)*p + r). Pairs with tpr == fpr are
// skipped. Update(p, nil) == p.
func Update(p float64, data []Datum) float64 {
	var logR float64
	var any bool
	for _, d := range data {
		if d.TPR == d.FPR {
			continue
		}
		logR += math.Log2(d.FPR) - math.Log2(d.TPR)
		any = true
	}
	if !any {
		return p
	}
	switch {
	case logR > clampRange:
		logR = clampRange
	case logR < -clampRange:
		logR = -clampRange
	}
	r := math.Exp2(logR)
	return p / ((1-r)*p + r)
}

// UpdateSingleRatio applies the single-step update expressed directly
// as a fpr/tpr ratio rather than as a (tpr, fpr) pair: p' = p / ((1-ratio)*p + ratio).
// When ratio == 1 the prior passes through unchanged.
func UpdateSingleRatio(p, ratio float64) float64 {
	if ratio == 1 {
		return p
	}
	return p / ((1-ratio)*p + ratio)
}

// EstimateUpdateRatio inverts a single Bayesian step: given a prior
// and the posterior it produced, it returns the fpr/tpr ratio that
// would reproduce that posterior from that prior.
func EstimateUpdateRatio(prior, posterior float64) float64 {
	pp := prior * posterior
	return (pp - prior) / (pp - posterior)
}

// EstimateUpdate applies UpdateSingleRatio to p using the ratio that
// would have carried prior to posterior in a single step. This is the
// two-point inversion used by the inference engine's false-positive
// ancestor handling (spec.md §4.5).
func EstimateUpdate(p, prior, posterior float64) float64 {
	return UpdateSingleRatio(p, EstimateUpdateRatio(prior, posterior))
}

// Chain is the lean evidence-chain variant: a prior plus parallel
// tpr/fpr arrays, with no per-feature annotation. Evaluate implements
// the shared evaluate contract described in spec.md §9.
type Chain struct {
	Prior float64
	Data  []Datum
}

// Evaluate returns the posterior for the chain.
func (c Chain) Evaluate() float64 {
	return Update(c.Prior, c.Data)
}
