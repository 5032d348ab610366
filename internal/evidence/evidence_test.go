package evidence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateEmptyIsNoOp(t *testing.T) {
	assert.InDelta(t, 0.37, Update(0.37, nil), 1e-12)
	assert.InDelta(t, 0.37, Update(0.37, []Datum{}), 1e-12)
}

func TestUpdateEqualRatesIsNoOp(t *testing.T) {
	assert.InDelta(t, 0.37, Update(0.37, []Datum{{TPR: 0.5, FPR: 0.5}}), 1e-12)
}

func TestUpdateSingleMatchesChain(t *testing.T) {
	p := 0.2
	tpr, fpr := 0.9, 0.1
	single := UpdateSingle(p, tpr, fpr)
	chain := Update(p, []Datum{{TPR: tpr, FPR: fpr}})
	assert.InDelta(t, single, chain, 1e-9)
}

func TestUpdateClampsExtremeRatios(t *testing.T) {
	// fpr/tpr far outside [2^-512, 2^512]; must not overflow or NaN.
	got := Update(0.5, []Datum{{TPR: 1e-300, FPR: 1}})
	assert.False(t, math.IsNaN(got))
	assert.False(t, math.IsInf(got, 0))
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)

	got2 := Update(0.5, []Datum{{TPR: 1, FPR: 1e-300}})
	assert.False(t, math.IsNaN(got2))
	assert.False(t, math.IsInf(got2, 0))
}

func TestUpdateStrongTPRaisesPosterior(t *testing.T) {
	got := Update(0.1, []Datum{{TPR: 0.95, FPR: 0.05}})
	assert.Greater(t, got, 0.1)
}

func TestEstimateUpdateRoundTrip(t *testing.T) {
	prior, p := 0.3, 0.4
	ratio := 0.6
	posterior := UpdateSingleRatio(p, ratio)
	_ = prior
	// Reconstructing the ratio from (p, posterior) via a prior of p
	// itself should hand back the same posterior through EstimateUpdate.
	got := EstimateUpdate(p, p, posterior)
	assert.InDelta(t, posterior, got, 1e-9)
}

func TestChainEvaluateMatchesUpdate(t *testing.T) {
	c := Chain{Prior: 0.25, Data: []Datum{{TPR: 0.8, FPR: 0.2}, {TPR: 0.6, FPR: 0.6}}}
	assert.InDelta(t, Update(0.25, c.Data), c.Evaluate(), 1e-12)
}

func TestExplainChainMatchesLeanChain(t *testing.T) {
	data := []Datum{{TPR: 0.9, FPR: 0.1}, {TPR: 0.7, FPR: 0.3}}
	lean := Chain{Prior: 0.2, Data: data}

	var verbose ExplainChain
	verbose.Prior = 0.2
	for i, d := range data {
		verbose.Add(FeatureRecord{Feature: "f", Code: CodeTP, TPR: d.TPR, FPR: d.FPR})
		_ = i
	}

	assert.InDelta(t, lean.Evaluate(), verbose.Evaluate(), 1e-12)

	js, err := verbose.Explain()
	assert.NoError(t, err)
	assert.Contains(t, js, "posterior")
}
