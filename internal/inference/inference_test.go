package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkonopka/phenoscoring/internal/refset"
	"github.com/tkonopka/phenoscoring/internal/repr"
)

func buildEngine(t *testing.T) (*Engine, *refset.ReferenceSet) {
	t.Helper()
	rs, err := refset.New(
		[]string{"Y:001", "Y:002"},
		[]string{"null", "ref1"},
		"null",
	)
	require.NoError(t, err)
	require.NoError(t, rs.SetReferencePriors(map[string]float64{"null": 0.5, "ref1": 0.5}))

	add := func(name string, vals map[string]float64) {
		rp := repr.New(name)
		for k, v := range vals {
			rp.Set(k, v)
		}
		require.NoError(t, rs.Add(rp))
	}
	add("null", map[string]float64{"Y:001": 0.1, "Y:002": 0.1})
	add("ref1", map[string]float64{"Y:001": 0.9, "Y:002": 0.05})

	rs.Prep(map[string]float64{"Y:001": 0.3, "Y:002": 0.3})
	require.NoError(t, rs.LearnOBO(func(id string) ([]string, error) {
		if id == "Y:002" {
			return []string{"Y:001"}, nil
		}
		return nil, nil
	}))
	return New(rs, 1.0), rs
}

func TestChainTPCase(t *testing.T) {
	e, _ := buildEngine(t)
	model := repr.New("model1")
	model.Set("Y:001", 0.95) // mv>bg, rv>bg -> TP

	c, err := e.Chain(model, "ref1")
	require.NoError(t, err)
	require.Len(t, c.Data, 1)
	// alpha = (0.9-0.3)/(1-0.3) = 6/7; TPR = alpha*0.95 + (1-alpha)*0.3 = 6/7.
	assert.InDelta(t, 6.0/7.0, c.Data[0].TPR, 1e-12)
}

func TestChainSkipsNeutralFeatures(t *testing.T) {
	e, _ := buildEngine(t)
	model := repr.New("model1")
	model.Set("Y:001", 0.3) // mv == bg -> neutral, skipped

	c, err := e.Chain(model, "ref1")
	require.NoError(t, err)
	assert.Empty(t, c.Data)
}

func TestChainFPUsesPositiveAncestor(t *testing.T) {
	e, _ := buildEngine(t)
	model := repr.New("model1")
	model.Set("Y:002", 0.9) // mv>bg(0.3), rv=0.05<bg -> FP; Y:001 is the positive ancestor (ref1:0.9>0.3)

	c, err := e.Chain(model, "ref1")
	require.NoError(t, err)
	require.Len(t, c.Data, 1)
	assert.False(t, c.Data[0].TPR <= 0)
}

func TestExplainIncludesNeutralRecord(t *testing.T) {
	e, _ := buildEngine(t)
	model := repr.New("model1")
	model.Set("Y:001", 0.3)

	chain, err := e.Explain(model, "ref1")
	require.NoError(t, err)
	require.Len(t, chain.Records, 1)
	assert.Equal(t, "Neutral", string(chain.Records[0].Code))
}

func TestInferReturnsAllReferencesByDefault(t *testing.T) {
	e, _ := buildEngine(t)
	model := repr.New("model1")
	model.Set("Y:001", 0.9)

	out, err := e.Infer(model, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "null")
	assert.Contains(t, out, "ref1")
}

func TestInferUnknownReferenceErrors(t *testing.T) {
	e, _ := buildEngine(t)
	model := repr.New("model1")
	_, err := e.Infer(model, []string{"missing"})
	assert.Error(t, err)
}

func TestAncestorSearchIsCached(t *testing.T) {
	e, _ := buildEngine(t)
	model := repr.New("model1")
	model.Set("Y:002", 0.9)

	_, err := e.Chain(model, "ref1")
	require.NoError(t, err)
	row, _ := e.rs.FeatureIndex("Y:002")
	col, _ := e.rs.ReferenceIndex("ref1")
	_, cached := e.cache[ancestorKey{row, col}]
	assert.True(t, cached)
}
