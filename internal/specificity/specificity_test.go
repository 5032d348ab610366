package specificity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkonopka/phenoscoring/internal/refset"
	"github.com/tkonopka/phenoscoring/internal/repr"
)

func buildFixture(t *testing.T) *refset.ReferenceSet {
	t.Helper()
	rs, err := refset.New(
		[]string{"Y:001", "Y:002", "Y:const"},
		[]string{"null", "ref1", "ref2", "ref3"},
		"null",
	)
	require.NoError(t, err)
	require.NoError(t, rs.SetReferencePriors(map[string]float64{
		"null": 0.4, "ref1": 0.2, "ref2": 0.2, "ref3": 0.2,
	}))

	add := func(name string, vals map[string]float64) {
		rp := repr.New(name)
		for k, v := range vals {
			rp.Set(k, v)
		}
		require.NoError(t, rs.Add(rp))
	}
	add("null", map[string]float64{"Y:001": 0.1, "Y:002": 0.1, "Y:const": 0.5})
	add("ref1", map[string]float64{"Y:001": 0.9, "Y:002": 0.2, "Y:const": 0.5})
	add("ref2", map[string]float64{"Y:001": 0.8, "Y:002": 0.1, "Y:const": 0.5})
	add("ref3", map[string]float64{"Y:001": 0.1, "Y:002": 0.9, "Y:const": 0.5})

	rs.Prep(map[string]float64{"Y:001": 0.3, "Y:002": 0.3, "Y:const": 0.3})
	return rs
}

func TestBuildNullColumnUsesPriorAsSpecific(t *testing.T) {
	rs := buildFixture(t)
	rows, _, err := Build(rs, 2)
	require.NoError(t, err)

	found := 0
	for _, row := range rows {
		if row.Reference != "null" {
			continue
		}
		found++
		prior, _ := rs.FeaturePrior(row.Feature)
		assert.InDelta(t, prior, row.Specific, 1e-12)
	}
	assert.Equal(t, 3, found, "all features persisted for the null reference, unreduced")
}

func TestBuildDropsConstantFeatureFromNonNullRows(t *testing.T) {
	rs := buildFixture(t)
	rows, _, err := Build(rs, 2)
	require.NoError(t, err)

	for _, row := range rows {
		if row.Reference != "null" {
			assert.NotEqual(t, "Y:const", row.Feature, "constant feature should be reduced out of non-null rows")
		}
	}
}

func TestBuildNeighborRanksStartAtOne(t *testing.T) {
	rs := buildFixture(t)
	_, ranks, err := Build(rs, 2)
	require.NoError(t, err)

	byRef := map[string][]int{}
	for _, r := range ranks {
		byRef[r.Reference] = append(byRef[r.Reference], r.Rank)
	}
	for ref, rs := range byRef {
		assert.Contains(t, rs, 1, "reference %s missing rank 1", ref)
	}
}

func TestBuildSpecificBelowPriorBranch(t *testing.T) {
	rs := buildFixture(t)
	rows, _, err := Build(rs, 3)
	require.NoError(t, err)

	for _, row := range rows {
		if row.Reference == "ref2" && row.Feature == "Y:002" {
			// self=0.1 < prior=0.3 -> lower branch; specific must be >= self.
			assert.GreaterOrEqual(t, row.Specific, row.Value-1e-12)
			return
		}
	}
	t.Fatal("expected ref2/Y:002 row")
}
