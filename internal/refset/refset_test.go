package refset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkonopka/phenoscoring/internal/repr"
)

func newFixture(t *testing.T) *ReferenceSet {
	t.Helper()
	rs, err := New([]string{"Y:001", "Y:002", "Y:007"}, []string{"null", "ref1", "ref2"}, "null")
	require.NoError(t, err)
	require.NoError(t, rs.SetReferencePriors(map[string]float64{"null": 0.5, "ref1": 0.3, "ref2": 0.2}))
	return rs
}

func TestNewRejectsUnknownNull(t *testing.T) {
	_, err := New([]string{"Y:001"}, []string{"ref1"}, "null")
	assert.Error(t, err)
}

func TestAddAndGet(t *testing.T) {
	rs := newFixture(t)
	rp := repr.New("ref1")
	rp.Set("Y:001", 0.8)
	rp.Set("Y:999", 1) // not in panel, ignored
	require.NoError(t, rs.Add(rp))

	v, err := rs.GetByID("Y:001", "ref1")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, v, 1e-12)
}

func TestAddUnknownReferenceErrors(t *testing.T) {
	rs := newFixture(t)
	rp := repr.New("ref99")
	assert.Error(t, rs.Add(rp))
}

func TestPrepWithExternalPriors(t *testing.T) {
	rs := newFixture(t)
	rs.Prep(map[string]float64{"Y:001": 0.1, "Y:002": 0.2})

	p1, err := rs.FeaturePrior("Y:001")
	require.NoError(t, err)
	assert.InDelta(t, 0.1, p1, 1e-12)

	// Y:007 absent from external map defaults to 0.
	p3, err := rs.FeaturePrior("Y:007")
	require.NoError(t, err)
	assert.InDelta(t, 0, p3, 1e-12)
}

func TestPrepComputedFloorsZeroColumns(t *testing.T) {
	rs := newFixture(t)
	// Leave all columns at zero for Y:007 -> prior should hit the floor.
	rp := repr.New("ref1")
	rp.Set("Y:001", 1)
	require.NoError(t, rs.Add(rp))
	rs.Prep(nil)

	p7, err := rs.FeaturePrior("Y:007")
	require.NoError(t, err)
	assert.Greater(t, p7, 0.0)

	p1, err := rs.FeaturePrior("Y:001")
	require.NoError(t, err)
	assert.Greater(t, p1, 0.0)
}

func TestNearestNeighborsExcludesSelfAndOrdersByDistance(t *testing.T) {
	rs := newFixture(t)
	r1 := repr.New("ref1")
	r1.Set("Y:001", 1)
	r1.Set("Y:002", 0)
	require.NoError(t, rs.Add(r1))

	r2 := repr.New("ref2")
	r2.Set("Y:001", 1)
	r2.Set("Y:002", 0)
	require.NoError(t, rs.Add(r2))

	n := repr.New("null")
	n.Set("Y:001", 0)
	n.Set("Y:002", 1)
	require.NoError(t, rs.Add(n))

	neighbors, err := rs.NearestNeighbors("ref1", 2)
	require.NoError(t, err)
	require.Len(t, neighbors, 2)
	assert.NotContains(t, neighbors, "ref1")
	assert.Equal(t, "ref2", neighbors[0]) // identical profile, distance 0
}

func TestGetAverageWeightsByReferencePrior(t *testing.T) {
	rs := newFixture(t)
	r1 := repr.New("ref1")
	r1.Set("Y:001", 1)
	require.NoError(t, rs.Add(r1))

	r2 := repr.New("ref2")
	r2.Set("Y:001", 0)
	require.NoError(t, rs.Add(r2))

	avg, err := rs.GetAverage([]string{"ref1", "ref2"})
	require.NoError(t, err)
	idx, ok := rs.FeatureIndex("Y:001")
	require.True(t, ok)
	// weighted: (1*0.3 + 0*0.2) / 0.5 = 0.6
	assert.InDelta(t, 0.6, avg[idx], 1e-12)
}

func TestGetAverageEmptyRefsReturnsZeros(t *testing.T) {
	rs := newFixture(t)
	avg, err := rs.GetAverage(nil)
	require.NoError(t, err)
	for _, v := range avg {
		assert.Equal(t, 0.0, v)
	}
}

func TestLearnOBOMaterializesParentRows(t *testing.T) {
	rs := newFixture(t)
	parentsOf := func(id string) ([]string, error) {
		switch id {
		case "Y:007":
			return []string{"Y:002"}, nil
		}
		return nil, nil
	}
	require.NoError(t, rs.LearnOBO(parentsOf))

	idx, _ := rs.FeatureIndex("Y:007")
	rows, ok := rs.ParentRows(idx)
	require.True(t, ok)
	require.Len(t, rows, 1)
	parentIdx, _ := rs.FeatureIndex("Y:002")
	assert.Equal(t, parentIdx, rows[0])
}
