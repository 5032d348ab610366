package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGetModelDescription(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.PutModelDescription(ctx, ModelDescription{
		ID: "M1", Category: "knockout", Description: `{"gene":"Foo"}`, Timestamp: ts,
	}))

	got, err := s.ModelDescription(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, "knockout", got.Category)
}

func TestModelDescriptionUnknownErrors(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ModelDescription(context.Background(), "missing")
	assert.Error(t, err)
}

func TestScoreRowsCommitAtomically(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Now().UTC().Truncate(time.Second)

	rows := []ScoreRow{
		{Model: "M1", Reference: "R1", Timestamp: ts, General: 0.4, Specific: 0.5},
		{Model: "M1", Reference: "R2", Timestamp: ts, General: 0.6, Specific: 0.7},
	}
	require.NoError(t, s.PutScoreRows(ctx, rows))

	got, err := s.ScoresForModel(ctx, "M1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, s.DeleteModelScores(ctx, "M1"))
	got, err = s.ScoresForModel(ctx, "M1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReferencePriorsUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutReferencePriors(ctx, []ReferencePrior{{ID: "null", Value: 0.5}}))
	require.NoError(t, s.PutReferencePriors(ctx, []ReferencePrior{{ID: "null", Value: 0.6}}))

	got, err := s.ReferencePriors(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.6, got[0].Value, 1e-12)
}

func TestReferenceNeighborsOrderedByRank(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutReferenceNeighbors(ctx, []NeighborRow{
		{ID: "R1", Neighbor: "R3", Rank: 2},
		{ID: "R1", Neighbor: "R2", Rank: 1},
	}))

	got, err := s.ReferenceNeighbors(ctx, "R1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "R2", got[0].Neighbor)
	assert.Equal(t, "R3", got[1].Neighbor)
}

func TestFeatureFrequenciesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutFeatureFrequencies(ctx, []FeatureFrequency{
		{Phenotype: "Y:001", Frequency: 0.2},
	}))
	got, err := s.FeatureFrequencies(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Y:001", got[0].Phenotype)
}
