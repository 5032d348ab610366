package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkonopka/phenoscoring/internal/inference"
	"github.com/tkonopka/phenoscoring/internal/refset"
	"github.com/tkonopka/phenoscoring/internal/repr"
	"github.com/tkonopka/phenoscoring/internal/store"
)

func idSeq(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + string(rune('A'+i))
	}
	return out
}

func TestPlanPartitionsCoverFullCrossProductExactlyOnce(t *testing.T) {
	refs := idSeq("R", 10)
	models := idSeq("M", 25)
	packets := Plan(refs, models, 4)

	assert.Len(t, packets, 3*7) // ceil(10/4)*ceil(25/4)

	seen := make(map[[2]string]int)
	for _, p := range packets {
		for _, r := range p.References {
			for _, m := range p.Models {
				seen[[2]string{m, r}]++
			}
		}
	}
	assert.Len(t, seen, len(refs)*len(models))
	for pair, count := range seen {
		assert.Equalf(t, 1, count, "pair %v covered %d times", pair, count)
	}
}

func TestPlanEmptyInputsProduceOneEmptyPacket(t *testing.T) {
	packets := Plan(nil, nil, 4)
	require.Len(t, packets, 1)
	assert.Empty(t, packets[0].References)
	assert.Empty(t, packets[0].Models)
}

func buildCoordinatorFixture(t *testing.T) (*Coordinator, store.Store) {
	t.Helper()
	rs, err := refset.New([]string{"Y:001"}, []string{"null", "ref1"}, "null")
	require.NoError(t, err)
	require.NoError(t, rs.SetReferencePriors(map[string]float64{"null": 0.5, "ref1": 0.5}))

	addRef := func(name string, v float64) {
		rp := repr.New(name)
		rp.Set("Y:001", v)
		require.NoError(t, rs.Add(rp))
	}
	addRef("null", 0.2)
	addRef("ref1", 0.9)
	rs.Prep(map[string]float64{"Y:001": 0.3})

	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	model := repr.New("M1")
	model.Set("Y:001", 0.95)

	return &Coordinator{
		General:       inference.New(rs, 1.0),
		Models:        map[string]*repr.Representation{"M1": model},
		MinInference:  0.01,
		MinEnrichment: 1e9, // effectively disabled so only min_inference gates
		Store:         s,
		Cores:         2,
	}, s
}

func TestCoordinatorRunPersistsAboveThreshold(t *testing.T) {
	c, s := buildCoordinatorFixture(t)
	ctx := context.Background()

	require.NoError(t, c.Run(ctx, []string{"null", "ref1"}, []string{"M1"}, 4))

	rows, err := s.ScoresForModel(ctx, "M1")
	require.NoError(t, err)
	assert.NotEmpty(t, rows)
}

func TestCoordinatorRunUnknownModelErrors(t *testing.T) {
	c, _ := buildCoordinatorFixture(t)
	err := c.Run(context.Background(), []string{"ref1"}, []string{"missing"}, 4)
	assert.Error(t, err)
}

func TestHighScorePairsBothThresholds(t *testing.T) {
	rows := []store.ScoreRow{
		{Model: "M1", Reference: "R1", General: 0.8, Specific: 0.7},
		{Model: "M2", Reference: "R1", General: 0.2, Specific: 0.9},
	}
	pairs := HighScorePairs(rows, 0.5)
	require.Len(t, pairs, 1)
	assert.Equal(t, "M1", pairs[0].Model)
}

func TestCountHitsPerReferenceTwoTiers(t *testing.T) {
	rows := []store.ScoreRow{
		{Model: "M1", Reference: "R1", General: 0.9, Specific: 0.9},
		{Model: "M2", Reference: "R1", General: 0.6, Specific: 0.6},
	}
	counts := CountHitsPerReference(rows, []string{"R1", "R2"}, 0.8, 0.5)
	assert.Equal(t, [2]int{1, 2}, counts["R1"])
	assert.Equal(t, [2]int{0, 0}, counts["R2"])
}
