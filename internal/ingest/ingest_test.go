package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkonopka/phenoscoring/internal/telemetry"
)

type fakeCanon struct {
	m map[string]string
}

func (f fakeCanon) Canonical(id string) (string, bool) {
	c, ok := f.m[id]
	return c, ok
}

func TestReadConcisePhenotypesBasic(t *testing.T) {
	tsv := "id\tphenotype\tvalue\nref1\tY:001\t0.9\n"
	rows, err := ReadConcisePhenotypes(strings.NewReader(tsv), nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ref1", rows[0].ID)
	assert.InDelta(t, 0.9, rows[0].Value, 1e-12)
}

func TestReadConcisePhenotypesCanonicalizesObsoleteIDs(t *testing.T) {
	tsv := "id\tphenotype\tvalue\nref1\tY:099\t0.5\n"
	onto := fakeCanon{m: map[string]string{"Y:099": "Y:002"}}
	rows, err := ReadConcisePhenotypes(strings.NewReader(tsv), onto, telemetry.Noop())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Y:002", rows[0].Phenotype)
}

func TestReadConcisePhenotypesSkipsStaleWithoutReplacement(t *testing.T) {
	tsv := "id\tphenotype\tvalue\nref1\tY:999\t0.5\nref1\tY:001\t0.2\n"
	onto := fakeCanon{m: map[string]string{"Y:001": "Y:001"}}
	rows, err := ReadConcisePhenotypes(strings.NewReader(tsv), onto, telemetry.Noop())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Y:001", rows[0].Phenotype)
}

func TestReadModelDescriptionsBasic(t *testing.T) {
	tsv := "id\tcategory\tdescription\ttimestamp\nM1\tknockout\t{\"gene\":\"Foo\"}\t2026-01-01T00:00:00Z\n"
	rows, err := ReadModelDescriptions(strings.NewReader(tsv))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "knockout", rows[0].Category)
	assert.Equal(t, `{"gene":"Foo"}`, rows[0].Description)
}

func TestReadModelPhenotypesBasic(t *testing.T) {
	tsv := "id\tphenotype\tvalue\tTPR\tFPR\ttimestamp\nM1\tY:001\t0.9\t0.95\t0.05\t2026-01-01T00:00:00Z\n"
	rows, err := ReadModelPhenotypes(strings.NewReader(tsv), nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 0.95, rows[0].TPR, 1e-12)
}

func TestReadFeatureFrequenciesBasic(t *testing.T) {
	tsv := "phenotype\tfrequency\nY:001\t0.3\n"
	rows, err := ReadFeatureFrequencies(strings.NewReader(tsv))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 0.3, rows[0].Frequency, 1e-12)
}

func TestReadModelDescriptionsMissingColumnErrors(t *testing.T) {
	tsv := "id\tcategory\n M1\tknockout\n"
	_, err := ReadModelDescriptions(strings.NewReader(tsv))
	assert.Error(t, err)
}
