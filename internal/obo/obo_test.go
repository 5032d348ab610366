package obo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkonopka/phenoscoring/internal/phenoerr"
)

const sample = `format-version: 1.2

[Term]
id: Y:004
name: root

[Term]
id: Y:001
name: branch one
is_a: Y:004 ! root
synonym: "branch uno" EXACT []

[Term]
id: Y:099
name: obsolete term
is_obsolete: true
replaced_by: Y:001
synonym: "obsolete term" EXACT []
`

func TestParseBasic(t *testing.T) {
	terms, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, terms, 3)

	byID := make(map[string]int)
	for i, t := range terms {
		byID[t.ID] = i
	}

	root := terms[byID["Y:004"]]
	assert.Equal(t, "root", root.Name)

	branch := terms[byID["Y:001"]]
	assert.Equal(t, []string{"Y:004"}, branch.IsA)
	assert.Equal(t, []string{"branch uno"}, branch.Synonyms)

	obs := terms[byID["Y:099"]]
	assert.True(t, obs.Obsolete)
	assert.Equal(t, "Y:001", obs.ReplacedBy)
	// A synonym identical to the name is discarded.
	assert.Empty(t, obs.Synonyms)
}

func TestParseTrailingRecordWithoutBlankLine(t *testing.T) {
	src := "[Term]\nid: Y:001\nname: solo"
	terms, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "Y:001", terms[0].ID)
}

func TestParseReplacedByWithoutObsoleteFails(t *testing.T) {
	src := "[Term]\nid: Y:001\nreplaced_by: Y:002\n"
	_, err := Parse(strings.NewReader(src))
	require.Error(t, err)
	var perr *phenoerr.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, phenoerr.InvalidObsoleteReplacement, perr.Kind)
}

func TestParseTypedefIgnored(t *testing.T) {
	src := "[Typedef]\nid: is_a\nname: is_a\n\n[Term]\nid: Y:001\n"
	terms, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "Y:001", terms[0].ID)
}
