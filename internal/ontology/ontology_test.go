// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ontology

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkonopka/phenoscoring/internal/phenoerr"
)

// buildSmallDAG builds:
//
//	Y:004 (root)
//	 ├─ Y:001
//	 └─ Y:002
//	     └─ Y:007
//
// plus an obsolete term Y:099 replaced by Y:002, and Y:002 carries an
// alt id Y:102.
func buildSmallDAG(t *testing.T) *Ontology {
	t.Helper()
	o, err := New([]Term{
		{ID: "Y:004"},
		{ID: "Y:001", IsA: []string{"Y:004"}},
		{ID: "Y:002", IsA: []string{"Y:004"}, Alts: []string{"Y:102"}},
		{ID: "Y:007", IsA: []string{"Y:002"}},
		{ID: "Y:099", Obsolete: true, ReplacedBy: "Y:002"},
	})
	require.NoError(t, err)
	return o
}

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func TestAncestorsExcludesSelf(t *testing.T) {
	o := buildSmallDAG(t)
	for _, id := range o.Ids() {
		anc, err := o.Ancestors(id)
		require.NoError(t, err)
		assert.NotContains(t, anc, id)
	}
}

func TestDescendantsExcludesSelf(t *testing.T) {
	o := buildSmallDAG(t)
	for _, id := range o.Ids() {
		desc, err := o.Descendants(id)
		require.NoError(t, err)
		assert.NotContains(t, desc, id)
	}
}

func TestAncestorsTransitive(t *testing.T) {
	o := buildSmallDAG(t)
	anc, err := o.Ancestors("Y:007")
	require.NoError(t, err)
	assert.Equal(t, []string{"Y:002", "Y:004"}, sorted(anc))
}

func TestDescendantsTransitive(t *testing.T) {
	o := buildSmallDAG(t)
	desc, err := o.Descendants("Y:004")
	require.NoError(t, err)
	assert.Equal(t, []string{"Y:001", "Y:002", "Y:007"}, sorted(desc))
}

func TestCanonicalMatchesAcrossAlts(t *testing.T) {
	o := buildSmallDAG(t)
	cid, ok := o.Canonical("Y:102")
	require.True(t, ok)
	assert.Equal(t, "Y:002", cid)

	direct, err := o.Ancestors("Y:002")
	require.NoError(t, err)
	viaAlt, err := o.Ancestors("Y:102")
	require.NoError(t, err)
	assert.ElementsMatch(t, direct, viaAlt)
}

func TestValidRejectsObsolete(t *testing.T) {
	o := buildSmallDAG(t)
	assert.True(t, o.Has("Y:099"))
	assert.False(t, o.Valid("Y:099"))
	assert.True(t, o.Valid("Y:002"))
}

func TestUnknownTermError(t *testing.T) {
	o := buildSmallDAG(t)
	_, err := o.Ancestors("Y:missing")
	require.Error(t, err)
	var perr *phenoerr.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, phenoerr.UnknownTerm, perr.Kind)
}

func TestSiblings(t *testing.T) {
	o := buildSmallDAG(t)
	sibs, err := o.Siblings("Y:001")
	require.NoError(t, err)
	assert.Equal(t, []string{"Y:002"}, sibs)
}

func TestReplacedBy(t *testing.T) {
	o := buildSmallDAG(t)
	rep, ok := o.ReplacedBy("Y:099")
	require.True(t, ok)
	assert.Equal(t, "Y:002", rep)

	_, ok = o.ReplacedBy("Y:002")
	assert.False(t, ok)
}

func TestSimJaccardSelfIsOne(t *testing.T) {
	o := buildSmallDAG(t)
	for _, id := range o.Ids() {
		s, err := o.SimJaccard(id, id)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, s, 1e-12)
	}
}

func TestSimJaccardSymmetricAndBounded(t *testing.T) {
	o := buildSmallDAG(t)
	ids := o.Ids()
	for _, a := range ids {
		for _, b := range ids {
			sab, err := o.SimJaccard(a, b)
			require.NoError(t, err)
			sba, err := o.SimJaccard(b, a)
			require.NoError(t, err)
			assert.InDelta(t, sab, sba, 1e-12)
			assert.GreaterOrEqual(t, sab, 0.0)
			assert.LessOrEqual(t, sab, 1.0)
		}
	}
}

func TestInvalidObsoleteReplacementRejected(t *testing.T) {
	_, err := New([]Term{
		{ID: "Y:001", ReplacedBy: "Y:002"},
		{ID: "Y:002"},
	})
	require.Error(t, err)
	var perr *phenoerr.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, phenoerr.InvalidObsoleteReplacement, perr.Kind)
}
