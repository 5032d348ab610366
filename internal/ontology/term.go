// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ontology implements a directed acyclic graph of controlled
// vocabulary terms connected by is_a edges, with ancestor/descendant/
// sibling queries, obsolete and alt-id canonicalization, and a Jaccard
// similarity measure over ancestor sets.
package ontology

// Term is a single node of the ontology DAG.
//
// Invariants: ID is unique within an Ontology; IsA edges point from
// child to parent; ReplacedBy is only meaningful when Obsolete is true;
// obsolete terms are retained so stale ids can still be canonicalized.
type Term struct {
	// ID is the canonical, primary identifier for the term.
	ID string
	// Name is the human readable label, not used for identity.
	Name string
	// Obsolete marks a term that has been retired from the ontology.
	Obsolete bool
	// Alts holds alternative ids that canonicalize to ID.
	Alts []string
	// IsA holds the ids of the term's direct parents.
	IsA []string
	// ReplacedBy holds the id of the replacement term, set only when
	// Obsolete is true. Empty when there is no replacement.
	ReplacedBy string
	// Synonyms holds free-text synonyms distinct from Name.
	Synonyms []string
}
