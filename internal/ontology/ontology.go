// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ontology

import (
	"sync"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/tkonopka/phenoscoring/internal/phenoerr"
)

// Ontology is an owning container of Terms keyed by canonical id. It
// holds the is_a DAG as a gonum directed graph — edges run from child
// to parent — together with the inverted parent_of view, and caches
// for parents, ancestors, descendants and alt-id lookup.
//
// An Ontology is built once by New and is immutable afterwards: all
// caches below are read-mostly and safe for concurrent queries once
// construction has returned, matching the concurrency guidance that
// the ontology and its caches may be shared across scheduler workers
// so long as no cache mutation is observable after handoff.
type Ontology struct {
	terms map[string]*Term
	alts  map[string]string // alt id -> canonical id

	g      *simple.DirectedGraph // edges: child -> parent (is_a)
	nodeOf map[string]int64
	idOf   map[int64]string

	mu          sync.RWMutex
	parents     map[string][]string
	children    map[string][]string
	ancestors   map[string][]string
	descendants map[string][]string
	siblings    map[string][]string
}

// New builds an Ontology from the given terms. parent_of edges are
// materialized by inverting is_a at construction time, once.
func New(terms []Term) (*Ontology, error) {
	o := &Ontology{
		terms:       make(map[string]*Term, len(terms)),
		alts:        make(map[string]string),
		g:           simple.NewDirectedGraph(),
		nodeOf:      make(map[string]int64, len(terms)),
		idOf:        make(map[int64]string, len(terms)),
		parents:     make(map[string][]string),
		children:    make(map[string][]string),
		ancestors:   make(map[string][]string),
		descendants: make(map[string][]string),
		siblings:    make(map[string][]string),
	}

	var next int64 = 1
	for i := range terms {
		t := &terms[i]
		o.terms[t.ID] = t
		o.nodeOf[t.ID] = next
		o.idOf[next] = t.ID
		o.g.AddNode(simple.Node(next))
		next++
		for _, a := range t.Alts {
			o.alts[a] = t.ID
		}
		if t.ReplacedBy != "" && !t.Obsolete {
			return nil, phenoerr.New(phenoerr.InvalidObsoleteReplacement, t.ID, nil)
		}
	}

	for i := range terms {
		t := &terms[i]
		from, ok := o.nodeOf[t.ID]
		if !ok {
			continue
		}
		for _, p := range t.IsA {
			to, ok := o.nodeOf[p]
			if !ok {
				continue
			}
			if from == to {
				continue
			}
			o.g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		}
	}

	return o, nil
}

// Ids returns every canonical id known to the ontology, in no
// particular order.
func (o *Ontology) Ids() []string {
	ids := make([]string, 0, len(o.terms))
	for id := range o.terms {
		ids = append(ids, id)
	}
	return ids
}

// Has reports whether id is a known primary or alt id.
func (o *Ontology) Has(id string) bool {
	if id == "" {
		return false
	}
	_, ok := o.canonicalize(id)
	return ok
}

// Valid reports whether id resolves to a known, non-obsolete term.
func (o *Ontology) Valid(id string) bool {
	if id == "" {
		return false
	}
	cid, ok := o.canonicalize(id)
	if !ok {
		return false
	}
	return !o.terms[cid].Obsolete
}

// Canonical returns the canonical id for any known primary or alt id.
// The second return value is false if id is not known.
func (o *Ontology) Canonical(id string) (string, bool) {
	if id == "" {
		return "", false
	}
	return o.canonicalize(id)
}

func (o *Ontology) canonicalize(id string) (string, bool) {
	if _, ok := o.terms[id]; ok {
		return id, true
	}
	if cid, ok := o.alts[id]; ok {
		return cid, true
	}
	// Fall back to a linear scan in case alts were not captured by
	// the eager index built in New (defensive only; New populates
	// the full alt index up front, so this path is not expected to
	// fire in normal operation).
	for cid, t := range o.terms {
		for _, a := range t.Alts {
			if a == id {
				o.alts[id] = cid
				return cid, true
			}
		}
	}
	return "", false
}

// Term returns the Term for a known primary or alt id.
func (o *Ontology) Term(id string) (*Term, bool) {
	cid, ok := o.canonicalize(id)
	if !ok {
		return nil, false
	}
	return o.terms[cid], true
}

// ReplacedBy returns the replacement id for an obsolete term, or ""
// and false if there is none.
func (o *Ontology) ReplacedBy(id string) (string, bool) {
	t, ok := o.Term(id)
	if !ok || t.ReplacedBy == "" {
		return "", false
	}
	return t.ReplacedBy, true
}

// Parents returns the direct is_a parents of id, deduplicated, with
// obsolete targets filtered out.
func (o *Ontology) Parents(id string) ([]string, error) {
	cid, ok := o.canonicalize(id)
	if !ok {
		return nil, phenoerr.New(phenoerr.UnknownTerm, id, nil)
	}
	o.mu.RLock()
	if v, ok := o.parents[cid]; ok {
		o.mu.RUnlock()
		return v, nil
	}
	o.mu.RUnlock()

	from := o.nodeOf[cid]
	seen := make(map[string]bool)
	var out []string
	to := o.g.From(from)
	for to.Next() {
		pid := o.idOf[to.Node().ID()]
		if o.terms[pid].Obsolete || seen[pid] {
			continue
		}
		seen[pid] = true
		out = append(out, pid)
	}

	o.mu.Lock()
	o.parents[cid] = out
	o.mu.Unlock()
	return out, nil
}

// Children returns the direct is_a children of id (the materialized
// parent_of inversion), deduplicated, with obsolete children filtered
// out.
func (o *Ontology) Children(id string) ([]string, error) {
	cid, ok := o.canonicalize(id)
	if !ok {
		return nil, phenoerr.New(phenoerr.UnknownTerm, id, nil)
	}
	o.mu.RLock()
	if v, ok := o.children[cid]; ok {
		o.mu.RUnlock()
		return v, nil
	}
	o.mu.RUnlock()

	to := o.nodeOf[cid]
	seen := make(map[string]bool)
	var out []string
	from := o.g.To(to)
	for from.Next() {
		chid := o.idOf[from.Node().ID()]
		if o.terms[chid].Obsolete || seen[chid] {
			continue
		}
		seen[chid] = true
		out = append(out, chid)
	}

	o.mu.Lock()
	o.children[cid] = out
	o.mu.Unlock()
	return out, nil
}

// Ancestors returns the transitive closure of is_a from id, excluding
// id itself. Traversal deduplicates by node, not by path, since the
// DAG may reach the same ancestor via multiple routes.
func (o *Ontology) Ancestors(id string) ([]string, error) {
	cid, ok := o.canonicalize(id)
	if !ok {
		return nil, phenoerr.New(phenoerr.UnknownTerm, id, nil)
	}
	o.mu.RLock()
	if v, ok := o.ancestors[cid]; ok {
		o.mu.RUnlock()
		return v, nil
	}
	o.mu.RUnlock()

	start := o.nodeOf[cid]
	var out []string
	dfs := traverse.DepthFirst{}
	dfs.Walk(o.g, simple.Node(start), func(n graph.Node) bool {
		if n.ID() != start {
			out = append(out, o.idOf[n.ID()])
		}
		return false
	})

	o.mu.Lock()
	o.ancestors[cid] = out
	o.mu.Unlock()
	return out, nil
}

// reverseView presents the ontology DAG with edges reversed so that
// traverse.DepthFirst walks from parent to child (parent_of order)
// instead of child to parent (is_a order).
type reverseView struct {
	g *simple.DirectedGraph
}

func (r reverseView) From(id int64) graph.Nodes { return r.g.To(id) }

func (r reverseView) Edge(uid, vid int64) graph.Edge { return r.g.Edge(vid, uid) }

// Descendants returns the transitive closure of parent_of from id,
// excluding id itself.
func (o *Ontology) Descendants(id string) ([]string, error) {
	cid, ok := o.canonicalize(id)
	if !ok {
		return nil, phenoerr.New(phenoerr.UnknownTerm, id, nil)
	}
	o.mu.RLock()
	if v, ok := o.descendants[cid]; ok {
		o.mu.RUnlock()
		return v, nil
	}
	o.mu.RUnlock()

	start := o.nodeOf[cid]
	var out []string
	dfs := traverse.DepthFirst{}
	dfs.Walk(reverseView{o.g}, simple.Node(start), func(n graph.Node) bool {
		if n.ID() != start {
			out = append(out, o.idOf[n.ID()])
		}
		return false
	})

	o.mu.Lock()
	o.descendants[cid] = out
	o.mu.Unlock()
	return out, nil
}

// Siblings returns siblings(x) = ∪{children(p) : p ∈ parents(x)} \ {x}.
func (o *Ontology) Siblings(id string) ([]string, error) {
	cid, ok := o.canonicalize(id)
	if !ok {
		return nil, phenoerr.New(phenoerr.UnknownTerm, id, nil)
	}
	o.mu.RLock()
	if v, ok := o.siblings[cid]; ok {
		o.mu.RUnlock()
		return v, nil
	}
	o.mu.RUnlock()

	parents, err := o.Parents(cid)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{cid: true}
	var out []string
	for _, p := range parents {
		children, err := o.Children(p)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}

	o.mu.Lock()
	o.siblings[cid] = out
	o.mu.Unlock()
	return out, nil
}

// SimJaccard computes |A∩B| / |A∪B| where A and B are ancestors(.)∪{self}
// for a and b respectively.
func (o *Ontology) SimJaccard(a, b string) (float64, error) {
	as, err := o.selfAndAncestors(a)
	if err != nil {
		return 0, err
	}
	bs, err := o.selfAndAncestors(b)
	if err != nil {
		return 0, err
	}
	inter := 0
	for id := range as {
		if bs[id] {
			inter++
		}
	}
	union := len(as) + len(bs) - inter
	if union == 0 {
		return 0, nil
	}
	return float64(inter) / float64(union), nil
}

func (o *Ontology) selfAndAncestors(id string) (map[string]bool, error) {
	cid, ok := o.canonicalize(id)
	if !ok {
		return nil, phenoerr.New(phenoerr.UnknownTerm, id, nil)
	}
	anc, err := o.Ancestors(cid)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(anc)+1)
	set[cid] = true
	for _, a := range anc {
		set[a] = true
	}
	return set, nil
}
