// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"log"
	"sort"

	"github.com/tkonopka/phenoscoring/internal/ontology"
)

// roots returns the ids of the ontology terms that have no is_a
// parent, sorted for deterministic iteration.
func roots(onto *ontology.Ontology) ([]string, error) {
	var out []string
	for _, id := range onto.Ids() {
		parents, err := onto.Parents(id)
		if err != nil {
			return nil, err
		}
		if len(parents) == 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// depthsFrom performs a breadth-first walk down the is_a DAG starting
// at root, following parent_of edges via onto.Children, and calling fn
// for every term reached, including root itself at depth 0. A term
// reachable from more than one path is reported once, at its shallowest
// depth, matching the teacher's walkDownSubClassesFrom.
func depthsFrom(onto *ontology.Ontology, root string, fn func(term string, depth int)) error {
	visited := map[string]bool{root: true}
	level := []string{root}
	depth := 0
	for len(level) > 0 {
		for _, id := range level {
			fn(id, depth)
		}
		var next []string
		for _, id := range level {
			children, err := onto.Children(id)
			if err != nil {
				return err
			}
			for _, c := range children {
				if visited[c] {
					continue
				}
				visited[c] = true
				next = append(next, c)
			}
		}
		sort.Strings(next)
		level = next
		depth++
	}
	return nil
}

// ontoCounts accumulates, for one ontology term, how many directly
// annotated model phenotypes carry evidence of presence (tpr) and
// explicit absence (fpr) at that term once each annotation is closed
// upward over is_a; a model with several annotations below the term
// counts once per annotation.
type ontoCounts struct {
	tpr, fpr float64
}

// accumulate smears every model's directly annotated phenotype values
// up through their ancestor closure, the phenotype-ontology analogue of
// the teacher's gene-count distribution over the Gene Ontology DAG.
// A value at or above 0.5 is treated as evidence of presence (tpr); a
// lower value is treated as evidence of explicit absence (fpr).
func accumulate(onto *ontology.Ontology, data *modelData) (map[string]ontoCounts, error) {
	out := make(map[string]ontoCounts)
	for _, name := range data.names {
		profile := data.profiles[name]
		for _, leaf := range profile.Keys() {
			v, _ := profile.Get(leaf)
			ancestors, err := onto.Ancestors(leaf)
			if err != nil {
				log.Printf("skipping %s for model %s: %v", leaf, name, err)
				continue
			}
			terms := make([]string, 0, len(ancestors)+1)
			terms = append(terms, ancestors...)
			terms = append(terms, leaf)
			for _, t := range terms {
				c := out[t]
				if v >= 0.5 {
					c.tpr++
				} else {
					c.fpr++
				}
				out[t] = c
			}
		}
	}
	return out, nil
}
