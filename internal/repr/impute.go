package repr

import "gonum.org/v1/gonum/floats"

// Impute produces a complete profile over obo's feature set, using the
// receiver's own explicitly set values as seeds. It implements the two
// propagation rules of the representation algebra:
//
//  1. Upward OR-combine: every seed whose value exceeds its default
//     propagates its complement (1-v) multiplicatively into itself and
//     all of its ancestors. A node reached from several seeds (or via
//     several DAG paths from the same seed) accumulates the product of
//     all distinct reaching seeds' complements exactly once each; its
//     final value is one minus that product.
//  2. Downward flood: every seed whose value is below its default
//     lowers every descendant that is still sitting at its own default
//     and is strictly greater than the seed's value, using min
//     semantics. A node reachable from more than one below-default
//     seed takes the minimum of all of them, independent of seed
//     order — see DESIGN.md for why this implementation resolves the
//     order-dependence the original algorithm left as an open
//     question.
//
// Non-affected nodes receive defaults[id] (zero if absent). Every
// explicitly set seed retains its own value in the output regardless
// of how the propagation rules treat its ancestors/descendants.
//
// Both combine steps work over dense, feature-index-aligned vectors.
// The upward step folds seed contributions into the running
// accumulator with gonum/floats, the same vector-combine idiom the
// teacher used to smear per-sample count vectors across Gene Ontology
// terms; the downward step is a plain index loop.
func (r *Representation) Impute(obo OntologyView, defaults map[string]float64) (*Representation, error) {
	out, err := imputeSeeds(obo, defaults, r.values)
	if err != nil {
		return nil, err
	}
	out.Name = r.Name
	return out, nil
}

// ImputeSeeds is the explicit-seeds form of Impute, used when the
// seed set differs from the receiver's own values (e.g. re-imputing a
// profile against a restricted feature subset).
func ImputeSeeds(obo OntologyView, defaults map[string]float64, seeds map[string]float64) (*Representation, error) {
	return imputeSeeds(obo, defaults, seeds)
}

func imputeSeeds(obo OntologyView, defaults map[string]float64, seeds map[string]float64) (*Representation, error) {
	ids := obo.Ids()
	idx := make(map[string]int, len(ids))
	for i, id := range ids {
		idx[id] = i
	}

	complete := make([]float64, len(ids))
	for i, id := range ids {
		complete[i] = defaults[id]
	}

	// Upward OR-combine: product[i] accumulates the multiplicative
	// complement of every above-default seed reaching feature i,
	// folded in one seed's closure vector at a time via floats.Mul.
	product := make([]float64, len(ids))
	for i := range product {
		product[i] = 1
	}
	affectedUp := make([]bool, len(ids))
	comp := make([]float64, len(ids))
	for i := range comp {
		comp[i] = 1
	}

	for id, v := range seeds {
		def := defaults[id]
		if v <= def {
			continue
		}
		anc, err := obo.Ancestors(id)
		if err != nil {
			return nil, err
		}
		c := 1 - v
		touched := make([]int, 0, len(anc)+1)
		mark := func(termID string) {
			i := idx[termID]
			comp[i] = c
			affectedUp[i] = true
			touched = append(touched, i)
		}
		mark(id)
		for _, n := range anc {
			mark(n)
		}
		floats.Mul(product, comp)
		for _, i := range touched {
			comp[i] = 1
		}
	}

	orCombined := make([]float64, len(ids))
	copy(orCombined, product)
	floats.Scale(-1, orCombined)
	floats.AddConst(1, orCombined)
	for i, affected := range affectedUp {
		if affected {
			complete[i] = orCombined[i]
		}
	}

	// Downward flood: each below-default seed lowers every descendant
	// not already reached by the upward pass to the minimum of all
	// reaching seeds' values. There is no gonum/floats elementwise-min
	// primitive, so this fold stays a plain index loop.
	belowCandidate := make([]float64, len(ids))
	touchedBelow := make([]bool, len(ids))
	for id, v := range seeds {
		def := defaults[id]
		if v >= def {
			continue
		}
		desc, err := obo.Descendants(id)
		if err != nil {
			return nil, err
		}
		for _, n := range desc {
			i := idx[n]
			if affectedUp[i] {
				continue
			}
			if !touchedBelow[i] || v < belowCandidate[i] {
				belowCandidate[i] = v
				touchedBelow[i] = true
			}
		}
	}
	for i, touched := range touchedBelow {
		if touched && belowCandidate[i] < complete[i] {
			complete[i] = belowCandidate[i]
		}
	}

	// Seeds always keep their own assigned value, overriding whatever
	// the up/down propagation computed for the node they sit on.
	for id, v := range seeds {
		complete[idx[id]] = v
	}

	out := make(map[string]float64, len(ids))
	for i, id := range ids {
		out[id] = complete[i]
	}
	return &Representation{Name: "", values: out}, nil
}
