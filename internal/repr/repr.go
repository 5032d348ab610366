// Package repr implements the phenotype profile ("representation")
// algebra: a sparse map from term id to a probability in [0,1], and
// the impute operation that propagates evidence up and down an
// ontology DAG to produce a complete profile.
package repr

// OntologyView is the capability set impute needs from an ontology:
// the full feature id space plus ancestor/descendant traversal. It is
// satisfied by *ontology.Ontology without repr importing the concrete
// type, matching the "polymorphism over capability sets" guidance.
type OntologyView interface {
	Ids() []string
	Ancestors(id string) ([]string, error)
	Descendants(id string) ([]string, error)
}

// Representation is a named assignment of probabilities to terms. It
// may be sparse (only explicitly Set features) or, after Impute, a
// complete profile carrying every ontology feature.
type Representation struct {
	Name   string
	values map[string]float64
}

// New returns an empty, sparse Representation named name.
func New(name string) *Representation {
	return &Representation{Name: name, values: make(map[string]float64)}
}

// FromMap wraps an existing value map as a Representation without
// copying; callers that need an independent copy should clone first.
func FromMap(name string, values map[string]float64) *Representation {
	return &Representation{Name: name, values: values}
}

// Set stores a float value for feature k.
func (r *Representation) Set(k string, v float64) {
	r.values[k] = v
}

// Get returns the value stored for k and whether it was set.
func (r *Representation) Get(k string) (float64, bool) {
	v, ok := r.values[k]
	return v, ok
}

// Keys returns the explicitly set feature ids, in no particular order.
func (r *Representation) Keys() []string {
	out := make([]string, 0, len(r.values))
	for k := range r.values {
		out = append(out, k)
	}
	return out
}

// Len reports the number of explicitly set features.
func (r *Representation) Len() int { return len(r.values) }

// Values returns the underlying value map. Callers must not mutate it
// unless they own the Representation.
func (r *Representation) Values() map[string]float64 { return r.values }

// Defaults merges d under r's existing values: existing keys in r win,
// keys present only in d are copied in. The receiver is left
// unmodified; a new Representation is returned.
func (r *Representation) Defaults(d map[string]float64) *Representation {
	merged := make(map[string]float64, len(d)+len(r.values))
	for k, v := range d {
		merged[k] = v
	}
	for k, v := range r.values {
		merged[k] = v
	}
	return &Representation{Name: r.Name, values: merged}
}

// Restrict returns the subset of values whose keys are in keys. It is
// the inverse used to check the impute round-trip invariant: Impute
// then Restrict to the original seed keys must reproduce them exactly.
func (r *Representation) Restrict(keys []string) map[string]float64 {
	out := make(map[string]float64, len(keys))
	for _, k := range keys {
		if v, ok := r.values[k]; ok {
			out[k] = v
		}
	}
	return out
}
