package evidence

import "encoding/json"

// Code classifies how a single feature's (model, reference,
// background) triple was turned into evidence by the inference
// engine (spec.md §4.5).
type Code string

const (
	CodeTP      Code = "TP"
	CodeFP      Code = "FP"
	CodeTN      Code = "TN"
	CodeFN      Code = "FN"
	CodeNeutral Code = "Neutral"
)

// FeatureRecord is one annotated entry of a verbose evidence chain:
// the (tpr, fpr) pair actually submitted, plus the raw values that
// produced it, for explanation output.
type FeatureRecord struct {
	Feature    string  `json:"feature"`
	Code       Code    `json:"code"`
	ModelValue float64 `json:"model_value"`
	RefValue   float64 `json:"ref_value"`
	Background float64 `json:"background"`
	TPR        float64 `json:"tpr"`
	FPR        float64 `json:"fpr"`
}

func (f FeatureRecord) datum() Datum { return Datum{TPR: f.TPR, FPR: f.FPR} }

// ExplainChain is the verbose evidence-chain variant: a prior plus
// annotated per-feature records, producing the same posterior as the
// lean Chain but able to render a JSON explanation of how it was
// reached.
type ExplainChain struct {
	Prior   float64
	Records []FeatureRecord
}

// Add appends an annotated feature record to the chain.
func (c *ExplainChain) Add(r FeatureRecord) {
	c.Records = append(c.Records, r)
}

// Evaluate returns the posterior for the chain, sharing the same
// evaluate contract as Chain.
func (c ExplainChain) Evaluate() float64 {
	data := make([]Datum, len(c.Records))
	for i, r := range c.Records {
		data[i] = r.datum()
	}
	return Update(c.Prior, data)
}

// Explain renders the chain, including its posterior, as JSON.
func (c ExplainChain) Explain() (string, error) {
	type explained struct {
		Prior     float64         `json:"prior"`
		Posterior float64         `json:"posterior"`
		Records   []FeatureRecord `json:"records"`
	}
	b, err := json.MarshalIndent(explained{
		Prior:     c.Prior,
		Posterior: c.Evaluate(),
		Records:   c.Records,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
