// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"sort"

	"github.com/tkonopka/phenoscoring/internal/ingest"
	"github.com/tkonopka/phenoscoring/internal/repr"
)

// modelData holds, for a collection of models, the sparse phenotype
// profile each was directly annotated with prior to any ontology
// closure.
type modelData struct {
	// names is the sorted set of model identifiers.
	names []string

	// profiles holds each model's directly annotated phenotype
	// values, keyed by model id.
	profiles map[string]*repr.Representation
}

// loadModelProfiles reads a model phenotypes tsv (id, phenotype, value,
// TPR, FPR, timestamp) and groups the rows into one sparse
// Representation per model, keeping only the value column.
func loadModelProfiles(r io.Reader, onto ingest.Canonicalizer) (*modelData, error) {
	rows, err := ingest.ReadModelPhenotypes(r, onto, nil)
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*repr.Representation)
	for _, row := range rows {
		p, ok := profiles[row.ModelID]
		if !ok {
			p = repr.New(row.ModelID)
			profiles[row.ModelID] = p
		}
		p.Set(row.Phenotype, row.Value)
	}

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	return &modelData{names: names, profiles: profiles}, nil
}
