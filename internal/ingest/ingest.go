// Package ingest parses the TSV input formats named in spec.md §6:
// concise reference phenotypes, model descriptions, model phenotypes,
// and feature-prior tables. Obsolete phenotype ids are canonicalized
// against an ontology; ids with no replacement are skipped and logged
// at DEBUG rather than raised as errors.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tkonopka/phenoscoring/internal/store"
)

// Canonicalizer resolves a possibly-stale phenotype id to its
// canonical ontology id. It is satisfied by *ontology.Ontology.
type Canonicalizer interface {
	Canonical(id string) (string, bool)
}

const timestampLayout = time.RFC3339

func header(rec []string) map[string]int {
	idx := make(map[string]int, len(rec))
	for i, name := range rec {
		idx[name] = i
	}
	return idx
}

func column(idx map[string]int, rec []string, name string) (string, error) {
	i, ok := idx[name]
	if !ok {
		return "", fmt.Errorf("missing column %q", name)
	}
	if i >= len(rec) {
		return "", fmt.Errorf("row too short for column %q", name)
	}
	return rec[i], nil
}

func parseFloatColumn(idx map[string]int, rec []string, name string) (float64, error) {
	v, err := column(idx, rec, name)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return f, nil
}

func newTSVReader(r io.Reader) *csv.Reader {
	c := csv.NewReader(r)
	c.Comma = '\t'
	c.ReuseRecord = false
	return c
}

// canonicalizePhenotype resolves phenotype against onto. If onto is
// nil, the id is used as-is (verbatim ingestion, e.g. in tests). A
// stale id with no replacement is logged at DEBUG and reported via ok
// == false so the caller skips the row.
func canonicalizePhenotype(onto Canonicalizer, logger *zap.Logger, phenotype string) (string, bool) {
	if onto == nil {
		return phenotype, true
	}
	canon, ok := onto.Canonical(phenotype)
	if s, isView := onto.(interface {
		Valid(id string) bool
		ReplacedBy(id string) (string, bool)
	}); ok && isView && !s.Valid(canon) {
		rep, hasRep := s.ReplacedBy(canon)
		canon, ok = "", false
		if hasRep {
			canon, ok = onto.Canonical(rep)
		}
	}
	if !ok {
		if logger != nil {
			logger.Debug("stale phenotype skipped", zap.String("phenotype", phenotype))
		}
		return "", false
	}
	return canon, true
}

// ReadConcisePhenotypes parses a TSV with header id, phenotype,
// value.
func ReadConcisePhenotypes(r io.Reader, onto Canonicalizer, logger *zap.Logger) ([]store.ConcisePhenotype, error) {
	c := newTSVReader(r)
	headerRow, err := c.Read()
	if err != nil {
		return nil, err
	}
	idx := header(headerRow)

	var out []store.ConcisePhenotype
	for {
		rec, err := c.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		id, err := column(idx, rec, "id")
		if err != nil {
			return nil, err
		}
		phenotype, err := column(idx, rec, "phenotype")
		if err != nil {
			return nil, err
		}
		value, err := parseFloatColumn(idx, rec, "value")
		if err != nil {
			return nil, err
		}
		canon, ok := canonicalizePhenotype(onto, logger, phenotype)
		if !ok {
			continue
		}
		out = append(out, store.ConcisePhenotype{ID: id, Phenotype: canon, Value: value})
	}
	return out, nil
}

// ReadModelDescriptions parses a TSV with header including id,
// category, description (a JSON-encoded object, kept verbatim),
// timestamp.
func ReadModelDescriptions(r io.Reader) ([]store.ModelDescription, error) {
	c := newTSVReader(r)
	headerRow, err := c.Read()
	if err != nil {
		return nil, err
	}
	idx := header(headerRow)

	var out []store.ModelDescription
	for {
		rec, err := c.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		id, err := column(idx, rec, "id")
		if err != nil {
			return nil, err
		}
		category, err := column(idx, rec, "category")
		if err != nil {
			return nil, err
		}
		description, err := column(idx, rec, "description")
		if err != nil {
			return nil, err
		}
		tsRaw, err := column(idx, rec, "timestamp")
		if err != nil {
			return nil, err
		}
		ts, err := time.Parse(timestampLayout, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", "timestamp", err)
		}
		out = append(out, store.ModelDescription{ID: id, Category: category, Description: description, Timestamp: ts})
	}
	return out, nil
}

// ReadModelPhenotypes parses a TSV with header including id,
// phenotype, value, TPR, FPR, timestamp.
func ReadModelPhenotypes(r io.Reader, onto Canonicalizer, logger *zap.Logger) ([]store.ModelPhenotype, error) {
	c := newTSVReader(r)
	headerRow, err := c.Read()
	if err != nil {
		return nil, err
	}
	idx := header(headerRow)

	var out []store.ModelPhenotype
	for {
		rec, err := c.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		id, err := column(idx, rec, "id")
		if err != nil {
			return nil, err
		}
		phenotype, err := column(idx, rec, "phenotype")
		if err != nil {
			return nil, err
		}
		value, err := parseFloatColumn(idx, rec, "value")
		if err != nil {
			return nil, err
		}
		tpr, err := parseFloatColumn(idx, rec, "TPR")
		if err != nil {
			return nil, err
		}
		fpr, err := parseFloatColumn(idx, rec, "FPR")
		if err != nil {
			return nil, err
		}
		tsRaw, err := column(idx, rec, "timestamp")
		if err != nil {
			return nil, err
		}
		ts, err := time.Parse(timestampLayout, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", "timestamp", err)
		}
		canon, ok := canonicalizePhenotype(onto, logger, phenotype)
		if !ok {
			continue
		}
		out = append(out, store.ModelPhenotype{
			ModelID: id, Phenotype: canon, Timestamp: ts, Value: value, TPR: tpr, FPR: fpr,
		})
	}
	return out, nil
}

// ReadFeatureFrequencies parses a TSV with header phenotype,
// frequency.
func ReadFeatureFrequencies(r io.Reader) ([]store.FeatureFrequency, error) {
	c := newTSVReader(r)
	headerRow, err := c.Read()
	if err != nil {
		return nil, err
	}
	idx := header(headerRow)

	var out []store.FeatureFrequency
	for {
		rec, err := c.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		phenotype, err := column(idx, rec, "phenotype")
		if err != nil {
			return nil, err
		}
		freq, err := parseFloatColumn(idx, rec, "frequency")
		if err != nil {
			return nil, err
		}
		out = append(out, store.FeatureFrequency{Phenotype: phenotype, Frequency: freq})
	}
	return out, nil
}
