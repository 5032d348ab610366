// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// smeargol distributes a set of models' directly annotated phenotypes
// across the ontology DAG provided and prints the terms, their roots
// and depths and accumulated (tpr, fpr) evidence counts in a tsv table
// to stdout. It is a coverage diagnostic: run it before a full scoring
// pass to see how much of the ontology a model set actually touches,
// and at what depth independent evidence starts to run out.
//
// The ontology is read from a plain OBO flat file. The model
// phenotypes file is a tab-delimited file with columns id, phenotype,
// value, TPR, FPR and timestamp, as accepted by the phenoscoring score
// and explain commands.
//
// If -out is given, a summary document is written in JSON format
// corresponding to the following Go structs.
//
//	type SummaryDoc struct {
//		// Roots is the set of roots in the ontology.
//		Roots []string
//
//		// Summaries contains the summaries of a coverage
//		// analysis, one slice per root.
//		Summaries [][]*Summary
//	}
//
//	type Summary struct {
//		// Root is the root term for the summary.
//		Root string
//
//		// Depth is the distance from the root.
//		Depth int
//
//		// Rows and Cols are the dimensions of the matrix
//		// describing the ontology level. Rows corresponds to
//		// the number of models and Cols corresponds to the
//		// number of terms at that level.
//		Rows, Cols int
//
//		// OptimalRank and FractionalRank are the calculated
//		// ranks of the summary matrix. OptimalRank is
//		// calculated according to the method of Matan Gavish
//		// and David L. Donoho https://arxiv.org/abs/1305.5870.
//		// FractionalRank is the rank calculated using the
//		// user-provided fraction parameter.
//		OptimalRank, FractionalRank int
//
//		// Sigma is the complete set of singular values.
//		Sigma []float64
//	}
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/tkonopka/phenoscoring/internal/obo"
	"github.com/tkonopka/phenoscoring/internal/ontology"
)

// Summary describes the singular-value spectrum of the model-by-term
// matrix at one ontology level.
type Summary struct {
	Root                        string
	Depth                       int
	Rows, Cols                  int
	OptimalRank, FractionalRank int
	Sigma                       []float64
}

// SummaryDoc is the top level document written to the -out file.
type SummaryDoc struct {
	Roots     []string
	Summaries [][]*Summary
}

func main() {
	var (
		oboPath    = flag.String("ontology", "", "specify the ontology in OBO flat-file format (required)")
		modelsPath = flag.String("models", "", "specify the model phenotypes tsv (required)")
		out        = flag.String("out", "", "specify the summary output file")
		cut        = flag.Float64("cut", 1, "minimum valid singular value")
		frac       = flag.Float64("frac", 0.75, "include singular values up to this cumulative fraction")
		help       = flag.Bool("help", false, "print help text")
	)
	flag.Parse()

	if *help {
		flag.Usage()
		fmt.Fprintf(os.Stderr, `
%s distributes a set of models' directly annotated phenotypes across
the ontology DAG provided and prints the terms, their roots and depths
and accumulated evidence counts in a tsv table to stdout, as a sanity
check on ontology/model coverage ahead of a full scoring run.

Copyright ©2020 Dan Kortschak. All rights reserved.

`, filepath.Base(os.Args[0]))
		os.Exit(0)
	}

	if *oboPath == "" || *modelsPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	log.Println(os.Args)

	log.Println("[loading ontology]")
	oboFile, err := os.Open(*oboPath)
	if err != nil {
		log.Fatalf("failed to open ontology: %v", err)
	}
	terms, err := obo.Parse(oboFile)
	oboFile.Close()
	if err != nil {
		log.Fatalf("failed to parse ontology: %v", err)
	}
	onto, err := ontology.New(terms)
	if err != nil {
		log.Fatalf("failed to build ontology: %v", err)
	}

	log.Println("[loading model phenotypes]")
	modelsFile, err := os.Open(*modelsPath)
	if err != nil {
		log.Fatalf("failed to open models file: %v", err)
	}
	data, err := loadModelProfiles(modelsFile, onto)
	modelsFile.Close()
	if err != nil {
		log.Fatalf("failed to load model phenotypes: %v", err)
	}

	rootIDs, err := roots(onto)
	if err != nil {
		log.Fatalf("failed to compute ontology roots: %v", err)
	}

	log.Println("[smearing model evidence]")
	ontoData, err := accumulate(onto, data)
	if err != nil {
		log.Fatalf("failed to accumulate evidence: %v", err)
	}

	depths := make(map[string]int)
	termsByRoot := make(map[string][]string)
	for _, r := range rootIDs {
		err := depthsFrom(onto, r, func(term string, depth int) {
			if _, ok := depths[term]; !ok {
				depths[term] = depth
			}
			termsByRoot[r] = append(termsByRoot[r], term)
		})
		if err != nil {
			log.Fatalf("failed to walk ontology from %s: %v", r, err)
		}
	}

	log.Println("[printing coverage table]")
	fmt.Println("term\troot\tdepth\ttpr\tfpr")
	for _, r := range rootIDs {
		for _, t := range termsByRoot[r] {
			c, ok := ontoData[t]
			if !ok {
				continue
			}
			fmt.Printf("%s\t%s\t%d\t%v\t%v\n", t, r, depths[t], c.tpr, c.fpr)
		}
	}

	if *out == "" {
		return
	}

	log.Println("[estimating per-level evidence rank]")
	for _, d := range []string{"matrices", "plots"} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			log.Fatal(err)
		}
	}

	summaries := make([][]*Summary, len(rootIDs))
	for i, r := range rootIDs {
		byDepth := make(map[int][]string)
		maxDepth := 0
		for _, t := range termsByRoot[r] {
			d := depths[t]
			byDepth[d] = append(byDepth[d], t)
			if d > maxDepth {
				maxDepth = d
			}
		}
		for d := 0; d <= maxDepth; d++ {
			levelTerms := byDepth[d]
			if len(levelTerms) == 0 {
				continue
			}
			sort.Strings(levelTerms)
			m := mat.NewDense(len(data.names), len(levelTerms), nil)
			for col, t := range levelTerms {
				for row, name := range data.names {
					v, _ := data.profiles[name].Get(t)
					m.Set(row, col, v)
				}
			}
			path := fmt.Sprintf("%s_%03d", r, d)
			s, err := optimalTruncation(path, m, *cut, *frac)
			if err != nil {
				log.Println(err)
			}
			s.Root = r
			s.Depth = d
			summaries[i] = append(summaries[i], s)

			if err := writeMatrix(path, data.names, levelTerms, m); err != nil {
				log.Println(err)
			}
		}
	}

	b, err := json.MarshalIndent(SummaryDoc{Roots: rootIDs, Summaries: summaries}, "", "\t")
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(*out, b, 0o644); err != nil {
		log.Fatal(err)
	}
}

func writeMatrix(path string, rows, cols []string, data *mat.Dense) (err error) {
	f, err := os.Create(filepath.Join("matrices", path+".tsv"))
	if err != nil {
		return err
	}
	defer func() {
		cerr := f.Close()
		if err == nil {
			err = cerr
		}
	}()

	if _, err = fmt.Fprintf(f, "\t%s\n", strings.Join(cols, "\t")); err != nil {
		return err
	}
	for r, id := range rows {
		if _, err = f.WriteString(id); err != nil {
			return err
		}
		for c := range cols {
			if _, err = fmt.Fprintf(f, "\t%v", data.At(r, c)); err != nil {
				return err
			}
		}
		if _, err = f.Write([]byte{'\n'}); err != nil {
			return err
		}
	}
	return nil
}
