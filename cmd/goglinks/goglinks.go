// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// goglinks reports a unified diff between two snapshots of a
// reference set's complete phenotype table, so a curator can review
// what a reference-panel rebuild actually changed before it is
// promoted.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/diff"
)

func main() {
	var (
		oldPath = flag.String("old", "", "specify the prior reference_complete_phenotype TSV dump (required)")
		newPath = flag.String("new", "", "specify the rebuilt reference_complete_phenotype TSV dump (required)")
		help    = flag.Bool("help", false, "print help text")
	)

	flag.Parse()

	if *help {
		flag.Usage()
		fmt.Fprintf(os.Stderr, `
%s compares two TSV dumps of the reference_complete_phenotype table
(columns: id, phenotype, value, specific_value) and prints, per
reference id, a unified diff of its sorted phenotype rows.

Copyright ©2020 Dan Kortschak. All rights reserved.

`, filepath.Base(os.Args[0]))
		os.Exit(0)
	}

	if *oldPath == "" || *newPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	oldRows, err := readSnapshot(*oldPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	newRows, err := readSnapshot(*newPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ids := unionKeys(oldRows, newRows)
	for _, id := range ids {
		a := strings.NewReader(strings.Join(oldRows[id], "\n") + "\n")
		b := strings.NewReader(strings.Join(newRows[id], "\n") + "\n")
		var out strings.Builder
		if err := diff.Text(id+" (old)", id+" (new)", a, b, &out); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", id, err)
			continue
		}
		if out.Len() > 0 {
			fmt.Print(out.String())
		}
	}
}

// readSnapshot reads a reference_complete_phenotype TSV dump and
// returns, per reference id, its phenotype rows formatted as
// "phenotype\tvalue\tspecific_value" and sorted by phenotype for a
// stable diff.
func readSnapshot(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string][]string)
	s := bufio.NewScanner(f)
	first := true
	for s.Scan() {
		if first {
			first = false
			continue // header
		}
		line := s.Text()
		fields := strings.Split(line, "\t")
		if len(fields) < 4 {
			continue
		}
		id, phenotype, value, specific := fields[0], fields[1], fields[2], fields[3]
		out[id] = append(out[id], phenotype+"\t"+value+"\t"+specific)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	for id := range out {
		sort.Strings(out[id])
	}
	return out, nil
}

func unionKeys(a, b map[string][]string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	for k := range a {
		seen[k] = true
	}
	for k := range b {
		seen[k] = true
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
