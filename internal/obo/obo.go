// Package obo parses the OBO flat-file format described in spec.md §6:
// a record-oriented text stream delimited by [Term] and [Typedef]
// sections, blank-line terminated, carrying id/name/is_a/alt_id/
// is_obsolete/replaced_by/synonym fields. It is the ingestion
// collaborator that builds the ontology.Term values consumed by
// internal/ontology; the scoring core itself never parses text.
package obo

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tkonopka/phenoscoring/internal/ontology"
	"github.com/tkonopka/phenoscoring/internal/phenoerr"
)

type sectionKind int

const (
	sectionNone sectionKind = iota
	sectionTerm
	sectionTypedef
)

// record accumulates the fields of a single [Term] stanza as they are
// read, before being converted into an ontology.Term.
type record struct {
	id           string
	name         string
	isA          []string
	alts         []string
	synonyms     []string
	obsolete     bool
	obsoleteSeen bool
	replacedBy   string
	lineNo       int
}

func (r *record) empty() bool {
	return r.id == "" && r.name == "" && len(r.isA) == 0 && len(r.alts) == 0 &&
		len(r.synonyms) == 0 && !r.obsolete && r.replacedBy == ""
}

func (r *record) term() (ontology.Term, error) {
	if r.id == "" {
		return ontology.Term{}, phenoerr.New(phenoerr.InvalidOntologyRecord, "",
			fmt.Errorf("line %d: [Term] stanza without an id", r.lineNo))
	}
	return ontology.Term{
		ID:         r.id,
		Name:       r.name,
		Obsolete:   r.obsolete,
		Alts:       r.alts,
		IsA:        r.isA,
		ReplacedBy: r.replacedBy,
		Synonyms:   r.synonyms,
	}, nil
}

// Parse reads an OBO stream and returns the Terms it describes, ready
// to be handed to ontology.New. Typedef stanzas are skipped; they play
// no part in is_a traversal.
func Parse(r io.Reader) ([]ontology.Term, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var (
		terms   []ontology.Term
		cur     *record
		section = sectionNone
		lineNo  int
	)

	flush := func() error {
		if cur == nil || section != sectionTerm || cur.empty() {
			cur = nil
			return nil
		}
		t, err := cur.term()
		if err != nil {
			return err
		}
		terms = append(terms, t)
		cur = nil
		return nil
	}

	for sc.Scan() {
		lineNo++
		line := sc.Text()
		trimmed := strings.TrimSpace(line)

		switch trimmed {
		case "":
			if err := flush(); err != nil {
				return nil, err
			}
			section = sectionNone
			continue
		case "[Term]":
			if err := flush(); err != nil {
				return nil, err
			}
			section = sectionTerm
			cur = &record{lineNo: lineNo}
			continue
		case "[Typedef]":
			if err := flush(); err != nil {
				return nil, err
			}
			section = sectionTypedef
			cur = &record{lineNo: lineNo}
			continue
		}

		if strings.HasPrefix(trimmed, "[") {
			// Unrecognized stanza header; treat as its own section
			// boundary and skip its body.
			if err := flush(); err != nil {
				return nil, err
			}
			section = sectionNone
			continue
		}

		if section != sectionTerm {
			continue
		}

		key, val, ok := splitField(trimmed)
		if !ok {
			return nil, phenoerr.New(phenoerr.InvalidOntologyRecord, "",
				fmt.Errorf("line %d: malformed field %q", lineNo, line))
		}

		switch key {
		case "id":
			cur.id = val
		case "name":
			cur.name = val
		case "is_a":
			cur.isA = append(cur.isA, firstToken(val))
		case "alt_id":
			cur.alts = append(cur.alts, val)
		case "is_obsolete":
			if val == "true" {
				cur.obsolete = true
				cur.obsoleteSeen = true
			}
		case "replaced_by":
			if !cur.obsoleteSeen {
				return nil, phenoerr.New(phenoerr.InvalidObsoleteReplacement, cur.id,
					fmt.Errorf("line %d: replaced_by without preceding is_obsolete: true", lineNo))
			}
			cur.replacedBy = val
		case "synonym":
			if syn, ok := quotedText(val); ok && syn != cur.name {
				cur.synonyms = append(cur.synonyms, syn)
			}
		default:
			// Unrecognized fields (def, comment, xref, ...) are not
			// part of the traversal model and are ignored.
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	// A trailing record terminated only by EOF is accepted if complete.
	if err := flush(); err != nil {
		return nil, err
	}

	return terms, nil
}

// splitField splits a "key: value" OBO line on the first colon.
func splitField(line string) (key, val string, ok bool) {
	i := strings.Index(line, ":")
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

// firstToken returns the target id from an is_a value, discarding any
// trailing whitespace-delimited comment (e.g. "GO:0000001 ! a comment").
func firstToken(val string) string {
	if i := strings.IndexAny(val, " \t"); i >= 0 {
		return val[:i]
	}
	return val
}

// quotedText returns the text between the first two double quotes of
// a synonym value.
func quotedText(val string) (string, bool) {
	first := strings.IndexByte(val, '"')
	if first < 0 {
		return "", false
	}
	second := strings.IndexByte(val[first+1:], '"')
	if second < 0 {
		return "", false
	}
	return val[first+1 : first+1+second], true
}
