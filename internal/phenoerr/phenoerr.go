// Package phenoerr enumerates the error taxonomy surfaced by the
// phenoscoring core, as distinguished from ordinary wrapped errors.
// Callers use errors.Is/errors.As against the Kind sentinels below
// rather than string matching.
package phenoerr

import "fmt"

// Kind classifies a phenoscoring error so that packet runners and CLI
// collaborators can decide whether to surface, retry, or skip.
type Kind int

const (
	// UnknownTerm is returned for a query against an id the ontology
	// has never seen, including through alt-id resolution.
	UnknownTerm Kind = iota
	// InvalidOntologyRecord marks a malformed OBO stanza.
	InvalidOntologyRecord
	// InvalidObsoleteReplacement marks a replaced_by field on a term
	// that was not also marked is_obsolete: true.
	InvalidObsoleteReplacement
	// UnknownReference marks an operation against a reference column
	// that is not present in a ReferenceSet's column index.
	UnknownReference
	// UnknownModel marks an operation against a model id that has no
	// persisted profile.
	UnknownModel
	// IncompatibleRepresentation marks an attempt to add a
	// Representation whose name has no matching reference column.
	IncompatibleRepresentation
)

func (k Kind) String() string {
	switch k {
	case UnknownTerm:
		return "UnknownTerm"
	case InvalidOntologyRecord:
		return "InvalidOntologyRecord"
	case InvalidObsoleteReplacement:
		return "InvalidObsoleteReplacement"
	case UnknownReference:
		return "UnknownReference"
	case UnknownModel:
		return "UnknownModel"
	case IncompatibleRepresentation:
		return "IncompatibleRepresentation"
	default:
		return "Unknown"
	}
}

// Error is a taxonomy-tagged error carrying the offending identifier.
type Error struct {
	Kind Kind
	ID   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %v", e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %q", e.Kind, e.ID)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so that
// errors.Is(err, phenoerr.New(UnknownTerm, "", nil)) style checks work
// without comparing the identifier.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds a taxonomy-tagged error.
func New(kind Kind, id string, err error) *Error {
	return &Error{Kind: kind, ID: id, Err: err}
}
