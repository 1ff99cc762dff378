package document

import (
	"errors"
	"fmt"
)

// ErrLookup is matched by every *LookupError.
var ErrLookup = errors.New("document lookup failed")

// LookupError reports a line or AST node that an execution event refers to
// but that is absent from the Gherkin document. It means the engine and the
// document are out of sync.
type LookupError struct {
	URI  string
	Line int64
	Node string
	What string
}

func (e *LookupError) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("%s: no %s at line %d", e.URI, e.What, e.Line)
	case e.Node != "":
		return fmt.Sprintf("%s: no %s for AST node %q", e.URI, e.What, e.Node)
	default:
		return fmt.Sprintf("%s: no %s", e.URI, e.What)
	}
}

// Unwrap lets errors.Is(err, ErrLookup) match.
func (e *LookupError) Unwrap() error {
	return ErrLookup
}

// Set holds the documents of a run keyed by URI.
type Set map[string]*Document

// Add indexes doc under its URI, replacing any previous document.
func (s Set) Add(doc *Document) {
	s[doc.URI()] = doc
}

// Get returns the document for uri.
func (s Set) Get(uri string) (*Document, error) {
	doc, ok := s[uri]
	if !ok {
		return nil, &LookupError{URI: uri, What: "gherkin document"}
	}
	return doc, nil
}
