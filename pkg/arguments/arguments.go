// Package arguments renders the arguments attached to Gherkin steps
// (DataTables and DocStrings) as plain text for reports.
package arguments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	messages "github.com/cucumber/messages/go/v21"
)

// FormatError reports an argument that could not be rendered in its
// preferred form. The raw representation is used in its place.
type FormatError struct {
	Kind string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("could not format %s argument: %v", e.Kind, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Format renders one step argument. The returned text is always usable; a
// non-nil error is a *FormatError describing why the raw form was used.
// Arguments that are neither a DataTable nor a DocString render as "".
func Format(arg *messages.PickleStepArgument) (string, error) {
	switch {
	case arg == nil:
		return "", nil
	case arg.DataTable != nil:
		return TableFromPickle(arg.DataTable).String(), nil
	case arg.DocString != nil:
		return formatDocString(arg.DocString)
	default:
		return "", nil
	}
}

// FormatAll renders args in order. Formatting problems never drop an
// argument; they are returned alongside the best-effort texts.
func FormatAll(args []*messages.PickleStepArgument) ([]string, []error) {
	texts := make([]string, len(args))
	var problems []error
	for i, arg := range args {
		text, err := Format(arg)
		if err != nil {
			problems = append(problems, err)
		}
		texts[i] = text
	}
	return texts, problems
}

func formatDocString(doc *messages.PickleDocString) (string, error) {
	if !isJSON(doc.MediaType) {
		return doc.Content, nil
	}

	var out bytes.Buffer
	if err := json.Indent(&out, []byte(doc.Content), "", "  "); err != nil {
		return doc.Content, &FormatError{Kind: "json doc string", Err: err}
	}
	return out.String(), nil
}

func isJSON(mediaType string) bool {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	return mediaType == "json" || mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
