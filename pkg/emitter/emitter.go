// Package emitter renders a finalized report. Emitters never aggregate:
// every count they print comes from the report itself.
package emitter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/denizgursoy/cukexml/pkg/report"
)

const (
	FormatXML  = "xml"
	FormatJSON = "json"
	FormatHTML = "html"

	DefaultTitle = "Cucumber"
)

var ErrUnknownFormat = errors.New("unknown report format")

// Emitter serializes a report to w.
type Emitter interface {
	Emit(w io.Writer, r *report.Report) error
}

// ForFormat returns the emitter for name ("xml", "json" or "html"). An empty
// name selects XML. title names the run in formats that carry one.
func ForFormat(name, title string) (Emitter, error) {
	if title == "" {
		title = DefaultTitle
	}
	switch strings.ToLower(name) {
	case "", FormatXML:
		return &XML{SuiteName: title}, nil
	case FormatJSON:
		return &JSON{}, nil
	case FormatHTML:
		return &HTML{Title: title}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// WriteFile emits r into the file at path, creating parent directories as
// needed.
func WriteFile(path string, e Emitter, r *report.Report) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("could not create report directory %q: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create report file %q: %w", path, err)
	}

	if err := e.Emit(f, r); err != nil {
		f.Close()
		return fmt.Errorf("could not write report file %q: %w", path, err)
	}
	return f.Close()
}

// seconds renders d the way JUnit consumers expect a time attribute.
func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// failingStep returns the first step whose counter matches pick.
func failingStep(steps []report.Step, pick func(report.Result) bool) (report.Step, bool) {
	for _, step := range steps {
		if pick(step.Result) {
			return step, true
		}
	}
	return report.Step{}, false
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return line
}
