package emitter

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/denizgursoy/cukexml/pkg/report"
)

// XML renders the report as JUnit-compatible XML. Every test case carries
// its steps, so the full counter, exception and attachment model survives.
type XML struct {
	// SuiteName is the name attribute of the <testsuites> root.
	SuiteName string
}

type xmlTestSuites struct {
	XMLName  xml.Name       `xml:"testsuites"`
	Name     string         `xml:"name,attr,omitempty"`
	Tests    int            `xml:"tests,attr"`
	Failures int            `xml:"failures,attr"`
	Errors   int            `xml:"errors,attr"`
	Skipped  int            `xml:"skipped,attr"`
	Time     string         `xml:"time,attr"`
	Suites   []xmlTestSuite `xml:"testsuite"`
}

type xmlTestSuite struct {
	ID          string        `xml:"id,attr"`
	Name        string        `xml:"name,attr"`
	URI         string        `xml:"uri,attr"`
	Line        int64         `xml:"line,attr,omitempty"`
	Keyword     string        `xml:"keyword,attr,omitempty"`
	Tests       int           `xml:"tests,attr"`
	Failures    int           `xml:"failures,attr"`
	Errors      int           `xml:"errors,attr"`
	Skipped     int           `xml:"skipped,attr"`
	Time        string        `xml:"time,attr"`
	Description string        `xml:"description,omitempty"`
	Tags        []string      `xml:"tags>tag,omitempty"`
	Cases       []xmlTestCase `xml:"testcase"`
}

type xmlTestCase struct {
	ID          string      `xml:"id,attr"`
	Name        string      `xml:"name,attr"`
	Classname   string      `xml:"classname,attr"`
	Keyword     string      `xml:"keyword,attr"`
	Line        int64       `xml:"line,attr,omitempty"`
	Status      string      `xml:"status,attr"`
	Time        string      `xml:"time,attr"`
	Incomplete  bool        `xml:"incomplete,attr,omitempty"`
	Description string      `xml:"description,omitempty"`
	Tags        []string    `xml:"tags>tag,omitempty"`
	Failure     *xmlProblem `xml:"failure,omitempty"`
	Error       *xmlProblem `xml:"error,omitempty"`
	Skipped     *xmlSkipped `xml:"skipped,omitempty"`
	Steps       []xmlStep   `xml:"steps>step,omitempty"`
	SystemErr   string      `xml:"system-err,omitempty"`
}

type xmlProblem struct {
	Type    string `xml:"type,attr,omitempty"`
	Message string `xml:"message,attr,omitempty"`
	Text    string `xml:",chardata"`
}

type xmlSkipped struct{}

type xmlStep struct {
	Keyword    string         `xml:"keyword,attr"`
	Name       string         `xml:"name,attr"`
	Line       int64          `xml:"line,attr,omitempty"`
	Hidden     bool           `xml:"hidden,attr,omitempty"`
	Match      string         `xml:"match,attr,omitempty"`
	Status     string         `xml:"status,attr,omitempty"`
	Duration   string         `xml:"duration,attr,omitempty"`
	Failures   int            `xml:"failures,attr"`
	Errors     int            `xml:"errors,attr"`
	Skipped    int            `xml:"skipped,attr"`
	Arguments  []string       `xml:"argument,omitempty"`
	Error      *xmlStepError  `xml:"error,omitempty"`
	Embeddings []xmlEmbedding `xml:"embedding,omitempty"`
}

type xmlStepError struct {
	Name    string `xml:"name,attr,omitempty"`
	Message string `xml:",chardata"`
}

type xmlEmbedding struct {
	MimeType string `xml:"mime_type,attr"`
	Data     string `xml:",chardata"`
}

// Emit writes the XML declaration followed by the indented document.
func (e *XML) Emit(w io.Writer, r *report.Report) error {
	doc := xmlTestSuites{
		Name:     e.SuiteName,
		Tests:    r.Totals.Scenarios,
		Failures: r.Totals.Failed,
		Errors:   r.Totals.Errored,
		Skipped:  r.Totals.Skipped,
		Time:     seconds(r.Totals.Duration),
		Suites:   make([]xmlTestSuite, 0, len(r.Features)),
	}
	for _, feature := range r.Features {
		doc.Suites = append(doc.Suites, xmlSuiteOf(feature))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("could not write xml header: %w", err)
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("could not encode xml report: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("could not write xml report: %w", err)
	}
	return nil
}

func xmlSuiteOf(feature report.FeatureReport) xmlTestSuite {
	suite := xmlTestSuite{
		ID:          feature.ID,
		Name:        feature.Name,
		URI:         feature.URI,
		Line:        feature.Line,
		Keyword:     feature.Keyword,
		Tests:       feature.Totals.Scenarios,
		Failures:    feature.Totals.Failed,
		Errors:      feature.Totals.Errored,
		Skipped:     feature.Totals.Skipped,
		Time:        seconds(feature.Totals.Duration),
		Description: feature.Description,
		Tags:        feature.Tags,
		Cases:       make([]xmlTestCase, 0, len(feature.Elements)),
	}
	for _, scenario := range feature.Elements {
		suite.Cases = append(suite.Cases, xmlCaseOf(feature, scenario))
	}
	return suite
}

func xmlCaseOf(feature report.FeatureReport, scenario report.ScenarioReport) xmlTestCase {
	testCase := xmlTestCase{
		ID:          scenario.ID,
		Name:        scenario.Name,
		Classname:   feature.Name,
		Keyword:     scenario.Keyword,
		Line:        scenario.Line,
		Status:      string(scenario.Outcome),
		Time:        seconds(scenario.Totals.Duration),
		Incomplete:  scenario.Incomplete,
		Description: scenario.Description,
		Tags:        scenario.Tags,
		SystemErr:   scenario.Problem,
	}

	switch scenario.Outcome {
	case report.OutcomeFailed:
		if step, ok := failingStep(scenario.Steps, func(r report.Result) bool { return r.Failures > 0 }); ok {
			testCase.Failure = problemOf(step)
		}
	case report.OutcomeErrored:
		if step, ok := failingStep(scenario.Steps, func(r report.Result) bool { return r.Errors > 0 }); ok {
			testCase.Error = problemOf(step)
		} else {
			testCase.Error = &xmlProblem{Type: "incomplete", Message: firstLine(scenario.Problem), Text: scenario.Problem}
		}
	case report.OutcomeSkipped:
		testCase.Skipped = &xmlSkipped{}
	}

	if len(scenario.Steps) > 0 {
		testCase.Steps = make([]xmlStep, len(scenario.Steps))
		for i, step := range scenario.Steps {
			testCase.Steps[i] = xmlStepOf(step)
		}
	}
	return testCase
}

func problemOf(step report.Step) *xmlProblem {
	message := firstLine(step.Result.ErrorMessage)
	if message == "" {
		message = fmt.Sprintf("%s%s: %s", step.Keyword, step.Name, step.Result.Status)
	}
	return &xmlProblem{
		Type:    step.Result.ErrorName,
		Message: message,
		Text:    step.Result.ErrorMessage,
	}
}

func xmlStepOf(step report.Step) xmlStep {
	out := xmlStep{
		Keyword:   step.Keyword,
		Name:      step.Name,
		Line:      step.Line,
		Hidden:    step.Hidden,
		Status:    string(step.Result.Status),
		Failures:  step.Result.Failures,
		Errors:    step.Result.Errors,
		Skipped:   step.Result.Skipped,
		Arguments: step.Arguments,
	}
	if step.Match != nil {
		out.Match = step.Match.Location
	}
	if step.Result.Duration != nil {
		out.Duration = strconv.FormatInt(step.Result.Duration.Nanoseconds(), 10)
	}
	if step.Result.ErrorName != "" || step.Result.ErrorMessage != "" {
		out.Error = &xmlStepError{Name: step.Result.ErrorName, Message: step.Result.ErrorMessage}
	}
	if len(step.Embeddings) > 0 {
		out.Embeddings = make([]xmlEmbedding, len(step.Embeddings))
		for i, embedding := range step.Embeddings {
			out.Embeddings[i] = xmlEmbedding{MimeType: embedding.MimeType, Data: embedding.Data}
		}
	}
	return out
}
