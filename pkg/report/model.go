// Package report reduces the step results of a behaviour-driven test run into
// a feature → scenario → step tree with failure, error and skip counters.
package report

import (
	"strings"
	"time"

	messages "github.com/cucumber/messages/go/v21"
)

// Status is the execution outcome of a step as reported by the engine.
// Values outside the declared constants are kept verbatim so that newer
// engines can introduce statuses without breaking reduction.
type Status string

const (
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusPending   Status = "pending"
	StatusUndefined Status = "undefined"
	StatusSkipped   Status = "skipped"
	StatusAmbiguous Status = "ambiguous"
)

// StatusFromMessage converts a Cucumber Messages status ("PASSED", ...) into
// a Status.
func StatusFromMessage(status messages.TestStepResultStatus) Status {
	return Status(strings.ToLower(string(status)))
}

// Known reports whether s is one of the six statuses the reducer counts.
func (s Status) Known() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusPending, StatusUndefined, StatusSkipped, StatusAmbiguous:
		return true
	default:
		return false
	}
}

// StepKind tells declared steps apart from hooks injected by the engine.
type StepKind int

const (
	// StepDeclared is a step written in the feature file.
	StepDeclared StepKind = iota
	// StepHook is a Before/After hook; it has no source line.
	StepHook
)

// Exception describes the error a step raised.
type Exception struct {
	// Name is the error type (e.g. "AssertionError", "*errors.errorString").
	Name string

	// Message is the error message.
	Message string

	// Stack is the engine's full diagnostic text (stack trace, diff).
	Stack string
}

// StepResult is the outcome the engine recorded for one step.
type StepResult struct {
	Status    Status
	Duration  *time.Duration
	Exception *Exception
}

// Attachment is an artifact captured while a step ran.
type Attachment struct {
	// Data is the payload; binary payloads stay base64 encoded.
	Data string

	// MediaType is the content type (e.g. "image/png", "text/plain").
	MediaType string
}

// StepExecution is one step of a test case attempt, in execution order.
type StepExecution struct {
	Kind StepKind

	// Line is the source line of a declared step. Zero for hooks.
	Line int64

	// MatchLocation is the source location of the step definition or hook
	// body that ran (e.g. "steps/cart.go:42"). Empty when unmatched.
	MatchLocation string

	// Result is nil when the step never produced a result.
	Result *StepResult

	Attachments []Attachment
}

// TestCaseAttempt is one execution of one pickle. Retried scenarios produce
// several attempts; only those with Retried=false reach the report.
type TestCaseAttempt struct {
	// URI identifies the Gherkin document the pickle was compiled from.
	URI string

	Pickle  *messages.Pickle
	Steps   []StepExecution
	Retried bool

	// Attempt is the zero-based retry counter reported by the engine.
	Attempt int
}

// Match points at the step definition bound to a step.
type Match struct {
	Location string
}

// Embedding is an attachment as it appears in the report.
type Embedding struct {
	Data     string
	MimeType string
}

// Result is the reduced outcome of one step. Failures, Errors and Skipped are
// always present; at most one of them is non-zero.
type Result struct {
	// Status is empty when the step produced no result.
	Status   Status
	Duration *time.Duration

	Failures int
	Errors   int
	Skipped  int

	ErrorName    string
	ErrorMessage string
}

// Step is a finalized step record.
type Step struct {
	// Keyword includes its trailing space for declared steps ("Given ") and
	// is "Before" or "After" for hooks.
	Keyword   string
	Name      string
	Line      int64
	Hidden    bool
	Arguments []string
	Match     *Match
	Result    Result

	Embeddings []Embedding
}

// Outcome classifies a whole scenario for JUnit-style consumers.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeErrored Outcome = "errored"
	OutcomeSkipped Outcome = "skipped"
)

// Totals are counters rolled up from steps to scenarios, features and runs.
type Totals struct {
	Scenarios int
	Passed    int
	Failed    int
	Errored   int
	Skipped   int

	Steps        int
	StepFailures int
	StepErrors   int
	StepSkipped  int

	Duration time.Duration
}

// Add accumulates other into t.
func (t *Totals) Add(other Totals) {
	t.Scenarios += other.Scenarios
	t.Passed += other.Passed
	t.Failed += other.Failed
	t.Errored += other.Errored
	t.Skipped += other.Skipped
	t.Steps += other.Steps
	t.StepFailures += other.StepFailures
	t.StepErrors += other.StepErrors
	t.StepSkipped += other.StepSkipped
	t.Duration += other.Duration
}

// ScenarioReport is one scenario (pickle) with its finalized steps.
type ScenarioReport struct {
	ID          string
	Name        string
	Keyword     string
	Description string
	Line        int64
	Tags        []string
	Steps       []Step

	Outcome Outcome
	Totals  Totals

	// Incomplete is set when the attempt could not be matched against its
	// document; Steps then holds only the steps reduced before the mismatch.
	Incomplete bool
	Problem    string
}

// FeatureReport groups the scenarios of one Gherkin document.
type FeatureReport struct {
	ID          string
	URI         string
	Name        string
	Keyword     string
	Description string
	Line        int64
	Tags        []string
	Elements    []ScenarioReport

	Totals Totals
}

// Report is the finalized result of a run.
type Report struct {
	Features []FeatureReport
	Totals   Totals

	// Warnings lists recoverable problems, such as attempts that did not
	// match their document, in the order they were found.
	Warnings []string
}

// HasFailures reports whether any scenario failed or errored.
func (r *Report) HasFailures() bool {
	return r.Totals.Failed > 0 || r.Totals.Errored > 0
}
