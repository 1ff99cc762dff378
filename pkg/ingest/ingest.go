// Package ingest reads a Cucumber Messages NDJSON stream and rebuilds the
// test case attempts and Gherkin documents of the run it describes.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	messages "github.com/cucumber/messages/go/v21"
	"github.com/denizgursoy/cukexml/pkg/document"
	"github.com/denizgursoy/cukexml/pkg/report"
	"github.com/rs/zerolog"
)

// MaxLineSize bounds one envelope. Attachments are inlined, so lines can be
// large.
const MaxLineSize = 64 * 1024 * 1024

// Sink receives what the stream describes. *report.Collector implements it.
type Sink interface {
	AddDocument(doc *document.Document)
	Collect(attempts ...report.TestCaseAttempt)
}

// DecodeError reports an envelope that could not be decoded.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d: invalid message envelope: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Stats describes one ingested stream.
type Stats struct {
	Envelopes int
	Documents int
	Attempts  int

	// Finished is true when the stream ended with testRunFinished.
	Finished bool
	Success  bool
}

type startedCase struct {
	testCaseID string
	attempt    int
	results    map[string]*messages.TestStepResult
	attachment map[string][]report.Attachment
}

// Reader rebuilds attempts from envelopes. A Reader is used for one stream.
type Reader struct {
	logger zerolog.Logger

	documents       map[string]*document.Document
	binders         map[string]*document.Binder
	pickles         map[string]*messages.Pickle
	pickleSteps     map[string]*messages.PickleStep
	stepDefinitions map[string]string
	hooks           map[string]string
	testCases       map[string]*messages.TestCase
	started         map[string]*startedCase
	startOrder      []string
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger used for skipped or inconsistent envelopes.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reader) {
		r.logger = logger
	}
}

// WithDocuments resolves step lines against docs when the stream carries no
// gherkinDocument for their URI. Stream documents take precedence. Pickles
// of compiled documents are bound to them by name and step texts.
func WithDocuments(docs ...*document.Document) Option {
	return func(r *Reader) {
		for _, doc := range docs {
			r.documents[doc.URI()] = doc
			if doc.Compiled() {
				r.binders[doc.URI()] = document.NewBinder(doc)
			}
		}
	}
}

// NewReader creates a Reader.
func NewReader(opts ...Option) *Reader {
	r := &Reader{
		logger:          zerolog.Nop(),
		documents:       make(map[string]*document.Document),
		binders:         make(map[string]*document.Binder),
		pickles:         make(map[string]*messages.Pickle),
		pickleSteps:     make(map[string]*messages.PickleStep),
		stepDefinitions: make(map[string]string),
		hooks:           make(map[string]string),
		testCases:       make(map[string]*messages.TestCase),
		started:         make(map[string]*startedCase),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read consumes in until testRunFinished or end of input. Documents are
// passed to sink as soon as they are seen; an attempt is passed once its
// testCaseFinished arrives. Attempts still open when the stream ends are
// passed as final attempts.
func (r *Reader) Read(ctx context.Context, in io.Reader, sink Sink) (Stats, error) {
	var stats Stats

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var envelope messages.Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return stats, &DecodeError{Line: line, Err: err}
		}
		stats.Envelopes++

		if finished := r.handle(&envelope, sink, &stats); finished != nil {
			stats.Finished = true
			stats.Success = finished.Success
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("could not read message stream after line %d: %w", line, err)
	}

	if !stats.Finished {
		r.logger.Warn().Int("envelopes", stats.Envelopes).Msg("message stream ended without testRunFinished")
	}
	r.flush(sink, &stats)

	return stats, nil
}

func (r *Reader) handle(envelope *messages.Envelope, sink Sink, stats *Stats) *messages.TestRunFinished {
	switch {
	case envelope.GherkinDocument != nil:
		doc := document.New(envelope.GherkinDocument, envelope.GherkinDocument.Uri)
		r.documents[doc.URI()] = doc
		delete(r.binders, doc.URI())
		sink.AddDocument(doc)
		stats.Documents++
	case envelope.Pickle != nil:
		pickle := r.bind(envelope.Pickle)
		r.pickles[pickle.Id] = pickle
		for _, step := range pickle.Steps {
			r.pickleSteps[step.Id] = step
		}
	case envelope.StepDefinition != nil:
		r.stepDefinitions[envelope.StepDefinition.Id] = sourceLocation(envelope.StepDefinition.SourceReference)
	case envelope.Hook != nil:
		r.hooks[envelope.Hook.Id] = sourceLocation(envelope.Hook.SourceReference)
	case envelope.TestCase != nil:
		r.testCases[envelope.TestCase.Id] = envelope.TestCase
	case envelope.TestCaseStarted != nil:
		started := envelope.TestCaseStarted
		r.started[started.Id] = &startedCase{
			testCaseID: started.TestCaseId,
			attempt:    int(started.Attempt),
			results:    make(map[string]*messages.TestStepResult),
			attachment: make(map[string][]report.Attachment),
		}
		r.startOrder = append(r.startOrder, started.Id)
	case envelope.TestStepFinished != nil:
		finished := envelope.TestStepFinished
		if started, ok := r.started[finished.TestCaseStartedId]; ok {
			started.results[finished.TestStepId] = finished.TestStepResult
		} else {
			r.logger.Debug().Str("testCaseStartedId", finished.TestCaseStartedId).Msg("step finished for unknown test case")
		}
	case envelope.Attachment != nil:
		attachment := envelope.Attachment
		if started, ok := r.started[attachment.TestCaseStartedId]; ok {
			started.attachment[attachment.TestStepId] = append(started.attachment[attachment.TestStepId], report.Attachment{
				Data:      attachment.Body,
				MediaType: attachment.MediaType,
			})
		}
	case envelope.TestCaseFinished != nil:
		finished := envelope.TestCaseFinished
		if attempt, ok := r.attemptOf(finished.TestCaseStartedId, finished.WillBeRetried); ok {
			sink.Collect(attempt)
			stats.Attempts++
		}
		delete(r.started, finished.TestCaseStartedId)
	case envelope.TestRunFinished != nil:
		return envelope.TestRunFinished
	}
	return nil
}

// bind rewrites the AST node ids of pickle when its document was loaded
// from a feature file rather than read from the stream.
func (r *Reader) bind(pickle *messages.Pickle) *messages.Pickle {
	binder, ok := r.binders[pickle.Uri]
	if !ok {
		return pickle
	}
	bound, ok := binder.Bind(pickle)
	if !ok {
		r.logger.Warn().Str("uri", pickle.Uri).Str("pickle", pickle.Name).Msg("pickle does not match the feature file")
	}
	return bound
}

// flush passes attempts that started but never finished, in start order.
func (r *Reader) flush(sink Sink, stats *Stats) {
	for _, id := range r.startOrder {
		if _, open := r.started[id]; !open {
			continue
		}
		r.logger.Warn().Str("testCaseStartedId", id).Msg("test case never finished")
		if attempt, ok := r.attemptOf(id, false); ok {
			sink.Collect(attempt)
			stats.Attempts++
		}
		delete(r.started, id)
	}
	r.startOrder = nil
}

func (r *Reader) attemptOf(startedID string, retried bool) (report.TestCaseAttempt, bool) {
	started, ok := r.started[startedID]
	if !ok {
		r.logger.Debug().Str("testCaseStartedId", startedID).Msg("finished test case was never started")
		return report.TestCaseAttempt{}, false
	}
	testCase, ok := r.testCases[started.testCaseID]
	if !ok {
		r.logger.Warn().Str("testCaseId", started.testCaseID).Msg("unknown test case")
		return report.TestCaseAttempt{}, false
	}

	attempt := report.TestCaseAttempt{
		Retried: retried,
		Attempt: started.attempt,
		Steps:   make([]report.StepExecution, 0, len(testCase.TestSteps)),
	}
	pickle, ok := r.pickles[testCase.PickleId]
	if ok {
		attempt.URI = pickle.Uri
		attempt.Pickle = pickle
	} else {
		r.logger.Warn().Str("pickleId", testCase.PickleId).Msg("unknown pickle")
	}
	doc := r.documents[attempt.URI]

	for _, testStep := range testCase.TestSteps {
		execution := report.StepExecution{Kind: report.StepHook}
		if testStep.PickleStepId != "" {
			execution.Kind = report.StepDeclared
			execution.Line = r.stepLine(doc, testStep.PickleStepId)
			if len(testStep.StepDefinitionIds) == 1 {
				execution.MatchLocation = r.stepDefinitions[testStep.StepDefinitionIds[0]]
			}
		} else {
			execution.MatchLocation = r.hooks[testStep.HookId]
		}
		if result, ok := started.results[testStep.Id]; ok && result != nil {
			execution.Result = stepResultOf(result)
		}
		execution.Attachments = started.attachment[testStep.Id]
		attempt.Steps = append(attempt.Steps, execution)
	}
	return attempt, true
}

func (r *Reader) stepLine(doc *document.Document, pickleStepID string) int64 {
	if doc == nil {
		return 0
	}
	line, _ := doc.PickleStepLine(r.pickleSteps[pickleStepID])
	return line
}

func stepResultOf(result *messages.TestStepResult) *report.StepResult {
	out := &report.StepResult{Status: report.StatusFromMessage(result.Status)}
	if result.Duration != nil {
		d := messages.DurationToGoDuration(*result.Duration)
		out.Duration = &d
	}
	if result.Exception != nil || result.Message != "" {
		out.Exception = &report.Exception{Stack: result.Message}
		if result.Exception != nil {
			out.Exception.Name = result.Exception.Type
			out.Exception.Message = result.Exception.Message
		}
	}
	return out
}

func sourceLocation(ref *messages.SourceReference) string {
	if ref == nil || ref.Uri == "" {
		return ""
	}
	if ref.Location == nil {
		return ref.Uri
	}
	return ref.Uri + ":" + strconv.FormatInt(ref.Location.Line, 10)
}
