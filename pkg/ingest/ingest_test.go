package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	messages "github.com/cucumber/messages/go/v21"
	"github.com/denizgursoy/cukexml/pkg/document"
	"github.com/denizgursoy/cukexml/pkg/gherkin_parser"
	"github.com/denizgursoy/cukexml/pkg/report"
	"github.com/stretchr/testify/require"
)

const cartFeature = `Feature: Cart

  Scenario: Adding an item
    Given an empty cart
    When the customer adds "socks"
`

type recordingSink struct {
	documents []*document.Document
	attempts  []report.TestCaseAttempt
}

func (s *recordingSink) AddDocument(doc *document.Document) {
	s.documents = append(s.documents, doc)
}

func (s *recordingSink) Collect(attempts ...report.TestCaseAttempt) {
	s.attempts = append(s.attempts, attempts...)
}

type stream struct {
	t   *testing.T
	buf bytes.Buffer
}

func (s *stream) add(envelopes ...*messages.Envelope) *stream {
	for _, envelope := range envelopes {
		line, err := json.Marshal(envelope)
		require.NoError(s.t, err)
		s.buf.Write(line)
		s.buf.WriteByte('\n')
	}
	return s
}

func ref(uri string, line int64) *messages.SourceReference {
	return &messages.SourceReference{Uri: uri, Location: &messages.Location{Line: line}}
}

// cartRun writes the envelopes of one test case with a Before hook and two
// steps. The first attempt fails and is retried; the second passes.
func cartRun(t *testing.T, finishRun bool) *stream {
	t.Helper()
	newID, err := gherkin_parser.NewIDGenerator(gherkin_parser.IDGeneratorIncrementing)
	require.NoError(t, err)
	doc, err := gherkin_parser.ParseGherkinFile(strings.NewReader(cartFeature), "features/cart.feature", newID)
	require.NoError(t, err)
	pickle := gherkin_parser.Pickles(doc, newID)[0]

	s := &stream{t: t}
	s.add(
		&messages.Envelope{GherkinDocument: doc},
		&messages.Envelope{Pickle: pickle},
		&messages.Envelope{StepDefinition: &messages.StepDefinition{Id: "sd-1", SourceReference: ref("steps/cart.go", 12)}},
		&messages.Envelope{StepDefinition: &messages.StepDefinition{Id: "sd-2", SourceReference: ref("steps/cart.go", 20)}},
		&messages.Envelope{Hook: &messages.Hook{Id: "hook-1", SourceReference: ref("steps/hooks.go", 7)}},
		&messages.Envelope{TestCase: &messages.TestCase{Id: "tc-1", PickleId: pickle.Id, TestSteps: []*messages.TestStep{
			{Id: "ts-0", HookId: "hook-1"},
			{Id: "ts-1", PickleStepId: pickle.Steps[0].Id, StepDefinitionIds: []string{"sd-1"}},
			{Id: "ts-2", PickleStepId: pickle.Steps[1].Id, StepDefinitionIds: []string{"sd-2"}},
		}}},
	)

	for attempt, status := range []messages.TestStepResultStatus{messages.TestStepResultStatus_FAILED, messages.TestStepResultStatus_PASSED} {
		startedID := []string{"run-1", "run-2"}[attempt]
		s.add(&messages.Envelope{TestCaseStarted: &messages.TestCaseStarted{Id: startedID, TestCaseId: "tc-1", Attempt: int64(attempt)}})
		s.add(
			&messages.Envelope{TestStepFinished: &messages.TestStepFinished{TestCaseStartedId: startedID, TestStepId: "ts-0", TestStepResult: &messages.TestStepResult{
				Status: messages.TestStepResultStatus_PASSED, Duration: &messages.Duration{Nanos: 500},
			}}},
			&messages.Envelope{TestStepFinished: &messages.TestStepFinished{TestCaseStartedId: startedID, TestStepId: "ts-1", TestStepResult: &messages.TestStepResult{
				Status: messages.TestStepResultStatus_PASSED, Duration: &messages.Duration{Seconds: 1, Nanos: 250},
			}}},
			&messages.Envelope{Attachment: &messages.Attachment{TestCaseStartedId: startedID, TestStepId: "ts-2", Body: "aGVsbG8=", MediaType: "image/png", ContentEncoding: messages.AttachmentContentEncoding_BASE64}},
			&messages.Envelope{Attachment: &messages.Attachment{TestCaseStartedId: startedID, TestStepId: "ts-2", Body: "cart: socks", MediaType: "text/plain", ContentEncoding: messages.AttachmentContentEncoding_IDENTITY}},
		)
		result := &messages.TestStepResult{Status: status, Duration: &messages.Duration{Nanos: 1000}}
		if status == messages.TestStepResultStatus_FAILED {
			result.Message = "expected 1 item, got 0"
			result.Exception = &messages.Exception{Type: "*errors.errorString", Message: "expected 1 item, got 0"}
		}
		s.add(
			&messages.Envelope{TestStepFinished: &messages.TestStepFinished{TestCaseStartedId: startedID, TestStepId: "ts-2", TestStepResult: result}},
			&messages.Envelope{TestCaseFinished: &messages.TestCaseFinished{TestCaseStartedId: startedID, WillBeRetried: attempt == 0}},
		)
	}

	if finishRun {
		s.add(&messages.Envelope{TestRunFinished: &messages.TestRunFinished{Success: true}})
	}
	return s
}

func TestReader_Read(t *testing.T) {
	t.Run("rebuilds attempts from the stream", func(t *testing.T) {
		sink := &recordingSink{}

		stats, err := NewReader().Read(context.Background(), &cartRun(t, true).buf, sink)
		require.NoError(t, err)
		require.True(t, stats.Finished)
		require.True(t, stats.Success)
		require.Equal(t, 1, stats.Documents)
		require.Equal(t, 2, stats.Attempts)

		require.Len(t, sink.documents, 1)
		require.Equal(t, "features/cart.feature", sink.documents[0].URI())

		require.Len(t, sink.attempts, 2)
		first, second := sink.attempts[0], sink.attempts[1]
		require.True(t, first.Retried)
		require.False(t, second.Retried)
		require.Equal(t, 1, second.Attempt)
		require.Equal(t, "features/cart.feature", second.URI)
		require.Equal(t, "Adding an item", second.Pickle.Name)

		steps := second.Steps
		require.Len(t, steps, 3)
		require.Equal(t, report.StepHook, steps[0].Kind)
		require.Equal(t, "steps/hooks.go:7", steps[0].MatchLocation)
		require.Equal(t, report.StepDeclared, steps[1].Kind)
		require.Equal(t, int64(4), steps[1].Line)
		require.Equal(t, "steps/cart.go:12", steps[1].MatchLocation)
		require.Equal(t, time.Second+250*time.Nanosecond, *steps[1].Result.Duration)
		require.Equal(t, int64(5), steps[2].Line)
		require.Equal(t, report.StatusPassed, steps[2].Result.Status)
		require.Equal(t, []report.Attachment{
			{Data: "aGVsbG8=", MediaType: "image/png"},
			{Data: "cart: socks", MediaType: "text/plain"},
		}, steps[2].Attachments)
	})

	t.Run("keeps the exception of failed steps", func(t *testing.T) {
		sink := &recordingSink{}

		_, err := NewReader().Read(context.Background(), &cartRun(t, true).buf, sink)
		require.NoError(t, err)

		failed := sink.attempts[0].Steps[2].Result
		require.Equal(t, report.StatusFailed, failed.Status)
		require.Equal(t, &report.Exception{
			Name:    "*errors.errorString",
			Message: "expected 1 item, got 0",
			Stack:   "expected 1 item, got 0",
		}, failed.Exception)
	})

	t.Run("feeds a collector end to end", func(t *testing.T) {
		collector := report.NewCollector()

		_, err := NewReader().Read(context.Background(), &cartRun(t, true).buf, collector)
		require.NoError(t, err)

		result, err := collector.Finalize(context.Background())
		require.NoError(t, err)
		require.Len(t, result.Features, 1)
		require.Len(t, result.Features[0].Elements, 1)

		scenario := result.Features[0].Elements[0]
		require.Equal(t, report.OutcomePassed, scenario.Outcome)
		require.Equal(t, "Before", scenario.Steps[0].Keyword)
		require.Equal(t, "Given ", scenario.Steps[1].Keyword)
		require.Equal(t, "an empty cart", scenario.Steps[1].Name)
		require.Equal(t, `the customer adds "socks"`, scenario.Steps[2].Name)
		require.Len(t, scenario.Steps[2].Embeddings, 2)
		require.Empty(t, result.Warnings)
	})

	t.Run("ignores envelopes after testRunFinished", func(t *testing.T) {
		s := cartRun(t, true)
		s.buf.WriteString("not json\n")

		stats, err := NewReader().Read(context.Background(), &s.buf, &recordingSink{})
		require.NoError(t, err)
		require.True(t, stats.Finished)
	})

	t.Run("flushes open test cases when the stream ends early", func(t *testing.T) {
		s := cartRun(t, false)
		s.add(&messages.Envelope{TestCaseStarted: &messages.TestCaseStarted{Id: "run-3", TestCaseId: "tc-1", Attempt: 2}})
		sink := &recordingSink{}

		stats, err := NewReader().Read(context.Background(), &s.buf, sink)
		require.NoError(t, err)
		require.False(t, stats.Finished)
		require.Equal(t, 3, stats.Attempts)

		open := sink.attempts[2]
		require.False(t, open.Retried)
		require.Equal(t, 2, open.Attempt)
		require.Nil(t, open.Steps[0].Result)
	})

	t.Run("reports the line of an invalid envelope", func(t *testing.T) {
		input := `{"meta":{"protocolVersion":"21.0.1"}}` + "\n\n" + `{"pickle": [}` + "\n"

		_, err := NewReader().Read(context.Background(), strings.NewReader(input), &recordingSink{})
		require.Error(t, err)

		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
		require.Equal(t, 3, decodeErr.Line)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewReader().Read(ctx, &cartRun(t, true).buf, &recordingSink{})
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("resolves step lines against preloaded documents", func(t *testing.T) {
		newID, err := gherkin_parser.NewIDGenerator(gherkin_parser.IDGeneratorIncrementing)
		require.NoError(t, err)
		doc, err := gherkin_parser.ParseGherkinFile(strings.NewReader(cartFeature), "features/cart.feature", newID)
		require.NoError(t, err)

		_, withoutDocument, found := strings.Cut(cartRun(t, true).buf.String(), "\n")
		require.True(t, found)

		sink := &recordingSink{}
		stats, err := NewReader(WithDocuments(document.New(doc, doc.Uri))).
			Read(context.Background(), strings.NewReader(withoutDocument), sink)
		require.NoError(t, err)
		require.Equal(t, 0, stats.Documents)
		require.Empty(t, sink.documents)

		steps := sink.attempts[1].Steps
		require.Equal(t, int64(4), steps[1].Line)
		require.Equal(t, int64(5), steps[2].Line)
	})
}

func TestReader_ReadCompiledDocuments(t *testing.T) {
	t.Run("binds stream pickles to feature files parsed with other ids", func(t *testing.T) {
		newID, err := gherkin_parser.NewIDGenerator(gherkin_parser.IDGeneratorUUID)
		require.NoError(t, err)
		doc, err := gherkin_parser.ParseGherkinFile(strings.NewReader(cartFeature), "features/cart.feature", newID)
		require.NoError(t, err)
		local := gherkin_parser.Pickles(doc, newID)

		_, withoutDocument, found := strings.Cut(cartRun(t, true).buf.String(), "\n")
		require.True(t, found)

		sink := &recordingSink{}
		_, err = NewReader(WithDocuments(document.NewCompiled(doc, local))).
			Read(context.Background(), strings.NewReader(withoutDocument), sink)
		require.NoError(t, err)
		require.Len(t, sink.attempts, 2)

		attempt := sink.attempts[1]
		require.Equal(t, local[0].AstNodeIds, attempt.Pickle.AstNodeIds)
		require.NotEqual(t, local[0].Id, attempt.Pickle.Id)
		require.Equal(t, int64(4), attempt.Steps[1].Line)
		require.Equal(t, int64(5), attempt.Steps[2].Line)
	})

	t.Run("prefers documents carried by the stream", func(t *testing.T) {
		newID, err := gherkin_parser.NewIDGenerator(gherkin_parser.IDGeneratorUUID)
		require.NoError(t, err)
		doc, err := gherkin_parser.ParseGherkinFile(strings.NewReader(cartFeature), "features/cart.feature", newID)
		require.NoError(t, err)
		local := gherkin_parser.Pickles(doc, newID)

		sink := &recordingSink{}
		_, err = NewReader(WithDocuments(document.NewCompiled(doc, local))).
			Read(context.Background(), &cartRun(t, true).buf, sink)
		require.NoError(t, err)

		require.NotEqual(t, local[0].AstNodeIds, sink.attempts[1].Pickle.AstNodeIds)
		require.Equal(t, int64(4), sink.attempts[1].Steps[1].Line)
	})
}
