package report

import (
	"strings"

	messages "github.com/cucumber/messages/go/v21"
	"github.com/denizgursoy/cukexml/pkg/arguments"
	"github.com/denizgursoy/cukexml/pkg/document"
)

const (
	keywordBefore = "Before"
	keywordAfter  = "After"
	pendingText   = "Pending"
)

// StepScope holds the lookups shared by every step of one attempt.
type StepScope struct {
	Document    *document.Document
	PickleSteps map[int64]*messages.PickleStep
}

// NewStepScope indexes the steps of pickle against doc.
func NewStepScope(doc *document.Document, pickle *messages.Pickle) StepScope {
	return StepScope{
		Document:    doc,
		PickleSteps: doc.PickleStepsByLine(pickle),
	}
}

// Reducer turns step executions into finalized step records.
type Reducer struct {
	opts options
}

// NewReducer creates a Reducer. Only WithLogger and WithExceptionFormatter
// affect step reduction.
func NewReducer(opts ...Option) *Reducer {
	return &Reducer{opts: newOptions(opts)}
}

// ReduceStep finalizes one step. leadingHook must be true while no declared
// step has been seen yet in the scenario; it decides whether a hook is
// reported as "Before" or "After". The only error is a *document.LookupError
// for a declared step whose line is unknown to the document.
func (r *Reducer) ReduceStep(scope StepScope, step StepExecution, leadingHook bool) (Step, error) {
	var data Step

	if step.Kind == StepDeclared {
		pickleStep, ok := scope.PickleSteps[step.Line]
		if !ok {
			return Step{}, &document.LookupError{URI: scope.Document.URI(), Line: step.Line, What: "pickle step"}
		}
		keyword, err := scope.Document.KeywordFor(step.Line)
		if err != nil {
			return Step{}, err
		}
		data.Keyword = keyword
		data.Name = pickleStep.Text
		data.Line = step.Line
		if pickleStep.Argument != nil {
			data.Arguments = r.formatArguments(pickleStep.Argument)
		}
	} else {
		data.Hidden = true
		if leadingHook {
			data.Keyword = keywordBefore
		} else {
			data.Keyword = keywordAfter
		}
	}

	if step.MatchLocation != "" {
		data.Match = &Match{Location: step.MatchLocation}
	}

	if step.Result != nil {
		data.Result = r.reduceResult(data, step)
	}

	if len(step.Attachments) > 0 {
		data.Embeddings = make([]Embedding, len(step.Attachments))
		for i, attachment := range step.Attachments {
			data.Embeddings[i] = Embedding{Data: attachment.Data, MimeType: attachment.MediaType}
		}
	}

	return data, nil
}

func (r *Reducer) reduceResult(data Step, step StepExecution) Result {
	res := step.Result
	result := Result{
		Status:   res.Status,
		Duration: res.Duration,
	}

	switch res.Status {
	case StatusPassed:
	case StatusFailed:
		if step.Kind == StepDeclared {
			result.Failures++
		} else {
			result.Errors++
		}
		if res.Exception != nil {
			result.ErrorName = res.Exception.Name
			result.ErrorMessage = formatSafely(r.opts.formatException, res.Exception, r.opts.logger)
		}
	case StatusPending:
		result.Failures++
		result.ErrorName = pendingText
		result.ErrorMessage = pendingText
	case StatusUndefined:
		result.Failures++
		message, err := undefinedStepMessage(data.Keyword, data.Name)
		if err != nil {
			r.opts.logger.Debug().Err(err).Str("step", data.Name).Msg("using plain undefined step snippet")
		}
		result.ErrorMessage = message
		result.ErrorName, _, _ = strings.Cut(message, "\n")
	case StatusSkipped:
		result.Skipped++
	case StatusAmbiguous:
		result.Errors++
		if res.Exception != nil {
			result.ErrorMessage = formatSafely(r.opts.formatException, res.Exception, r.opts.logger)
		}
	default:
		r.opts.logger.Debug().Str("status", string(res.Status)).Msg("ignoring unknown step status")
	}

	return result
}

func (r *Reducer) formatArguments(arg *messages.PickleStepArgument) []string {
	texts, problems := arguments.FormatAll([]*messages.PickleStepArgument{arg})
	for _, problem := range problems {
		r.opts.logger.Debug().Err(problem).Msg("step argument kept unformatted")
	}
	return texts
}
